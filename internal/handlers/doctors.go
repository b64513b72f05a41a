package handlers

import (
	"errors"

	"medify-server/internal/booking"
	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/timeslot"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DoctorHandler handles doctor profile and availability requests.
type DoctorHandler struct {
	DB     *gorm.DB
	Engine *booking.Engine
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, engine *booking.Engine) *DoctorHandler {
	return &DoctorHandler{DB: db, Engine: engine}
}

// GetDoctors lists all doctors, highest rated first.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	var doctors []models.Doctor
	if err := h.DB.Order("rating desc, name asc").Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	sanitized := make([]models.DoctorSanitized, len(doctors))
	for i := range doctors {
		sanitized[i] = doctors[i].Sanitize()
	}
	utils.Success(c, "Doctors fetched successfully", sanitized)
}

// GetPublicProfile returns one doctor's public profile with availability.
func (h *DoctorHandler) GetPublicProfile(c *gin.Context) {
	doctorID := c.Param("doctorId")

	var doctor models.Doctor
	if err := h.DB.Preload("Availability.BookedSlots").First(&doctor, "id = ?", doctorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	availability := make([]models.SlotView, len(doctor.Availability))
	for i := range doctor.Availability {
		availability[i] = doctor.Availability[i].View()
	}

	utils.Success(c, "Doctor profile fetched successfully", gin.H{
		"doctor":       doctor.Sanitize(),
		"availability": availability,
	})
}

// UpdateDoctorProfileRequest represents the request body for profile updates.
// Empty fields are left untouched.
type UpdateDoctorProfileRequest struct {
	Name            string `json:"name"`
	Gender          string `json:"gender"`
	Nationality     string `json:"nationality"`
	ClinicName      string `json:"clinicName"`
	ClinicAddress   string `json:"clinicAddress"`
	Specialization  string `json:"specialization"`
	ExperienceYears *int   `json:"experienceYears"`
	ProfileImage    string `json:"profileImage"`
}

// UpdateProfile updates the authenticated doctor's profile.
func (h *DoctorHandler) UpdateProfile(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateDoctorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var doctor models.Doctor
	if err := h.DB.First(&doctor, "id = ?", doctorID).Error; err != nil {
		utils.NotFound(c, "Doctor not found")
		return
	}

	if req.Name != "" {
		doctor.Name = req.Name
	}
	if req.Gender != "" {
		doctor.Gender = req.Gender
	}
	if req.Nationality != "" {
		doctor.Nationality = req.Nationality
	}
	if req.ClinicName != "" {
		doctor.ClinicName = req.ClinicName
	}
	if req.ClinicAddress != "" {
		doctor.ClinicAddress = req.ClinicAddress
	}
	if req.Specialization != "" {
		doctor.Specialization = req.Specialization
	}
	if req.ExperienceYears != nil {
		doctor.ExperienceYears = *req.ExperienceYears
	}
	if req.ProfileImage != "" {
		doctor.ProfileImage = req.ProfileImage
	}

	if err := h.DB.Save(&doctor).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", doctor.Sanitize())
}

// GetAvailability returns the authenticated doctor's weekly schedule.
func (h *DoctorHandler) GetAvailability(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var slots []models.AvailabilitySlot
	if err := h.DB.Preload("BookedSlots").
		Where("doctor_id = ?", doctorID).
		Order("day_of_week asc, start_min asc").
		Find(&slots).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}

	views := make([]models.SlotView, len(slots))
	for i := range slots {
		views[i] = slots[i].View()
	}
	utils.Success(c, "Availability fetched successfully", views)
}

// AvailabilitySlotRequest is one weekly window in an availability update.
type AvailabilitySlotRequest struct {
	DayOfWeek string `json:"dayOfWeek" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

// UpdateAvailabilityRequest replaces the doctor's whole weekly schedule.
type UpdateAvailabilityRequest struct {
	Availability []AvailabilitySlotRequest `json:"availability" binding:"required"`
}

// UpdateAvailability replaces the authenticated doctor's weekly schedule.
// Booked sub-intervals on days that remain in the schedule are carried over
// so existing appointments stay reserved. Runs under the doctor's booking
// lock to serialize with concurrent bookings.
func (h *DoctorHandler) UpdateAvailability(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateAvailabilityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	type window struct {
		day        timeslot.Day
		start, end int
	}
	windows := make([]window, 0, len(req.Availability))
	for _, s := range req.Availability {
		day, err := timeslot.ParseDay(s.DayOfWeek)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		start, err := timeslot.ParseClock(s.StartTime)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		end, err := timeslot.ParseClock(s.EndTime)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		if start >= end {
			utils.BadRequest(c, "startTime must be before endTime")
			return
		}
		for _, w := range windows {
			if w.day == day && timeslot.Overlaps(start, end, w.start, w.end) {
				utils.BadRequest(c, "availability windows must not overlap")
				return
			}
		}
		windows = append(windows, window{day: day, start: start, end: end})
	}

	err := h.Engine.WithDoctorLock(doctorID, func() error {
		return h.DB.Transaction(func(tx *gorm.DB) error {
			var old []models.AvailabilitySlot
			if err := tx.Preload("BookedSlots").
				Where("doctor_id = ?", doctorID).
				Find(&old).Error; err != nil {
				return err
			}

			// Reservations grouped by weekday; re-attached below.
			bookedByDay := make(map[timeslot.Day][]models.BookedSlot)
			for _, slot := range old {
				bookedByDay[slot.DayOfWeek] = append(bookedByDay[slot.DayOfWeek], slot.BookedSlots...)
			}

			if len(old) > 0 {
				oldIDs := make([]string, len(old))
				for i := range old {
					oldIDs[i] = old[i].ID
				}
				if err := tx.Where("slot_id IN ?", oldIDs).Delete(&models.BookedSlot{}).Error; err != nil {
					return err
				}
				if err := tx.Where("doctor_id = ?", doctorID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
					return err
				}
			}

			for _, w := range windows {
				slot := models.AvailabilitySlot{
					DoctorID:  doctorID,
					DayOfWeek: w.day,
					StartMin:  w.start,
					EndMin:    w.end,
				}
				if err := tx.Create(&slot).Error; err != nil {
					return err
				}
				remaining := bookedByDay[w.day][:0]
				for _, b := range bookedByDay[w.day] {
					if b.StartMin >= w.start && b.EndMin <= w.end {
						reattached := models.BookedSlot{
							SlotID:        slot.ID,
							StartMin:      b.StartMin,
							EndMin:        b.EndMin,
							AppointmentID: b.AppointmentID,
						}
						if err := tx.Create(&reattached).Error; err != nil {
							return err
						}
					} else {
						remaining = append(remaining, b)
					}
				}
				bookedByDay[w.day] = remaining
			}
			return nil
		})
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update availability: "+err.Error())
		return
	}

	var slots []models.AvailabilitySlot
	if err := h.DB.Preload("BookedSlots").
		Where("doctor_id = ?", doctorID).
		Order("day_of_week asc, start_min asc").
		Find(&slots).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}
	views := make([]models.SlotView, len(slots))
	for i := range slots {
		views[i] = slots[i].View()
	}
	utils.Success(c, "Availability updated successfully", views)
}

// GetPatients lists the distinct patients who have appointments with the
// authenticated doctor.
func (h *DoctorHandler) GetPatients(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var patientIDs []string
	if err := h.DB.Model(&models.Appointment{}).
		Distinct("patient_id").
		Where("doctor_id = ?", doctorID).
		Pluck("patient_id", &patientIDs).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	patients := []models.PatientSanitized{}
	if len(patientIDs) > 0 {
		var rows []models.Patient
		if err := h.DB.Where("id IN ?", patientIDs).Order("name asc").Find(&rows).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
			return
		}
		for i := range rows {
			patients = append(patients, rows[i].Sanitize())
		}
	}

	utils.Success(c, "Patients fetched successfully", patients)
}
