package handlers

import (
	"strconv"
	"time"

	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/timeslot"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SearchHandler handles filtered queries over doctors, appointments and
// medical reports.
type SearchHandler struct {
	DB *gorm.DB
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(db *gorm.DB) *SearchHandler {
	return &SearchHandler{DB: db}
}

// SearchDoctors filters the doctor directory. Query parameters:
// specialization (substring match), rating (minimum), availability (weekday
// the doctor has a window on). Results are sorted highest rated first.
func (h *SearchHandler) SearchDoctors(c *gin.Context) {
	query := h.DB.Model(&models.Doctor{}).Order("rating desc, name asc")

	if spec := c.Query("specialization"); spec != "" {
		query = query.Where("specialization LIKE ?", "%"+spec+"%")
	}
	if minRating := c.Query("rating"); minRating != "" {
		rating, err := strconv.ParseFloat(minRating, 64)
		if err != nil || rating < 0 || rating > 5 {
			utils.BadRequest(c, "rating must be a number between 0 and 5")
			return
		}
		query = query.Where("rating >= ?", rating)
	}
	if dayParam := c.Query("availability"); dayParam != "" {
		day, err := timeslot.ParseDay(dayParam)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		query = query.Where(
			"id IN (?)",
			h.DB.Model(&models.AvailabilitySlot{}).Select("doctor_id").Where("day_of_week = ?", day),
		)
	}

	var doctors []models.Doctor
	if err := query.Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to search doctors: "+err.Error())
		return
	}

	sanitized := make([]models.DoctorSanitized, len(doctors))
	for i := range doctors {
		sanitized[i] = doctors[i].Sanitize()
	}
	utils.Success(c, "Doctors fetched successfully", sanitized)
}

// SearchAppointments filters the caller's own appointments. Query parameters:
// status, startDate, endDate (both YYYY-MM-DD, inclusive).
func (h *SearchHandler) SearchAppointments(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role not found")
		return
	}

	query := h.DB.Preload("Doctor").Preload("Patient").Order("date asc, start_min asc")
	switch role {
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleAdmin:
	}

	if status := c.Query("status"); status != "" {
		s := models.AppointmentStatus(status)
		if !models.ValidStatus(s) {
			utils.BadRequest(c, "status must be one of UPCOMING, COMPLETED, CANCELLED")
			return
		}
		query = query.Where("status = ?", s)
	}
	if from := c.Query("startDate"); from != "" {
		start, err := time.Parse("2006-01-02", from)
		if err != nil {
			utils.BadRequest(c, "Invalid startDate, expected YYYY-MM-DD")
			return
		}
		query = query.Where("date >= ?", start)
	}
	if to := c.Query("endDate"); to != "" {
		end, err := time.Parse("2006-01-02", to)
		if err != nil {
			utils.BadRequest(c, "Invalid endDate, expected YYYY-MM-DD")
			return
		}
		query = query.Where("date <= ?", end)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to search appointments: "+err.Error())
		return
	}

	views := make([]models.AppointmentView, len(appointments))
	for i := range appointments {
		views[i] = appointments[i].View()
	}
	utils.Success(c, "Appointments fetched successfully", views)
}

// SearchMedicalReports filters the caller's own medical reports. Query
// parameters: type, startDate, endDate (both YYYY-MM-DD, inclusive).
func (h *SearchHandler) SearchMedicalReports(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role not found")
		return
	}

	query := h.DB.Preload("Attachments").Order("report_date desc")
	switch role {
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleAdmin:
	}

	if t := c.Query("type"); t != "" {
		reportType := models.ReportType(t)
		if !models.ValidReportType(reportType) {
			utils.BadRequest(c, "type must be one of checkup, follow-up, emergency, consultation")
			return
		}
		query = query.Where("type = ?", reportType)
	}
	if from := c.Query("startDate"); from != "" {
		start, err := time.Parse("2006-01-02", from)
		if err != nil {
			utils.BadRequest(c, "Invalid startDate, expected YYYY-MM-DD")
			return
		}
		query = query.Where("report_date >= ?", start)
	}
	if to := c.Query("endDate"); to != "" {
		end, err := time.Parse("2006-01-02", to)
		if err != nil {
			utils.BadRequest(c, "Invalid endDate, expected YYYY-MM-DD")
			return
		}
		query = query.Where("report_date <= ?", end)
	}

	var reports []models.MedicalReport
	if err := query.Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to search medical reports: "+err.Error())
		return
	}

	utils.Success(c, "Medical reports fetched successfully", reports)
}
