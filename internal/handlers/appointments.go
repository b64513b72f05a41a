package handlers

import (
	"errors"
	"strings"
	"time"

	"medify-server/internal/booking"
	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/timeslot"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AppointmentHandler handles appointment booking and lifecycle requests.
// All conflict-sensitive writes go through the booking engine.
type AppointmentHandler struct {
	DB     *gorm.DB
	Engine *booking.Engine
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, engine *booking.Engine) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Engine: engine}
}

// CreateAppointmentRequest represents the request body for booking.
// Time accepts both 24-hour ("14:00") and 12-hour ("2:00 PM") forms.
type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required,uuid"`
	Date     string `json:"date" binding:"required"` // YYYY-MM-DD
	Time     string `json:"time" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
	Notes    string `json:"notes"`
}

// CreateAppointment books a new appointment for the authenticated patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}
	startMin, err := timeslot.ParseClock(req.Time)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	appt, err := h.Engine.Book(c.Request.Context(), booking.BookRequest{
		DoctorID:  req.DoctorID,
		PatientID: patientID,
		Date:      date,
		StartMin:  startMin,
		Reason:    req.Reason,
		Notes:     req.Notes,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appt.View())
}

// GetAppointments lists the caller's appointments partitioned by status.
// Doctors see their schedule, patients their bookings, admins everything.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
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

	query := h.DB.Preload("Doctor").Preload("Patient").
		Order("date asc, start_min asc")
	switch role {
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleAdmin:
		// Admins see all appointments.
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	partitioned := map[string][]models.AppointmentView{
		"upcoming":  {},
		"completed": {},
		"cancelled": {},
	}
	for i := range appointments {
		view := appointments[i].View()
		switch appointments[i].Status {
		case models.StatusUpcoming:
			partitioned["upcoming"] = append(partitioned["upcoming"], view)
		case models.StatusCompleted:
			partitioned["completed"] = append(partitioned["completed"], view)
		case models.StatusCancelled:
			partitioned["cancelled"] = append(partitioned["cancelled"], view)
		}
	}

	utils.Success(c, "Appointments fetched successfully", partitioned)
}

// UpdateAppointmentRequest represents the request body for lifecycle updates.
// All fields are optional; omitted fields are untouched.
type UpdateAppointmentRequest struct {
	Status *string `json:"status"`
	Date   *string `json:"date"` // YYYY-MM-DD
	Time   *string `json:"time"`
	Notes  *string `json:"notes"`
}

// UpdateAppointment applies a status change, reschedule, or notes update.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
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
	apptID := c.Param("id")

	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var patch booking.Patch
	if req.Status != nil {
		status := models.AppointmentStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		patch.Status = &status
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		patch.Date = &date
	}
	if req.Time != nil {
		startMin, err := timeslot.ParseClock(*req.Time)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		patch.StartMin = &startMin
	}
	patch.Notes = req.Notes

	appt, err := h.Engine.Update(c.Request.Context(), apptID, userID, role, patch)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	utils.Success(c, "Appointment updated successfully", appt.View())
}

// GetOpenSlots lists the free 60-minute start times for a doctor on a date.
func (h *AppointmentHandler) GetOpenSlots(c *gin.Context) {
	doctorID := c.Param("doctorId")
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	open, err := h.Engine.OpenSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	utils.Success(c, "Available slots fetched successfully", open)
}

// writeBookingError maps booking engine errors onto HTTP responses.
func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrDoctorNotFound),
		errors.Is(err, booking.ErrPatientNotFound),
		errors.Is(err, booking.ErrAppointmentNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, booking.ErrNotOwner):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		utils.Conflict(c, err.Error())
	case errors.Is(err, booking.ErrPastTime),
		errors.Is(err, booking.ErrNotAvailable),
		errors.Is(err, booking.ErrCancelledLocked),
		errors.Is(err, booking.ErrCompletedLocked),
		errors.Is(err, booking.ErrInvalidStatus):
		utils.BadRequest(c, err.Error())
	default:
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
	}
}
