package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/storage"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MedicalRecordHandler handles medical reports, their attachments and
// prescriptions.
type MedicalRecordHandler struct {
	DB    *gorm.DB
	Files storage.FileStore
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(db *gorm.DB, files storage.FileStore) *MedicalRecordHandler {
	return &MedicalRecordHandler{DB: db, Files: files}
}

// CreateReport creates a medical report for a patient. Only doctors can
// create reports. The request is multipart form data so attachments can be
// uploaded in the same call under the "attachments" field.
func (h *MedicalRecordHandler) CreateReport(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	patientID := c.PostForm("patientId")
	diagnosis := c.PostForm("diagnosis")
	reportType := models.ReportType(c.PostForm("type"))
	if patientID == "" || diagnosis == "" {
		utils.BadRequest(c, "patientId and diagnosis are required")
		return
	}
	if !models.ValidReportType(reportType) {
		utils.BadRequest(c, "type must be one of checkup, follow-up, emergency, consultation")
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	reportDate := time.Now()
	if d := c.PostForm("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		reportDate = parsed
	}

	report := models.MedicalReport{
		PatientID:     patientID,
		DoctorID:      doctorID,
		AppointmentID: c.PostForm("appointmentId"),
		Diagnosis:     diagnosis,
		Symptoms:      c.PostForm("symptoms"),
		Type:          reportType,
		ReportDate:    reportDate,
		Treatment:     c.PostForm("treatment"),
		Notes:         c.PostForm("notes"),
	}

	var savedPaths []string
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}

		form, err := c.MultipartForm()
		if err != nil {
			// No multipart body means no attachments.
			return nil
		}
		for _, header := range form.File["attachments"] {
			if header.Size > storage.MaxFileSize {
				return storage.ErrFileTooLarge
			}
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("opening upload %q: %w", header.Filename, err)
			}
			path, err := h.Files.Save(c.Request.Context(), "reports", header.Filename, file)
			file.Close()
			if err != nil {
				return fmt.Errorf("storing upload %q: %w", header.Filename, err)
			}
			savedPaths = append(savedPaths, path)
			attachment := models.ReportAttachment{
				ReportID: report.ID,
				FileName: header.Filename,
				Path:     path,
				MimeType: header.Header.Get("Content-Type"),
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return err
			}
			report.Attachments = append(report.Attachments, attachment)
		}
		return nil
	})
	if err != nil {
		// The attachment rows rolled back with the transaction; drop the
		// already-written files too.
		for _, path := range savedPaths {
			h.Files.Remove(c.Request.Context(), path)
		}
		if errors.Is(err, storage.ErrFileTooLarge) {
			utils.BadRequest(c, err.Error())
			return
		}
		utils.InternalServerError(c, "Failed to create medical report: "+err.Error())
		return
	}

	utils.Created(c, "Medical report created successfully", report)
}

// GetReports lists medical reports visible to the caller: patients see their
// own, doctors the ones they wrote, admins everything.
func (h *MedicalRecordHandler) GetReports(c *gin.Context) {
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
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RoleAdmin:
	}

	var reports []models.MedicalReport
	if err := query.Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medical reports: "+err.Error())
		return
	}

	utils.Success(c, "Medical reports fetched successfully", reports)
}

// GetPatientReports lists a patient's reports for a doctor or the patient
// themselves.
func (h *MedicalRecordHandler) GetPatientReports(c *gin.Context) {
	patientID := c.Param("patientId")
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	isDoctor := role == models.RoleDoctor
	isSelf := role == models.RolePatient && userID == patientID
	if !isDoctor && !isSelf && role != models.RoleAdmin {
		utils.Forbidden(c, "You are not authorized to view these medical reports")
		return
	}

	var reports []models.MedicalReport
	if err := h.DB.Preload("Attachments").
		Where("patient_id = ?", patientID).
		Order("report_date desc").
		Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medical reports: "+err.Error())
		return
	}

	utils.Success(c, "Medical reports fetched successfully", reports)
}

// GetAttachment streams an attachment's file content. The caller must be the
// report's patient, its doctor, or an admin.
func (h *MedicalRecordHandler) GetAttachment(c *gin.Context) {
	attachmentID := c.Param("attachmentId")

	var attachment models.ReportAttachment
	if err := h.DB.First(&attachment, "id = ?", attachmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Attachment not found")
		} else {
			utils.InternalServerError(c, "Database error fetching attachment: "+err.Error())
		}
		return
	}

	var report models.MedicalReport
	if err := h.DB.First(&report, "id = ?", attachment.ReportID).Error; err != nil {
		utils.InternalServerError(c, "Could not fetch parent report for authorization check")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	authorized := role == models.RoleAdmin ||
		(role == models.RoleDoctor && userID == report.DoctorID) ||
		(role == models.RolePatient && userID == report.PatientID)
	if !authorized {
		utils.Forbidden(c, "You are not authorized to view this attachment")
		return
	}

	file, err := h.Files.Open(c.Request.Context(), attachment.Path)
	if err != nil {
		utils.InternalServerError(c, "Failed to open attachment: "+err.Error())
		return
	}
	defer file.Close()

	c.Writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	c.Writer.Header().Set("Content-Type", attachment.MimeType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		// Headers already sent, nothing sensible left to return.
		_ = c.Error(err)
	}
}

// MedicationRequest is one line item of a prescription request.
type MedicationRequest struct {
	Name         string `json:"name" binding:"required"`
	Dosage       string `json:"dosage" binding:"required"`
	Frequency    string `json:"frequency" binding:"required"`
	Duration     string `json:"duration" binding:"required"`
	Instructions string `json:"instructions"`
}

// CreatePrescriptionRequest represents the request body for issuing a
// prescription.
type CreatePrescriptionRequest struct {
	PatientID   string              `json:"patientId" binding:"required,uuid"`
	ReportID    string              `json:"reportId"`
	Notes       string              `json:"notes"`
	ValidUntil  string              `json:"validUntil" binding:"required"` // YYYY-MM-DD
	Medications []MedicationRequest `json:"medications" binding:"required,min=1,dive"`
}

// CreatePrescription issues a prescription. Only doctors can prescribe.
func (h *MedicalRecordHandler) CreatePrescription(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	validUntil, err := time.Parse("2006-01-02", req.ValidUntil)
	if err != nil {
		utils.BadRequest(c, "Invalid validUntil, expected YYYY-MM-DD")
		return
	}
	if !validUntil.After(time.Now()) {
		utils.BadRequest(c, "validUntil must be in the future")
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", req.PatientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	prescription := models.Prescription{
		ReportID:   req.ReportID,
		DoctorID:   doctorID,
		PatientID:  req.PatientID,
		Notes:      req.Notes,
		ValidUntil: validUntil,
		Status:     models.PrescriptionActive,
	}
	for _, m := range req.Medications {
		prescription.Medications = append(prescription.Medications, models.Medication{
			Name:         m.Name,
			Dosage:       m.Dosage,
			Frequency:    m.Frequency,
			Duration:     m.Duration,
			Instructions: m.Instructions,
		})
	}

	if err := h.DB.Create(&prescription).Error; err != nil {
		utils.InternalServerError(c, "Failed to create prescription: "+err.Error())
		return
	}

	utils.Created(c, "Prescription created successfully", prescription)
}

// GetPrescriptions lists prescriptions visible to the caller.
func (h *MedicalRecordHandler) GetPrescriptions(c *gin.Context) {
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

	query := h.DB.Preload("Medications").Order("created_at desc")
	switch role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RoleAdmin:
	}

	var prescriptions []models.Prescription
	if err := query.Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}

	utils.Success(c, "Prescriptions fetched successfully", prescriptions)
}

// UpdatePrescriptionRequest represents the request body for prescription
// updates.
type UpdatePrescriptionRequest struct {
	Status string `json:"status" binding:"omitempty,oneof=active completed cancelled"`
	Notes  string `json:"notes"`
}

// UpdatePrescription changes a prescription's status or notes. Only the
// issuing doctor may update it.
func (h *MedicalRecordHandler) UpdatePrescription(c *gin.Context) {
	doctorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	prescriptionID := c.Param("id")

	var req UpdatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var prescription models.Prescription
	if err := h.DB.Preload("Medications").First(&prescription, "id = ?", prescriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Prescription not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if prescription.DoctorID != doctorID {
		utils.Forbidden(c, "Only the issuing doctor can update this prescription")
		return
	}

	if req.Status != "" {
		prescription.Status = models.PrescriptionStatus(req.Status)
	}
	if req.Notes != "" {
		prescription.Notes = req.Notes
	}

	if err := h.DB.Save(&prescription).Error; err != nil {
		utils.InternalServerError(c, "Failed to update prescription: "+err.Error())
		return
	}

	utils.Success(c, "Prescription updated successfully", prescription)
}
