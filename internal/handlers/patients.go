package handlers

import (
	"errors"
	"time"

	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PatientHandler handles patient profile, medical history and favorites.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// UpdatePatientProfileRequest represents the request body for profile updates.
// Empty fields are left untouched.
type UpdatePatientProfileRequest struct {
	Name             string `json:"name"`
	Gender           string `json:"gender"`
	DateOfBirth      string `json:"dateOfBirth"` // YYYY-MM-DD
	BloodType        string `json:"bloodType"`
	Allergies        string `json:"allergies"`
	PhoneNumber      string `json:"phoneNumber"`
	Address          string `json:"address"`
	EmergencyName    string `json:"emergencyName"`
	EmergencyPhone   string `json:"emergencyPhone"`
	EmergencyKinship string `json:"emergencyKinship"`
}

// UpdateProfile updates the authenticated patient's profile.
func (h *PatientHandler) UpdateProfile(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdatePatientProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	if req.Name != "" {
		patient.Name = req.Name
	}
	if req.Gender != "" {
		patient.Gender = req.Gender
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			utils.BadRequest(c, "Invalid dateOfBirth, expected YYYY-MM-DD")
			return
		}
		patient.DateOfBirth = &dob
	}
	if req.BloodType != "" {
		patient.BloodType = req.BloodType
	}
	if req.Allergies != "" {
		patient.Allergies = req.Allergies
	}
	if req.PhoneNumber != "" {
		patient.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		patient.Address = req.Address
	}
	if req.EmergencyName != "" {
		patient.EmergencyName = req.EmergencyName
	}
	if req.EmergencyPhone != "" {
		patient.EmergencyPhone = req.EmergencyPhone
	}
	if req.EmergencyKinship != "" {
		patient.EmergencyKinship = req.EmergencyKinship
	}

	if err := h.DB.Save(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", patient.Sanitize())
}

// MedicalHistoryRequest represents the request body for adding a history entry.
type MedicalHistoryRequest struct {
	Condition     string `json:"condition" binding:"required"`
	DiagnosedDate string `json:"diagnosedDate"` // YYYY-MM-DD
	Medications   string `json:"medications"`
	Notes         string `json:"notes"`
}

// AddMedicalHistory appends a condition to the authenticated patient's history.
func (h *PatientHandler) AddMedicalHistory(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req MedicalHistoryRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	entry := models.MedicalHistoryEntry{
		PatientID:   patientID,
		Condition:   req.Condition,
		Medications: req.Medications,
		Notes:       req.Notes,
	}
	if req.DiagnosedDate != "" {
		diagnosed, err := time.Parse("2006-01-02", req.DiagnosedDate)
		if err != nil {
			utils.BadRequest(c, "Invalid diagnosedDate, expected YYYY-MM-DD")
			return
		}
		entry.DiagnosedDate = &diagnosed
	}

	if err := h.DB.Create(&entry).Error; err != nil {
		utils.InternalServerError(c, "Failed to add medical history: "+err.Error())
		return
	}

	utils.Created(c, "Medical history added successfully", entry)
}

// GetMedicalHistory lists the authenticated patient's history entries.
func (h *PatientHandler) GetMedicalHistory(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var entries []models.MedicalHistoryEntry
	if err := h.DB.Where("patient_id = ?", patientID).
		Order("created_at desc").
		Find(&entries).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medical history: "+err.Error())
		return
	}

	utils.Success(c, "Medical history fetched successfully", entries)
}

// AddFavorite adds a doctor to the authenticated patient's favorites.
// Adding a doctor twice is a conflict.
func (h *PatientHandler) AddFavorite(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	doctorID := c.Param("doctorId")

	var doctor models.Doctor
	if err := h.DB.First(&doctor, "id = ?", doctorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var patient models.Patient
	if err := h.DB.Preload("FavoriteDoctors").First(&patient, "id = ?", patientID).Error; err != nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	for _, fav := range patient.FavoriteDoctors {
		if fav.ID == doctorID {
			utils.Conflict(c, "Doctor is already in favorites")
			return
		}
	}

	if err := h.DB.Model(&patient).Association("FavoriteDoctors").Append(&doctor); err != nil {
		utils.InternalServerError(c, "Failed to add favorite: "+err.Error())
		return
	}

	utils.Success(c, "Doctor added to favorites", nil)
}

// GetFavorites lists the authenticated patient's favorite doctors.
func (h *PatientHandler) GetFavorites(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var patient models.Patient
	if err := h.DB.Preload("FavoriteDoctors").First(&patient, "id = ?", patientID).Error; err != nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	favorites := make([]models.DoctorSanitized, len(patient.FavoriteDoctors))
	for i, fav := range patient.FavoriteDoctors {
		favorites[i] = fav.Sanitize()
	}
	utils.Success(c, "Favorites fetched successfully", favorites)
}

// RemoveFavorite removes a doctor from the authenticated patient's favorites.
func (h *PatientHandler) RemoveFavorite(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	doctorID := c.Param("doctorId")

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", patientID).Error; err != nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	if err := h.DB.Model(&patient).Association("FavoriteDoctors").
		Delete(&models.Doctor{BaseModel: models.BaseModel{ID: doctorID}}); err != nil {
		utils.InternalServerError(c, "Failed to remove favorite: "+err.Error())
		return
	}

	utils.Success(c, "Doctor removed from favorites", nil)
}
