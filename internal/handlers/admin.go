package handlers

import (
	"errors"

	"medify-server/internal/models"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler handles administrative account oversight.
type AdminHandler struct {
	DB *gorm.DB
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

// GetCounts returns platform-wide totals for the admin dashboard.
func (h *AdminHandler) GetCounts(c *gin.Context) {
	counts := gin.H{}
	for name, model := range map[string]interface{}{
		"doctors":      &models.Doctor{},
		"patients":     &models.Patient{},
		"appointments": &models.Appointment{},
		"reviews":      &models.Review{},
	} {
		var count int64
		if err := h.DB.Model(model).Count(&count).Error; err != nil {
			utils.InternalServerError(c, "Failed to count "+name+": "+err.Error())
			return
		}
		counts[name] = count
	}

	utils.Success(c, "Counts fetched successfully", counts)
}

// GetAccounts lists all accounts of one role.
func (h *AdminHandler) GetAccounts(c *gin.Context) {
	role, err := models.ParseRole(c.Param("type"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	switch role {
	case models.RoleAdmin:
		var admins []models.Admin
		if err := h.DB.Find(&admins).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch accounts: "+err.Error())
			return
		}
		sanitized := make([]models.AdminSanitized, len(admins))
		for i := range admins {
			sanitized[i] = admins[i].Sanitize()
		}
		utils.Success(c, "Accounts fetched successfully", sanitized)
	case models.RoleDoctor:
		var doctors []models.Doctor
		if err := h.DB.Find(&doctors).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch accounts: "+err.Error())
			return
		}
		sanitized := make([]models.DoctorSanitized, len(doctors))
		for i := range doctors {
			sanitized[i] = doctors[i].Sanitize()
		}
		utils.Success(c, "Accounts fetched successfully", sanitized)
	case models.RolePatient:
		var patients []models.Patient
		if err := h.DB.Find(&patients).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch accounts: "+err.Error())
			return
		}
		sanitized := make([]models.PatientSanitized, len(patients))
		for i := range patients {
			sanitized[i] = patients[i].Sanitize()
		}
		utils.Success(c, "Accounts fetched successfully", sanitized)
	}
}

// GetProfile fetches any account's profile by role and ID.
func (h *AdminHandler) GetProfile(c *gin.Context) {
	role, err := models.ParseRole(c.Param("type"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	acct, err := findAccountByID(h.DB, role, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Account not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", sanitizeAccount(acct))
}

// DeleteAccount removes an account by role and ID, along with its refresh
// tokens.
func (h *AdminHandler) DeleteAccount(c *gin.Context) {
	role, err := models.ParseRole(c.Param("type"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	id := c.Param("id")

	acct, err := findAccountByID(h.DB, role, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Account not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(acct).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete account: "+err.Error())
		return
	}

	utils.Success(c, "Account deleted successfully", nil)
}
