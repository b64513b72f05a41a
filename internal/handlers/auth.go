package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"medify-server/internal/config"
	"medify-server/internal/models"
	"medify-server/internal/notify"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests for all three account
// variants.
type AuthHandler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer notify.Mailer
	Log    zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, mailer notify.Mailer, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Mailer: mailer, Log: log}
}

// findAccountByEmail resolves the concrete account variant for a role by
// login email. Dispatch is an explicit switch over the closed role set.
func findAccountByEmail(db *gorm.DB, role models.Role, email string) (models.Account, error) {
	switch role {
	case models.RoleAdmin:
		var a models.Admin
		if err := db.Where("email = ?", email).First(&a).Error; err != nil {
			return nil, err
		}
		return &a, nil
	case models.RoleDoctor:
		var d models.Doctor
		if err := db.Where("email = ?", email).First(&d).Error; err != nil {
			return nil, err
		}
		return &d, nil
	case models.RolePatient:
		var p models.Patient
		if err := db.Where("email = ?", email).First(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown role: %q", role)
	}
}

// findAccountByID resolves the concrete account variant for a role by ID.
func findAccountByID(db *gorm.DB, role models.Role, id string) (models.Account, error) {
	switch role {
	case models.RoleAdmin:
		var a models.Admin
		if err := db.First(&a, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &a, nil
	case models.RoleDoctor:
		var d models.Doctor
		if err := db.First(&d, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &d, nil
	case models.RolePatient:
		var p models.Patient
		if err := db.First(&p, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown role: %q", role)
	}
}

// sanitizeAccount returns the role-appropriate sanitized view of an account.
func sanitizeAccount(acct models.Account) interface{} {
	switch a := acct.(type) {
	case *models.Admin:
		return a.Sanitize()
	case *models.Doctor:
		return a.Sanitize()
	case *models.Patient:
		return a.Sanitize()
	default:
		return nil
	}
}

// emailTaken reports whether any account variant already uses the email.
func emailTaken(db *gorm.DB, email string) (bool, error) {
	for _, model := range []interface{}{&models.Admin{}, &models.Doctor{}, &models.Patient{}} {
		var count int64
		if err := db.Model(model).Where("email = ?", email).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// usernameTaken reports whether a doctor or patient already uses the username.
func usernameTaken(db *gorm.DB, username string) (bool, error) {
	for _, model := range []interface{}{&models.Doctor{}, &models.Patient{}} {
		var count int64
		if err := db.Model(model).Where("username = ?", username).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// RegisterRequest represents the request body for account registration.
// Role decides which of the optional profile fields are required.
type RegisterRequest struct {
	Role     string `json:"role" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username"`
	Gender   string `json:"gender"`

	// Doctor fields
	Nationality     string `json:"nationality"`
	ClinicName      string `json:"clinicName"`
	ClinicAddress   string `json:"clinicAddress"`
	Specialization  string `json:"specialization"`
	ExperienceYears int    `json:"experienceYears"`

	// Patient fields
	DateOfBirth      string `json:"dateOfBirth"` // YYYY-MM-DD
	BloodType        string `json:"bloodType"`
	Allergies        string `json:"allergies"`
	PhoneNumber      string `json:"phoneNumber"`
	Address          string `json:"address"`
	EmergencyName    string `json:"emergencyName"`
	EmergencyPhone   string `json:"emergencyPhone"`
	EmergencyKinship string `json:"emergencyKinship"`
}

// Register handles account registration for any of the three roles.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	taken, err := emailTaken(h.DB, req.Email)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if taken {
		utils.Conflict(c, "An account with this email already exists")
		return
	}

	if role != models.RoleAdmin {
		if req.Username == "" {
			utils.BadRequest(c, "Username is required")
			return
		}
		taken, err := usernameTaken(h.DB, req.Username)
		if err != nil {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
		if taken {
			utils.Conflict(c, "This username is already taken")
			return
		}
	}

	var acct models.Account
	switch role {
	case models.RoleAdmin:
		acct = &models.Admin{
			Credentials: models.Credentials{Email: req.Email},
			Name:        req.Name,
		}
	case models.RoleDoctor:
		if req.Specialization == "" {
			utils.BadRequest(c, "Specialization is required for doctors")
			return
		}
		acct = &models.Doctor{
			Credentials:     models.Credentials{Email: req.Email},
			Name:            req.Name,
			Username:        req.Username,
			Gender:          req.Gender,
			Nationality:     req.Nationality,
			ClinicName:      req.ClinicName,
			ClinicAddress:   req.ClinicAddress,
			Specialization:  req.Specialization,
			ExperienceYears: req.ExperienceYears,
		}
	case models.RolePatient:
		patient := &models.Patient{
			Credentials:      models.Credentials{Email: req.Email},
			Name:             req.Name,
			Username:         req.Username,
			Gender:           req.Gender,
			BloodType:        req.BloodType,
			Allergies:        req.Allergies,
			PhoneNumber:      req.PhoneNumber,
			Address:          req.Address,
			EmergencyName:    req.EmergencyName,
			EmergencyPhone:   req.EmergencyPhone,
			EmergencyKinship: req.EmergencyKinship,
		}
		if req.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", req.DateOfBirth)
			if err != nil {
				utils.BadRequest(c, "Invalid dateOfBirth, expected YYYY-MM-DD")
				return
			}
			patient.DateOfBirth = &dob
		}
		acct = patient
	}

	if err := acct.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(acct).Error; err != nil {
		utils.InternalServerError(c, "Failed to create account: "+err.Error())
		return
	}

	utils.Created(c, "Registered successfully", sanitizeAccount(acct))
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         interface{} `json:"user"`
}

// Login handles login against the table the declared role names.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	acct, err := findAccountByEmail(h.DB, role, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !acct.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshTokenString, err := h.issueTokens(c, acct)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		User:         sanitizeAccount(acct),
	})
}

// issueTokens generates an access/refresh pair, persists the refresh token
// and sets it as an HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, acct models.Account) (string, string, error) {
	accessToken, refreshTokenString, err := utils.GenerateTokens(acct, h.Cfg)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}

	refreshToken := models.RefreshToken{
		AccountID: acct.AccountID(),
		Role:      acct.AccountRole(),
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	c.SetCookie(
		"refresh_token",
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)
	return accessToken, refreshTokenString, nil
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken handles refreshing an access token using a refresh token.
// Tokens rotate: the presented refresh token is revoked and replaced.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// Prefer the HTTP-only cookie, fall back to the request body.
	refreshTokenString, err := c.Cookie("refresh_token")
	if err != nil || refreshTokenString == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		refreshTokenString = req.RefreshToken
	}

	claims, err := utils.ValidateToken(refreshTokenString, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND account_id = ? AND is_revoked = ? AND expires_at > ?",
		refreshTokenString, claims.UserID, false, time.Now()).First(&storedToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.InternalServerError(c, "Database error checking refresh token: "+err.Error())
		}
		return
	}

	acct, err := findAccountByID(h.DB, storedToken.Role, claims.UserID)
	if err != nil {
		utils.InternalServerError(c, "Failed to find account associated with token: "+err.Error())
		return
	}

	storedToken.IsRevoked = true
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
		return
	}

	newAccessToken, newRefreshTokenString, err := h.issueTokens(c, acct)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshTokenString,
	})
}

// LogoutRequest represents the request body for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the presented refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshTokenString, _ := c.Cookie("refresh_token")
	if refreshTokenString == "" {
		var req LogoutRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshTokenString = req.RefreshToken
		}
	}
	if refreshTokenString == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND is_revoked = ?", refreshTokenString, false).First(&storedToken).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.InternalServerError(c, "Database error during logout: "+err.Error())
			return
		}
		// Token not found or already revoked, acceptable for logout.
	} else {
		storedToken.IsRevoked = true
		storedToken.ExpiresAt = time.Now()
		if err := h.DB.Save(&storedToken).Error; err != nil {
			utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
			return
		}
	}

	c.SetCookie(
		"refresh_token",
		"",
		-1,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	utils.Success(c, "Logout successful", nil)
}

// GetProfile fetches the authenticated account's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _ := c.Get("userID")
	roleValue, _ := c.Get("userRole")
	role, ok := roleValue.(models.Role)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	acct, err := findAccountByID(h.DB, role, userID.(string))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", sanitizeAccount(acct))
}

// ForgotPasswordRequest represents the request body for requesting a reset code.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// ForgotPassword issues a one-time reset code and mails it to the account.
// The response is the same whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	acct, err := findAccountByEmail(h.DB, role, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(c, "If the account exists, a reset code has been sent", nil)
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	code, err := generateOTP()
	if err != nil {
		utils.InternalServerError(c, "Failed to generate reset code: "+err.Error())
		return
	}
	acct.SetOTP(code, time.Now().Add(time.Duration(h.Cfg.OTPExpiryMinutes)*time.Minute))
	if err := h.DB.Save(acct).Error; err != nil {
		utils.InternalServerError(c, "Failed to store reset code: "+err.Error())
		return
	}

	body := fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in %d minutes.\n",
		acct.DisplayName(), code, h.Cfg.OTPExpiryMinutes)
	// Mail delivery is best-effort and never awaited; the response stays the
	// same whether the account exists or the send fails.
	email := acct.EmailAddress()
	go func() {
		if err := h.Mailer.Send(email, "Password Reset Code", body); err != nil {
			h.Log.Error().Err(err).Msg("failed to send password reset mail")
		}
	}()

	utils.Success(c, "If the account exists, a reset code has been sent", nil)
}

// ResetPasswordRequest represents the request body for completing a reset.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Role        string `json:"role" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ResetPassword verifies the one-time code and replaces the password. All
// outstanding refresh tokens for the account are revoked.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	acct, err := findAccountByEmail(h.DB, role, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.BadRequest(c, "Invalid or expired reset code")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !acct.VerifyOTP(req.OTP, time.Now()) {
		utils.BadRequest(c, "Invalid or expired reset code")
		return
	}

	if err := acct.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	acct.ClearOTP()
	if err := h.DB.Save(acct).Error; err != nil {
		utils.InternalServerError(c, "Failed to update password: "+err.Error())
		return
	}

	if err := h.DB.Model(&models.RefreshToken{}).
		Where("account_id = ?", acct.AccountID()).
		Update("is_revoked", true).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke sessions: "+err.Error())
		return
	}

	utils.Success(c, "Password has been reset", nil)
}

// generateOTP returns a 6-digit numeric one-time code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
