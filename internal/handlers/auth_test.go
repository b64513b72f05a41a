package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"medify-server/internal/config"
	"medify-server/internal/models"
	"medify-server/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:               "development",
		JWTSecret:                 "test-access-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
		OTPExpiryMinutes:          10,
	}
}

// captureMailer records sent mail so tests can read back reset codes. Sends
// happen on a handler-spawned goroutine, so access is guarded.
type captureMailer struct {
	mu                sync.Mutex
	to, subject, body string
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to, m.subject, m.body = to, subject, body
	return nil
}

func (m *captureMailer) last() (to, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.to, m.body
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	h := NewAuthHandler(db, testConfig(), notify.Discard{}, zerolog.Nop())

	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)

	w := postJSON(router, "/auth/register", `{
		"role": "patient",
		"name": "April Kepner",
		"email": "april@example.com",
		"username": "april",
		"password": "correct-horse"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "correct-horse", "password never leaves the server")

	w = postJSON(router, "/auth/register", `{
		"role": "patient",
		"name": "Impostor",
		"email": "april@example.com",
		"username": "impostor",
		"password": "whatever-else"
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "duplicate email is rejected")

	w = postJSON(router, "/auth/login", `{"role": "patient", "email": "april@example.com", "password": "correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.NotEmpty(t, resp.Data.RefreshToken)

	w = postJSON(router, "/auth/login", `{"role": "patient", "email": "april@example.com", "password": "wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Same credentials against the wrong role's table fail.
	w = postJSON(router, "/auth/login", `{"role": "doctor", "email": "april@example.com", "password": "correct-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDoctorRequiresSpecialization(t *testing.T) {
	db := newTestDB(t)
	h := NewAuthHandler(db, testConfig(), notify.Discard{}, zerolog.Nop())

	router := gin.New()
	router.POST("/auth/register", h.Register)

	w := postJSON(router, "/auth/register", `{
		"role": "doctor",
		"name": "Jackson Avery",
		"email": "jackson@example.com",
		"username": "jackson",
		"password": "plastics-rule"
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Specialization")
}

func TestPasswordResetFlow(t *testing.T) {
	db := newTestDB(t)
	mailer := &captureMailer{}
	h := NewAuthHandler(db, testConfig(), mailer, zerolog.Nop())
	patient := createPatient(t, db, "Izzie")
	require.NoError(t, patient.SetPassword("old-password"))
	require.NoError(t, db.Save(patient).Error)

	router := gin.New()
	router.POST("/auth/forgot-password", h.ForgotPassword)
	router.POST("/auth/reset-password", h.ResetPassword)
	router.POST("/auth/login", h.Login)

	w := postJSON(router, "/auth/forgot-password",
		fmt.Sprintf(`{"role": "patient", "email": %q}`, patient.Email))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The mail goes out on a goroutine after the response.
	require.Eventually(t, func() bool {
		to, _ := mailer.last()
		return to == patient.Email
	}, time.Second, 5*time.Millisecond)

	_, body := mailer.last()
	code := regexp.MustCompile(`\b\d{6}\b`).FindString(body)
	require.NotEmpty(t, code, "mail must carry the 6-digit code")

	w = postJSON(router, "/auth/reset-password",
		fmt.Sprintf(`{"role": "patient", "email": %q, "otp": "000000", "newPassword": "should-not-work"}`, patient.Email))
	assert.Equal(t, http.StatusBadRequest, w.Code, "wrong code is rejected")

	w = postJSON(router, "/auth/reset-password",
		fmt.Sprintf(`{"role": "patient", "email": %q, "otp": %q, "newPassword": "new-password"}`, patient.Email, code))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(router, "/auth/reset-password",
		fmt.Sprintf(`{"role": "patient", "email": %q, "otp": %q, "newPassword": "replayed"}`, patient.Email, code))
	assert.Equal(t, http.StatusBadRequest, w.Code, "codes are single use")

	w = postJSON(router, "/auth/login",
		fmt.Sprintf(`{"role": "patient", "email": %q, "password": "new-password"}`, patient.Email))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(router, "/auth/login",
		fmt.Sprintf(`{"role": "patient", "email": %q, "password": "old-password"}`, patient.Email))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// failingMailer rejects every send and counts attempts.
type failingMailer struct {
	mu       sync.Mutex
	attempts int
}

func (m *failingMailer) Send(string, string, string) error {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
	return fmt.Errorf("smtp unavailable")
}

func (m *failingMailer) sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func TestForgotPasswordNeutralOnMailFailure(t *testing.T) {
	db := newTestDB(t)
	mailer := &failingMailer{}
	h := NewAuthHandler(db, testConfig(), mailer, zerolog.Nop())
	patient := createPatient(t, db, "Lexie")

	router := gin.New()
	router.POST("/auth/forgot-password", h.ForgotPassword)

	w := postJSON(router, "/auth/forgot-password",
		fmt.Sprintf(`{"role": "patient", "email": %q}`, patient.Email))
	require.Equal(t, http.StatusOK, w.Code, "delivery failure never surfaces to the caller")
	knownBody := w.Body.String()

	require.Eventually(t, func() bool { return mailer.sent() == 1 },
		time.Second, 5*time.Millisecond)

	// The OTP is still stored, so a later mail retry path stays viable.
	var stored models.Patient
	require.NoError(t, db.First(&stored, "id = ?", patient.ID).Error)
	assert.NotEmpty(t, stored.OTPCode)

	// Unknown accounts get a byte-identical response.
	w = postJSON(router, "/auth/forgot-password",
		`{"role": "patient", "email": "nobody@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, knownBody, w.Body.String())
}

func TestRefreshTokenRotation(t *testing.T) {
	db := newTestDB(t)
	h := NewAuthHandler(db, testConfig(), notify.Discard{}, zerolog.Nop())
	patient := createPatient(t, db, "George")
	require.NoError(t, patient.SetPassword("trauma-ward"))
	require.NoError(t, db.Save(patient).Error)

	router := gin.New()
	router.POST("/auth/login", h.Login)
	router.POST("/auth/refresh-token", h.RefreshToken)

	w := postJSON(router, "/auth/login",
		fmt.Sprintf(`{"role": "patient", "email": %q, "password": "trauma-ward"}`, patient.Email))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loginResp struct {
		Data struct {
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	token := loginResp.Data.RefreshToken

	w = postJSON(router, "/auth/refresh-token",
		fmt.Sprintf(`{"refreshToken": %q}`, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The old token was revoked by rotation and cannot be reused.
	w = postJSON(router, "/auth/refresh-token",
		fmt.Sprintf(`{"refreshToken": %q}`, token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var stored models.RefreshToken
	require.NoError(t, db.First(&stored, "token = ?", token).Error)
	assert.True(t, stored.IsRevoked)
}
