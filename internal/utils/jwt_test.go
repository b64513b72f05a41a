package utils

import (
	"testing"

	"medify-server/internal/config"
	"medify-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	cfg := tokenConfig()
	doctor := &models.Doctor{
		BaseModel:   models.BaseModel{ID: "doc-1"},
		Credentials: models.Credentials{Email: "doc@example.com"},
		Name:        "Dr. Strange",
	}

	access, refresh, err := GenerateTokens(doctor, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := ValidateToken(access, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", claims.UserID)
	assert.Equal(t, models.RoleDoctor, claims.Role)

	refreshClaims, err := ValidateToken(refresh, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", refreshClaims.UserID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	cfg := tokenConfig()
	patient := &models.Patient{BaseModel: models.BaseModel{ID: "pat-1"}}

	access, refresh, err := GenerateTokens(patient, cfg)
	require.NoError(t, err)

	_, err = ValidateToken(access, "not-the-secret")
	assert.Error(t, err)

	// Access and refresh secrets are not interchangeable.
	_, err = ValidateToken(access, cfg.JWTRefreshSecret)
	assert.Error(t, err)
	_, err = ValidateToken(refresh, cfg.JWTSecret)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token", "whatever")
	assert.Error(t, err)
}
