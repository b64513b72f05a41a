package handlers

import (
	"fmt"
	"strings"
	"testing"

	"medify-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

// asUser fakes the auth middleware for a request.
func asUser(id string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", id)
		c.Set("userRole", role)
		c.Next()
	}
}

func createDoctor(t *testing.T, db *gorm.DB, name string) *models.Doctor {
	t.Helper()
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	doctor := &models.Doctor{
		Credentials:    models.Credentials{Email: slug + "@example.com", Password: "x"},
		Name:           name,
		Username:       slug,
		Specialization: "Cardiology",
	}
	require.NoError(t, db.Create(doctor).Error)
	return doctor
}

func createPatient(t *testing.T, db *gorm.DB, name string) *models.Patient {
	t.Helper()
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	patient := &models.Patient{
		Credentials: models.Credentials{Email: slug + "@example.com", Password: "x"},
		Name:        name,
		Username:    slug,
	}
	require.NoError(t, db.Create(patient).Error)
	return patient
}
