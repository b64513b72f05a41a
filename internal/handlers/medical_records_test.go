package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"medify-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReportCleansUpFilesOnFailure(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "Teddy Altman")
	patient := createPatient(t, db, "Henry")
	files := &flakyStore{savesLeft: 1}
	h := NewMedicalRecordHandler(db, files)

	router := gin.New()
	router.POST("/medical-records", asUser(doctor.ID, models.RoleDoctor), h.CreateReport)

	body, contentType := multipartBody(t,
		map[string]string{
			"patientId": patient.ID,
			"diagnosis": "Cardiac tamponade",
			"type":      "emergency",
		},
		[]string{"echo1.png", "echo2.png"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/medical-records", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	require.Len(t, files.saved, 1)
	assert.Equal(t, files.saved, files.removed)

	var reportCount, attachmentCount int64
	require.NoError(t, db.Model(&models.MedicalReport{}).Count(&reportCount).Error)
	require.NoError(t, db.Model(&models.ReportAttachment{}).Count(&attachmentCount).Error)
	assert.Zero(t, reportCount, "report rolled back with its attachments")
	assert.Zero(t, attachmentCount)
}
