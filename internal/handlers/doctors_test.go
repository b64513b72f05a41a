package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medify-server/internal/booking"
	"medify-server/internal/models"
	"medify-server/internal/notify"
	"medify-server/internal/timeslot"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAvailabilityReplacesSchedule(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "Mark Sloan")
	engine := booking.New(db, notify.Discard{}, zerolog.Nop())
	h := NewDoctorHandler(db, engine)

	router := gin.New()
	router.PUT("/doctors/availability", asUser(doctor.ID, models.RoleDoctor), h.UpdateAvailability)

	put := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/doctors/availability", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	w := put(`{"availability": [
		{"dayOfWeek": "monday", "startTime": "09:00", "endTime": "12:00"},
		{"dayOfWeek": "tuesday", "startTime": "1:00 PM", "endTime": "4:00 PM"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var slots []models.AvailabilitySlot
	require.NoError(t, db.Where("doctor_id = ?", doctor.ID).Order("start_min asc").Find(&slots).Error)
	require.Len(t, slots, 2)
	assert.Equal(t, timeslot.Monday, slots[0].DayOfWeek)
	assert.Equal(t, 540, slots[0].StartMin)
	assert.Equal(t, timeslot.Tuesday, slots[1].DayOfWeek)
	assert.Equal(t, 780, slots[1].StartMin)
	assert.Equal(t, 960, slots[1].EndMin)

	// A second replacement drops the old windows entirely.
	w = put(`{"availability": [{"dayOfWeek": "friday", "startTime": "08:00", "endTime": "10:00"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, db.Where("doctor_id = ?", doctor.ID).Find(&slots).Error)
	require.Len(t, slots, 1)
	assert.Equal(t, timeslot.Friday, slots[0].DayOfWeek)
}

func TestUpdateAvailabilityPreservesReservations(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "Callie Torres")
	engine := booking.New(db, notify.Discard{}, zerolog.Nop())
	h := NewDoctorHandler(db, engine)

	slot := models.AvailabilitySlot{DoctorID: doctor.ID, DayOfWeek: timeslot.Monday, StartMin: 540, EndMin: 720}
	require.NoError(t, db.Create(&slot).Error)
	booked := models.BookedSlot{SlotID: slot.ID, StartMin: 600, EndMin: 660, AppointmentID: "appt-1"}
	require.NoError(t, db.Create(&booked).Error)

	router := gin.New()
	router.PUT("/doctors/availability", asUser(doctor.ID, models.RoleDoctor), h.UpdateAvailability)

	// Monday stays (with a wider window); the reservation must follow it.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/doctors/availability",
		strings.NewReader(`{"availability": [{"dayOfWeek": "monday", "startTime": "08:00", "endTime": "14:00"}]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var newSlot models.AvailabilitySlot
	require.NoError(t, db.First(&newSlot, "doctor_id = ?", doctor.ID).Error)
	var carried models.BookedSlot
	require.NoError(t, db.First(&carried, "appointment_id = ?", "appt-1").Error)
	assert.Equal(t, newSlot.ID, carried.SlotID)
	assert.Equal(t, 600, carried.StartMin)
	assert.Equal(t, 660, carried.EndMin)
}

func TestUpdateAvailabilityRejectsBadWindows(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "Arizona Robbins")
	engine := booking.New(db, notify.Discard{}, zerolog.Nop())
	h := NewDoctorHandler(db, engine)

	router := gin.New()
	router.PUT("/doctors/availability", asUser(doctor.ID, models.RoleDoctor), h.UpdateAvailability)

	cases := []struct {
		name string
		body string
	}{
		{"inverted window", `{"availability": [{"dayOfWeek": "monday", "startTime": "12:00", "endTime": "09:00"}]}`},
		{"unknown day", `{"availability": [{"dayOfWeek": "someday", "startTime": "09:00", "endTime": "12:00"}]}`},
		{"bad clock", `{"availability": [{"dayOfWeek": "monday", "startTime": "25:00", "endTime": "26:00"}]}`},
		{"overlapping windows", `{"availability": [
			{"dayOfWeek": "monday", "startTime": "09:00", "endTime": "12:00"},
			{"dayOfWeek": "monday", "startTime": "11:00", "endTime": "13:00"}
		]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/doctors/availability", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
