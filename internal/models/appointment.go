package models

import (
	"time"

	"medify-server/internal/timeslot"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusUpcoming  AppointmentStatus = "UPCOMING"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment represents a scheduled medical appointment. The calendar date
// and the wall-clock start are stored separately; appointments always run
// for a fixed 60 minutes. Appointments are never hard-deleted.
type Appointment struct {
	BaseModel
	PatientID string            `gorm:"size:36;index" json:"patientId"`
	DoctorID  string            `gorm:"size:36;index" json:"doctorId"`
	Date      time.Time         `gorm:"not null" json:"-"` // midnight of the appointment day
	StartMin  int               `gorm:"not null" json:"-"` // minutes since midnight
	Status    AppointmentStatus `gorm:"size:20;default:'UPCOMING'" json:"status"`
	Reason    string            `gorm:"size:255;not null" json:"reason"`
	Notes     string            `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  Doctor  `gorm:"foreignKey:DoctorID" json:"-"`
}

// StartAt returns the appointment's start instant.
func (a *Appointment) StartAt() time.Time {
	return timeslot.At(a.Date, a.StartMin)
}

// AppointmentView is the boundary representation of an appointment, with the
// date and time rendered as strings.
type AppointmentView struct {
	ID        string            `json:"id"`
	PatientID string            `json:"patientId"`
	DoctorID  string            `json:"doctorId"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Status    AppointmentStatus `json:"status"`
	Reason    string            `json:"reason"`
	Notes     string            `json:"notes,omitempty"`
	Doctor    *DoctorSanitized  `json:"doctor,omitempty"`
	Patient   *PatientSanitized `json:"patient,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// View converts the appointment to its boundary representation. Preloaded
// doctor/patient relations are included when present.
func (a *Appointment) View() AppointmentView {
	v := AppointmentView{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date.Format("2006-01-02"),
		Time:      timeslot.FormatClock(a.StartMin),
		Status:    a.Status,
		Reason:    a.Reason,
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Doctor.ID != "" {
		d := a.Doctor.Sanitize()
		v.Doctor = &d
	}
	if a.Patient.ID != "" {
		p := a.Patient.Sanitize()
		v.Patient = &p
	}
	return v
}
