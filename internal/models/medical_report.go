package models

import (
	"time"
)

// ReportType represents the kind of visit a medical report documents
type ReportType string

const (
	ReportTypeCheckup      ReportType = "checkup"
	ReportTypeFollowUp     ReportType = "follow-up"
	ReportTypeEmergency    ReportType = "emergency"
	ReportTypeConsultation ReportType = "consultation"
)

// ValidReportType reports whether t is a known report type.
func ValidReportType(t ReportType) bool {
	switch t {
	case ReportTypeCheckup, ReportTypeFollowUp, ReportTypeEmergency, ReportTypeConsultation:
		return true
	}
	return false
}

// MedicalReport is a doctor's write-up of a patient visit.
type MedicalReport struct {
	BaseModel
	PatientID     string     `gorm:"size:36;index" json:"patientId"`
	DoctorID      string     `gorm:"size:36;index" json:"doctorId"`
	AppointmentID string     `gorm:"size:36" json:"appointmentId,omitempty"`
	Diagnosis     string     `gorm:"size:500;not null" json:"diagnosis"`
	Symptoms      string     `gorm:"size:500" json:"symptoms,omitempty"` // comma separated
	Type          ReportType `gorm:"size:20;not null" json:"type"`
	ReportDate    time.Time  `json:"date"`
	Treatment     string     `gorm:"type:text" json:"treatment,omitempty"`
	Notes         string     `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Patient     Patient            `gorm:"foreignKey:PatientID" json:"-"`
	Doctor      Doctor             `gorm:"foreignKey:DoctorID" json:"-"`
	Attachments []ReportAttachment `gorm:"foreignKey:ReportID" json:"attachments,omitempty"`
}

// ReportAttachment references an uploaded file stored by the file
// collaborator; only the path is kept here.
type ReportAttachment struct {
	BaseModel
	ReportID string `gorm:"size:36;index;not null" json:"reportId"`
	FileName string `gorm:"size:255;not null" json:"fileName"`
	Path     string `gorm:"size:500;not null" json:"path"`
	MimeType string `gorm:"size:100" json:"mimeType"`
}

// PrescriptionStatus represents the lifecycle of a prescription
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

// Prescription is issued by a doctor for a patient; only the issuing doctor
// may update it.
type Prescription struct {
	BaseModel
	ReportID   string             `gorm:"size:36" json:"reportId,omitempty"`
	DoctorID   string             `gorm:"size:36;index" json:"doctorId"`
	PatientID  string             `gorm:"size:36;index" json:"patientId"`
	Notes      string             `gorm:"type:text" json:"notes,omitempty"`
	ValidUntil time.Time          `json:"validUntil"`
	Status     PrescriptionStatus `gorm:"size:20;default:'active'" json:"status"`

	Medications []Medication `gorm:"foreignKey:PrescriptionID" json:"medications"`
}

// Medication is one line item of a prescription.
type Medication struct {
	BaseModel
	PrescriptionID string `gorm:"size:36;index" json:"prescriptionId"`
	Name           string `gorm:"size:255;not null" json:"name"`
	Dosage         string `gorm:"size:100;not null" json:"dosage"`
	Frequency      string `gorm:"size:100;not null" json:"frequency"`
	Duration       string `gorm:"size:100;not null" json:"duration"`
	Instructions   string `gorm:"size:500" json:"instructions,omitempty"`
}
