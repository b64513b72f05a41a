package models

import (
	"time"
)

// Patient is the patient identity variant with demographic and medical
// profile fields.
type Patient struct {
	BaseModel
	Credentials      `gorm:"embedded"`
	Name             string     `gorm:"size:100;not null" json:"name"`
	Username         string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Gender           string     `gorm:"size:10" json:"gender"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
	BloodType        string     `gorm:"size:5" json:"bloodType,omitempty"`
	Allergies        string     `gorm:"size:500" json:"allergies,omitempty"` // comma separated
	PhoneNumber      string     `gorm:"size:30" json:"phoneNumber,omitempty"`
	Address          string     `gorm:"size:255" json:"address,omitempty"`
	EmergencyName    string     `gorm:"size:100" json:"emergencyName,omitempty"`
	EmergencyPhone   string     `gorm:"size:30" json:"emergencyPhone,omitempty"`
	EmergencyKinship string     `gorm:"size:50" json:"emergencyKinship,omitempty"`

	// Relations (not always preloaded)
	MedicalHistory  []MedicalHistoryEntry `gorm:"foreignKey:PatientID" json:"-"`
	FavoriteDoctors []*Doctor             `gorm:"many2many:patient_favorites" json:"-"`
	Appointments    []Appointment         `gorm:"foreignKey:PatientID" json:"-"`
}

// AccountID implements Account.
func (p *Patient) AccountID() string { return p.ID }

// AccountRole implements Account.
func (p *Patient) AccountRole() Role { return RolePatient }

// DisplayName implements Account.
func (p *Patient) DisplayName() string { return p.Name }

// PatientSanitized is the patient data safe to return in API responses.
type PatientSanitized struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	Role             Role       `json:"role"`
	Gender           string     `json:"gender,omitempty"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
	BloodType        string     `json:"bloodType,omitempty"`
	Allergies        string     `json:"allergies,omitempty"`
	PhoneNumber      string     `json:"phoneNumber,omitempty"`
	Address          string     `json:"address,omitempty"`
	EmergencyName    string     `json:"emergencyName,omitempty"`
	EmergencyPhone   string     `json:"emergencyPhone,omitempty"`
	EmergencyKinship string     `json:"emergencyKinship,omitempty"`
}

// Sanitize strips credentials for API responses.
func (p *Patient) Sanitize() PatientSanitized {
	return PatientSanitized{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Username:         p.Username,
		Role:             RolePatient,
		Gender:           p.Gender,
		DateOfBirth:      p.DateOfBirth,
		BloodType:        p.BloodType,
		Allergies:        p.Allergies,
		PhoneNumber:      p.PhoneNumber,
		Address:          p.Address,
		EmergencyName:    p.EmergencyName,
		EmergencyPhone:   p.EmergencyPhone,
		EmergencyKinship: p.EmergencyKinship,
	}
}

// MedicalHistoryEntry is one condition in a patient's medical history.
type MedicalHistoryEntry struct {
	BaseModel
	PatientID     string     `gorm:"size:36;index" json:"patientId"`
	Condition     string     `gorm:"size:255;not null" json:"condition"`
	DiagnosedDate *time.Time `json:"diagnosedDate,omitempty"`
	Medications   string     `gorm:"type:text" json:"medications,omitempty"`
	Notes         string     `gorm:"type:text" json:"notes,omitempty"`
}
