package models

import (
	"medify-server/internal/timeslot"
)

// Doctor is the practitioner identity variant with its public profile and
// weekly availability.
type Doctor struct {
	BaseModel
	Credentials     `gorm:"embedded"`
	Name            string  `gorm:"size:100;not null" json:"name"`
	Username        string  `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Gender          string  `gorm:"size:10" json:"gender"`
	Nationality     string  `gorm:"size:100" json:"nationality"`
	ClinicName      string  `gorm:"size:255" json:"clinicName,omitempty"`
	ClinicAddress   string  `gorm:"size:255" json:"clinicAddress,omitempty"`
	Specialization  string  `gorm:"size:100;not null;index" json:"specialization"`
	ExperienceYears int     `json:"experienceYears"`
	Rating          float64 `gorm:"default:0" json:"rating"` // derived from reviews, 0-5, one decimal
	ProfileImage    string  `gorm:"size:255" json:"profileImage,omitempty"`

	// Relations (not always preloaded)
	Availability []AvailabilitySlot `gorm:"foreignKey:DoctorID" json:"-"`
	Appointments []Appointment      `gorm:"foreignKey:DoctorID" json:"-"`
	Reviews      []Review           `gorm:"foreignKey:DoctorID" json:"-"`
}

// AccountID implements Account.
func (d *Doctor) AccountID() string { return d.ID }

// AccountRole implements Account.
func (d *Doctor) AccountRole() Role { return RoleDoctor }

// DisplayName implements Account.
func (d *Doctor) DisplayName() string { return d.Name }

// DoctorSanitized is the doctor data safe to return in API responses.
type DoctorSanitized struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	Role            Role    `json:"role"`
	Gender          string  `json:"gender,omitempty"`
	Nationality     string  `json:"nationality,omitempty"`
	ClinicName      string  `json:"clinicName,omitempty"`
	ClinicAddress   string  `json:"clinicAddress,omitempty"`
	Specialization  string  `json:"specialization"`
	ExperienceYears int     `json:"experienceYears"`
	Rating          float64 `json:"rating"`
	ProfileImage    string  `json:"profileImage,omitempty"`
}

// Sanitize strips credentials for API responses.
func (d *Doctor) Sanitize() DoctorSanitized {
	return DoctorSanitized{
		ID:              d.ID,
		Name:            d.Name,
		Email:           d.Email,
		Username:        d.Username,
		Role:            RoleDoctor,
		Gender:          d.Gender,
		Nationality:     d.Nationality,
		ClinicName:      d.ClinicName,
		ClinicAddress:   d.ClinicAddress,
		Specialization:  d.Specialization,
		ExperienceYears: d.ExperienceYears,
		Rating:          d.Rating,
		ProfileImage:    d.ProfileImage,
	}
}

// AvailabilitySlot is one recurring weekly availability window for a doctor.
// Times are stored as minutes since midnight; the HTTP layer converts to and
// from clock strings.
type AvailabilitySlot struct {
	BaseModel
	DoctorID  string       `gorm:"size:36;index" json:"doctorId"`
	DayOfWeek timeslot.Day `gorm:"size:12;not null" json:"dayOfWeek"`
	StartMin  int          `gorm:"not null" json:"startMin"`
	EndMin    int          `gorm:"not null" json:"endMin"`

	BookedSlots []BookedSlot `gorm:"foreignKey:SlotID" json:"bookedSlots"`
}

// BookedSlot is a reserved sub-interval within an availability slot, tied to
// exactly one appointment. Within one slot no two rows referencing different
// appointments may overlap.
type BookedSlot struct {
	BaseModel
	SlotID        string `gorm:"size:36;index" json:"slotId"`
	StartMin      int    `gorm:"not null" json:"startMin"`
	EndMin        int    `gorm:"not null" json:"endMin"`
	AppointmentID string `gorm:"size:36;uniqueIndex" json:"appointmentId"`
}

// SlotView is the boundary representation of an availability slot, with clock
// strings instead of minute offsets.
type SlotView struct {
	DayOfWeek   timeslot.Day `json:"dayOfWeek"`
	StartTime   string       `json:"startTime"`
	EndTime     string       `json:"endTime"`
	BookedSlots []BookedView `json:"bookedSlots"`
}

// BookedView is the boundary representation of a booked sub-interval.
type BookedView struct {
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	AppointmentID string `json:"appointmentId"`
}

// View converts the stored slot to its boundary representation.
func (s *AvailabilitySlot) View() SlotView {
	booked := make([]BookedView, len(s.BookedSlots))
	for i, b := range s.BookedSlots {
		booked[i] = BookedView{
			StartTime:     timeslot.FormatClock(b.StartMin),
			EndTime:       timeslot.FormatClock(b.EndMin),
			AppointmentID: b.AppointmentID,
		}
	}
	return SlotView{
		DayOfWeek:   s.DayOfWeek,
		StartTime:   timeslot.FormatClock(s.StartMin),
		EndTime:     timeslot.FormatClock(s.EndMin),
		BookedSlots: booked,
	}
}
