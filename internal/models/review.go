package models

// Review is a patient's rating of a doctor. One review per (doctor, patient)
// pair; every create/update/delete recomputes the doctor's average rating.
type Review struct {
	BaseModel
	DoctorID  string `gorm:"size:36;index:idx_review_pair,unique" json:"doctorId"`
	PatientID string `gorm:"size:36;index:idx_review_pair,unique" json:"patientId"`
	Rating    int    `gorm:"not null" json:"rating"` // 1..5
	Comment   string `gorm:"type:text" json:"comment,omitempty"`

	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
}
