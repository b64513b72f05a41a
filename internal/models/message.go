package models

import (
	"time"
)

// Message represents a message between a doctor and a patient. Sender and
// receiver are identified by id plus role since the two identity variants
// live in separate tables.
type Message struct {
	BaseModel
	SenderID     string     `gorm:"size:36;index" json:"senderId"`
	SenderRole   Role       `gorm:"size:20;not null" json:"senderRole"`
	ReceiverID   string     `gorm:"size:36;index" json:"receiverId"`
	ReceiverRole Role       `gorm:"size:20;not null" json:"receiverRole"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Read         bool       `gorm:"column:is_read;default:false" json:"read"`
	ReadAt       *time.Time `json:"readAt,omitempty"`

	Attachments []MessageAttachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
}

// MessageAttachment references an uploaded file stored by the file
// collaborator.
type MessageAttachment struct {
	BaseModel
	MessageID string `gorm:"size:36;index;not null" json:"messageId"`
	FileName  string `gorm:"size:255;not null" json:"fileName"`
	Path      string `gorm:"size:500;not null" json:"path"`
	MimeType  string `gorm:"size:100" json:"mimeType"`
}
