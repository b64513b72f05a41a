package models

import (
	"time"
)

// RefreshToken represents a JWT refresh token in the database. The owning
// account is identified by id plus role since the identity variants live in
// separate tables.
type RefreshToken struct {
	BaseModel
	AccountID string    `gorm:"size:36;index" json:"accountId"`
	Role      Role      `gorm:"size:20;not null" json:"role"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`
}
