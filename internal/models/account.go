package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ParseRole validates a role string, accepting any casing.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RolePatient:
		return RolePatient, nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// Account is the capability shared by the three identity variants
// (Admin, Doctor, Patient). Callers resolve the concrete variant through
// explicit dispatch on Role; there is no dynamic model lookup.
type Account interface {
	AccountID() string
	AccountRole() Role
	DisplayName() string
	EmailAddress() string
	CheckPassword(password string) bool
	SetPassword(password string) error
	SetOTP(code string, expiresAt time.Time)
	VerifyOTP(code string, now time.Time) bool
	ClearOTP()
}

// Credentials holds the login fields embedded in every identity variant,
// including the one-time code used for password resets.
type Credentials struct {
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password     string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	OTPCode      string     `gorm:"size:10" json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
}

// SetPassword hashes a password and stores the hash.
func (c *Credentials) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the stored hash.
func (c *Credentials) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password))
	return err == nil
}

// EmailAddress returns the login email.
func (c *Credentials) EmailAddress() string {
	return c.Email
}

// SetOTP stores a reset code valid until the given time.
func (c *Credentials) SetOTP(code string, expiresAt time.Time) {
	c.OTPCode = code
	c.OTPExpiresAt = &expiresAt
}

// VerifyOTP reports whether the supplied code matches an unexpired reset code.
func (c *Credentials) VerifyOTP(code string, now time.Time) bool {
	if c.OTPCode == "" || c.OTPExpiresAt == nil {
		return false
	}
	return c.OTPCode == code && now.Before(*c.OTPExpiresAt)
}

// ClearOTP invalidates any outstanding reset code.
func (c *Credentials) ClearOTP() {
	c.OTPCode = ""
	c.OTPExpiresAt = nil
}
