package models

// Admin is the administrative identity variant: credentials only, no
// domain profile.
type Admin struct {
	BaseModel
	Credentials `gorm:"embedded"`
	Name        string `gorm:"size:100;not null" json:"name"`
}

// AccountID implements Account.
func (a *Admin) AccountID() string { return a.ID }

// AccountRole implements Account.
func (a *Admin) AccountRole() Role { return RoleAdmin }

// DisplayName implements Account.
func (a *Admin) DisplayName() string { return a.Name }

// AdminSanitized is the admin data safe to return in API responses.
type AdminSanitized struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Sanitize strips credentials for API responses.
func (a *Admin) Sanitize() AdminSanitized {
	return AdminSanitized{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Role:  RoleAdmin,
	}
}
