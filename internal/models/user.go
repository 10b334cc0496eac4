package models

import "time"

// UserRole determines a user's authority in the approval chain.
type UserRole string

const (
	RoleSuperAdmin  UserRole = "superadmin"
	RoleAdmin       UserRole = "admin"
	RoleCoordinator UserRole = "coordinator"
	RoleHOD         UserRole = "hod"
	RoleFaculty     UserRole = "faculty"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleCoordinator, RoleHOD, RoleFaculty:
		return true
	}
	return false
}

// User represents an account stored in the users table. Institute metadata is
// mandatory for admins and inherited by the accounts they provision.
type User struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	Phone             string    `db:"phone" json:"phone,omitempty"`
	PasswordHash      string    `db:"password_hash" json:"-"`
	Role              UserRole  `db:"role" json:"role"`
	Approved          bool      `db:"approved" json:"approved"`
	InstituteName     string    `db:"institute_name" json:"institute_name"`
	InstituteType     string    `db:"institute_type" json:"institute_type,omitempty"`
	AccreditationBody string    `db:"accreditation_body" json:"accreditation_body,omitempty"`
	EmailDomain       string    `db:"email_domain" json:"email_domain,omitempty"`
	CreatedBy         *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role          *UserRole
	Approved      *bool
	InstituteName string
	Page          int
	PageSize      int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
