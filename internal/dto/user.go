package dto

import "github.com/noah-isme/accrediflow-api/internal/models"

// RegisterRequest onboards an institute admin pending superadmin approval.
type RegisterRequest struct {
	InstituteName     string `json:"instituteName" validate:"required,notblank"`
	InstituteType     string `json:"instituteType" validate:"required,notblank"`
	AccreditationBody string `json:"accreditationBody" validate:"required,notblank"`
	EmailDomain       string `json:"emailDomain" validate:"required,notblank"`
	Name              string `json:"name" validate:"required,notblank"`
	Email             string `json:"email" validate:"required,email"`
	Phone             string `json:"phone"`
	Password          string `json:"password" validate:"required,min=6"`
}

// CreateInstituteUserRequest is used by admins to provision staff accounts.
type CreateInstituteUserRequest struct {
	Name     string          `json:"name" validate:"required,notblank"`
	Email    string          `json:"email" validate:"required,email"`
	Phone    string          `json:"phone"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     models.UserRole `json:"role" validate:"required,oneof=coordinator hod faculty"`
}

// RegisterResponse acknowledges a registration.
type RegisterResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}
