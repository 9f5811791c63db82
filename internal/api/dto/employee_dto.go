package dto

import (
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// EmployeeCreateRequest payload for self-registration.
type EmployeeCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// EmployeeLoginRequest payload for login. EmailOrPhone also accepts the
// legacy "email" field.
type EmployeeLoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

// Subject returns whichever identifier the caller supplied.
func (r EmployeeLoginRequest) Subject() string {
	if r.EmailOrPhone != "" {
		return r.EmailOrPhone
	}
	return r.Email
}

// RoleChangeRequest payload for PUT /api/employees/:id/role.
type RoleChangeRequest struct {
	Role string `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EmployeeResponse is the public view of an employee.
type EmployeeResponse struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone,omitempty"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewEmployeeResponse maps a domain employee, dropping the password hash.
func NewEmployeeResponse(e *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Phone:     e.Phone,
		Role:      e.Role,
		CreatedAt: e.CreatedAt,
	}
}

// IdentityResponse echoes the identity carried by the caller's token.
type IdentityResponse struct {
	Subject    string      `json:"subject"`
	Role       domain.Role `json:"role"`
	EmployeeID int64       `json:"employee_id"`
}
