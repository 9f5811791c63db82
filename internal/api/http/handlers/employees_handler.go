package handlers

import (
	"net/mail"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// EmployeesHandler exposes account endpoints.
type EmployeesHandler struct {
	auth *service.AuthService
}

// NewEmployeesHandler constructs handler.
func NewEmployeesHandler(authService *service.AuthService) *EmployeesHandler {
	return &EmployeesHandler{auth: authService}
}

// Create handles POST /api/employees/create.
func (h *EmployeesHandler) Create(c *fiber.Ctx) error {
	var req dto.EmployeeCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := map[string]any{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		details["email"] = "a valid email address is required"
	}
	if req.Phone != "" {
		if _, err := domain.NormalizePhone(req.Phone); err != nil {
			details["phone"] = "a valid phone number is required"
		}
	}
	if n := len(req.Password); n < service.MinPasswordLength || n > service.MaxPasswordLength {
		details["password"] = "must be between 8 and 72 characters"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid employee", details)
	}

	employee, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": dto.NewEmployeeResponse(employee),
	})
}

// Login handles POST /api/employees/login.
func (h *EmployeesHandler) Login(c *fiber.Ctx) error {
	var req dto.EmployeeLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Subject() == "" || req.Password == "" {
		return apperrors.NewValidationError("email or phone and password required", nil)
	}

	res, err := h.auth.Login(c.UserContext(), req.Subject(), req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"employee": dto.NewEmployeeResponse(res.Employee),
			"auth": dto.AuthResponse{
				Token:     res.Token.Raw,
				TokenType: "Bearer",
				ExpiresAt: res.Token.ExpiresAt,
			},
		},
	})
}

// Me handles GET /api/employees/me. It reports the identity as the token
// states it, which may lag behind a role change.
func (h *EmployeesHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required", nil)
	}
	return c.JSON(fiber.Map{
		"data": dto.IdentityResponse{
			Subject:    identity.Subject,
			Role:       identity.Role,
			EmployeeID: identity.ID,
		},
	})
}

// ChangeRole handles PUT /api/employees/:id/role.
func (h *EmployeesHandler) ChangeRole(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid employee id", map[string]any{"id": c.Params("id")})
	}
	var req dto.RoleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
	}

	actor, _ := auth.IdentityFromCtx(c)
	employee, err := h.auth.ChangeRole(c.UserContext(), actor, id, role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}
