package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/dto"
	"github.com/spec-kit/feedback-service/internal/service"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// RecoveryHandler exposes the password reset endpoints.
type RecoveryHandler struct {
	recovery *service.RecoveryService
}

// NewRecoveryHandler constructs handler.
func NewRecoveryHandler(recovery *service.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{recovery: recovery}
}

// ForgotPassword handles POST /api/employees/forgot-password. The response
// never carries the code.
func (h *RecoveryHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.recovery.RequestReset(c.UserContext(), req.EmailOrPhone)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"data": dto.ForgotPasswordResponse{
			Message:   "a reset code has been sent",
			ExpiresAt: issue.ExpiresAt,
		},
	})
}

// ResetPassword handles POST /api/employees/reset-password.
func (h *RecoveryHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OTP == "" {
		return apperrors.NewValidationError("otp required", nil)
	}

	if err := h.recovery.ConfirmReset(c.UserContext(), req.EmailOrPhone, req.OTP, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{"message": "password updated"},
	})
}
