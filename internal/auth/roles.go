package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/authz"
	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// Authorize enforces the policy decision for each request. It runs after the
// gate and sees the identity the gate attached, if any.
func Authorize(policy *authz.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var caller *domain.Identity
		if identity, ok := IdentityFromCtx(c); ok {
			caller = &identity
		}

		decision := policy.Authorize(c.Method(), c.Path(), caller)
		if decision.Allowed {
			return c.Next()
		}
		switch decision.Reason {
		case authz.DenyNoIdentity:
			return apperrors.NewUnauthorized("authentication required", nil)
		default:
			return apperrors.NewForbidden("insufficient role")
		}
	}
}
