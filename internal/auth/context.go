package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/domain"
)

const identityLocal = "auth_identity"

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity attached by the gate, for code
// that only sees a context.Context.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(domain.Identity)
	return identity, ok && !identity.IsZero()
}

// IdentityFromCtx returns the identity attached to the request, if any.
func IdentityFromCtx(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityLocal).(domain.Identity)
	return identity, ok && !identity.IsZero()
}

func setIdentity(c *fiber.Ctx, identity domain.Identity) {
	c.Locals(identityLocal, identity)
	c.SetUserContext(WithIdentity(c.UserContext(), identity))
}
