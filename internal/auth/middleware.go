package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/authz"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// Gate authenticates requests. Routes whose rule is public pass through
// without their Authorization header being read; every other request must
// carry a valid bearer token.
type Gate struct {
	tokens *TokenCodec
	policy *authz.Policy
}

// NewGate constructs the authentication middleware.
func NewGate(tokens *TokenCodec, policy *authz.Policy) *Gate {
	return &Gate{tokens: tokens, policy: policy}
}

// Handle is the fiber handler.
func (g *Gate) Handle(c *fiber.Ctx) error {
	rule, _ := g.policy.Resolve(c.Method(), c.Path())
	if rule.Requirement.Kind == authz.Public {
		return c.Next()
	}

	raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return apperrors.NewUnauthorized("missing bearer token", err)
	}

	identity, err := g.tokens.Validate(raw)
	if err != nil {
		return apperrors.NewUnauthorized(unauthorizedMessage(err), err)
	}

	setIdentity(c, identity)
	return c.Next()
}

func bearerToken(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrTokenMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	case errors.Is(err, ErrTokenBadSignature):
		return "invalid token signature"
	case errors.Is(err, ErrTokenMissing):
		return "missing bearer token"
	default:
		return "malformed token"
	}
}
