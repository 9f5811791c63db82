package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/feedback-service/internal/domain"
)

const defaultTokenTTL = 60 * time.Minute

// TokenCodec issues and validates signed, self-contained identity tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for iat/exp.
func WithClock(now func() time.Time) TokenOption {
	return func(tc *TokenCodec) { tc.now = now }
}

// WithIssuer sets the iss claim of issued tokens.
func WithIssuer(issuer string) TokenOption {
	return func(tc *TokenCodec) { tc.issuer = issuer }
}

// NewTokenCodec builds a codec signing with secret. ttl is used when Issue
// is called without an explicit lifetime.
func NewTokenCodec(secret string, ttl time.Duration, opts ...TokenOption) *TokenCodec {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	tc := &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Claims describes the JWT payload.
type Claims struct {
	Role       domain.Role `json:"role"`
	EmployeeID int64       `json:"uid"`
	jwt.RegisteredClaims
}

// Token is an issued credential together with its lifetime.
type Token struct {
	Raw       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue signs a token for identity valid for ttl (or the default TTL).
func (tc *TokenCodec) Issue(identity domain.Identity, ttl time.Duration) (Token, error) {
	if identity.IsZero() {
		return Token{}, errors.New("issue token: empty subject")
	}
	if !identity.Role.Valid() {
		return Token{}, fmt.Errorf("issue token: %w", errors.New("invalid role"))
	}
	if ttl <= 0 {
		ttl = tc.ttl
	}

	// NumericDate has second precision; truncate so the returned lifetime matches the token.
	issuedAt := tc.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Role:       identity.Role,
		EmployeeID: identity.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tc.issuer,
			Subject:   identity.Subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Raw: raw, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Validate checks a raw token and returns the identity it carries.
// Expiry is judged on the unverified claims first, so an expired token is
// reported as ErrTokenExpired whether or not its signature is intact.
func (tc *TokenCodec) Validate(raw string) (domain.Identity, error) {
	if raw == "" {
		return domain.Identity{}, ErrTokenMissing
	}

	var unverified Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &unverified); err != nil {
		return domain.Identity{}, ErrTokenMalformed
	}
	if unverified.ExpiresAt == nil {
		return domain.Identity{}, ErrTokenMalformed
	}
	if tc.now().After(unverified.ExpiresAt.Time) {
		return domain.Identity{}, ErrTokenExpired
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return tc.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		// header and claims already decoded above, so a malformed error here
		// comes from the signature segment
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return domain.Identity{}, ErrTokenBadSignature
		}
		return domain.Identity{}, mapJWTError(err)
	}

	if claims.Subject == "" || !claims.Role.Valid() {
		return domain.Identity{}, ErrTokenMalformed
	}
	return domain.Identity{Subject: claims.Subject, Role: claims.Role, ID: claims.EmployeeID}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenBadSignature
	default:
		return ErrTokenMalformed
	}
}
