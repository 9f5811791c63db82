package auth

import "errors"

// Authentication failures. All of them surface as 401.
var (
	ErrTokenMissing      = errors.New("missing bearer token")
	ErrTokenMalformed    = errors.New("malformed token")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenBadSignature = errors.New("invalid token signature")
)
