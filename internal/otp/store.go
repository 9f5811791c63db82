// Package otp keeps short-lived, single-use passcodes keyed by identity.
//
// A key holds at most one entry. Issuing replaces whatever was there, and a
// successful Verify consumes the entry in the same atomic step that checks
// the code, so two concurrent verifications of one code cannot both succeed.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Verification failures.
var (
	ErrNotFound         = errors.New("otp: no code issued")
	ErrExpired          = errors.New("otp: code expired")
	ErrMismatch         = errors.New("otp: code mismatch")
	ErrAlreadyConsumed  = errors.New("otp: code already used")
	ErrAttemptsExceeded = errors.New("otp: too many failed attempts")
)

// Entry is one issued passcode.
type Entry struct {
	Key       string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Consumed  bool
	Attempts  int
}

// Live reports whether the entry can still be redeemed at now.
func (e Entry) Live(now time.Time) bool {
	return !e.Consumed && !now.After(e.ExpiresAt)
}

// Store issues and verifies passcodes.
type Store interface {
	Issue(ctx context.Context, key string) (Entry, error)
	Verify(ctx context.Context, key, code string) error
}

// Options configures a store.
type Options struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
	Now         func() time.Time
	Generate    func(length int) (string, error)
}

const (
	defaultLength = 6
	defaultTTL    = 10 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.Length <= 0 {
		o.Length = defaultLength
	}
	if o.TTL <= 0 {
		o.TTL = defaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Generate == nil {
		o.Generate = GenerateCode
	}
	return o
}

// GenerateCode returns a uniformly random numeric code of the given length.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("otp: invalid code length %d", length)
	}
	buf := make([]byte, length)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("otp: generate code: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
