package domain

import (
	"errors"
	"strings"
	"time"
)

// Identifier validation failures.
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidPhone = errors.New("invalid phone number")
)

// Employee is a directory entry that can log in to the feedback service.
type Employee struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsEmailSubject reports whether a login subject names an email address.
// Phone numbers never contain '@', so the two namespaces cannot overlap.
func IsEmailSubject(subject string) bool {
	return strings.Contains(subject, "@")
}

// NormalizePhone strips spaces, dashes, dots and parentheses and accepts an
// optional leading '+' followed by 7 to 15 digits.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	phone := b.String()
	digits := len(strings.TrimPrefix(phone, "+"))
	if digits < 7 || digits > 15 {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// NormalizeIdentifiers lower-cases the email and normalizes the phone in
// place. The email must contain '@' and an empty phone stays empty.
func (e *Employee) NormalizeIdentifiers() error {
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	if !IsEmailSubject(e.Email) {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(e.Phone) == "" {
		e.Phone = ""
		return nil
	}
	phone, err := NormalizePhone(e.Phone)
	if err != nil {
		return err
	}
	e.Phone = phone
	return nil
}

// Subject returns the employee's own login subject of the kind presented:
// the stored email for an email subject, the stored phone otherwise.
func (e *Employee) Subject(presented string) string {
	if IsEmailSubject(presented) || e.Phone == "" {
		return e.Email
	}
	return e.Phone
}

// Identity returns the token identity for the employee logged in with
// presented. The subject is always one of the employee's own identifiers.
func (e *Employee) Identity(presented string) Identity {
	return Identity{Subject: e.Subject(presented), Role: e.Role, ID: e.ID}
}
