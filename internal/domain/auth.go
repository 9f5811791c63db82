package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the roles an identity can carry.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

// Identity is the caller resolved from a token. It is never persisted.
type Identity struct {
	Subject string
	Role    Role
	ID      int64
}

// IsZero reports whether no identity has been resolved.
func (i Identity) IsZero() bool {
	return i.Subject == ""
}
