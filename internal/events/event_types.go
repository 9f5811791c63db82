package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEmployeeRegistered     EventType = "employee_registered"
	EventLoginSucceeded         EventType = "login_succeeded"
	EventLoginFailed            EventType = "login_failed"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
	EventRoleChanged            EventType = "role_changed"
)

// AllEventTypes lists every event the services emit.
var AllEventTypes = []EventType{
	EventEmployeeRegistered,
	EventLoginSucceeded,
	EventLoginFailed,
	EventPasswordResetRequested,
	EventPasswordResetCompleted,
	EventRoleChanged,
}

// Actor identifies who triggered an event. Unauthenticated flows carry only
// the subject they presented.
type Actor struct {
	Subject    string      `json:"subject"`
	EmployeeID int64       `json:"employee_id,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	EmployeeID int64       `json:"employee_id,omitempty"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, employeeID int64, actor Actor, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		EmployeeID: employeeID,
		Actor:      actor,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	Provider  string    `json:"provider"`
	MessageID string    `json:"message_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}
