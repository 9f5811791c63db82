// Package mailer delivers transactional email such as password reset codes.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrInvalidMessage is returned for messages that cannot be delivered as built.
var ErrInvalidMessage = errors.New("mailer: invalid message")

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// DeliveryStatus describes an accepted message.
type DeliveryStatus struct {
	Provider  string
	MessageID string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (DeliveryStatus, error)
}

// Validate checks the recipient address and that a body is present.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, m.To, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}
