package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/mailer"
	"github.com/spec-kit/feedback-service/internal/otp"
	"github.com/spec-kit/feedback-service/internal/repository"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

const testSecret = "test-secret"

// captureSender records every message and optionally fails delivery.
type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg mailer.Message) (mailer.DeliveryStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return mailer.DeliveryStatus{}, s.err
	}
	return mailer.DeliveryStatus{Provider: "capture", MessageID: "m-1"}, nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (s *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent, "no message sent")
	code := codePattern.FindString(s.sent[len(s.sent)-1].Text)
	require.NotEmpty(t, code, "no code in message")
	return code
}

// flakyDirectory fails password writes on demand.
type flakyDirectory struct {
	*repository.MemoryEmployeeRepository
	failUpdate bool
	failCreate bool
}

func (d *flakyDirectory) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if d.failUpdate {
		return errors.New("disk full")
	}
	return d.MemoryEmployeeRepository.UpdatePassword(ctx, id, hash)
}

func (d *flakyDirectory) Create(ctx context.Context, e *domain.Employee) error {
	if d.failCreate {
		return errors.New("connection refused")
	}
	return d.MemoryEmployeeRepository.Create(ctx, e)
}

// eventLog collects published event types.
type eventLog struct {
	mu    sync.Mutex
	types []events.EventType
}

func (l *eventLog) attach(d events.Dispatcher) {
	for _, et := range events.AllEventTypes {
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.types = append(l.types, e.Type)
			return nil
		})
	}
}

func (l *eventLog) all() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]events.EventType(nil), l.types...)
}

func requireDomainError(t *testing.T, err error, code string, status int) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T: %v", err, err)
	require.Equal(t, code, de.Code)
	require.Equal(t, status, de.HTTPStatus)
	return de
}

func seedEmployee(t *testing.T, repo repository.EmployeeRepository, email, password string, role domain.Role) *domain.Employee {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	e := &domain.Employee{Name: "Test", Email: email, Phone: "", PasswordHash: hash, Role: role}
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

type fixture struct {
	dir      *flakyDirectory
	otps     *otp.MemoryStore
	sender   *captureSender
	events   *eventLog
	tokens   *auth.TokenCodec
	auth     *AuthService
	recovery *RecoveryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := &flakyDirectory{MemoryEmployeeRepository: repository.NewMemoryEmployeeRepository()}
	otps := otp.NewMemoryStore(otp.Options{Length: 6, TTL: 10 * time.Minute, MaxAttempts: 5})
	sender := &captureSender{}
	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	log.attach(dispatcher)
	tokens := auth.NewTokenCodec(testSecret, time.Hour)

	return &fixture{
		dir:    dir,
		otps:   otps,
		sender: sender,
		events: log,
		tokens: tokens,
		auth: NewAuthService(authConfig(), AuthDependencies{
			Employees:  dir,
			Tokens:     tokens,
			Dispatcher: dispatcher,
		}),
		recovery: NewRecoveryService(RecoveryDependencies{
			Directory:  dir,
			OTPs:       otps,
			Sender:     sender,
			Dispatcher: dispatcher,
			BcryptCost: bcrypt.MinCost,
		}),
	}
}
