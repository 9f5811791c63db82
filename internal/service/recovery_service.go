package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/mailer"
	"github.com/spec-kit/feedback-service/internal/otp"
	"github.com/spec-kit/feedback-service/internal/repository"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// Password length bounds. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// Directory is the slice of the employee directory the recovery flow needs.
type Directory interface {
	GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*domain.Employee, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// RecoveryService runs the one-time-code password reset flow.
type RecoveryService struct {
	directory  Directory
	otps       otp.Store
	sender     mailer.Sender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// RecoveryDependencies encapsulates collaborators of the recovery service.
type RecoveryDependencies struct {
	Directory  Directory
	OTPs       otp.Store
	Sender     mailer.Sender
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	BcryptCost int
}

// ResetIssue describes a delivered reset code. The code itself stays
// unexported so transport code cannot echo it by accident.
type ResetIssue struct {
	EmployeeID int64
	ExpiresAt  time.Time
	Delivery   mailer.DeliveryStatus
	code       string
}

// Code returns the issued code.
func (r *ResetIssue) Code() string { return r.code }

// NewRecoveryService builds the service.
func NewRecoveryService(deps RecoveryDependencies) *RecoveryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryService{
		directory:  deps.Directory,
		otps:       deps.OTPs,
		sender:     deps.Sender,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
	}
}

func otpKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *RecoveryService) lookup(ctx context.Context, emailOrPhone string) (*domain.Employee, error) {
	subject := strings.TrimSpace(emailOrPhone)
	if subject == "" {
		return nil, apperrors.NewValidationError("email or phone is required", nil)
	}
	employee, err := s.directory.GetByEmailOrPhone(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("employee", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return employee, nil
}

// RequestReset issues a code for the employee and emails it. A failed
// delivery does not revoke the issued code.
func (s *RecoveryService) RequestReset(ctx context.Context, emailOrPhone string) (*ResetIssue, error) {
	employee, err := s.lookup(ctx, emailOrPhone)
	if err != nil {
		return nil, err
	}

	entry, err := s.otps.Issue(ctx, otpKey(employee.ID))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	msg, err := mailer.ResetCodeMessage(employee.Email, mailer.ResetCodeData{
		Name: employee.Name,
		Code: entry.Code,
		TTL:  entry.ExpiresAt.Sub(entry.CreatedAt),
	})
	if err != nil {
		return nil, apperrors.NewUnableSentEmail(err)
	}
	status, err := s.sender.Send(ctx, msg)
	if err != nil {
		s.logger.Error("reset code delivery failed", zap.Int64("employee_id", employee.ID), zap.Error(err))
		return nil, apperrors.NewUnableSentEmail(err)
	}

	s.publish(ctx, events.New(events.EventPasswordResetRequested, employee.ID,
		events.Actor{Subject: strings.TrimSpace(emailOrPhone), EmployeeID: employee.ID},
		events.PasswordResetRequestedPayload{
			Provider:  status.Provider,
			MessageID: status.MessageID,
			ExpiresAt: entry.ExpiresAt,
		}))

	return &ResetIssue{
		EmployeeID: employee.ID,
		ExpiresAt:  entry.ExpiresAt,
		Delivery:   status,
		code:       entry.Code,
	}, nil
}

// ConfirmReset redeems code and stores newPassword. The code is consumed
// before the password is written, so a failed write still burns it.
func (s *RecoveryService) ConfirmReset(ctx context.Context, emailOrPhone, code, newPassword string) error {
	if n := len(newPassword); n < MinPasswordLength || n > MaxPasswordLength {
		return apperrors.NewValidationError("password must be between 8 and 72 characters", nil)
	}
	employee, err := s.lookup(ctx, emailOrPhone)
	if err != nil {
		return err
	}

	if err := s.otps.Verify(ctx, otpKey(employee.ID), strings.TrimSpace(code)); err != nil {
		if isOTPRejection(err) {
			s.logger.Info("reset code rejected", zap.Int64("employee_id", employee.ID), zap.Error(err))
			return apperrors.NewInvalidOTP(err)
		}
		return apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewPasswordUpdateFailed(err)
	}
	if err := s.directory.UpdatePassword(ctx, employee.ID, hash); err != nil {
		return apperrors.NewPasswordUpdateFailed(err)
	}

	s.publish(ctx, events.New(events.EventPasswordResetCompleted, employee.ID,
		events.Actor{Subject: strings.TrimSpace(emailOrPhone), EmployeeID: employee.ID}, nil))
	return nil
}

func isOTPRejection(err error) bool {
	for _, target := range []error{
		otp.ErrNotFound,
		otp.ErrExpired,
		otp.ErrMismatch,
		otp.ErrAlreadyConsumed,
		otp.ErrAttemptsExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *RecoveryService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
