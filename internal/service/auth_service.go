package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/repository"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and role administration.
type AuthService struct {
	employees  repository.EmployeeRepository
	tokens     *auth.TokenCodec
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Employees  repository.EmployeeRepository
	Tokens     *auth.TokenCodec
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// RegisterInput carries a new employee's details.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// LoginResult is a successful login.
type LoginResult struct {
	Employee *domain.Employee
	Token    auth.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		employees:  deps.Employees,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates an employee account. Self-registration always yields the
// employee role; admins are promoted through ChangeRole.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Employee, error) {
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewUnableToCreate("employee", err)
	}

	employee := &domain.Employee{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         domain.RoleEmployee,
	}
	if err := employee.NormalizeIdentifiers(); err != nil {
		return nil, apperrors.NewValidationError("invalid employee", identifierDetails(err))
	}
	if err := s.employees.Create(ctx, employee); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("employee already exists", map[string]any{"email": employee.Email})
		}
		return nil, apperrors.NewUnableToCreate("employee", err)
	}

	s.publish(ctx, events.New(events.EventEmployeeRegistered, employee.ID,
		events.Actor{Subject: employee.Email, EmployeeID: employee.ID, Role: employee.Role}, nil))
	return employee, nil
}

// Login checks credentials and issues an access token. The token subject is
// the account's own email or phone, matching the kind the caller presented.
func (s *AuthService) Login(ctx context.Context, emailOrPhone, password string) (*LoginResult, error) {
	subject := strings.TrimSpace(emailOrPhone)
	employee, err := s.employees.GetByEmailOrPhone(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.loginFailed(ctx, subject, 0, "unknown subject")
			return nil, apperrors.NewUnauthorized("invalid credentials", auth.ErrInvalidCredentials)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(employee.PasswordHash, password); err != nil {
		s.loginFailed(ctx, subject, employee.ID, "bad password")
		return nil, apperrors.NewUnauthorized("invalid credentials", err)
	}

	identity := employee.Identity(subject)
	token, err := s.tokens.Issue(identity, 0)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.New(events.EventLoginSucceeded, employee.ID,
		events.Actor{Subject: identity.Subject, EmployeeID: employee.ID, Role: employee.Role}, nil))
	return &LoginResult{Employee: employee, Token: token}, nil
}

// ChangeRole sets an employee's role. Tokens already issued keep the role
// they were minted with until they expire.
func (s *AuthService) ChangeRole(ctx context.Context, actor domain.Identity, id int64, role domain.Role) (*domain.Employee, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
	}
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("employee", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	previous := employee.Role
	if err := s.employees.UpdateRole(ctx, id, role); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	employee.Role = role

	s.publish(ctx, events.New(events.EventRoleChanged, id,
		events.Actor{Subject: actor.Subject, EmployeeID: actor.ID, Role: actor.Role},
		events.RoleChangedPayload{OldRole: previous, NewRole: role}))
	return employee, nil
}

func (s *AuthService) loginFailed(ctx context.Context, subject string, id int64, reason string) {
	s.publish(ctx, events.New(events.EventLoginFailed, id,
		events.Actor{Subject: subject}, events.LoginFailedPayload{Reason: reason}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func identifierDetails(err error) map[string]any {
	if errors.Is(err, domain.ErrInvalidPhone) {
		return map[string]any{"phone": "a valid phone number is required"}
	}
	return map[string]any{"email": "a valid email address is required"}
}
