package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stable error codes exposed in the error envelope.
const (
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeNotFound              = "RESOURCE_NOT_FOUND"
	CodeAlreadyExists         = "RESOURCE_ALREADY_EXISTS"
	CodeUnableToCreate        = "RESOURCE_UNABLE_TO_CREATE"
	CodePasswordUpdateFailed  = "EMPLOYEE_PASSWORD_UPDATION_FAILED"
	CodeUnableSentEmail       = "UNABLE_SENT_EMAIL"
	CodeInvalidOTP            = "INVALID_OTP"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeRateLimited           = "RATE_LIMITED"
	CodeInternal              = "INTERNAL_ERROR"
	invalidOTPMessage         = "invalid or expired code"
	internalServerErrorString = "internal server error"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

// NewUnauthorized wraps cause so callers can still inspect the auth failure kind.
func NewUnauthorized(message string, cause error) error {
	return &DomainError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized, Err: cause}
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeAlreadyExists, message, http.StatusConflict, details)
}

func NewUnableToCreate(resource string, err error) error {
	return &DomainError{
		Code:       CodeUnableToCreate,
		Message:    fmt.Sprintf("unable to create %s", resource),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewPasswordUpdateFailed(err error) error {
	return &DomainError{
		Code:       CodePasswordUpdateFailed,
		Message:    "employee password update failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewUnableSentEmail(err error) error {
	return &DomainError{
		Code:       CodeUnableSentEmail,
		Message:    "unable to send email",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInvalidOTP hides the precise OTP failure behind one message.
func NewInvalidOTP(err error) error {
	return &DomainError{
		Code:       CodeInvalidOTP,
		Message:    invalidOTPMessage,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewTooManyRequests(message string) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    internalServerErrorString,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    internalServerErrorString,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Envelope is the JSON body returned for every failed request.
type Envelope struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    int            `json:"status"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Path      string         `json:"path"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewEnvelope renders a DomainError for the given request path.
func NewEnvelope(de *DomainError, path string, now time.Time) Envelope {
	return Envelope{
		Timestamp: now.UTC(),
		Status:    de.HTTPStatus,
		Code:      de.Code,
		Message:   de.Message,
		Path:      path,
		Details:   de.Details,
	}
}
