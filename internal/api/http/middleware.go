package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/observability"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

// MiddlewareConfig tunes the global middleware chain.
type MiddlewareConfig struct {
	Timeout     time.Duration
	CORSOrigins string
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger sits outside the error handler so it sees final statuses.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, cfg MiddlewareConfig) {
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: observability.RequestIDLocal,
	}))
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if cfg.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}))
	}
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
}

// ErrorHandler renders errors that escape the middleware chain, such as
// body-size rejections raised before any handler runs.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return renderError(c, logger, toDomainError(err))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				err = renderError(c, logger, domainErr)
			}
		}()
		return c.Next()
	}
}

func renderError(c *fiber.Ctx, logger *zap.Logger, domainErr *apperrors.DomainError) error {
	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("code", domainErr.Code),
			zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(apperrors.NewEnvelope(domainErr, c.Path(), time.Now()))
}

// toDomainError also understands the *fiber.Error values the router and
// body parser produce.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fromFiberError(fe)
	}
	return apperrors.ToDomainError(err)
}

func fromFiberError(fe *fiber.Error) *apperrors.DomainError {
	switch fe.Code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.NewDomainError(apperrors.CodeValidationFailed, fe.Message, fe.Code, nil)
	case http.StatusUnauthorized:
		return apperrors.NewDomainError(apperrors.CodeUnauthorized, fe.Message, fe.Code, nil)
	case http.StatusForbidden:
		return apperrors.NewDomainError(apperrors.CodeForbidden, fe.Message, fe.Code, nil)
	case http.StatusNotFound:
		return apperrors.NewDomainError(apperrors.CodeNotFound, fe.Message, fe.Code, nil)
	case http.StatusTooManyRequests:
		return apperrors.NewDomainError(apperrors.CodeRateLimited, fe.Message, fe.Code, nil)
	}
	if fe.Code >= http.StatusInternalServerError {
		return apperrors.ToDomainError(apperrors.NewInternalError(fe))
	}
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
	return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
}
