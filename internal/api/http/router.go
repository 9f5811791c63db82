package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/api/http/handlers"
	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/authz"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Employees       *handlers.EmployeesHandler
	Recovery        *handlers.RecoveryHandler
	Admin           *handlers.AdminHandler
	Gate            *auth.Gate
	Policy          *authz.Policy
	RecoveryLimiter *RateLimiter
}

// RegisterRoutes wires HTTP routes. Every request passes the authentication
// gate and the policy check before reaching a handler, so access control
// lives in the rule table rather than on individual routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Gate.Handle, auth.Authorize(cfg.Policy))

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	employees := app.Group("/api/employees")
	employees.Post("/create", cfg.Employees.Create)
	employees.Post("/login", cfg.Employees.Login)
	employees.Get("/me", cfg.Employees.Me)
	employees.Put("/:id/role", cfg.Employees.ChangeRole)

	limit := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.RecoveryLimiter != nil {
		limit = cfg.RecoveryLimiter.Handle
	}
	employees.Post("/forgot-password", limit, cfg.Recovery.ForgotPassword)
	employees.Post("/reset-password", limit, cfg.Recovery.ResetPassword)

	admin := app.Group("/api/admin")
	admin.Get("/metrics", cfg.Admin.Metrics)
	admin.Get("/audit", cfg.Admin.Audit)
}
