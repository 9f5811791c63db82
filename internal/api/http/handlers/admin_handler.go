package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/service"
)

// AdminHandler serves operational views for administrators.
type AdminHandler struct {
	metrics *observability.Metrics
	audit   *service.AuditService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(metrics *observability.Metrics, audit *service.AuditService) *AdminHandler {
	return &AdminHandler{metrics: metrics, audit: audit}
}

// Metrics handles GET /api/admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}

// Audit handles GET /api/admin/audit?limit=N.
func (h *AdminHandler) Audit(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	return c.JSON(fiber.Map{"data": h.audit.Recent(limit)})
}
