package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/observability"
	apperrors "github.com/spec-kit/feedback-service/pkg/util/errorutil"
)

func newMiddlewareApp(metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	RegisterMiddlewares(app, zap.NewNop(), metrics, MiddlewareConfig{})
	app.Get("/panic", func(*fiber.Ctx) error { panic("boom") })
	app.Get("/fiber-error", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusMethodNotAllowed, "nope") })
	app.Get("/plain-error", func(*fiber.Ctx) error { return assert.AnError })
	app.Get("/id", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(observability.RequestIDLocal).(string))
	})
	return app
}

func decodeEnvelope(t *testing.T, app *fiber.App, path string) (int, apperrors.Envelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env apperrors.Envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	metrics := observability.NewMetrics()
	status, env := decodeEnvelope(t, newMiddlewareApp(metrics), "/panic")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, env.Code)
	assert.Equal(t, "internal server error", env.Message)
	assert.Equal(t, "/panic", env.Path)

	snap := metrics.Snapshot()
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, apperrors.CodeInternal, snap.Errors[0].Label)
}

func TestErrorMiddlewareMapsFiberErrors(t *testing.T) {
	app := newMiddlewareApp(nil)

	status, env := decodeEnvelope(t, app, "/fiber-error")
	assert.Equal(t, fiber.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Code)
	assert.Equal(t, "nope", env.Message)

	status, env = decodeEnvelope(t, app, "/missing")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, env.Code)
}

func TestErrorMiddlewareHidesUnknownErrors(t *testing.T) {
	status, env := decodeEnvelope(t, newMiddlewareApp(nil), "/plain-error")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, env.Code)
	assert.NotContains(t, env.Message, assert.AnError.Error())
}

func TestRequestIDIsAssigned(t *testing.T) {
	resp, err := newMiddlewareApp(nil).Test(httptest.NewRequest("GET", "/id", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, string(body), 36)
	assert.Equal(t, string(body), resp.Header.Get(fiber.HeaderXRequestID))
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("ip:1"))
	assert.False(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:2"))

	disabled := NewRateLimiter(0, 1)
	app := fiber.New()
	app.Get("/", disabled.Handle, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}

func TestRateLimiterSweepEvictsRefilledClients(t *testing.T) {
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("ip:busy"))
	assert.True(t, rl.Allow("ip:busy"))
	assert.False(t, rl.Allow("ip:busy"))
	assert.True(t, rl.Allow("ip:idle"))
	require.Equal(t, 2, rl.Len())

	evicted, err := rl.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, evicted, "partially drained buckets are kept")

	clock = clock.Add(time.Second)
	evicted, err = rl.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, rl.Len())

	assert.True(t, rl.Allow("ip:busy"))
	assert.False(t, rl.Allow("ip:busy"), "busy client keeps its drained bucket")

	clock = clock.Add(10 * time.Second)
	evicted, err = rl.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Zero(t, rl.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rl.Allow("ip:other")
	_, err = rl.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
