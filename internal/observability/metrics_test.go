package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/feedback-service/internal/config"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/b", "GET", 200, 2*time.Millisecond)
	m.RecordRequest("/a", "POST", 401, 4*time.Millisecond)
	m.RecordRequest("/a", "POST", 401, 6*time.Millisecond)
	m.RecordError("/a", "POST", "UNAUTHORIZED")

	snap := m.Snapshot()
	assert.Equal(t, []Counter{
		{Path: "/a", Method: "POST", Label: "401", Count: 2},
		{Path: "/b", Method: "GET", Label: "200", Count: 1},
	}, snap.Requests)
	assert.Equal(t, []Counter{
		{Path: "/a", Method: "POST", Label: "UNAUTHORIZED", Count: 1},
	}, snap.Errors)
	assert.InDelta(t, 4.0, snap.AvgLatencyMS, 0.001)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestRequestLoggerRecordsRoute(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/items/7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	snap := metrics.Snapshot()
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, "/items/:id", snap.Requests[0].Path)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "http request", entry.Message)
	assert.Equal(t, "/items/7", entry.ContextMap()["path"])
	assert.Equal(t, int64(204), entry.ContextMap()["status"])
}

func TestNewLogger(t *testing.T) {
	app := config.AppConfig{Name: "feedback", Version: "test", Env: "test"}

	logger, err := NewLogger(config.LoggerConfig{Level: "debug", Format: "console"}, app)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "not-a-level"}, app)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}
