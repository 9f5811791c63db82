package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/events"
)

const defaultAuditRetention = 200

// AuditService records account and credential events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu        sync.Mutex
	recent    []events.Event
	retention int
}

// NewAuditService creates the service. retention bounds how many events
// Recent can return.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, retention int) *AuditService {
	if retention <= 0 {
		retention = defaultAuditRetention
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		retention:  retention,
	}
}

// RegisterHandlers subscribes to every account event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("employee_id", event.EmployeeID),
		zap.String("actor", event.Actor.Subject),
		zap.Time("at", event.Timestamp),
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	if event.Type == events.EventLoginFailed {
		a.logger.Warn("audit", fields...)
	} else {
		a.logger.Info("audit", fields...)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.recent = append(a.recent, event)
	if over := len(a.recent) - a.retention; over > 0 {
		a.recent = append([]events.Event(nil), a.recent[over:]...)
	}
	return nil
}

// Recent returns up to limit of the latest events, newest first.
func (a *AuditService) Recent(limit int) []events.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.recent) {
		limit = len(a.recent)
	}
	out := make([]events.Event, 0, limit)
	for i := len(a.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.recent[i])
	}
	return out
}
