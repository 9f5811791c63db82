package mailer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender writes messages to the logger instead of delivering them. Bodies
// are only emitted at debug level since they carry one-time codes.
type LogSender struct {
	logger *zap.Logger
	from   string
}

// NewLogSender builds a development sender.
func NewLogSender(logger *zap.Logger, from string) *LogSender {
	return &LogSender{logger: logger, from: from}
}

// Send logs msg and reports a synthetic message id.
func (s *LogSender) Send(ctx context.Context, msg Message) (DeliveryStatus, error) {
	if err := ctx.Err(); err != nil {
		return DeliveryStatus{}, err
	}
	if err := msg.Validate(); err != nil {
		return DeliveryStatus{}, err
	}
	id := uuid.NewString()
	s.logger.Info("email accepted",
		zap.String("provider", "log"),
		zap.String("message_id", id),
		zap.String("from", s.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	s.logger.Debug("email body", zap.String("message_id", id), zap.String("text", msg.Text))
	return DeliveryStatus{Provider: "log", MessageID: id}, nil
}
