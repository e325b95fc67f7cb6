package messaging

import (
	"context"
	"log/slog"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

// LogSink writes notifications to the log. It backs the memory storage
// driver, where there is no outbox for the relay to drain.
type LogSink struct {
	logger *slog.Logger
}

var _ ports.NotificationSink = (*LogSink)(nil)

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n domain.Notification) error {
	s.logger.InfoContext(ctx, "notification",
		"notification_id", n.ID,
		"type", string(n.Type),
		"request_id", n.RequestID,
		"recipient_id", n.RecipientID,
		"message", n.Message,
	)
	return nil
}
