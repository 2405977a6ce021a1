package events

import (
	"context"
	"encoding/json"
	"log/slog"
)

// LoggingPublisher writes lifecycle events to the structured log. It stands in
// for the Kafka publisher when no broker is configured.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "published event", "event_type", eventType, "payload", string(raw))
	return nil
}
