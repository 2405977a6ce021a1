package ports

import "context"

// EventPublisher emits lifecycle events (export.completed, export.failed) to
// the platform event bus. Publish failures are logged and never fail the job.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
