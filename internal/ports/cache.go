package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// ResultStore caches completed export results for fast retrieval. Entries
// expire on their own; a miss is (nil, nil) and callers fall back to the
// durable record.
type ResultStore interface {
	Put(ctx context.Context, result domain.ExportResult, ttl time.Duration) error
	Get(ctx context.Context, requestID string) (*domain.ExportResult, error)
}
