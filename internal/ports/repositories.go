package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

type ExportRequestRepository interface {
	Create(ctx context.Context, row domain.ExportRequest) error
	Update(ctx context.Context, row domain.ExportRequest) error
	GetByID(ctx context.Context, requestID string) (domain.ExportRequest, error)
	List(ctx context.Context, requesterID string, limit, offset int) ([]domain.ExportRequest, error)
	// ClaimProcessing flips pending to processing atomically. It returns
	// domain.ErrConflict when the record already left pending, which is how
	// at-most-once execution is enforced.
	ClaimProcessing(ctx context.Context, requestID string, at time.Time) (domain.ExportRequest, error)
	// DeleteOlderThan removes terminal records created before cutoff and
	// returns the removed rows so the caller can delete their artifacts.
	// Records still processing are never touched.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]domain.ExportRequest, error)
	Stats(ctx context.Context) (domain.ExportStats, error)
}

type AuditRepository interface {
	Append(ctx context.Context, row domain.AuditLog) error
}
