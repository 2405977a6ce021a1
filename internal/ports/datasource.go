package ports

import (
	"context"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// RowQuery is one translated, allow-list-checked fetch against the source data.
// Filters only ever contain keys the export type admits; translation into the
// backing store's query language happens behind the DataSource.
type RowQuery struct {
	ExportType domain.ExportType
	Filters    map[string]any
	Limit      int
	Offset     int
}

// DataSource fetches one chunk of export rows. Implementations apply the
// type's default sort so repeated fetches page through a stable order.
type DataSource interface {
	Fetch(ctx context.Context, q RowQuery) (domain.RowSet, error)
}
