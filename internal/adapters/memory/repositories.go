// Package memory holds in-process adapter implementations. They back the
// test suites and let the service run without external infrastructure.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

type ExportRequestRepository struct {
	mu   sync.Mutex
	rows map[string]domain.ExportRequest
	// claims counts ClaimProcessing successes per request, so tests can
	// assert a job is never executed twice.
	claims map[string]int
}

func NewExportRequestRepository() *ExportRequestRepository {
	return &ExportRequestRepository{
		rows:   make(map[string]domain.ExportRequest),
		claims: make(map[string]int),
	}
}

func (r *ExportRequestRepository) Create(_ context.Context, row domain.ExportRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[row.RequestID]; exists {
		return domain.ErrConflict
	}
	r.rows[row.RequestID] = row
	return nil
}

func (r *ExportRequestRepository) Update(_ context.Context, row domain.ExportRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.rows[row.RequestID]
	if !exists {
		return domain.ErrNotFound
	}
	// Terminal states are absorbing. A stale writer (a worker whose job was
	// cancelled underneath it) gets a conflict, never a resurrection.
	if current.Status.Terminal() && row.Status != current.Status {
		return domain.ErrConflict
	}
	r.rows[row.RequestID] = row
	return nil
}

func (r *ExportRequestRepository) GetByID(_ context.Context, requestID string) (domain.ExportRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[requestID]
	if !ok {
		return domain.ExportRequest{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *ExportRequestRepository) List(_ context.Context, requesterID string, limit, offset int) ([]domain.ExportRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ExportRequest
	for _, row := range r.rows {
		if requesterID != "" && row.RequesterID != requesterID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RequestID < out[j].RequestID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ExportRequestRepository) ClaimProcessing(_ context.Context, requestID string, at time.Time) (domain.ExportRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[requestID]
	if !ok {
		return domain.ExportRequest{}, domain.ErrNotFound
	}
	if row.Status != domain.StatusPending {
		return domain.ExportRequest{}, domain.ErrConflict
	}
	row.Status = domain.StatusProcessing
	row.UpdatedAt = at
	r.rows[requestID] = row
	r.claims[requestID]++
	return row, nil
}

func (r *ExportRequestRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) ([]domain.ExportRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domain.ExportRequest
	for id, row := range r.rows {
		if row.Status == domain.StatusProcessing || row.Status == domain.StatusPending {
			continue
		}
		if row.CreatedAt.Before(cutoff) {
			removed = append(removed, row)
			delete(r.rows, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].RequestID < removed[j].RequestID })
	return removed, nil
}

func (r *ExportRequestRepository) Stats(_ context.Context) (domain.ExportStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := domain.ExportStats{
		StatusCounts: make(map[string]int),
		FormatCounts: make(map[string]int),
		TypeCounts:   make(map[string]int),
	}
	var totalDuration float64
	var completed int
	for _, row := range r.rows {
		stats.TotalExports++
		stats.StatusCounts[string(row.Status)]++
		stats.FormatCounts[string(row.Format)]++
		stats.TypeCounts[string(row.ExportType)]++
		if row.Status == domain.StatusCompleted {
			stats.TotalRecords += int64(row.RecordCount)
			totalDuration += row.DurationSeconds
			completed++
		}
	}
	if completed > 0 {
		stats.AvgDurationSeconds = totalDuration / float64(completed)
	}
	return stats, nil
}

// ClaimCount reports how many times a request was successfully claimed.
func (r *ExportRequestRepository) ClaimCount(requestID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claims[requestID]
}

type AuditRepository struct {
	mu   sync.Mutex
	rows []domain.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Append(_ context.Context, row domain.AuditLog) error {
	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()
	return nil
}

// Events returns the appended audit rows in order.
func (r *AuditRepository) Events() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.rows...)
}
