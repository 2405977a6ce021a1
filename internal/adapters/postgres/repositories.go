package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

type Repositories struct {
	ExportRequests *ExportRequestRepository
	Audit          *AuditRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ExportRequests: &ExportRequestRepository{db: db},
		Audit:          &AuditRepository{db: db},
	}
}

type ExportRequestRepository struct {
	db *gorm.DB
}

var terminalStatuses = []string{
	string(domain.StatusCompleted),
	string(domain.StatusFailed),
	string(domain.StatusCancelled),
}

func (r *ExportRequestRepository) Create(ctx context.Context, row domain.ExportRequest) error {
	rec := toModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// Update writes the full row, except it never moves a record out of a
// terminal status: the conditional matches only rows that are still live or
// already carry the status being written, so a stale writer conflicts.
func (r *ExportRequestRepository) Update(ctx context.Context, row domain.ExportRequest) error {
	rec := toModel(row)
	res := r.db.WithContext(ctx).Model(&exportRequestModel{}).
		Where("request_id = ? AND (status NOT IN ? OR status = ?)",
			rec.RequestID, terminalStatuses, rec.Status).
		Select("*").Omit("request_id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, rec.RequestID); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *ExportRequestRepository) GetByID(ctx context.Context, requestID string) (domain.ExportRequest, error) {
	var rec exportRequestModel
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ExportRequest{}, domain.ErrNotFound
		}
		return domain.ExportRequest{}, err
	}
	return toDomain(rec), nil
}

func (r *ExportRequestRepository) List(ctx context.Context, requesterID string, limit, offset int) ([]domain.ExportRequest, error) {
	q := r.db.WithContext(ctx).Model(&exportRequestModel{})
	if requesterID != "" {
		q = q.Where("requester_id = ?", requesterID)
	}
	var recs []exportRequestModel
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ExportRequest, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomain(rec))
	}
	return out, nil
}

// ClaimProcessing flips pending to processing with a conditional update, so
// exactly one worker wins even when a request was dequeued twice.
func (r *ExportRequestRepository) ClaimProcessing(ctx context.Context, requestID string, at time.Time) (domain.ExportRequest, error) {
	res := r.db.WithContext(ctx).Model(&exportRequestModel{}).
		Where("request_id = ? AND status = ?", requestID, string(domain.StatusPending)).
		Updates(map[string]any{
			"status":     string(domain.StatusProcessing),
			"updated_at": at,
		})
	if res.Error != nil {
		return domain.ExportRequest{}, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the record is gone or it already left pending.
		if _, err := r.GetByID(ctx, requestID); err != nil {
			return domain.ExportRequest{}, err
		}
		return domain.ExportRequest{}, domain.ErrConflict
	}
	return r.GetByID(ctx, requestID)
}

func (r *ExportRequestRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]domain.ExportRequest, error) {
	var recs []exportRequestModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("created_at < ? AND status IN ?", cutoff, []string{
				string(domain.StatusCompleted),
				string(domain.StatusFailed),
				string(domain.StatusCancelled),
			}).
			Find(&recs).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		ids := make([]string, 0, len(recs))
		for _, rec := range recs {
			ids = append(ids, rec.RequestID)
		}
		return tx.Where("request_id IN ?", ids).Delete(&exportRequestModel{}).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExportRequest, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomain(rec))
	}
	return out, nil
}

func (r *ExportRequestRepository) Stats(ctx context.Context) (domain.ExportStats, error) {
	stats := domain.ExportStats{
		StatusCounts: make(map[string]int),
		FormatCounts: make(map[string]int),
		TypeCounts:   make(map[string]int),
	}

	type countRow struct {
		Key   string
		Count int
	}
	count := func(column string, into map[string]int) error {
		var rows []countRow
		if err := r.db.WithContext(ctx).Model(&exportRequestModel{}).
			Select(column + " AS key, COUNT(*) AS count").
			Group(column).Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			into[row.Key] = row.Count
			if column == "status" {
				stats.TotalExports += row.Count
			}
		}
		return nil
	}
	if err := count("status", stats.StatusCounts); err != nil {
		return domain.ExportStats{}, err
	}
	if err := count("format", stats.FormatCounts); err != nil {
		return domain.ExportStats{}, err
	}
	if err := count("export_type", stats.TypeCounts); err != nil {
		return domain.ExportStats{}, err
	}

	type aggRow struct {
		TotalRecords int64
		AvgDuration  float64
	}
	var agg aggRow
	if err := r.db.WithContext(ctx).Model(&exportRequestModel{}).
		Select("COALESCE(SUM(record_count),0) AS total_records, COALESCE(AVG(duration_seconds),0) AS avg_duration").
		Where("status = ?", string(domain.StatusCompleted)).
		Take(&agg).Error; err != nil {
		return domain.ExportStats{}, err
	}
	stats.TotalRecords = agg.TotalRecords
	stats.AvgDurationSeconds = agg.AvgDuration
	return stats, nil
}

type AuditRepository struct {
	db *gorm.DB
}

func (r *AuditRepository) Append(ctx context.Context, row domain.AuditLog) error {
	metadata := "{}"
	if len(row.Metadata) > 0 {
		if raw, err := json.Marshal(row.Metadata); err == nil {
			metadata = string(raw)
		}
	}
	rec := exportAuditModel{
		EventID:     row.EventID,
		EventType:   row.EventType,
		RequestID:   row.RequestID,
		RequesterID: row.RequesterID,
		Metadata:    metadata,
		OccurredAt:  row.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}
