package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/encoding"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/ports"
)

// Submit validates and admits one export request. The request is durable
// before it is queued; when admission fails on a full queue the record is
// finalized as failed so the caller never sees a pending job that will not run.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (domain.ExportRequest, error) {
	requesterID := strings.TrimSpace(in.RequesterID)
	if requesterID == "" {
		return domain.ExportRequest{}, fmt.Errorf("%w: requester_id is required", domain.ErrInvalidInput)
	}
	exportType := domain.ExportType(strings.ToLower(strings.TrimSpace(in.ExportType)))
	if !exportType.Valid() {
		return domain.ExportRequest{}, fmt.Errorf("%w: unknown export type %q", domain.ErrInvalidInput, in.ExportType)
	}
	format := domain.Format(strings.ToLower(strings.TrimSpace(in.Format)))
	if format == "" {
		format = domain.FormatJSON
	}
	if !format.Valid() {
		return domain.ExportRequest{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, in.Format)
	}
	if err := domain.ValidateFilters(exportType, in.Filters); err != nil {
		return domain.ExportRequest{}, err
	}
	for _, f := range in.Fields {
		if strings.TrimSpace(f) == "" {
			return domain.ExportRequest{}, fmt.Errorf("%w: blank field name in projection", domain.ErrInvalidInput)
		}
	}
	priority := in.Priority
	if priority <= 0 {
		priority = 5
	}

	now := s.nowFn()
	row := domain.ExportRequest{
		RequestID:       uuid.NewString(),
		RequesterID:     requesterID,
		ExportType:      exportType,
		Format:          format,
		Filters:         in.Filters,
		Fields:          in.Fields,
		IncludeMetadata: in.IncludeMetadata,
		Compress:        in.Compress,
		Priority:        priority,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	row.DownloadReference = s.cfg.DownloadBasePath + "/" + row.RequestID + "/download"

	if err := s.exports.Create(ctx, row); err != nil {
		return domain.ExportRequest{}, err
	}
	if err := s.queue.Enqueue(row.RequestID, row.Priority, row.CreatedAt); err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			row.Status = domain.StatusFailed
			row.ErrorMessage = "export queue at capacity"
			row.UpdatedAt = s.nowFn()
			if uerr := s.exports.Update(ctx, row); uerr != nil {
				s.logger.Error("failed to finalize rejected export",
					"module", "export", "operation", "submit", "outcome", "error",
					"request_id", row.RequestID, "error", uerr)
			}
		}
		return domain.ExportRequest{}, err
	}

	s.appendAudit(ctx, "export.submitted", row, nil)
	s.logger.Info("export submitted",
		"module", "export", "operation", "submit", "outcome", "success",
		"request_id", row.RequestID, "export_type", exportType, "format", format,
		"priority", priority, "queue_depth", s.queue.Len())
	return row, nil
}

// Status returns the current record for one export request.
func (s *Service) Status(ctx context.Context, requestID string) (domain.ExportRequest, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.ExportRequest{}, fmt.Errorf("%w: request_id is required", domain.ErrInvalidInput)
	}
	return s.exports.GetByID(ctx, requestID)
}

// Cancel stops an export that has not finished. A queued request is removed
// before a worker ever sees it; a running one is flagged and the worker stops
// at its next checkpoint. Cancelling a terminal request reports false.
func (s *Service) Cancel(ctx context.Context, requestID string) (bool, error) {
	row, err := s.exports.GetByID(ctx, requestID)
	if err != nil {
		return false, err
	}
	if row.Status.Terminal() {
		return false, nil
	}

	if s.queue.Remove(requestID) {
		row.Status = domain.StatusCancelled
		row.UpdatedAt = s.nowFn()
		if err := s.exports.Update(ctx, row); err != nil {
			return false, err
		}
		s.appendAudit(ctx, "export.cancelled", row, map[string]string{"stage": "queued"})
		s.logger.Info("export cancelled while queued",
			"module", "export", "operation", "cancel", "outcome", "success",
			"request_id", requestID)
		return true, nil
	}

	if s.cancels.raise(requestID) {
		s.logger.Info("export cancellation requested",
			"module", "export", "operation", "cancel", "outcome", "success",
			"request_id", requestID, "stage", "processing")
		return true, nil
	}

	// Not queued and not running: the worker finished between our status read
	// and now, or has not yet registered. Re-read and retry the flag once.
	row, err = s.exports.GetByID(ctx, requestID)
	if err != nil {
		return false, err
	}
	if row.Status.Terminal() {
		return false, nil
	}
	if s.cancels.raise(requestID) {
		return true, nil
	}
	row.Status = domain.StatusCancelled
	row.UpdatedAt = s.nowFn()
	if err := s.exports.Update(ctx, row); err != nil {
		return false, err
	}
	s.appendAudit(ctx, "export.cancelled", row, map[string]string{"stage": "pending"})
	return true, nil
}

// Result returns the result payload of a completed export. Only completed
// requests have a result; everything else is a miss.
func (s *Service) Result(ctx context.Context, requestID string) (domain.ExportResult, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.ExportResult{}, fmt.Errorf("%w: request_id is required", domain.ErrInvalidInput)
	}
	if s.results != nil {
		if cached, err := s.results.Get(ctx, requestID); err == nil && cached != nil {
			return *cached, nil
		}
	}
	row, err := s.exports.GetByID(ctx, requestID)
	if err != nil {
		return domain.ExportResult{}, err
	}
	if row.Status != domain.StatusCompleted {
		return domain.ExportResult{}, fmt.Errorf("%w: export %s has no result", domain.ErrNotFound, requestID)
	}
	return resultFromRow(row), nil
}

// Download returns the artifact bytes and format of a completed export.
func (s *Service) Download(ctx context.Context, requestID string) ([]byte, domain.ExportRequest, error) {
	row, err := s.exports.GetByID(ctx, requestID)
	if err != nil {
		return nil, domain.ExportRequest{}, err
	}
	if row.Status != domain.StatusCompleted || row.FilePath == "" {
		return nil, domain.ExportRequest{}, fmt.Errorf("%w: export %s has no artifact", domain.ErrNotFound, requestID)
	}
	data, err := s.store.Read(ctx, row.FilePath)
	if err != nil {
		return nil, domain.ExportRequest{}, err
	}
	return data, row, nil
}

// History lists a requester's exports, newest first.
func (s *Service) History(ctx context.Context, requesterID string, limit, offset int) ([]domain.ExportRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.exports.List(ctx, strings.TrimSpace(requesterID), limit, offset)
}

// Statistics aggregates the stored request history.
func (s *Service) Statistics(ctx context.Context) (domain.ExportStats, error) {
	return s.exports.Stats(ctx)
}

// Cleanup removes terminal export records older than the retention window,
// along with their artifacts. Processing records are never removed regardless
// of age. It returns the number of records deleted.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = s.cfg.RetentionDays
	}
	cutoff := s.nowFn().AddDate(0, 0, -retentionDays)
	removed, err := s.exports.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, row := range removed {
		if row.FilePath == "" {
			continue
		}
		if err := s.store.Remove(ctx, row.FilePath); err != nil {
			s.logger.Warn("failed to remove expired artifact",
				"module", "export", "operation", "cleanup", "outcome", "error",
				"request_id", row.RequestID, "path", row.FilePath, "error", err)
		}
	}
	s.logger.Info("retention cleanup finished",
		"module", "export", "operation", "cleanup", "outcome", "success",
		"removed", len(removed), "cutoff", cutoff)
	return len(removed), nil
}

// FormatCatalogEntry describes one supported output format for the catalog endpoint.
type FormatCatalogEntry struct {
	Format    string `json:"format"`
	Extension string `json:"extension"`
	MediaType string `json:"media_type"`
}

// ExportTypeCatalogEntry describes one export type and its filter allow-list.
type ExportTypeCatalogEntry struct {
	ExportType     string   `json:"export_type"`
	AllowedFilters []string `json:"allowed_filters"`
}

// SupportedFormats returns the format catalog in stable order.
func (s *Service) SupportedFormats() []FormatCatalogEntry {
	formats := domain.Formats()
	out := make([]FormatCatalogEntry, 0, len(formats))
	for _, f := range formats {
		info := f.Info()
		out = append(out, FormatCatalogEntry{
			Format:    string(f),
			Extension: info.Extension,
			MediaType: info.MediaType,
		})
	}
	return out
}

// SupportedTypes returns the export type catalog in stable order.
func (s *Service) SupportedTypes() []ExportTypeCatalogEntry {
	types := domain.ExportTypes()
	out := make([]ExportTypeCatalogEntry, 0, len(types))
	for _, t := range types {
		out = append(out, ExportTypeCatalogEntry{
			ExportType:     string(t),
			AllowedFilters: domain.AllowedFilters(t),
		})
	}
	return out
}

// ExportDirect runs a small export synchronously, bypassing queue and storage,
// and returns the encoded bytes. Validation matches Submit; the row limit
// keeps the call bounded.
func (s *Service) ExportDirect(ctx context.Context, in SubmitInput) ([]byte, domain.Format, error) {
	exportType := domain.ExportType(strings.ToLower(strings.TrimSpace(in.ExportType)))
	if !exportType.Valid() {
		return nil, "", fmt.Errorf("%w: unknown export type %q", domain.ErrInvalidInput, in.ExportType)
	}
	format := domain.Format(strings.ToLower(strings.TrimSpace(in.Format)))
	if format == "" {
		format = domain.FormatJSON
	}
	if !format.Valid() {
		return nil, "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, in.Format)
	}
	if err := domain.ValidateFilters(exportType, in.Filters); err != nil {
		return nil, "", err
	}

	limit := s.cfg.ChunkSize
	if limit > 10000 {
		limit = 10000
	}
	rs, err := s.source.Fetch(ctx, ports.RowQuery{
		ExportType: exportType,
		Filters:    in.Filters,
		Limit:      limit,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDatastore, err)
	}

	data, err := encoding.Encode(format, rs, encoding.Options{
		Fields:          in.Fields,
		IncludeMetadata: in.IncludeMetadata,
		Meta: encoding.Metadata{
			ExportID:    uuid.NewString(),
			ExportType:  exportType,
			Format:      format,
			ExportedAt:  s.nowFn(),
			RecordCount: len(rs.Rows),
			Filters:     in.Filters,
			Fields:      in.Fields,
		},
	})
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func resultFromRow(row domain.ExportRequest) domain.ExportResult {
	return domain.ExportResult{
		RequestID:        row.RequestID,
		FilePath:         row.FilePath,
		FileSize:         row.FileSize,
		RecordCount:      row.RecordCount,
		DurationSeconds:  row.DurationSeconds,
		CompressionRatio: row.CompressionRatio,
		Checksum:         row.Checksum,
		DownloadRef:      row.DownloadReference,
		Metadata: map[string]any{
			"export_type": string(row.ExportType),
			"format":      string(row.Format),
		},
	}
}

func (s *Service) appendAudit(ctx context.Context, eventType string, row domain.ExportRequest, metadata map[string]string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Append(ctx, domain.AuditLog{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		RequestID:   row.RequestID,
		RequesterID: row.RequesterID,
		OccurredAt:  s.nowFn(),
		Metadata:    metadata,
	})
}
