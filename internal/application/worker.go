package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/encoding"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/ports"
)

// RunWorkers starts the fixed worker pool and blocks until ctx is cancelled.
// Each worker loops on the queue with a bounded wait so shutdown stays prompt.
func (s *Service) RunWorkers(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < s.cfg.WorkerCount; i++ {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			logger := s.logger.With("module", "worker", "worker_id", workerID)
			logger.Info("worker started", "operation", "run", "outcome", "success")
			for {
				if ctx.Err() != nil {
					logger.Info("worker stopping", "operation", "run", "outcome", "success")
					return
				}
				s.ProcessNext(ctx)
			}
		}(i)
	}
	for i := 0; i < s.cfg.WorkerCount; i++ {
		<-done
	}
}

// ProcessNext dequeues and runs at most one job. It reports whether a job was
// processed, which lets tests drive the pipeline deterministically.
func (s *Service) ProcessNext(ctx context.Context) bool {
	requestID, ok := s.queue.Dequeue(ctx, s.cfg.DequeueWait)
	if !ok {
		return false
	}
	s.processJob(ctx, requestID)
	return true
}

func (s *Service) processJob(ctx context.Context, requestID string) {
	logger := s.logger.With("module", "worker", "request_id", requestID)
	started := s.nowFn()

	// Register the cancel flag before claiming. A cancel arriving after the
	// dequeue then either lands on this flag or wrote a terminal status first,
	// in which case the conditional claim below loses and the job is skipped.
	flag := s.cancels.register(requestID)
	defer s.cancels.drop(requestID)

	row, err := s.exports.ClaimProcessing(ctx, requestID, started)
	if err != nil {
		// Cancelled between dequeue and claim, or claimed elsewhere. Not an error.
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			logger.Info("skipping unclaimed job", "operation", "claim", "outcome", "success")
			return
		}
		logger.Error("claim failed", "operation", "claim", "outcome", "error", "error", err)
		return
	}
	row.Status = domain.StatusProcessing
	s.updateProgress(ctx, row, 10)

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	res, err := s.runExport(jobCtx, row, flag, started)
	switch {
	case err == nil:
		s.finalizeCompleted(ctx, logger, row, res, started)
	case errors.Is(err, domain.ErrCancelled):
		s.finalizeCancelled(ctx, logger, row)
	default:
		s.finalizeFailed(ctx, logger, row, err, started)
	}
}

// jobResult carries everything the worker learned while producing the artifact.
type jobResult struct {
	path             string
	fileSize         int64
	recordCount      int
	compressionRatio float64
	checksum         string
}

// runExport produces the artifact for one claimed request. Cancellation and
// timeout are checked at every checkpoint: between fetch chunks, after
// encoding, after compression and once more after the artifact is written.
func (s *Service) runExport(ctx context.Context, row domain.ExportRequest, flag *cancelFlag, started time.Time) (jobResult, error) {
	checkpoint := func() error {
		if flag.raised() {
			return domain.ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return domain.ErrJobTimeout
			}
			return domain.ErrCancelled
		}
		if s.nowFn().Sub(started) > s.cfg.JobTimeout {
			return domain.ErrJobTimeout
		}
		return nil
	}

	var rs domain.RowSet
	offset := intFilter(row.Filters, "offset")
	remaining := intFilter(row.Filters, "limit")
	for {
		if err := checkpoint(); err != nil {
			return jobResult{}, err
		}
		chunkSize := s.cfg.ChunkSize
		if remaining > 0 && remaining < chunkSize {
			chunkSize = remaining
		}
		chunk, err := s.source.Fetch(ctx, ports.RowQuery{
			ExportType: row.ExportType,
			Filters:    row.Filters,
			Limit:      chunkSize,
			Offset:     offset,
		})
		if err != nil {
			return jobResult{}, fmt.Errorf("%w: %v", domain.ErrDatastore, err)
		}
		rs.Append(chunk)
		offset += len(chunk.Rows)
		if remaining > 0 {
			remaining -= len(chunk.Rows)
			if remaining <= 0 {
				break
			}
		}
		if len(chunk.Rows) < chunkSize {
			break
		}
	}
	s.updateProgress(ctx, row, 60)

	if err := checkpoint(); err != nil {
		return jobResult{}, err
	}

	data, err := encoding.Encode(row.Format, rs, encoding.Options{
		Fields:          row.Fields,
		IncludeMetadata: row.IncludeMetadata,
		Meta: encoding.Metadata{
			ExportID:    row.RequestID,
			ExportType:  row.ExportType,
			Format:      row.Format,
			ExportedAt:  started,
			RecordCount: len(rs.Rows),
			Filters:     row.Filters,
			Fields:      row.Fields,
		},
	})
	if err != nil {
		return jobResult{}, err
	}
	s.updateProgress(ctx, row, 80)

	if err := checkpoint(); err != nil {
		return jobResult{}, err
	}

	info := row.Format.Info()
	filename := row.RequestID + "." + info.Extension
	ratio := 0.0
	if row.Compress {
		originalSize := len(data)
		// xlsx is already a zip container; wrap it in a zip so the inner
		// filename survives, gzip everything else.
		if row.Format == domain.FormatExcel {
			data, err = encoding.ZipSingle(filename, data)
			filename += ".zip"
		} else {
			data, err = encoding.Gzip(data)
			filename += ".gz"
		}
		if err != nil {
			return jobResult{}, err
		}
		ratio = encoding.Ratio(originalSize, len(data))
	}
	s.updateProgress(ctx, row, 95)

	if err := checkpoint(); err != nil {
		return jobResult{}, err
	}

	sum := sha256.Sum256(data)
	path, err := s.store.Write(ctx, filename, data)
	if err != nil {
		return jobResult{}, err
	}

	// Last checkpoint after the artifact exists: a cancel racing completion
	// wins, and the artifact is removed so nothing partial survives.
	if err := checkpoint(); err != nil {
		_ = s.store.Remove(ctx, path)
		return jobResult{}, err
	}

	return jobResult{
		path:             path,
		fileSize:         int64(len(data)),
		recordCount:      len(rs.Rows),
		compressionRatio: ratio,
		checksum:         hex.EncodeToString(sum[:]),
	}, nil
}

func (s *Service) finalizeCompleted(ctx context.Context, logger *slog.Logger, row domain.ExportRequest, res jobResult, started time.Time) {
	now := s.nowFn()
	row.Status = domain.StatusCompleted
	row.Progress = 100
	row.FilePath = res.path
	row.FileSize = res.fileSize
	row.RecordCount = res.recordCount
	row.DurationSeconds = now.Sub(started).Seconds()
	row.CompressionRatio = res.compressionRatio
	row.Checksum = res.checksum
	row.ErrorMessage = ""
	row.UpdatedAt = now
	if err := s.exports.Update(ctx, row); err != nil {
		// A conflict means the row reached a terminal state behind our back
		// (a cancel won the race). The artifact must not survive it.
		if errors.Is(err, domain.ErrConflict) {
			_ = s.store.Remove(ctx, res.path)
			logger.Info("completion lost to terminal transition, artifact removed",
				"operation", "finalize", "outcome", "success")
			return
		}
		logger.Error("failed to record completion", "operation", "finalize", "outcome", "error", "error", err)
		return
	}

	result := resultFromRow(row)
	if s.results != nil {
		if err := s.results.Put(ctx, result, s.cfg.ResultTTL); err != nil {
			logger.Warn("failed to cache result", "operation", "finalize", "outcome", "error", "error", err)
		}
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, domain.EventExportCompleted, result); err != nil {
			logger.Warn("failed to publish completion event", "operation", "finalize", "outcome", "error", "error", err)
		}
	}
	s.appendAudit(ctx, domain.EventExportCompleted, row, map[string]string{
		"record_count": fmt.Sprintf("%d", res.recordCount),
	})
	logger.Info("export completed",
		"operation", "process", "outcome", "success",
		"record_count", res.recordCount, "file_size", res.fileSize,
		"duration_seconds", row.DurationSeconds)
}

func (s *Service) finalizeCancelled(ctx context.Context, logger *slog.Logger, row domain.ExportRequest) {
	row.Status = domain.StatusCancelled
	row.UpdatedAt = s.nowFn()
	if err := s.exports.Update(ctx, row); err != nil {
		logger.Error("failed to record cancellation", "operation", "finalize", "outcome", "error", "error", err)
		return
	}
	s.appendAudit(ctx, "export.cancelled", row, map[string]string{"stage": "processing"})
	logger.Info("export cancelled", "operation", "process", "outcome", "success")
}

func (s *Service) finalizeFailed(ctx context.Context, logger *slog.Logger, row domain.ExportRequest, cause error, started time.Time) {
	now := s.nowFn()
	message := cause.Error()
	if message == "" {
		message = "export failed"
	}
	row.Status = domain.StatusFailed
	row.ErrorMessage = message
	row.DurationSeconds = now.Sub(started).Seconds()
	row.UpdatedAt = now
	if err := s.exports.Update(ctx, row); err != nil {
		logger.Error("failed to record failure", "operation", "finalize", "outcome", "error", "error", err)
		return
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, domain.EventExportFailed, map[string]any{
			"request_id": row.RequestID,
			"error":      message,
		}); err != nil {
			logger.Warn("failed to publish failure event", "operation", "finalize", "outcome", "error", "error", err)
		}
	}
	s.appendAudit(ctx, domain.EventExportFailed, row, map[string]string{"error": message})
	logger.Error("export failed", "operation", "process", "outcome", "error", "error", cause)
}

// updateProgress persists a progress checkpoint. Failures are logged and
// ignored; progress is advisory and must never fail the job.
func (s *Service) updateProgress(ctx context.Context, row domain.ExportRequest, progress float64) {
	row.Progress = progress
	row.UpdatedAt = s.nowFn()
	if err := s.exports.Update(ctx, row); err != nil {
		s.logger.Warn("failed to update progress",
			"module", "worker", "operation", "progress", "outcome", "error",
			"request_id", row.RequestID, "progress", progress, "error", err)
	}
}

func intFilter(filters map[string]any, key string) int {
	v, ok := filters[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
