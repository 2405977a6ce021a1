package postgres

import (
	"encoding/json"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

func toModel(row domain.ExportRequest) exportRequestModel {
	filters := "{}"
	if len(row.Filters) > 0 {
		if raw, err := json.Marshal(row.Filters); err == nil {
			filters = string(raw)
		}
	}
	fields := "[]"
	if len(row.Fields) > 0 {
		if raw, err := json.Marshal(row.Fields); err == nil {
			fields = string(raw)
		}
	}
	return exportRequestModel{
		RequestID:        row.RequestID,
		RequesterID:      row.RequesterID,
		ExportType:       string(row.ExportType),
		Format:           string(row.Format),
		Filters:          filters,
		Fields:           fields,
		IncludeMetadata:  row.IncludeMetadata,
		Compress:         row.Compress,
		Priority:         row.Priority,
		Status:           string(row.Status),
		Progress:         row.Progress,
		FilePath:         row.FilePath,
		FileSize:         row.FileSize,
		RecordCount:      row.RecordCount,
		DurationSeconds:  row.DurationSeconds,
		CompressionRatio: row.CompressionRatio,
		Checksum:         row.Checksum,
		DownloadRef:      row.DownloadReference,
		ErrorMessage:     row.ErrorMessage,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toDomain(rec exportRequestModel) domain.ExportRequest {
	var filters map[string]any
	if rec.Filters != "" {
		_ = json.Unmarshal([]byte(rec.Filters), &filters)
	}
	var fields []string
	if rec.Fields != "" {
		_ = json.Unmarshal([]byte(rec.Fields), &fields)
	}
	return domain.ExportRequest{
		RequestID:         rec.RequestID,
		RequesterID:       rec.RequesterID,
		ExportType:        domain.ExportType(rec.ExportType),
		Format:            domain.Format(rec.Format),
		Filters:           filters,
		Fields:            fields,
		IncludeMetadata:   rec.IncludeMetadata,
		Compress:          rec.Compress,
		Priority:          rec.Priority,
		Status:            domain.Status(rec.Status),
		Progress:          rec.Progress,
		FilePath:          rec.FilePath,
		FileSize:          rec.FileSize,
		RecordCount:       rec.RecordCount,
		DurationSeconds:   rec.DurationSeconds,
		CompressionRatio:  rec.CompressionRatio,
		Checksum:          rec.Checksum,
		DownloadReference: rec.DownloadRef,
		ErrorMessage:      rec.ErrorMessage,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}
