package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SubmitExportRequest struct {
	RequesterID     string         `json:"requester_id"`
	ExportType      string         `json:"export_type"`
	Format          string         `json:"format,omitempty"`
	Filters         map[string]any `json:"filters,omitempty"`
	Fields          []string       `json:"fields,omitempty"`
	IncludeMetadata bool           `json:"include_metadata,omitempty"`
	Compress        bool           `json:"compress,omitempty"`
	Priority        int            `json:"priority,omitempty"`
}

type ExportRequestResponse struct {
	RequestID         string         `json:"request_id"`
	RequesterID       string         `json:"requester_id"`
	ExportType        string         `json:"export_type"`
	Format            string         `json:"format"`
	Filters           map[string]any `json:"filters,omitempty"`
	Fields            []string       `json:"fields,omitempty"`
	Status            string         `json:"status"`
	Progress          float64        `json:"progress"`
	Priority          int            `json:"priority"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	RecordCount       int            `json:"record_count,omitempty"`
	FileSize          int64          `json:"file_size,omitempty"`
	DurationSeconds   float64        `json:"duration_seconds,omitempty"`
	CompressionRatio  float64        `json:"compression_ratio,omitempty"`
	Checksum          string         `json:"checksum,omitempty"`
	DownloadReference string         `json:"download_reference,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
}

type ExportResultResponse struct {
	RequestID         string         `json:"request_id"`
	FilePath          string         `json:"file_path"`
	FileSize          int64          `json:"file_size"`
	RecordCount       int            `json:"record_count"`
	DurationSeconds   float64        `json:"duration_seconds"`
	CompressionRatio  float64        `json:"compression_ratio"`
	Checksum          string         `json:"checksum"`
	DownloadReference string         `json:"download_reference"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type ExportHistoryResponse struct {
	Items []ExportRequestResponse `json:"items"`
}

type FormatEntry struct {
	Format    string `json:"format"`
	Extension string `json:"extension"`
	MediaType string `json:"media_type"`
}

type FormatCatalogResponse struct {
	Formats []FormatEntry `json:"formats"`
}

type ExportTypeEntry struct {
	ExportType     string   `json:"export_type"`
	AllowedFilters []string `json:"allowed_filters"`
}

type ExportTypeCatalogResponse struct {
	ExportTypes []ExportTypeEntry `json:"export_types"`
}

type CancelResponse struct {
	RequestID string `json:"request_id"`
	Cancelled bool   `json:"cancelled"`
}

type StatsResponse struct {
	TotalExports       int            `json:"total_exports"`
	StatusCounts       map[string]int `json:"status_counts"`
	FormatCounts       map[string]int `json:"format_counts"`
	TypeCounts         map[string]int `json:"type_counts"`
	TotalRecords       int64          `json:"total_records_exported"`
	AvgDurationSeconds float64        `json:"average_duration_seconds"`
	QueueDepth         int            `json:"queue_depth"`
}
