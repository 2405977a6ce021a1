package domain

import "time"

type ExportType string

type Format string

type Status string

const (
	ExportTypeUsers               ExportType = "users"
	ExportTypeConversations       ExportType = "conversations"
	ExportTypeMessages            ExportType = "messages"
	ExportTypeAnalytics           ExportType = "analytics"
	ExportTypeAuditLogs           ExportType = "audit_logs"
	ExportTypePersonalizationData ExportType = "personalization_data"
	ExportTypeSystemMetrics       ExportType = "system_metrics"
	ExportTypeCustom              ExportType = "custom"
)

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXML      Format = "xml"
	FormatExcel    Format = "excel"
	FormatParquet  Format = "parquet"
	FormatAvro     Format = "avro"
	FormatORC      Format = "orc"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

const (
	EventExportCompleted = "export.completed"
	EventExportFailed    = "export.failed"
)

// Terminal reports whether no further status transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// FormatInfo carries the on-disk extension and media type for one output format.
// Both are part of the download contract and must stay stable.
type FormatInfo struct {
	Extension string
	MediaType string
}

var formatCatalog = map[Format]FormatInfo{
	FormatJSON:     {Extension: "json", MediaType: "application/json"},
	FormatCSV:      {Extension: "csv", MediaType: "text/csv"},
	FormatXML:      {Extension: "xml", MediaType: "application/xml"},
	FormatExcel:    {Extension: "xlsx", MediaType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	FormatParquet:  {Extension: "parquet", MediaType: "application/vnd.apache.parquet"},
	FormatAvro:     {Extension: "avro", MediaType: "application/avro"},
	FormatORC:      {Extension: "orc", MediaType: "application/octet-stream"},
	FormatHTML:     {Extension: "html", MediaType: "text/html"},
	FormatPDF:      {Extension: "pdf", MediaType: "application/pdf"},
	FormatMarkdown: {Extension: "md", MediaType: "text/markdown"},
	FormatYAML:     {Extension: "yaml", MediaType: "application/yaml"},
}

var formatOrder = []Format{
	FormatJSON, FormatCSV, FormatXML, FormatExcel, FormatParquet,
	FormatAvro, FormatORC, FormatHTML, FormatPDF, FormatMarkdown, FormatYAML,
}

var exportTypeOrder = []ExportType{
	ExportTypeUsers, ExportTypeConversations, ExportTypeMessages, ExportTypeAnalytics,
	ExportTypeAuditLogs, ExportTypePersonalizationData, ExportTypeSystemMetrics, ExportTypeCustom,
}

func (f Format) Valid() bool {
	_, ok := formatCatalog[f]
	return ok
}

func (f Format) Info() FormatInfo {
	return formatCatalog[f]
}

func (t ExportType) Valid() bool {
	for _, known := range exportTypeOrder {
		if t == known {
			return true
		}
	}
	return false
}

// Formats returns the supported output formats in catalog order.
func Formats() []Format {
	return append([]Format(nil), formatOrder...)
}

// ExportTypes returns the supported export types in catalog order.
func ExportTypes() []ExportType {
	return append([]ExportType(nil), exportTypeOrder...)
}

// ExportRequest is the durable record of one export job.
// RequestID is immutable; Status only moves forward and never leaves a terminal state.
type ExportRequest struct {
	RequestID       string         `json:"request_id"`
	RequesterID     string         `json:"requester_id"`
	ExportType      ExportType     `json:"export_type"`
	Format          Format         `json:"format"`
	Filters         map[string]any `json:"filters,omitempty"`
	Fields          []string       `json:"fields,omitempty"`
	IncludeMetadata bool           `json:"include_metadata"`
	Compress        bool           `json:"compress"`
	Priority        int            `json:"priority"`
	Status          Status         `json:"status"`
	Progress        float64        `json:"progress"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	FilePath          string  `json:"file_path,omitempty"`
	FileSize          int64   `json:"file_size,omitempty"`
	RecordCount       int     `json:"record_count,omitempty"`
	DurationSeconds   float64 `json:"duration_seconds,omitempty"`
	CompressionRatio  float64 `json:"compression_ratio,omitempty"`
	Checksum          string  `json:"checksum,omitempty"`
	DownloadReference string  `json:"download_reference,omitempty"`
	ErrorMessage      string  `json:"error_message,omitempty"`
}

// ExportResult is published once per completed request and never mutated afterwards.
type ExportResult struct {
	RequestID        string         `json:"request_id"`
	FilePath         string         `json:"file_path"`
	FileSize         int64          `json:"file_size"`
	RecordCount      int            `json:"record_count"`
	DurationSeconds  float64        `json:"duration_seconds"`
	CompressionRatio float64        `json:"compression_ratio"`
	Checksum         string         `json:"checksum"`
	DownloadRef      string         `json:"download_reference"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ExportStats aggregates the request history for the stats endpoint.
type ExportStats struct {
	TotalExports       int            `json:"total_exports"`
	StatusCounts       map[string]int `json:"status_counts"`
	FormatCounts       map[string]int `json:"format_counts"`
	TypeCounts         map[string]int `json:"type_counts"`
	TotalRecords       int64          `json:"total_records_exported"`
	AvgDurationSeconds float64        `json:"average_duration_seconds"`
}

// RowSet is an ordered batch of homogeneous records produced by the query translator.
// Columns preserves the source column order so encoders have a stable default
// field order when the caller did not project explicit fields.
type RowSet struct {
	Columns []string
	Rows    []map[string]any
}

// Append merges another chunk into the set, keeping the first chunk's column order.
func (rs *RowSet) Append(chunk RowSet) {
	if len(rs.Columns) == 0 {
		rs.Columns = chunk.Columns
	}
	rs.Rows = append(rs.Rows, chunk.Rows...)
}

type AuditLog struct {
	EventID     string            `json:"event_id"`
	EventType   string            `json:"event_type"`
	RequestID   string            `json:"request_id"`
	RequesterID string            `json:"requester_id"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
