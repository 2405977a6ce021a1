package postgres

import "time"

type exportRequestModel struct {
	RequestID        string    `gorm:"column:request_id;primaryKey"`
	RequesterID      string    `gorm:"column:requester_id"`
	ExportType       string    `gorm:"column:export_type"`
	Format           string    `gorm:"column:format"`
	Filters          string    `gorm:"column:filters;type:jsonb"`
	Fields           string    `gorm:"column:fields;type:jsonb"`
	IncludeMetadata  bool      `gorm:"column:include_metadata"`
	Compress         bool      `gorm:"column:compress"`
	Priority         int       `gorm:"column:priority"`
	Status           string    `gorm:"column:status"`
	Progress         float64   `gorm:"column:progress"`
	FilePath         string    `gorm:"column:file_path"`
	FileSize         int64     `gorm:"column:file_size"`
	RecordCount      int       `gorm:"column:record_count"`
	DurationSeconds  float64   `gorm:"column:duration_seconds"`
	CompressionRatio float64   `gorm:"column:compression_ratio"`
	Checksum         string    `gorm:"column:checksum"`
	DownloadRef      string    `gorm:"column:download_reference"`
	ErrorMessage     string    `gorm:"column:error_message"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (exportRequestModel) TableName() string { return "export_requests" }

type exportAuditModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	RequestID   string    `gorm:"column:request_id"`
	RequesterID string    `gorm:"column:requester_id"`
	Metadata    string    `gorm:"column:metadata;type:jsonb"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
}

func (exportAuditModel) TableName() string { return "export_audit" }
