package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/ports"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/queue"
)

type Config struct {
	ServiceName   string
	WorkerCount   int
	QueueCapacity int
	// ChunkSize bounds one DataSource fetch; the worker pages until a short chunk.
	ChunkSize int
	// JobTimeout is the wall-clock budget for one export job.
	JobTimeout time.Duration
	// DequeueWait bounds one blocking dequeue so worker loops observe shutdown.
	DequeueWait time.Duration
	ResultTTL   time.Duration
	// RetentionDays is how long terminal export records and artifacts are kept.
	RetentionDays int
	// DownloadBasePath prefixes the download reference handed back to callers.
	DownloadBasePath string
}

// SubmitInput carries one export submission after transport decoding.
type SubmitInput struct {
	RequesterID     string
	ExportType      string
	Format          string
	Filters         map[string]any
	Fields          []string
	IncludeMetadata bool
	Compress        bool
	Priority        int
}

type Service struct {
	cfg      Config
	exports  ports.ExportRequestRepository
	audit    ports.AuditRepository
	source   ports.DataSource
	results  ports.ResultStore
	store    ports.ArtifactStore
	events   ports.EventPublisher
	queue    *queue.PriorityQueue
	cancels  *cancelRegistry
	logger   *slog.Logger
	nowFn    func() time.Time
}

type Dependencies struct {
	Config    Config
	Exports   ports.ExportRequestRepository
	Audit     ports.AuditRepository
	Source    ports.DataSource
	Results   ports.ResultStore
	Artifacts ports.ArtifactStore
	Events    ports.EventPublisher
	Logger    *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M54-Data-Export-Service"
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 5
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1000
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10000
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Hour
	}
	if cfg.DequeueWait <= 0 {
		cfg.DequeueWait = time.Second
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.DownloadBasePath == "" {
		cfg.DownloadBasePath = "/v1/exports"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		exports: deps.Exports,
		audit:   deps.Audit,
		source:  deps.Source,
		results: deps.Results,
		store:   deps.Artifacts,
		events:  deps.Events,
		queue:   queue.New(cfg.QueueCapacity),
		cancels: newCancelRegistry(),
		logger:  logger.With("service", cfg.ServiceName, "layer", "application"),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// QueueDepth reports the number of requests waiting for a worker.
func (s *Service) QueueDepth() int {
	return s.queue.Len()
}
