package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/events"
	httpadapter "github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/adapters/storage"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	cleanupFn  func(context.Context)
}

// NewRuntime wires adapters to the application service. Without DB_URL the
// runtime falls back to in-memory adapters, which keeps local runs and CI
// working with no infrastructure.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger.With("service", cfg.ServiceID))
	logger.Info("bootstrapping data export service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	cleanup := func(context.Context) {}

	var (
		exportRepo ports.ExportRequestRepository
		auditRepo  ports.AuditRepository
		source     ports.DataSource
		results    ports.ResultStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := pool.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm sql db: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		repos := postgres.NewRepositories(pool)
		exportRepo = repos.ExportRequests
		auditRepo = repos.Audit
		source = postgres.NewDataSource(pool, nil)
		cleanup = func(context.Context) { _ = sqlDB.Close() }
	} else {
		logger.Warn("DB_URL not set, using in-memory repositories")
		exportRepo = memory.NewExportRequestRepository()
		auditRepo = memory.NewAuditRepository()
		source = memory.NewDataSource()
	}

	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		results = cacheadapter.NewRedisResultStore(redisClient)
		prev := cleanup
		cleanup = func(ctx context.Context) {
			_ = redisClient.Close()
			prev(ctx)
		}
	} else {
		logger.Warn("REDIS_URL not set, using in-memory result store")
		results = memory.NewResultStore()
	}

	var publisher ports.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPub
		prev := cleanup
		cleanup = func(ctx context.Context) {
			_ = kafkaPub.Close()
			prev(ctx)
		}
	} else {
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	artifacts, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:      cfg.ServiceID,
			WorkerCount:      cfg.WorkerCount,
			QueueCapacity:    cfg.QueueCapacity,
			ChunkSize:        cfg.ChunkSize,
			JobTimeout:       cfg.JobTimeout,
			ResultTTL:        cfg.ResultTTL,
			RetentionDays:    cfg.RetentionDays,
			DownloadBasePath: cfg.DownloadBasePath,
		},
		Exports:   exportRepo,
		Audit:     auditRepo,
		Source:    source,
		Results:   results,
		Artifacts: artifacts,
		Events:    publisher,
		Logger:    logger,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker runs the export worker pool and the periodic retention cleanup.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(r.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.service.Cleanup(ctx, r.cfg.RetentionDays); err != nil {
					r.logger.Error("retention cleanup failed", "error", err)
				}
			}
		}
	}()

	r.logger.Info("export workers started", "worker_count", r.cfg.WorkerCount)
	r.service.RunWorkers(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}

// Service exposes the wired application service, so the api binary can run
// workers in-process alongside the HTTP server.
func (r *Runtime) Service() *application.Service {
	return r.service
}
