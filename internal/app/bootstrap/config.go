package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the export service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	StorageDir       string
	DownloadBasePath string

	WorkerCount       int
	QueueCapacity     int
	ChunkSize         int
	JobTimeout        time.Duration
	ResultTTL         time.Duration
	RetentionDays     int
	CleanupInterval   time.Duration

	MaxDBConns int32
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"dependencies"`
	Export struct {
		StorageDir    string `yaml:"storage_dir"`
		WorkerCount   int    `yaml:"worker_count"`
		QueueCapacity int    `yaml:"queue_capacity"`
		ChunkSize     int    `yaml:"chunk_size"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"export"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:        "M54-Data-Export-Service",
		HTTPPort:         8080,
		GRPCPort:         9090,
		StorageDir:       "exports",
		DownloadBasePath: "/v1/exports",
		WorkerCount:      5,
		QueueCapacity:    1000,
		ChunkSize:        10000,
		JobTimeout:       time.Hour,
		ResultTTL:        24 * time.Hour,
		RetentionDays:    30,
		CleanupInterval:  time.Hour,
		MaxDBConns:       20,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaTopic != "" {
			cfg.KafkaTopic = f.Dependencies.KafkaTopic
		}
		if f.Export.StorageDir != "" {
			cfg.StorageDir = f.Export.StorageDir
		}
		if f.Export.WorkerCount > 0 {
			cfg.WorkerCount = f.Export.WorkerCount
		}
		if f.Export.QueueCapacity > 0 {
			cfg.QueueCapacity = f.Export.QueueCapacity
		}
		if f.Export.ChunkSize > 0 {
			cfg.ChunkSize = f.Export.ChunkSize
		}
		if f.Export.RetentionDays > 0 {
			cfg.RetentionDays = f.Export.RetentionDays
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.StorageDir = envOrDefault("EXPORT_STORAGE_DIR", cfg.StorageDir)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.WorkerCount = envInt("EXPORT_WORKER_COUNT", cfg.WorkerCount)
	cfg.QueueCapacity = envInt("EXPORT_QUEUE_CAPACITY", cfg.QueueCapacity)
	cfg.ChunkSize = envInt("EXPORT_CHUNK_SIZE", cfg.ChunkSize)
	cfg.RetentionDays = envInt("EXPORT_RETENTION_DAYS", cfg.RetentionDays)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.JobTimeout = time.Duration(envInt("EXPORT_JOB_TIMEOUT_SECONDS", int(cfg.JobTimeout.Seconds()))) * time.Second
	cfg.ResultTTL = time.Duration(envInt("EXPORT_RESULT_TTL_HOURS", int(cfg.ResultTTL.Hours()))) * time.Hour
	cfg.CleanupInterval = time.Duration(envInt("EXPORT_CLEANUP_INTERVAL_SECONDS", int(cfg.CleanupInterval.Seconds()))) * time.Second

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return parsed
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
