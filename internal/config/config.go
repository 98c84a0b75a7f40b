package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/poutila/doxstrux-sub002/internal/timeout"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Admission limits. Zero disables a check.
	MaxTokens       int
	MaxContentBytes int64

	// Collector isolation
	CollectorTimeout time.Duration
	TimeoutMode      timeout.Mode
	StrictCollectors bool
	StatsWindow      time.Duration
	ResultCacheSize  int

	// Chunking defaults
	ChunkSize    int
	ChunkOverlap int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOXSTRUX_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		MaxTokens:       envInt("MAX_TOKENS", 500000),
		MaxContentBytes: envInt64("MAX_CONTENT_BYTES", 10<<20),

		CollectorTimeout: envDuration("COLLECTOR_TIMEOUT", 2*time.Second),
		TimeoutMode:      timeout.Mode(envOr("TIMEOUT_MODE", string(timeout.ModeAuto))),
		StrictCollectors: envBool("STRICT_COLLECTORS", false),
		StatsWindow:      envDuration("STATS_WINDOW", 1*time.Hour),
		ResultCacheSize:  envInt("RESULT_CACHE_SIZE", 256),

		ChunkSize:    envInt("CHUNK_SIZE", 1500),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxTokens < 0 {
		cfg.MaxTokens = 0
	}
	if cfg.MaxContentBytes < 0 {
		cfg.MaxContentBytes = 0
	}
	if cfg.CollectorTimeout < 0 {
		cfg.CollectorTimeout = 0
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}
	if cfg.ResultCacheSize < 0 {
		cfg.ResultCacheSize = 0
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOXSTRUX_API_KEY is required")
	}
	if _, err := timeout.ForMode(c.TimeoutMode); err != nil {
		return fmt.Errorf("TIMEOUT_MODE: %w", err)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
