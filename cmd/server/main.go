package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/poutila/doxstrux-sub002/internal/api"
	"github.com/poutila/doxstrux-sub002/internal/config"
	"github.com/poutila/doxstrux-sub002/internal/extract"
	"github.com/poutila/doxstrux-sub002/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts, err := pipeline.OptionsFromConfig(cfg, log)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	ex, err := pipeline.NewExtractor(opts, extract.NewCollectorStats(cfg.StatsWindow), log)
	if err != nil {
		log.Error("extractor init failed", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(ex, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting doxstrux",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"timeout_mode", cfg.TimeoutMode,
		"collector_timeout", cfg.CollectorTimeout.String(),
		"strict", cfg.StrictCollectors,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
