package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scontrino/internal/api"
	"scontrino/internal/api/memory"
	"scontrino/internal/config"
	apphttp "scontrino/internal/http"
	applog "scontrino/internal/log"
)

func main() {
	// Load .env if present; real environment wins.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var backend apphttp.Backend
	switch cfg.DataBackend {
	case "memory":
		backend = memory.NewWithSampleData()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	default:
		backend = api.NewClient(cfg.APIBaseURL, cfg.APITimeout)
		logger.Info("Initialized API backend", "backend", cfg.DataBackend, "base_url", cfg.APIBaseURL)
	}

	srv := apphttp.NewServer(":"+cfg.Port, backend, apphttp.Options{
		TrendsMonths:       cfg.TrendsMonths,
		TopItemsLimit:      cfg.TopItemsLimit,
		ReceiptsFetchLimit: cfg.ReceiptsFetchLimit,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting scontrino server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
