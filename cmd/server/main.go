package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/unicatalog/backend/config"
	httpDelivery "github.com/unicatalog/backend/internal/delivery/http"
	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/infrastructure/source"
	"github.com/unicatalog/backend/internal/infrastructure/store"
	"github.com/unicatalog/backend/internal/logging"
	"github.com/unicatalog/backend/internal/usecase"
)

func main() {
	os.Exit(start())
}

// start runs the server and returns the process exit code. Deferred cleanup,
// including the log file, completes before main exits.
func start() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	logCloser := logging.Setup(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Service: "unicatalog-backend",
	})
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return 1
	}
	return 0
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting UniCatalog Backend v1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Type)

	// Initialize infrastructure dependencies
	state, err := store.Open(ctx, store.Options{
		Type:       cfg.Store.Type,
		RedisURL:   cfg.Store.RedisURL,
		SQLitePath: cfg.Store.SQLitePath,
		KeyPrefix:  cfg.Store.KeyPrefix,
	})
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer state.Close()

	sources := source.NewClient(source.Config{
		Main:          cfg.Sources.Main,
		Extended:      cfg.Sources.Extended,
		Timeout:       cfg.Sources.Timeout,
		RatePerSecond: cfg.RateLimit.Sources,
	})

	var fallback domain.ProgramSource
	if cfg.Sources.Fallback != "" {
		fallback = source.NewClient(source.Config{Main: cfg.Sources.Fallback})
		slog.Info("Fallback dataset configured", "location", cfg.Sources.Fallback)
	}

	// Initialize usecase layer
	catalog := usecase.NewCatalogService(sources, fallback, state, usecase.CatalogServiceConfig{
		CacheTTL:  cfg.Store.CacheTTL,
		Faculties: cfg.Catalog.Faculties,
		Normalizer: usecase.NormalizerConfig{
			DetailPage:   cfg.Sources.DetailPage,
			InternalHost: cfg.Sources.InternalHost,
		},
	})
	if err := catalog.Init(ctx); err != nil {
		// The server still starts; listings answer 503 until a reload succeeds
		slog.Error("Initial catalog load failed", "error", err)
	}
	defer catalog.Dispose()

	compare := usecase.NewCompareService(state, catalog, cfg.Compare.Capacity)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(catalog, compare, cfg.Catalog.PageSize)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
