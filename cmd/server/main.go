package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/sheetedit/internal/codec"
	"github.com/JonMunkholm/sheetedit/internal/config"
	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/JonMunkholm/sheetedit/internal/database"
	"github.com/JonMunkholm/sheetedit/internal/logging"
	"github.com/JonMunkholm/sheetedit/internal/sessionstore"
	"github.com/JonMunkholm/sheetedit/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"data_dir", cfg.Storage.DataDir,
		"key_column", cfg.Store.KeyColumn,
		"import_max_concurrent", cfg.Storage.MaxConcurrentImports,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_enabled", cfg.Database.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	// Import history is optional
	var history core.ImportRecorder
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		slog.Info("connected to database", "name", database.DatabaseName(cfg.Database.URL))

		h, err := database.NewImportHistory(ctx, pool)
		if err != nil {
			slog.Error("failed to prepare import history", "error", err)
			os.Exit(1)
		}
		history = h
	}

	index, err := sessionstore.Open(cfg.Session.IndexPath)
	if err != nil {
		slog.Error("failed to open session index", "path", cfg.Session.IndexPath, "error", err)
		os.Exit(1)
	}
	defer index.Close()

	limiter := core.NewImportLimiter(cfg.Storage.MaxConcurrentImports, cfg.Storage.ImportWaitTime)

	service, err := core.NewService(core.ServiceOptions{
		DataDir:     cfg.Storage.DataDir,
		KeyColumn:   cfg.Store.KeyColumn,
		MaxFileSize: cfg.Storage.MaxFileSize,
		Codecs:      codec.ForFile,
		Persister:   &core.Persister{LockTimeout: cfg.Storage.LockTimeout},
		Index:       index,
		History:     history,
		Limiter:     limiter,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	restored, err := service.Restore(ctx)
	if err != nil {
		slog.Warn("session restore incomplete", "error", err)
	}
	slog.Info("sessions restored", "count", restored)

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
