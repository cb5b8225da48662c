package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/catalog/internal/cache"
	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/parse"
	"github.com/JonMunkholm/catalog/internal/source"
	"github.com/JonMunkholm/catalog/internal/store/postgres"
	"github.com/JonMunkholm/catalog/internal/store/sqlite"
	"github.com/JonMunkholm/catalog/internal/web"
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

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration", "config", cfg.String())

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Database.Driver(),
		"ingest_interval", cfg.Ingest.Interval,
		"cache_enabled", cfg.Cache.RedisAddr != "",
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver(), "error", err)
		os.Exit(1)
	}
	defer store.Close()

	opts := catalog.Options{
		DefaultLimit: cfg.Catalog.DefaultLimit,
		MaxLimit:     cfg.Catalog.MaxLimit,
	}
	if cfg.Cache.RedisAddr != "" {
		pages, err := cache.NewRedis(ctx, cache.Config{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
			Prefix:   cfg.Cache.Prefix,
		})
		if err != nil {
			// The cache is optional; serve straight from the store.
			slog.Warn("page cache unavailable, continuing without it", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			defer pages.Close()
			opts.Cache = pages
			slog.Info("page cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
		}
	}
	service := catalog.NewService(store, opts)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var ingester web.Ingester
	var scheduler *ingest.Scheduler
	if cfg.Ingest.HasSource() {
		scheduler, err = newScheduler(cfg.Ingest, service)
		if err != nil {
			slog.Error("failed to configure ingestion", "error", err)
			os.Exit(1)
		}
		ingester = scheduler
		if cfg.Ingest.Enabled {
			go scheduler.Start(jobCtx)
		} else {
			slog.Info("scheduled ingestion disabled, manual runs only")
		}
	} else {
		slog.Warn("no ingestion source configured, set GOOGLE_DRIVE_URL or CSV_FILE_PATH")
	}

	server := web.NewServer(service, ingester, web.Options{
		Server:     cfg.Server,
		Rate:       cfg.Rate,
		IngestKeys: cfg.Ingest.KeyList(),
	})

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop the scheduler loop
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for an active ingestion run to commit or roll back
		if scheduler != nil && scheduler.Status().Active {
			slog.Info("waiting for ingestion run to complete", "run_id", scheduler.Status().RunID)
			if err := scheduler.Drain(shutdownCtx); err != nil {
				slog.Warn("ingestion run did not complete in time", "error", err)
			} else {
				slog.Info("ingestion run completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(jobCtx, cfg.Server.Addr()); err != nil {
		slog.Error("server stopped", "error", err)
		return
	}
	<-shutdownDone
	slog.Info("server stopped")
}

// openStore connects the store selected by the database URL.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (catalog.Store, error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		store, err := postgres.Connect(ctx, cfg.URL, postgres.PoolConfig{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		slog.Info("connected to postgres")
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLiteDSN())
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite store", "path", cfg.SQLiteDSN())
		return store, nil
	}
	return nil, errors.New("unsupported database URL")
}

// newScheduler wires fetch, parse, and reconcile into a scheduled pipeline.
func newScheduler(cfg config.IngestConfig, service *catalog.Service) (*ingest.Scheduler, error) {
	parser, err := parse.New(parse.Options{Encoding: cfg.Encoding, Comma: cfg.Comma()})
	if err != nil {
		return nil, err
	}

	var fetcher source.Fetcher
	if cfg.SourceURL != "" {
		drive := source.NewDriveFetcher(cfg.SourceURL, cfg.StagingDir, cfg.FetchTimeout)
		drive.MaxBytes = cfg.MaxFileSize
		fetcher = drive
	} else {
		fetcher = &source.FileFetcher{Path: cfg.SourceFile}
	}
	slog.Info("ingestion source configured", "source", fetcher.Locator(), "encoding", parser.Encoding())

	orch := ingest.NewOrchestrator(fetcher, parser, service, ingest.Options{
		Gate:    ingest.NewRunGate(cfg.GateWait),
		History: ingest.NewHistory(cfg.HistorySize),
	})
	return ingest.NewScheduler(orch, ingest.ScheduleConfig{
		Interval:   cfg.Interval,
		Timeout:    cfg.Timeout,
		RunOnStart: cfg.RunOnStart,
	}), nil
}
