package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kucukaslan/activity/api"
	"kucukaslan/activity/auth"
	"kucukaslan/activity/broker"
	"kucukaslan/activity/buildinfo"
	"kucukaslan/activity/database"
	"kucukaslan/activity/directory"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
	"kucukaslan/activity/services"
)

const connectTimeout = 10 * time.Second

// @title Storefront Activity Tracking API
// @version 1.0
// @description Activity tracking and analytics service using ClickHouse, Redis and NATS JetStream
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the activity API. ClickHouse (or the memory store) is required;
Redis, Postgres and NATS are used when configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	// Set application start time for accurate uptime tracking
	buildinfo.SetStartTime(time.Now())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.With("serve")
	log.Info().Str("build", buildinfo.GetInfo().String()).Str("environment", cfg.Environment).Msg("Starting application")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	health := &api.HealthChecker{Store: store}

	var dedup domain.Deduper
	var redis *database.RedisDeduper
	if cfg.Redis.Enabled() {
		// dedup is best effort; run without it rather than refuse to start
		redis, err = database.ConnectRedis(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, idempotency keys disabled")
		} else {
			dedup = redis
			health.Redis = redis
		}
	}

	var dir domain.Directory = directory.Noop{}
	var pg *directory.Postgres
	if cfg.Postgres.DSN != "" {
		pg, err = directory.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("Postgres unavailable, analytics joins disabled")
		} else {
			dir = pg
			health.Postgres = pg
		}
	}

	var publisher domain.Publisher
	var nats *broker.Publisher
	if cfg.NATS.URL != "" {
		nats, err = broker.Connect(ctx, cfg.NATS)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, persisted events are not mirrored")
		} else {
			publisher = nats
			health.NATS = nats
		}
	}

	ingest, err := services.NewIngestService(store, dedup, publisher, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize IngestService: %w", err)
	}
	analytics, err := services.NewAnalyticsService(store, dir)
	if err != nil {
		return fmt.Errorf("failed to initialize AnalyticsService: %w", err)
	}
	retention, err := services.NewRetentionService(store, cfg.Tracking.RetentionDays)
	if err != nil {
		return fmt.Errorf("failed to initialize RetentionService: %w", err)
	}

	app := api.NewApp(api.Deps{
		Config:    cfg,
		Ingest:    ingest,
		Analytics: analytics,
		Retention: retention,
		Auth:      auth.New(cfg.Auth),
		Health:    health,
	})

	// Listen from a different goroutine
	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-listenErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}

	log.Info().Msg("Gracefully shutting down...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	// the batcher drains into the store, so it stops before any connection closes
	if err := ingest.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Error shutting down event batcher")
	}
	if nats != nil {
		nats.Close()
	}
	if pg != nil {
		pg.Close()
	}
	if redis != nil {
		if err := redis.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis")
		}
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing activity store")
	}

	log.Info().Msg("Shutdown complete")
	return nil
}
