// cmd/funnel-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lead-funnel/internal/abtest"
	"lead-funnel/internal/analytics"
	"lead-funnel/internal/common/config"
	"lead-funnel/internal/common/database"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/common/observability"
	"lead-funnel/internal/delivery"
	"lead-funnel/internal/funnel"
	"lead-funnel/internal/server"
	"lead-funnel/internal/storage"
	"lead-funnel/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting funnel server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	// Redis backs the sticky assignment store and, optionally, the analytics
	// stream. When it never comes up the funnel still runs on the in-memory
	// store, so the retry budget is short.
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")

	var assignmentStore storage.KV
	if err != nil {
		zapLog.Warn("redis unavailable, falling back to in-memory assignment store", zap.Error(err))
		redis = nil
		assignmentStore = storage.NewMemoryKV()
	} else {
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
		assignmentStore = storage.NewRedisKV(redis)
	}

	// --- Init PostgreSQL with retry (delivery journal only) ---
	var pg *database.PostgresClient
	if cfg.Delivery.JournalEnabled {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Elasticsearch with retry (analytics sink only) ---
	var esClient *database.ElasticsearchClient
	if cfg.Analytics.ESEnabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Analytics sinks ---
	var sinks []analytics.Sink
	var memory *analytics.MemorySink
	if cfg.Analytics.MemoryEnabled {
		memory = analytics.NewMemorySink(cfg.Analytics.MemoryLimit)
		sinks = append(sinks, memory)
	}
	if cfg.Analytics.RedisEnabled && redis != nil {
		sinks = append(sinks, analytics.NewRedisSink(redis.GetClient(), cfg.Analytics.RedisKey))
	}
	if esClient != nil {
		sinks = append(sinks, analytics.NewElasticsearchSink(esClient.Client, cfg.Analytics.ESIndex))
	}

	var sink analytics.Sink
	switch len(sinks) {
	case 0:
		sink = nil
	case 1:
		sink = sinks[0]
	default:
		sink = analytics.NewMultiSink(sinks...)
	}
	emitter := analytics.NewEmitter(sink, log)

	// --- A/B headline service ---
	ab, err := abtest.NewService(
		abtest.Config{
			TestName:      cfg.ABTest.TestName,
			StorageKey:    cfg.ABTest.StorageKey,
			AssignmentTTL: time.Duration(cfg.ABTest.AssignmentTTL) * time.Hour,
		},
		abtest.DefaultCatalog(),
		assignmentStore, emitter, log,
	)
	if err != nil {
		zapLog.Fatal("abtest service init failed", zap.Error(err))
	}

	// --- Lead delivery ---
	deliveryOpts := []delivery.Option{delivery.WithObservability(obs)}
	if cfg.Registry.Path != "" {
		reg, err := registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Warn("schema registry load failed, payload checks disabled", zap.Error(err))
		} else {
			deliveryOpts = append(deliveryOpts, delivery.WithValidator(reg))
		}
	}
	if pg != nil {
		journal := delivery.NewJournal(pg.DB)
		if err := journal.Migrate(ctx); err != nil {
			zapLog.Fatal("journal migration failed", zap.Error(err))
		}
		deliveryOpts = append(deliveryOpts, delivery.WithJournal(journal))
	}

	webhook := delivery.NewWebhookClient(
		cfg.Delivery.WebhookURL,
		cfg.Delivery.Source,
		time.Duration(cfg.Delivery.Timeout)*time.Millisecond,
		emitter, log,
		deliveryOpts...,
	)

	// --- Funnel host ---
	host := funnel.NewHost(funnel.Deps{
		AB:        ab,
		Emitter:   emitter,
		Deliverer: webhook,
		Logger:    log,
		Obs:       obs,
		StepDelay: time.Duration(cfg.Funnel.StepDelay) * time.Millisecond,
	}, time.Duration(cfg.Funnel.SessionTTL)*time.Minute, log)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go host.RunSweeper(sweepCtx, time.Minute)

	// --- HTTP server ---
	srv := server.New(cfg.Server, host, ab, log, server.Options{
		Memory:      memory,
		EnablePprof: cfg.App.Environment == "development",
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received, stopping server...", zap.String("signal", sig.String()))
	case err := <-errCh:
		zapLog.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	stopSweeper()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Funnel server stopped gracefully")
}
