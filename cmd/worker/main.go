package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/runclub/internal/config"
	"example.com/runclub/internal/observability"
	persistence "example.com/runclub/internal/persistence/postgres"
	"example.com/runclub/internal/queue"
	"example.com/runclub/internal/strava"
	"example.com/runclub/internal/webhook"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		bootLogger := observability.NewLogger("runclub-worker", false)
		bootLogger.Fatal().Err(err).Msg("configuration invalid")
	}

	logger := observability.NewLogger("runclub-worker", cfg.DevMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	users := persistence.NewUserDirectory(pool)
	clients := &strava.DirectoryFactory{Directory: users, Logger: logger}

	processor := webhook.NewProcessor(clients, repo, logger)
	handler := webhook.NewQueueHandler(processor)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.WebhookGroupID,
		Topic:           cfg.WebhookTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})

	consumer := queue.NewProcessor(reader, handler, logger)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		logger.Info().Str("address", cfg.MetricsAddress).Msg("worker metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()

		logger.Info().
			Str("topic", cfg.WebhookTopic).
			Str("group", cfg.WebhookGroupID).
			Msg("worker started")
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("worker stopped with error")
		}
	}()

	<-stop
	logger.Info().Msg("worker shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
	}

	wg.Wait()
}
