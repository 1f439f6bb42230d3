package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/runclub/internal/api"
	"example.com/runclub/internal/auth"
	"example.com/runclub/internal/backfill"
	"example.com/runclub/internal/config"
	"example.com/runclub/internal/observability"
	persistence "example.com/runclub/internal/persistence/postgres"
	"example.com/runclub/internal/queue"
	"example.com/runclub/internal/scoring"
	"example.com/runclub/internal/strava"
	httptransport "example.com/runclub/internal/transport/http"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		bootLogger := observability.NewLogger("runclub-api", false)
		bootLogger.Fatal().Err(err).Msg("configuration invalid")
	}

	logger := observability.NewLogger("runclub-api", cfg.DevMode)

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
	orchestrator := backfill.NewOrchestrator(clients, repo, logger)
	scoringSvc := scoring.NewService(repo, users)

	publisher := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.WebhookTopic)
	defer publisher.Close()

	handler := api.NewHandler(scoringSvc, orchestrator, repo, publisher, cfg.StravaVerifyToken, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Webhook callbacks and probes come from Strava and the platform, not
	// from authenticated club members.
	skipper := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" ||
			r.URL.Path == "/metrics" ||
			strings.HasPrefix(r.URL.Path, "/webhooks/")
	}
	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, skipper)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(httptransport.RequestLogger(logger, mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
