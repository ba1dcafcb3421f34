package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinivo/booking-api/internal/api/router"
	"github.com/clinivo/booking-api/internal/availability"
	"github.com/clinivo/booking-api/internal/booking"
	"github.com/clinivo/booking-api/internal/catalog"
	appconfig "github.com/clinivo/booking-api/internal/config"
	"github.com/clinivo/booking-api/internal/decision"
	"github.com/clinivo/booking-api/internal/http/handlers"
	"github.com/clinivo/booking-api/internal/notify"
	"github.com/clinivo/booking-api/internal/observability/metrics"
	"github.com/clinivo/booking-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence: Postgres in production, in-memory when DATABASE_URL is
	// not set (local development).
	var repo booking.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		repo = booking.NewPostgresRepository(pool)
		logger.Info("using postgres repository")
	} else {
		repo = booking.NewInMemoryRepository()
		logger.Warn("DATABASE_URL not set, using in-memory repository")
	}

	// Catalog: operator-published snapshot in redis, static default
	// otherwise.
	var cat catalog.Provider = catalog.NewStatic(nil)
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		cat = catalog.NewStore(redisClient)
		logger.Info("using redis catalog store", "addr", cfg.RedisAddr)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	bookingMetrics := metrics.NewBookingMetrics(registry)

	signer := decision.NewSigner(cfg.DecisionSecret)
	if !signer.Enabled() {
		logger.Warn("DECISION_SECRET not set, decision links disabled")
	}

	notifier := notify.NewWebhookNotifier(cfg.BookingWebhookURL, cfg.BookingWebhookTimeout, logger)

	svc := booking.NewService(repo, cat, signer, notifier, bookingMetrics, logger, cfg.PublicBaseURL, cfg.ConfirmSLA)

	grid := availability.Grid{
		OpenHour:        cfg.OpenHour,
		CloseHour:       cfg.CloseHour,
		LunchStartHour:  cfg.LunchStartHour,
		LunchEndHour:    cfg.LunchEndHour,
		StepMinutes:     cfg.SlotStepMinutes,
		MaxDurationMins: availability.DefaultGrid().MaxDurationMins,
	}
	engine := availability.NewEngine(repo, cat, grid, bookingMetrics, logger)

	// Background expiry sweep; lazy expiry on reads keeps things correct
	// even if this never runs.
	sweeper := booking.NewSweeper(svc, cfg.SweepInterval, logger)
	go sweeper.Start(ctx)

	r := router.New(&router.Config{
		Logger:             logger,
		Bookings:           handlers.NewBookingsHandler(svc, engine, signer, cfg.DecisionWebhookSecret, logger),
		OpsSummary:         handlers.NewOpsSummaryHandler(svc, registry, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		OperatorAuthSecret: cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CreateRatePerSec:   cfg.CreateRatePerSec,
		CreateBurst:        cfg.CreateRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
