// Package main provides the entry point for the keyhaven gateway server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"keyhaven/internal/api/routes"
	"keyhaven/internal/apiauth"
	"keyhaven/internal/config"
	"keyhaven/internal/crypto"
	"keyhaven/internal/database"
	"keyhaven/internal/keychecker"
	"keyhaven/internal/loadbalancer"
	"keyhaven/internal/metrics"
	"keyhaven/internal/proxydialer"
	"keyhaven/internal/repository"
	"keyhaven/internal/router"
	"keyhaven/internal/scheduler"
	"keyhaven/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var logger *zap.Logger
	if cfg.Server.Mode == gin.ReleaseMode {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	telemetryCtx, cancelTelemetryInit := context.WithTimeout(context.Background(), 10*time.Second)
	tel, err := telemetry.Init(telemetryCtx, cfg.Sentry.DSN, cfg.OTel.OTLPEndpoint, cfg.OTel.ServiceName)
	cancelTelemetryInit()
	if err != nil {
		return err
	}

	if cfg.Encryption.Key != "" {
		if err := crypto.Initialize(cfg.Encryption.Key); err != nil {
			return err
		}
	}

	db, err := database.New(cfg.GetDSN(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(cfg.Database); err != nil {
		return err
	}
	if err := db.SeedSettings(cfg.Health.CheckIntervalMS, cfg.Health.MaxLogsRetentionMS); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()
	}

	store := repository.New(db.DB, redisClient, logger)
	proxies := proxydialer.NewCache()
	lb := loadbalancer.New()
	checker := keychecker.New(proxies, logger)
	sched := scheduler.New(store, checker, logger)
	authGate := apiauth.New(store, logger)

	var metricsRegistry *metrics.Registry
	if cfg.Metrics.Enabled {
		metricsRegistry = metrics.New()
	}

	relayRouter := router.New(store, lb, proxies, metricsRegistry, tel.Tracer, logger)

	schedCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	sched.Start(schedCtx)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	routes.Setup(engine, &routes.Services{
		Store:     store,
		Proxies:   proxies,
		Router:    relayRouter,
		Scheduler: sched,
		AuthGate:  authGate,
		Metrics:   metricsRegistry,
	}, logger)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// streaming relays may run for minutes; deadlines are enforced
		// per-upstream-request in the router instead of here.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	sched.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	tel.Shutdown(shutdownCtx)

	logger.Info("server stopped")
	return nil
}
