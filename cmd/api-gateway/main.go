package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sidang-scheduler-api/api/swagger"
	"github.com/noah-isme/sidang-scheduler-api/internal/handler"
	"github.com/noah-isme/sidang-scheduler-api/internal/repository"
	"github.com/noah-isme/sidang-scheduler-api/internal/service"
	"github.com/noah-isme/sidang-scheduler-api/pkg/cache"
	"github.com/noah-isme/sidang-scheduler-api/pkg/config"
	"github.com/noah-isme/sidang-scheduler-api/pkg/database"
	"github.com/noah-isme/sidang-scheduler-api/pkg/logger"
)

// @title Sidang Scheduler API
// @version 1.0.0
// @description Assigns examiners and supervisors to thesis-defense sessions.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if _, err := cfg.Scheduler.EngineOptions(); err != nil {
		return fmt.Errorf("invalid scheduler configuration: %w", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	ctx := context.Background()

	var runs service.ScheduleRunStore
	if cfg.Persistence.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close() //nolint:errcheck
		repo := repository.NewScheduleRunRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		runs = repo
		checks["postgres"] = db.PingContext
	}

	var cacheSvc service.ScheduleCache
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr)
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	validate := validator.New()
	genCfg := service.ScheduleGeneratorConfig{Scheduler: cfg.Scheduler, CacheTTL: cfg.Cache.TTL}
	generator := service.NewScheduleGeneratorService(runs, cacheSvc, metrics, validate, logr, genCfg)

	var auth *service.AuthService
	if cfg.JWT.Secret != "" {
		auth = service.NewAuthService(logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
		})
	} else {
		logr.Warn("JWT_SECRET is empty, mutating schedule routes are unauthenticated")
	}

	router := newRouter(routerDeps{
		cfg:       cfg,
		logger:    logr,
		metrics:   metrics,
		auth:      auth,
		schedules: handler.NewScheduleGeneratorHandler(generator, cfg.Scheduler.MaxUploadBytes),
		system:    handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env,
			"persistence", runs != nil, "cache", cacheSvc != nil, "auth", auth != nil)
		serverErrors <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-signals:
		logr.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
