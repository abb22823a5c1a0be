package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/confsched/scheduler-api/internal/handler"
	"github.com/confsched/scheduler-api/internal/middleware"
	"github.com/confsched/scheduler-api/internal/repository"
	"github.com/confsched/scheduler-api/internal/service"
	"github.com/confsched/scheduler-api/pkg/cache"
	"github.com/confsched/scheduler-api/pkg/config"
	"github.com/confsched/scheduler-api/pkg/database"
	"github.com/confsched/scheduler-api/pkg/logger"
	corsmiddleware "github.com/confsched/scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/confsched/scheduler-api/pkg/middleware/requestid"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	runCfg := service.RunConfig{
		PopulationSize: cfg.Genetic.PopulationSize,
		EliteSize:      cfg.Genetic.EliteSize,
		MutationRate:   cfg.Genetic.MutationRate,
		Generations:    cfg.Genetic.Generations,
		Workers:        cfg.Genetic.Workers,
		Seed:           cfg.Genetic.Seed,
		RetainTTL:      cfg.Runs.RetainTTL,
		MaxParallel:    cfg.Runs.MaxParallel,
		ReportCacheTTL: cfg.Reports.CacheTTL,
	}

	var reportCache service.ReportCache
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report caching disabled", zap.Error(err))
	} else {
		reportCache = service.NewRedisReportCache(redisClient)
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var runs *service.RunService
	if cfg.Runs.Persist {
		pg, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close() //nolint:errcheck
		runs = service.NewRunService(repository.NewRunRepository(pg), pg, reportCache, metrics, validate, logr, runCfg)
	} else {
		runs = service.NewRunService(nil, nil, reportCache, metrics, validate, logr, runCfg)
	}

	runHandler := handler.NewRunHandler(runs)
	tokens := middleware.NewTokenValidator(cfg.JWT.Secret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group(cfg.APIPrefix)
	if cfg.Runs.Enabled {
		api.POST("/runs", runHandler.Start)
		api.GET("/runs", runHandler.List)
		api.GET("/runs/:id", runHandler.Get)
		api.GET("/runs/:id/best", runHandler.Best)
		api.GET("/runs/:id/report", runHandler.Report)
		api.DELETE("/runs/:id", middleware.JWT(tokens), middleware.RequireRole("admin"), runHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown failed", zap.Error(err))
	}
	if err := runs.Shutdown(shutdownCtx); err != nil {
		logr.Warn("runs did not drain before deadline", zap.Error(err))
	}
}
