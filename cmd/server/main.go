package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/config"
	"github.com/mamadbah2/salmon-fce/internal/repository/mongodb"
	"github.com/mamadbah2/salmon-fce/internal/scheduler"
	"github.com/mamadbah2/salmon-fce/internal/server/handlers"
	"github.com/mamadbah2/salmon-fce/internal/server/middleware"
	"github.com/mamadbah2/salmon-fce/internal/server/router"
	"github.com/mamadbah2/salmon-fce/internal/service/ingestion"
	"github.com/mamadbah2/salmon-fce/internal/service/series"
	"github.com/mamadbah2/salmon-fce/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 20*time.Second)
	mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB, logger.Named(baseLogger, "repo.mongodb"))
	cancelConnect()
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	seriesSvc := series.NewService(mongoRepo, logger.Named(baseLogger, "svc.series"))
	metricsHandler := handlers.NewMetricsHandler(seriesSvc, handlers.Options{
		DefaultSite: cfg.Server.DefaultSite,
		MinPoints:   cfg.Server.MinPoints,
		MaxPoints:   cfg.Server.MaxPoints,
	}, logger.Named(baseLogger, "handlers.metrics"))

	var auth gin.HandlerFunc
	if cfg.Auth.Disabled {
		baseLogger.Warn("auth disabled, api is public")
	} else {
		verifier := middleware.NewJWKSVerifier(middleware.Auth0Config(cfg.Auth.Domain, cfg.Auth.Audience))
		auth = middleware.RequireJWT(verifier, logger.Named(baseLogger, "auth"))
	}

	engine := router.New(metricsHandler, auth, logger.Named(baseLogger, "router"))

	if cfg.TopUp.CronSchedule != "" {
		ingestSvc := ingestion.NewFromConfig(cfg, mongoRepo, baseLogger)
		loc, err := time.LoadLocation(cfg.Weather.Timezone)
		if err != nil {
			baseLogger.Warn("unknown timezone for scheduler, using UTC", zap.Error(err))
			loc = time.UTC
		}
		sched := scheduler.NewScheduler(cfg.TopUp.CronSchedule, loc, ingestSvc, logger.Named(baseLogger, "scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.WithCORS(engine, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
