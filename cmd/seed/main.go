// Command seed ingests synthetic performance records merged with observed
// temperatures. By default it seeds SEED_DAYS days from SEED_START; with
// -topup it fills the days since the newest stored record.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/config"
	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/repository/mongodb"
	"github.com/mamadbah2/salmon-fce/internal/service/ingestion"
	"github.com/mamadbah2/salmon-fce/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	topUp := flag.Bool("topup", false, "ingest from the newest stored day to today")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancelConnect := context.WithTimeout(ctx, 20*time.Second)
	repo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB, logger.Named(baseLogger, "repo.mongodb"))
	cancelConnect()
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	svc := ingestion.NewFromConfig(cfg, repo, baseLogger)

	var res ingestion.Result
	if *topUp {
		res, err = svc.TopUp(ctx)
	} else {
		baseLogger.Info("seeding",
			zap.String("site", cfg.Seed.Site),
			zap.String("start", cfg.Seed.Start.Format(models.DateLayout)),
			zap.Int("days", cfg.Seed.Days))
		res, err = svc.Seed(ctx, cfg.Seed.Start, cfg.Seed.Days)
	}
	if err != nil {
		baseLogger.Error("ingestion failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}

	baseLogger.Info("ingestion complete",
		zap.Int("records", res.Records),
		zap.Int("batches", res.Batches),
		zap.Int64("upserted", res.Upserted),
		zap.Int64("modified", res.Modified),
		zap.Duration("duration", res.Duration))
}
