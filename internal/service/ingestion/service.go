package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/config"
	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/generator"
	"github.com/mamadbah2/salmon-fce/internal/repository/mongodb"
	"github.com/mamadbah2/salmon-fce/internal/service/weather"
)

// LatestReader finds the newest stored record for a site.
type LatestReader interface {
	Latest(ctx context.Context, site string) (models.DailyRecord, error)
}

// SiteConfig identifies the site being ingested.
type SiteConfig struct {
	Site      string
	Latitude  float64
	Longitude float64
	Seed      uint64
	Location  *time.Location
}

// Service runs generate -> fetch temperatures -> merge -> upsert.
type Service struct {
	pipeline *Pipeline
	temps    weather.TemperatureSource
	latest   LatestReader
	site     SiteConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the ingestion runner.
func NewService(pipeline *Pipeline, temps weather.TemperatureSource, latest LatestReader, site SiteConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if site.Location == nil {
		site.Location = time.UTC
	}
	return &Service{
		pipeline: pipeline,
		temps:    temps,
		latest:   latest,
		site:     site,
		logger:   logger,
		now:      time.Now,
	}
}

// Seed ingests days consecutive days starting at start. Re-running the same
// range overwrites the stored values with identical ones.
func (s *Service) Seed(ctx context.Context, start time.Time, days int) (Result, error) {
	if days <= 0 {
		return Result{}, fmt.Errorf("days must be positive, got %d", days)
	}

	s.logger.Info("ingesting range",
		zap.String("site", s.site.Site),
		zap.String("start", start.Format(models.DateLayout)),
		zap.Int("days", days))

	temps := s.temps.Fetch(ctx, s.site.Latitude, s.site.Longitude, start, days)
	records := Merge(generator.Generate(start, days, s.site.Site, s.site.Seed), temps)

	missing := 0
	for _, rec := range records {
		if !rec.AvgTemperature.Present() {
			missing++
		}
	}
	if missing > 0 {
		s.logger.Info("records without temperature", zap.Int("count", missing), zap.Int("records", len(records)))
	}

	result, err := s.pipeline.Upsert(ctx, records)
	if err != nil {
		return result, fmt.Errorf("ingest %s from %s: %w", s.site.Site, start.Format(models.DateLayout), err)
	}
	return result, nil
}

// TopUp ingests every day after the newest stored one up to today. With an
// empty store it starts at the current season start. It is a no-op when the
// store is already up to date.
func (s *Service) TopUp(ctx context.Context) (Result, error) {
	now := s.now().In(s.site.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	start := config.DefaultSeasonStart(now)
	latest, err := s.latest.Latest(ctx, s.site.Site)
	switch {
	case errors.Is(err, mongodb.ErrNotFound):
		s.logger.Info("no stored records, topping up from season start", zap.String("start", start.Format(models.DateLayout)))
	case err != nil:
		return Result{}, fmt.Errorf("find latest record: %w", err)
	default:
		last, perr := time.Parse(models.DateLayout, latest.Date)
		if perr != nil {
			return Result{}, fmt.Errorf("parse latest date %q: %w", latest.Date, perr)
		}
		start = last.AddDate(0, 0, 1)
	}

	if start.After(today) {
		s.logger.Info("up to date, no new days", zap.String("site", s.site.Site))
		return Result{}, nil
	}

	days := int(today.Sub(start).Hours()/24) + 1
	return s.Seed(ctx, start, days)
}
