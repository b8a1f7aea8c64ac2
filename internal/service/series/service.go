// Package series serves stored daily records raw, summarized or downsampled
// for charting.
package series

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/repository/mongodb"
)

// ErrNoRecords is returned by Latest when the site has no data.
var ErrNoRecords = errors.New("no records for site")

// Store is the read side of the record store.
type Store interface {
	FindRange(ctx context.Context, q mongodb.RangeQuery) ([]models.DailyRecord, error)
	Latest(ctx context.Context, site string) (models.DailyRecord, error)
	Summary(ctx context.Context, site, start, end string) (mongodb.SummaryStats, error)
}

// Range selects a site's records with date in [Start, End]. Dates are
// validated ISO strings.
type Range struct {
	Site  string
	Start string
	End   string
}

// Service answers range queries over the record store.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires the query service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Raw returns matching records in ascending date order, capped at limit
// rows when limit > 0.
func (s *Service) Raw(ctx context.Context, r Range, limit int) ([]models.DailyRecord, error) {
	records, err := s.store.FindRange(ctx, mongodb.RangeQuery{
		Site:  r.Site,
		Start: r.Start,
		End:   r.End,
		Limit: int64(max(limit, 0)),
	})
	if err != nil {
		return nil, fmt.Errorf("raw range: %w", err)
	}
	return records, nil
}

// Latest returns the newest record for a site.
func (s *Service) Latest(ctx context.Context, site string) (models.DailyRecord, error) {
	rec, err := s.store.Latest(ctx, site)
	if errors.Is(err, mongodb.ErrNotFound) {
		return models.DailyRecord{}, ErrNoRecords
	}
	if err != nil {
		return models.DailyRecord{}, fmt.Errorf("latest: %w", err)
	}
	return rec, nil
}

// Summary counts the range and averages fcr/fce, rounded to 3 decimals.
// An empty range yields zero values.
func (s *Service) Summary(ctx context.Context, r Range) (models.SummaryResponse, error) {
	stats, err := s.store.Summary(ctx, r.Site, r.Start, r.End)
	if err != nil {
		return models.SummaryResponse{}, fmt.Errorf("summary: %w", err)
	}
	return models.SummaryResponse{
		Start:  r.Start,
		End:    r.End,
		Site:   r.Site,
		Count:  int(stats.Count),
		AvgFCR: models.Round(stats.AvgFCR, 3),
		AvgFCE: models.Round(stats.AvgFCE, 3),
	}, nil
}

// Downsampled returns at most points chart points for the range.
func (s *Service) Downsampled(ctx context.Context, r Range, points int) ([]models.AggregatedPoint, error) {
	records, err := s.store.FindRange(ctx, mongodb.RangeQuery{Site: r.Site, Start: r.Start, End: r.End})
	if err != nil {
		return nil, fmt.Errorf("downsample range: %w", err)
	}

	out := Downsample(records, points)
	s.logger.Debug("series downsampled",
		zap.String("site", r.Site),
		zap.Int("records", len(records)),
		zap.Int("target", points),
		zap.Int("points", len(out)))
	return out, nil
}
