package weather

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/pkg/clients/openmeteo"
)

const (
	recentPastDays     = 7
	recentForecastDays = 2
)

// TemperatureSource supplies daily mean temperatures for a date range.
type TemperatureSource interface {
	Fetch(ctx context.Context, lat, lon float64, start time.Time, days int) models.TemperatureMap
}

// Source backfills temperatures from the archive tier, then fills recent gaps
// from the forecast tier. Upstream failures leave dates absent.
type Source struct {
	client   openmeteo.Client
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewSource wires a two-tier temperature source. timezone is used both for
// the forecast tier and to decide what "today" is.
func NewSource(client openmeteo.Client, timezone string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		logger.Warn("unknown weather timezone, using UTC", zap.String("timezone", timezone), zap.Error(err))
		loc = time.UTC
	}
	return &Source{client: client, location: loc, logger: logger, now: time.Now}
}

// Fetch returns an entry for every date in [start, min(start+days-1, today)].
// Dates no tier could supply are Absent.
func (s *Source) Fetch(ctx context.Context, lat, lon float64, start time.Time, days int) models.TemperatureMap {
	out := models.TemperatureMap{}
	if days <= 0 {
		return out
	}

	today := s.today()
	first := civilDate(start)
	end := first.AddDate(0, 0, days-1)
	if end.After(today) {
		end = today
	}
	if first.After(end) {
		return out
	}

	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		out[d.Format(models.DateLayout)] = models.Absent()
	}

	archived, err := s.client.ArchiveDailyMean(ctx, openmeteo.ArchiveRequest{
		Latitude:  lat,
		Longitude: lon,
		Start:     first,
		End:       end,
		Timezone:  "UTC",
	})
	if err != nil {
		s.logger.Warn("archive temperature fetch failed", zap.String("start", first.Format(models.DateLayout)), zap.String("end", end.Format(models.DateLayout)), zap.Error(err))
	}
	filled := fill(out, archived)

	recentStart := today.AddDate(0, 0, -(recentPastDays - 1)).Format(models.DateLayout)
	if !missingSince(out, recentStart) {
		s.logger.Debug("temperatures fetched", zap.Int("dates", len(out)), zap.Int("archive_filled", filled))
		return out
	}

	recent, err := s.client.RecentDailyMean(ctx, openmeteo.RecentRequest{
		Latitude:     lat,
		Longitude:    lon,
		PastDays:     recentPastDays,
		ForecastDays: recentForecastDays,
		Timezone:     s.location.String(),
	})
	if err != nil {
		s.logger.Warn("recent temperature fetch failed", zap.Error(err))
	}
	backfilled := fill(out, recent)

	s.logger.Debug("temperatures fetched",
		zap.Int("dates", len(out)),
		zap.Int("archive_filled", filled),
		zap.Int("recent_filled", backfilled))
	return out
}

// fill sets absent entries of out from values. Dates not already requested
// are ignored.
func fill(out models.TemperatureMap, values []openmeteo.DailyValue) int {
	n := 0
	for _, v := range values {
		current, requested := out[v.Date]
		if !requested || current.Present() || v.Temperature == nil {
			continue
		}
		out[v.Date] = models.Celsius(*v.Temperature)
		n++
	}
	return n
}

// missingSince reports whether any date >= since is still absent. ISO dates
// compare lexically.
func missingSince(out models.TemperatureMap, since string) bool {
	for date, t := range out {
		if date >= since && !t.Present() {
			return true
		}
	}
	return false
}

func (s *Source) today() time.Time {
	return civilDate(s.now().In(s.location))
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
