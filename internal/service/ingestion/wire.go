package ingestion

import (
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/config"
	"github.com/mamadbah2/salmon-fce/internal/service/weather"
	"github.com/mamadbah2/salmon-fce/pkg/clients/openmeteo"
)

// Store is everything ingestion needs from the record store.
type Store interface {
	BatchWriter
	LatestReader
}

// NewFromConfig wires the Open-Meteo client, temperature source, pipeline
// and runner for the configured site.
func NewFromConfig(cfg *config.Config, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openmeteo.NewClient(openmeteo.Config{
		ArchiveURL:  cfg.Weather.ArchiveURL,
		ForecastURL: cfg.Weather.ForecastURL,
		Timeout:     cfg.Weather.Timeout,
	})
	temps := weather.NewSource(client, cfg.Weather.Timezone, logger.Named("svc.weather"))
	pipeline := NewPipeline(store, DefaultPipelineConfig(), logger.Named("svc.ingestion.pipeline"))

	loc, err := time.LoadLocation(cfg.Weather.Timezone)
	if err != nil {
		loc = time.UTC
	}

	return NewService(pipeline, temps, store, SiteConfig{
		Site:      cfg.Seed.Site,
		Latitude:  cfg.Weather.Latitude,
		Longitude: cfg.Weather.Longitude,
		Seed:      cfg.Seed.Value,
		Location:  loc,
	}, logger.Named("svc.ingestion"))
}
