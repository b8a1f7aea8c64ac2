package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	MongoDB MongoDBConfig
	Auth    AuthConfig
	Weather WeatherConfig
	Seed    SeedConfig
	TopUp   TopUpConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	DefaultSite    string
	MinPoints      int
	MaxPoints      int
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI        string
	DBName     string
	Collection string
}

// AuthConfig toggles bearer token verification against an Auth0 tenant.
type AuthConfig struct {
	Disabled bool
	Domain   string
	Audience string
}

// WeatherConfig locates the site and the Open-Meteo endpoints.
type WeatherConfig struct {
	Latitude    float64
	Longitude   float64
	ArchiveURL  string
	ForecastURL string
	Timezone    string
	Timeout     time.Duration
}

// SeedConfig drives the initial seed run.
type SeedConfig struct {
	Site  string
	Start time.Time
	Days  int
	Value uint64
}

// TopUpConfig holds the periodic top-up schedule. An empty schedule disables it.
type TopUpConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	var errs []error
	site := getenvWithDefault("SITE_NAME", "Marlborough Sounds")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("APP_PORT", "8000"),
			AllowedOrigins: splitList(getenvWithDefault("ALLOWED_ORIGINS", "http://localhost:5173")),
			DefaultSite:    site,
			MinPoints:      getInt("API_MIN_POINTS", 10, &errs),
			MaxPoints:      getInt("API_MAX_POINTS", 2000, &errs),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:        getenvWithDefault("MONGO_URI", "mongodb://localhost:27017"),
			DBName:     getenvWithDefault("MONGO_DB", "salmon_fce"),
			Collection: getenvWithDefault("MONGO_COLL", "fce_daily"),
		},
		Auth: AuthConfig{
			Disabled: getBool("AUTH_DISABLED", true, &errs),
			Domain:   os.Getenv("AUTH0_DOMAIN"),
			Audience: os.Getenv("AUTH0_AUDIENCE"),
		},
		Weather: WeatherConfig{
			Latitude:    getFloat("OPEN_METEO_LAT", -41.2706, &errs),
			Longitude:   getFloat("OPEN_METEO_LON", 173.2840, &errs),
			ArchiveURL:  getenvWithDefault("OPEN_METEO_ARCHIVE_URL", "https://archive-api.open-meteo.com/v1/era5"),
			ForecastURL: getenvWithDefault("OPEN_METEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
			Timezone:    getenvWithDefault("WEATHER_TIMEZONE", "Pacific/Auckland"),
			Timeout:     30 * time.Second,
		},
		Seed: SeedConfig{
			Site:  site,
			Start: getDate("SEED_START", DefaultSeasonStart(time.Now()), &errs),
			Days:  getInt("SEED_DAYS", 365, &errs),
			Value: getUint("SEED_VALUE", 42, &errs),
		},
		TopUp: TopUpConfig{
			CronSchedule: getenvWithDefault("TOPUP_CRON_SCHEDULE", "15 2 * * *"),
		},
	}
	if v, ok := os.LookupEnv("TOPUP_CRON_SCHEDULE"); ok && strings.TrimSpace(v) == "" {
		cfg.TopUp.CronSchedule = ""
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Server.MinPoints < 1 || c.Server.MaxPoints < c.Server.MinPoints {
		return fmt.Errorf("API_MIN_POINTS/API_MAX_POINTS must satisfy 1 <= min <= max, got %d/%d", c.Server.MinPoints, c.Server.MaxPoints)
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGO_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGO_DB must be provided")
	case c.MongoDB.Collection == "":
		return errors.New("MONGO_COLL must be provided")
	}

	if !c.Auth.Disabled {
		if c.Auth.Domain == "" {
			return errors.New("AUTH0_DOMAIN must be provided when auth is enabled")
		}
		if c.Auth.Audience == "" {
			return errors.New("AUTH0_AUDIENCE must be provided when auth is enabled")
		}
	}

	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return fmt.Errorf("OPEN_METEO_LAT out of range: %f", c.Weather.Latitude)
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return fmt.Errorf("OPEN_METEO_LON out of range: %f", c.Weather.Longitude)
	}

	if c.Seed.Days < 1 {
		return errors.New("SEED_DAYS must be positive")
	}

	return nil
}

// DefaultSeasonStart is September 1st of the previous year, the start of the
// current production season.
func DefaultSeasonStart(now time.Time) time.Time {
	return time.Date(now.Year()-1, time.September, 1, 0, 0, 0, 0, time.UTC)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getUint(key string, fallback uint64, errs *[]error) uint64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getBool(key string, fallback bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getDate(key string, fallback time.Time, errs *[]error) time.Time {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.Parse("2006-01-02", raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
