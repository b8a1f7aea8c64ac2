package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "Marlborough Sounds", cfg.Server.DefaultSite)
	assert.Equal(t, 10, cfg.Server.MinPoints)
	assert.Equal(t, 2000, cfg.Server.MaxPoints)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "salmon_fce", cfg.MongoDB.DBName)
	assert.Equal(t, "fce_daily", cfg.MongoDB.Collection)
	assert.True(t, cfg.Auth.Disabled)
	assert.Equal(t, -41.2706, cfg.Weather.Latitude)
	assert.Equal(t, 173.2840, cfg.Weather.Longitude)
	assert.Equal(t, 365, cfg.Seed.Days)
	assert.Equal(t, uint64(42), cfg.Seed.Value)
	assert.Equal(t, time.September, cfg.Seed.Start.Month())
	assert.Equal(t, "15 2 * * *", cfg.TopUp.CronSchedule)
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	envFile := filepath.Join(dir, "test.env")
	content := "MONGO_DB=fce_test\nALLOWED_ORIGINS=http://a.test, http://b.test ,\nSEED_START=2024-02-01\nSEED_DAYS=30\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"MONGO_DB", "ALLOWED_ORIGINS", "SEED_START", "SEED_DAYS"} {
			_ = os.Unsetenv(k)
		}
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "fce_test", cfg.MongoDB.DBName)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "2024-02-01", cfg.Seed.Start.Format("2006-01-02"))
	assert.Equal(t, 30, cfg.Seed.Days)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEED_DAYS", "many")
	t.Setenv("OPEN_METEO_LAT", "north")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_DAYS")
	assert.Contains(t, err.Error(), "OPEN_METEO_LAT")
}

func TestLoad_SeedValue(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("SEED_VALUE", "18446744073709551615")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), cfg.Seed.Value)

	t.Setenv("SEED_VALUE", "-1")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_VALUE")
}

func TestLoad_EmptyScheduleDisablesTopUp(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOPUP_CRON_SCHEDULE", " ")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.TopUp.CronSchedule)
}

func TestValidate_AuthRequiresDomain(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_DISABLED", "false")

	_, err := Load("")
	require.EqualError(t, err, "AUTH0_DOMAIN must be provided when auth is enabled")

	t.Setenv("AUTH0_DOMAIN", "tenant.auth0.test")
	t.Setenv("AUTH0_AUDIENCE", "https://api.test")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Auth.Disabled)
}

func TestValidate_PointBounds(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_MIN_POINTS", "500")
	t.Setenv("API_MAX_POINTS", "100")

	_, err := Load("")
	require.Error(t, err)
}

func TestDefaultSeasonStart(t *testing.T) {
	got := DefaultSeasonStart(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), got)
}
