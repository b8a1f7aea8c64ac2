package ingestion

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/generator"
)

func TestMerge_AttachesByDate(t *testing.T) {
	records := generator.Collect(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3, "site", 1)
	temps := models.TemperatureMap{
		"2024-01-01": models.Celsius(14.5),
		"2024-01-02": models.Absent(),
		"2023-12-31": models.Celsius(99),
	}

	merged := Merge(slices.Values(records), temps)

	require.Len(t, merged, 3)
	v, ok := merged[0].AvgTemperature.Get()
	assert.True(t, ok)
	assert.Equal(t, 14.5, v)
	assert.False(t, merged[1].AvgTemperature.Present())
	assert.False(t, merged[2].AvgTemperature.Present())
}

func TestMerge_OnlyTemperatureChanges(t *testing.T) {
	records := generator.Collect(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 40, "site", 3)

	full := models.TemperatureMap{}
	for i, r := range records {
		full[r.Date] = models.Celsius(float64(i))
	}

	for name, temps := range map[string]models.TemperatureMap{"nil": nil, "empty": {}, "full": full} {
		t.Run(name, func(t *testing.T) {
			merged := Merge(slices.Values(records), temps)
			require.Len(t, merged, len(records))
			for i := range records {
				want := records[i]
				want.AvgTemperature = merged[i].AvgTemperature
				assert.Equal(t, want, merged[i])
			}
		})
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	records := generator.Collect(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2, "site", 1)
	_ = Merge(slices.Values(records), models.TemperatureMap{"2024-01-01": models.Celsius(1)})
	assert.False(t, records[0].AvgTemperature.Present())
}
