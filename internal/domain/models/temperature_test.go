package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTemperature_JSONAbsentIsNull(t *testing.T) {
	out, err := json.Marshal(AggregatedPoint{Date: "2024-01-01", FCE: 0.351})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-01","fce":0.351,"avg_temperature_C":null}`, string(out))

	var p AggregatedPoint
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-01","fce":0.3,"avg_temperature_C":14.25}`), &p))
	v, ok := p.AvgTemperature.Get()
	assert.True(t, ok)
	assert.Equal(t, 14.25, v)
}

func TestTemperature_BSONDecodesNullAndMissing(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"date": "2024-01-01", "site": "a", "avg_temperature_C": nil})
	require.NoError(t, err)
	var rec DailyRecord
	require.NoError(t, bson.Unmarshal(raw, &rec))
	assert.False(t, rec.AvgTemperature.Present())

	raw, err = bson.Marshal(bson.M{"date": "2024-01-01", "site": "a"})
	require.NoError(t, err)
	rec = DailyRecord{}
	require.NoError(t, bson.Unmarshal(raw, &rec))
	assert.False(t, rec.AvgTemperature.Present())

	raw, err = bson.Marshal(bson.M{"date": "2024-01-01", "site": "a", "avg_temperature_C": int32(12)})
	require.NoError(t, err)
	rec = DailyRecord{}
	require.NoError(t, bson.Unmarshal(raw, &rec))
	v, ok := rec.AvgTemperature.Get()
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)
}

func TestTemperature_BSONEncodesPresentValue(t *testing.T) {
	raw, err := bson.Marshal(DailyRecord{Date: "2024-01-01", Site: "a", AvgTemperature: Celsius(11.5)})
	require.NoError(t, err)
	assert.Equal(t, 11.5, bson.Raw(raw).Lookup("avg_temperature_C").Double())

	raw, err = bson.Marshal(DailyRecord{Date: "2024-01-01", Site: "a"})
	require.NoError(t, err)
	assert.Equal(t, bson.TypeNull, bson.Raw(raw).Lookup("avg_temperature_C").Type)
}

func TestRegimeFor(t *testing.T) {
	cases := map[string]Regime{
		"2023-04-29": RegimeNormal,  // day 119
		"2023-04-30": RegimeReduced, // day 120
		"2023-06-09": RegimeReduced, // day 160
		"2023-06-10": RegimeNormal,  // day 161
		"2024-04-29": RegimeReduced, // leap year, day 120
	}
	for date, want := range cases {
		day, err := time.Parse(DateLayout, date)
		require.NoError(t, err)
		assert.Equal(t, want, RegimeFor(day), date)
	}
}

func TestTemperatureMap_Lookup(t *testing.T) {
	var empty TemperatureMap
	assert.False(t, empty.Lookup("2024-01-01").Present())

	m := TemperatureMap{"2024-01-01": Celsius(9), "2024-01-02": Absent()}
	assert.True(t, m.Lookup("2024-01-01").Present())
	assert.False(t, m.Lookup("2024-01-02").Present())
	assert.False(t, m.Lookup("2024-01-03").Present())
}
