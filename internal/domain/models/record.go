package models

import (
	"math"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used for record keys.
const DateLayout = "2006-01-02"

// Regime is the feeding-intensity mode for a day.
type Regime string

const (
	RegimeNormal  Regime = "normal"
	RegimeReduced Regime = "reduced"
)

// Reduced feeding applies between these days of the year, inclusive.
const (
	reducedWindowStart = 120
	reducedWindowEnd   = 160
)

// RegimeFor returns the feeding regime for the given calendar day.
func RegimeFor(day time.Time) Regime {
	doy := day.YearDay()
	if doy >= reducedWindowStart && doy <= reducedWindowEnd {
		return RegimeReduced
	}
	return RegimeNormal
}

// DailyRecord is one performance observation for one site on one day.
// The pair (Date, Site) is the natural key.
type DailyRecord struct {
	Date           string      `bson:"date" json:"date"`
	Site           string      `bson:"site" json:"site"`
	FeedGivenKg    float64     `bson:"feed_given_kg" json:"feed_given_kg"`
	BiomassGainKg  float64     `bson:"biomass_gain_kg" json:"biomass_gain_kg"`
	FCR            float64     `bson:"fcr" json:"fcr"`
	FCE            float64     `bson:"fce" json:"fce"`
	HealthScore    float64     `bson:"health_score" json:"health_score"`
	AvgTemperature Temperature `bson:"avg_temperature_C" json:"avg_temperature_C"`
	Regime         Regime      `bson:"regime" json:"regime"`
}

// Key identifies a record in the store.
type Key struct {
	Date string `bson:"date"`
	Site string `bson:"site"`
}

// Key returns the natural key of the record.
func (r DailyRecord) Key() Key {
	return Key{Date: r.Date, Site: r.Site}
}

// AggregatedPoint is a downsampled chart point. It is never persisted.
type AggregatedPoint struct {
	Date           string      `json:"date"`
	FCE            float64     `json:"fce"`
	AvgTemperature Temperature `json:"avg_temperature_C"`
}

// SummaryResponse is a scalar rollup over a date range.
type SummaryResponse struct {
	Start  string  `json:"start"`
	End    string  `json:"end"`
	Site   string  `json:"site"`
	Count  int     `json:"count"`
	AvgFCR float64 `json:"avg_fcr"`
	AvgFCE float64 `json:"avg_fce"`
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
