// Package generator produces deterministic synthetic daily performance
// records for a site.
package generator

import (
	"encoding/binary"
	"iter"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
)

const (
	normalBaseFeedKg  = 500.0
	reducedBaseFeedKg = 380.0
	feedSpreadRatio   = 0.07

	baseEfficiency    = 0.35
	seasonalAmplitude = 0.1
	reducedEfficiency = 0.9
	minEfficiency     = 0.05
	maxEfficiency     = 0.6
	minBiomassGainKg  = 0.001

	healthBase      = 60.0
	healthPivotFCE  = 0.4
	healthSlope     = 200.0
	healthNoiseSpan = 5.0

	daysPerYear = 365.25
)

// DefaultSeed matches the seed used by the seeding tools.
const DefaultSeed uint64 = 42

// Generate yields one record per calendar day starting at start, in date
// order. Re-invoking with identical arguments reproduces identical output,
// and each day only depends on (site, day, seed).
func Generate(start time.Time, days int, site string, seed uint64) iter.Seq[models.DailyRecord] {
	first := truncateDay(start)
	return func(yield func(models.DailyRecord) bool) {
		for i := 0; i < days; i++ {
			if !yield(Day(first.AddDate(0, 0, i), site, seed)) {
				return
			}
		}
	}
}

// Collect materializes Generate into a slice.
func Collect(start time.Time, days int, site string, seed uint64) []models.DailyRecord {
	records := make([]models.DailyRecord, 0, max(days, 0))
	for rec := range Generate(start, days, site, seed) {
		records = append(records, rec)
	}
	return records
}

// Day builds the record for a single calendar day.
func Day(day time.Time, site string, seed uint64) models.DailyRecord {
	day = truncateDay(day)
	date := day.Format(models.DateLayout)
	rng := dayRand(site, date, seed)

	regime := models.RegimeFor(day)

	baseFeed := normalBaseFeedKg
	if regime == models.RegimeReduced {
		baseFeed = reducedBaseFeedKg
	}
	feedGiven := math.Max(0, gauss(rng, baseFeed, baseFeed*feedSpreadRatio))

	seasonal := seasonalAmplitude * math.Sin(2*math.Pi*float64(day.YearDay())/daysPerYear)
	efficiency := baseEfficiency + seasonal
	if regime == models.RegimeReduced {
		efficiency *= reducedEfficiency
	}
	efficiency = clamp(efficiency, minEfficiency, maxEfficiency)

	biomassGain := math.Max(minBiomassGainKg, feedGiven*efficiency)
	fcr, fce := Conversion(feedGiven, biomassGain)

	health := clamp(healthBase+(fce-healthPivotFCE)*healthSlope+gauss(rng, 0, healthNoiseSpan), 0, 100)

	// An undefined ratio is stored as 0 so the document stays encodable.
	if math.IsInf(fcr, 0) || math.IsNaN(fcr) {
		fcr = 0
	}

	return models.DailyRecord{
		Date:           date,
		Site:           site,
		FeedGivenKg:    models.Round(feedGiven, 2),
		BiomassGainKg:  models.Round(biomassGain, 2),
		FCR:            models.Round(fcr, 3),
		FCE:            models.Round(fce, 3),
		HealthScore:    models.Round(health, 1),
		AvgTemperature: models.Absent(),
		Regime:         regime,
	}
}

// Conversion returns the feed conversion ratio and its reciprocal efficiency.
// A non-positive gain makes the ratio infinite and the efficiency 0.
func Conversion(feedKg, gainKg float64) (fcr, fce float64) {
	if gainKg <= 0 {
		return math.Inf(1), 0
	}
	fcr = feedKg / gainKg
	if fcr <= 0 || math.IsNaN(fcr) {
		return fcr, 0
	}
	return fcr, 1 / fcr
}

// dayRand seeds an independent stream from a hash of (site, date, seed).
func dayRand(site, date string, seed uint64) *rand.Rand {
	h := xxhash.New()
	_, _ = h.WriteString(site)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(date)
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = h.Write(buf[:])
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
}

func gauss(rng *rand.Rand, mean, stddev float64) float64 {
	return mean + rng.NormFloat64()*stddev
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
