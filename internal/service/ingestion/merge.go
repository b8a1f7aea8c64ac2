package ingestion

import (
	"iter"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
)

// Merge attaches the temperature for each record's date. Records whose date
// is missing from temps, or maps to an absent value, stay absent. No record
// is dropped.
func Merge(records iter.Seq[models.DailyRecord], temps models.TemperatureMap) []models.DailyRecord {
	merged := make([]models.DailyRecord, 0)
	for rec := range records {
		rec.AvgTemperature = temps.Lookup(rec.Date)
		merged = append(merged, rec)
	}
	return merged
}
