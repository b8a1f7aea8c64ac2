package series

import "github.com/mamadbah2/salmon-fce/internal/domain/models"

// Downsample reduces date-ordered records to at most target points using
// index-uniform windows. Window i covers [floor(i*n/N), floor((i+1)*n/N)-1],
// so every window is non-empty and n > N yields exactly N points. Each point
// is labelled with its window's first date; fce is the window mean and the
// temperature is the mean over present values only.
func Downsample(records []models.DailyRecord, target int) []models.AggregatedPoint {
	n := len(records)
	if n == 0 || target <= 0 {
		return []models.AggregatedPoint{}
	}

	if n <= target {
		points := make([]models.AggregatedPoint, 0, n)
		for _, r := range records {
			points = append(points, point(r.Date, r.FCE, r.AvgTemperature))
		}
		return points
	}

	points := make([]models.AggregatedPoint, 0, target)
	for i := 0; i < target; i++ {
		lo := i * n / target
		hi := min((i+1)*n/target, n) - 1
		if hi < lo {
			hi = lo
		}
		points = append(points, aggregate(records[lo:hi+1]))
	}
	return points
}

func aggregate(window []models.DailyRecord) models.AggregatedPoint {
	var (
		fceSum  float64
		tempSum float64
		temps   int
	)
	for _, r := range window {
		fceSum += r.FCE
		if v, ok := r.AvgTemperature.Get(); ok {
			tempSum += v
			temps++
		}
	}

	temp := models.Absent()
	if temps > 0 {
		temp = models.Celsius(tempSum / float64(temps))
	}
	return point(window[0].Date, fceSum/float64(len(window)), temp)
}

func point(date string, fce float64, temp models.Temperature) models.AggregatedPoint {
	if v, ok := temp.Get(); ok {
		temp = models.Celsius(models.Round(v, 3))
	}
	return models.AggregatedPoint{
		Date:           date,
		FCE:            models.Round(fce, 3),
		AvgTemperature: temp,
	}
}
