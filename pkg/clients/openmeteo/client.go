package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	dailyMeanTemperature = "temperature_2m_mean"
	dateLayout           = "2006-01-02"
)

// ErrUnavailable wraps every transport, status or breaker failure.
var ErrUnavailable = errors.New("open-meteo unavailable")

// Client exposes the Open-Meteo endpoints used for temperature backfill.
type Client interface {
	ArchiveDailyMean(ctx context.Context, req ArchiveRequest) ([]DailyValue, error)
	RecentDailyMean(ctx context.Context, req RecentRequest) ([]DailyValue, error)
}

// Config holds endpoint locations and timeouts. MinInterval spaces outgoing
// requests; zero means 100ms, inside the free tier's 600 calls a minute.
type Config struct {
	ArchiveURL  string
	ForecastURL string
	Timeout     time.Duration
	MinInterval time.Duration
}

// ArchiveRequest asks the reanalysis archive for an explicit date range.
type ArchiveRequest struct {
	Latitude  float64
	Longitude float64
	Start     time.Time
	End       time.Time
	Timezone  string
}

// RecentRequest asks the forecast endpoint for the last PastDays days.
type RecentRequest struct {
	Latitude     float64
	Longitude    float64
	PastDays     int
	ForecastDays int
	Timezone     string
}

// DailyValue is one day of the daily series. Temperature is nil when the
// upstream returned null.
type DailyValue struct {
	Date        string
	Temperature *float64
}

type dailyResponse struct {
	Daily struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m_mean"`
	} `json:"daily"`
}

type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// APIClient is a resty-backed implementation of Client. Each endpoint sits
// behind its own circuit breaker.
type APIClient struct {
	httpClient  *resty.Client
	archiveURL  string
	forecastURL string
	archiveCB   *gobreaker.CircuitBreaker[[]DailyValue]
	forecastCB  *gobreaker.CircuitBreaker[[]DailyValue]
	limiter     *rate.Limiter
}

// NewClient builds an Open-Meteo client.
func NewClient(cfg Config) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	restyClient := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &APIClient{
		httpClient:  restyClient,
		archiveURL:  cfg.ArchiveURL,
		forecastURL: cfg.ForecastURL,
		archiveCB:   newBreaker("openmeteo.archive"),
		forecastCB:  newBreaker("openmeteo.forecast"),
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]DailyValue] {
	return gobreaker.NewCircuitBreaker[[]DailyValue](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// ArchiveDailyMean queries the archive for every day in [Start, End].
func (c *APIClient) ArchiveDailyMean(ctx context.Context, req ArchiveRequest) ([]DailyValue, error) {
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	params := map[string]string{
		"latitude":   formatCoord(req.Latitude),
		"longitude":  formatCoord(req.Longitude),
		"start_date": req.Start.Format(dateLayout),
		"end_date":   req.End.Format(dateLayout),
		"daily":      dailyMeanTemperature,
		"timezone":   tz,
	}
	return guard(c.archiveCB, func() ([]DailyValue, error) {
		return c.fetch(ctx, c.archiveURL, params)
	})
}

// RecentDailyMean queries the forecast endpoint, which covers recent days
// that the archive has not caught up with yet.
func (c *APIClient) RecentDailyMean(ctx context.Context, req RecentRequest) ([]DailyValue, error) {
	params := map[string]string{
		"latitude":      formatCoord(req.Latitude),
		"longitude":     formatCoord(req.Longitude),
		"daily":         dailyMeanTemperature,
		"timezone":      req.Timezone,
		"past_days":     strconv.Itoa(req.PastDays),
		"forecast_days": strconv.Itoa(req.ForecastDays),
	}
	return guard(c.forecastCB, func() ([]DailyValue, error) {
		return c.fetch(ctx, c.forecastURL, params)
	})
}

func guard(cb *gobreaker.CircuitBreaker[[]DailyValue], fn func() ([]DailyValue, error)) ([]DailyValue, error) {
	values, err := cb.Execute(fn)
	if err != nil && !errors.Is(err, ErrUnavailable) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return values, err
}

func (c *APIClient) fetch(ctx context.Context, url string, params map[string]string) ([]DailyValue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	result := new(dailyResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		SetError(apiErr).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: status=%d reason=%s", ErrUnavailable, resp.StatusCode(), apiErr.Reason)
	}

	times := result.Daily.Time
	temps := result.Daily.Temperature
	values := make([]DailyValue, 0, len(times))
	for i, d := range times {
		// Arrays are parallel; a short temperature array leaves the tail absent.
		var t *float64
		if i < len(temps) {
			t = temps[i]
		}
		values = append(values, DailyValue{Date: d, Temperature: t})
	}
	return values, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
