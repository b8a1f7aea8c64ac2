package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/server/handlers"
	"github.com/mamadbah2/salmon-fce/internal/service/series"
)

type emptyService struct{}

func (emptyService) Raw(context.Context, series.Range, int) ([]models.DailyRecord, error) {
	return nil, nil
}

func (emptyService) Latest(context.Context, string) (models.DailyRecord, error) {
	return models.DailyRecord{}, series.ErrNoRecords
}

func (emptyService) Summary(_ context.Context, r series.Range) (models.SummaryResponse, error) {
	return models.SummaryResponse{Start: r.Start, End: r.End, Site: r.Site}, nil
}

func (emptyService) Downsampled(context.Context, series.Range, int) ([]models.AggregatedPoint, error) {
	return []models.AggregatedPoint{}, nil
}

func newHandler() *handlers.MetricsHandler {
	return handlers.NewMetricsHandler(emptyService{}, handlers.Options{DefaultSite: "site"}, nil)
}

func TestRoutes(t *testing.T) {
	engine := New(newHandler(), nil, nil)

	for target, want := range map[string]int{
		"/healthz": http.StatusOK,
		"/api/metrics?start=2024-01-01&end=2024-01-02":            http.StatusOK,
		"/api/metrics/latest":                                     http.StatusNotFound,
		"/api/summary?start=2024-01-01&end=2024-01-02":            http.StatusOK,
		"/api/metrics/aggregated?start=2024-01-01&end=2024-01-02": http.StatusOK,
		"/api/unknown": http.StatusNotFound,
	} {
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, want, rr.Code, target)
	}
}

func TestAuthAppliesToAPIOnly(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	engine := New(newHandler(), deny, nil)

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary?start=2024-01-01&end=2024-01-02", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWithCORS(t *testing.T) {
	h := WithCORS(New(newHandler(), nil, nil), []string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/summary", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.test")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
