package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/service/series"
)

const (
	defaultLimit  = 1000
	maxLimit      = 2000
	defaultPoints = 200
)

// QueryService is the read API the handlers expose.
type QueryService interface {
	Raw(ctx context.Context, r series.Range, limit int) ([]models.DailyRecord, error)
	Latest(ctx context.Context, site string) (models.DailyRecord, error)
	Summary(ctx context.Context, r series.Range) (models.SummaryResponse, error)
	Downsampled(ctx context.Context, r series.Range, points int) ([]models.AggregatedPoint, error)
}

// Options configures request defaults and bounds.
type Options struct {
	DefaultSite string
	MinPoints   int
	MaxPoints   int
}

// MetricsHandler serves the dashboard read endpoints.
type MetricsHandler struct {
	svc    QueryService
	opts   Options
	logger *zap.Logger
}

// NewMetricsHandler constructs the HTTP handler adapter.
func NewMetricsHandler(svc QueryService, opts Options, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinPoints <= 0 {
		opts.MinPoints = 10
	}
	if opts.MaxPoints < opts.MinPoints {
		opts.MaxPoints = 2000
	}
	return &MetricsHandler{svc: svc, opts: opts, logger: logger}
}

type rangeQuery struct {
	Start string `form:"start" binding:"required"`
	End   string `form:"end" binding:"required"`
	Site  string `form:"site"`
}

type metricsQuery struct {
	rangeQuery
	Limit *int `form:"limit"`
}

type aggregatedQuery struct {
	rangeQuery
	Points *int `form:"points"`
}

// Metrics returns raw records for a date range.
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var q metricsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.invalid(c, err)
		return
	}
	r, err := h.parseRange(q.rangeQuery)
	if err != nil {
		h.invalid(c, err)
		return
	}

	limit := defaultLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit < 1 || limit > maxLimit {
		h.invalid(c, fmt.Errorf("limit must be between 1 and %d", maxLimit))
		return
	}

	records, err := h.svc.Raw(c.Request.Context(), r, limit)
	if err != nil {
		h.failed(c, "metrics query failed", err)
		return
	}
	if records == nil {
		records = []models.DailyRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Latest returns the newest record for a site.
func (h *MetricsHandler) Latest(c *gin.Context) {
	site := h.site(c.Query("site"))

	rec, err := h.svc.Latest(c.Request.Context(), site)
	if errors.Is(err, series.ErrNoRecords) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no records for site %q", site)})
		return
	}
	if err != nil {
		h.failed(c, "latest query failed", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Summary returns count and average fcr/fce for a range.
func (h *MetricsHandler) Summary(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.invalid(c, err)
		return
	}
	r, err := h.parseRange(q)
	if err != nil {
		h.invalid(c, err)
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), r)
	if err != nil {
		h.failed(c, "summary query failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Aggregated returns the range downsampled to at most points points.
func (h *MetricsHandler) Aggregated(c *gin.Context) {
	var q aggregatedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.invalid(c, err)
		return
	}
	r, err := h.parseRange(q.rangeQuery)
	if err != nil {
		h.invalid(c, err)
		return
	}

	points := defaultPoints
	if q.Points != nil {
		points = *q.Points
	}
	if points < h.opts.MinPoints || points > h.opts.MaxPoints {
		h.invalid(c, fmt.Errorf("points must be between %d and %d", h.opts.MinPoints, h.opts.MaxPoints))
		return
	}

	out, err := h.svc.Downsampled(c.Request.Context(), r, points)
	if err != nil {
		h.failed(c, "aggregated query failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *MetricsHandler) parseRange(q rangeQuery) (series.Range, error) {
	start, err := time.Parse(models.DateLayout, strings.TrimSpace(q.Start))
	if err != nil {
		return series.Range{}, fmt.Errorf("start must be YYYY-MM-DD: %q", q.Start)
	}
	end, err := time.Parse(models.DateLayout, strings.TrimSpace(q.End))
	if err != nil {
		return series.Range{}, fmt.Errorf("end must be YYYY-MM-DD: %q", q.End)
	}
	if end.Before(start) {
		return series.Range{}, errors.New("end must not be before start")
	}
	return series.Range{
		Site:  h.site(q.Site),
		Start: start.Format(models.DateLayout),
		End:   end.Format(models.DateLayout),
	}, nil
}

func (h *MetricsHandler) site(raw string) string {
	if s := strings.TrimSpace(raw); s != "" {
		return s
	}
	return h.opts.DefaultSite
}

func (h *MetricsHandler) invalid(c *gin.Context, err error) {
	h.logger.Debug("invalid request", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
}

func (h *MetricsHandler) failed(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
