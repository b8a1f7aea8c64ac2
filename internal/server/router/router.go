package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mamadbah2/salmon-fce/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. A nil auth
// leaves the API public.
func New(handler *handlers.MetricsHandler, auth gin.HandlerFunc, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	if auth != nil {
		api.Use(auth)
	}
	api.GET("/metrics", handler.Metrics)
	api.GET("/metrics/latest", handler.Latest)
	api.GET("/metrics/aggregated", handler.Aggregated)
	api.GET("/summary", handler.Summary)

	if logger != nil {
		logger.Info("router initialized", zap.Bool("auth", auth != nil))
	}

	return r
}

// WithCORS allows browser calls from the listed origins.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})(next)
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
