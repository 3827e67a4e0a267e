package server

import (
	"coin-checkout/internal/auth"
	"coin-checkout/internal/domain"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const appIDKey = "app_id"

var httpResponseTimeMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 10},
}, []string{"route", "status"})

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpResponseTimeMetric.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if appID := c.GetString(appIDKey); appID != "" {
			fields = append(fields, zap.String("app_id", appID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request handled", fields...)
	}
}

// appAuth requires a bearer app token when secret is set.
func appAuth(secret []byte, logger *zap.Logger) gin.HandlerFunc {
	if len(secret) == 0 {
		logger.Warn("APP_AUTH_SECRET is empty, app authentication disabled")
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(c, domain.E(domain.KindUnauthorized, "Unauthorized"))
			return
		}
		appID, err := auth.ParseAppToken(secret, raw)
		if err != nil {
			logger.Info("rejected app token", zap.Error(err))
			writeError(c, domain.E(domain.KindUnauthorized, "Unauthorized"))
			return
		}
		c.Set(appIDKey, appID)
		c.Next()
	}
}

func rateLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
			return
		}
		c.Next()
	}
}
