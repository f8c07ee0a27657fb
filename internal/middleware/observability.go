package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmiseikis/site-api/internal/ratelimit"
	"github.com/jmiseikis/site-api/pkg/logger"
	"github.com/jmiseikis/site-api/pkg/metrics"
	"go.uber.org/zap"
)

// redactedQueryParams never reach the logs
var redactedQueryParams = map[string]bool{
	"token": true, "challengetoken": true, "captchatoken": true,
	"secret": true, "key": true, "apikey": true, "api_key": true,
}

// quietRoutes are polled by infrastructure; successful hits are not logged
var quietRoutes = map[string]bool{
	"/api/healthcheck": true,
	"/api/metrics":     true,
}

// ObservabilityMiddleware records request metrics and writes one log line per request
func ObservabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		metrics.ActiveRequests.WithLabelValues(method).Inc()
		defer metrics.ActiveRequests.WithLabelValues(method).Dec()

		c.Next()

		// route template keeps label cardinality bounded (":slug" instead of each event)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		duration := metrics.MeasureDuration(start)
		status := c.Writer.Status()
		statusStr := strconv.Itoa(status)

		metrics.HTTPRequestDuration.WithLabelValues(method, route, statusStr).Observe(duration)
		metrics.HTTPRequestTotal.WithLabelValues(method, route, statusStr).Inc()

		if quietRoutes[route] && status < 400 {
			return
		}

		fields := []zap.Field{
			zap.String("route", route),
			zap.String("client_id", ratelimit.ClientIdentifier(c.Request.Header)),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("response_size", c.Writer.Size()),
		}

		if status >= 400 {
			if query := sanitizedQuery(c); len(query) > 0 {
				fields = append(fields, zap.Any("query_params", query))
			}
			if retryAfter := c.Writer.Header().Get("Retry-After"); retryAfter != "" {
				fields = append(fields, zap.String("retry_after", retryAfter))
			}
			// causes attached by handlers; never part of the response body
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("error", c.Errors.String()))
			}
		}

		logger.LogHTTPRequest(c.Request.Context(), method, c.Request.URL.Path, status, duration, fields...)
	}
}

func sanitizedQuery(c *gin.Context) map[string]string {
	query := c.Request.URL.Query()
	if len(query) == 0 {
		return nil
	}

	sanitized := make(map[string]string, len(query))
	for k, v := range query {
		if redactedQueryParams[strings.ToLower(k)] || len(v) == 0 {
			continue
		}
		sanitized[k] = v[0]
	}
	return sanitized
}
