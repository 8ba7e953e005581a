package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinMiddleware returns a gin middleware that logs each request with a
// request-scoped logger. Health and readiness checks log at debug so they do
// not drown out the sync and webhook traffic.
func GinMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Request ID is set by the RequestID middleware ahead of us
		requestID, _ := c.Get("request_id")
		requestIDStr, _ := requestID.(string)

		reqLogger := log.With(
			zap.String("request_id", requestIDStr),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)

		// Webhook ingests carry the platform in the route
		if platform := c.Param("platform"); platform != "" {
			reqLogger = reqLogger.With(zap.String("platform", platform))
		}

		// Handlers pick this up via GetGinLogger
		c.Set("logger", reqLogger)

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		status := c.Writer.Status()
		msg := "request completed"
		switch {
		case status >= 500:
			reqLogger.Error(msg, fields...)
		case status >= 400:
			reqLogger.Warn(msg, fields...)
		case isHealthCheckPath(path):
			reqLogger.Debug(msg, fields...)
		default:
			reqLogger.Info(msg, fields...)
		}
	}
}

func isHealthCheckPath(path string) bool {
	switch path {
	case "/health", "/healthz", "/ready", "/api/v1/health":
		return true
	default:
		return false
	}
}

// Recovery returns a gin middleware that recovers from panics, logs the
// stack, and answers 500. Platform deliveries retry on 5xx, so a panicking
// webhook handler is retried rather than silently acked.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get("request_id")
				requestIDStr, _ := requestID.(string)

				log.Error("panic recovered",
					zap.String("request_id", requestIDStr),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)

				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// GetGinLogger retrieves the request-scoped logger from the gin context,
// falling back to a nop logger outside the middleware chain.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if log, exists := c.Get("logger"); exists {
		if l, ok := log.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
