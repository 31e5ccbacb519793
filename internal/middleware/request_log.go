package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs HTTP request/response metadata.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("client_ip", c.ClientIP()),
			slog.String("latency", time.Since(start).String()),
		}
		if sess := CurrentSession(c); sess != nil && sess.IsAuthenticated() {
			attrs = append(attrs, slog.Uint64("user_id", uint64(sess.UserID())))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("http request", attrs...)
		case len(c.Errors) > 0:
			logger.Warn("http request", append(attrs, slog.String("errors", c.Errors.String()))...)
		default:
			logger.Info("http request", attrs...)
		}
	}
}
