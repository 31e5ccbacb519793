package middleware

import (
	"log/slog"
	"net/http"

	"marketplace/internal/pkg/metrics"
	"marketplace/internal/session"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	CSRFHeader = "X-CSRF-Token"
	CSRFField  = "csrf_token"
)

// CSRFToken returns the submitted token: header first, then form field, then query.
func CSRFToken(c *gin.Context) string {
	if v := c.GetHeader(CSRFHeader); v != "" {
		return v
	}
	if v := c.PostForm(CSRFField); v != "" {
		return v
	}
	return c.Query(CSRFField)
}

// RequireCSRF consumes a token of purpose before the handler runs. Requests
// without a valid token are rejected with 403 and never reach the handler.
// reject writes the rejection response; nil uses the standard error envelope.
func RequireCSRF(tokens *session.TokenManager, purpose string, logger *slog.Logger, reject gin.HandlerFunc) gin.HandlerFunc {
	if reject == nil {
		reject = func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.Error(http.StatusForbidden, "Invalid or expired security token. Please refresh the page and try again"))
		}
	}

	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			metrics.CSRFRejections.WithLabelValues(purpose).Inc()
			reject(c)
			c.Abort()
			return
		}

		ok, err := tokens.Validate(c.Request.Context(), sess, purpose, CSRFToken(c))
		if err != nil {
			logger.Error("validate csrf token", "purpose", purpose, "error", err)
		}
		if !ok {
			metrics.CSRFRejections.WithLabelValues(purpose).Inc()
			reject(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
