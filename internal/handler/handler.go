package handler

import (
	"log/slog"
	"net/http"

	"marketplace/internal/middleware"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError writes err using the standard envelope. Server-side failures are
// logged with their cause; the client only sees the public message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := service.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, response.Error(status, service.PublicMessage(err)))
}

// requireSession returns the request session or aborts with 500 when the
// session middleware did not run.
func requireSession(c *gin.Context) (*session.Session, bool) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			response.Error(http.StatusInternalServerError, "Something went wrong, please try again later"))
		return nil, false
	}
	return sess, true
}
