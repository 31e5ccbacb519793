package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"marketplace/internal/service"

	"github.com/gin-gonic/gin"
)

// RememberCookie describes the long-lived "remember me" cookie.
type RememberCookie struct {
	Name     string
	Lifetime time.Duration
	Secure   bool
}

// SetRememberCookie sets the remember-me token as an HttpOnly cookie
func SetRememberCookie(c *gin.Context, cfg RememberCookie, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, token, int(cfg.Lifetime.Seconds()), "/", "", cfg.Secure, true)
}

// ClearRememberCookie removes the remember-me cookie
func ClearRememberCookie(c *gin.Context, cfg RememberCookie) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, "", -1, "/", "", cfg.Secure, true)
}

// RememberMe logs guest sessions back in from a valid remember-me cookie and
// rotates the cookie. Invalid cookies are cleared.
func RememberMe(auth service.AuthService, cfg RememberCookie, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || sess.IsAuthenticated() {
			c.Next()
			return
		}
		token, err := c.Cookie(cfg.Name)
		if err != nil || token == "" {
			c.Next()
			return
		}

		rotated, err := auth.ResumeSession(c.Request.Context(), sess, token, c.ClientIP())
		if err != nil {
			if !errors.Is(err, service.ErrAuthentication) {
				logger.Error("resume remembered session", "error", err)
			}
			ClearRememberCookie(c, cfg)
			c.Next()
			return
		}

		SetRememberCookie(c, cfg, rotated)
		c.Next()
	}
}
