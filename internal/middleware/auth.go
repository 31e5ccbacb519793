package middleware

import (
	"net/http"

	"marketplace/internal/model"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireAuth rejects requests whose session carries no user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || !sess.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Please log in to continue"))
			return
		}
		c.Set("userID", sess.UserID())
		c.Set("userType", sess.UserType())
		c.Next()
	}
}

// RequireUserType allows only sessions whose user type is one of allowed.
// "both" satisfies buyer and seller requirements.
func RequireUserType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || !sess.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Please log in to continue"))
			return
		}
		userType := sess.UserType()
		for _, t := range allowed {
			if userType == t || userType == model.UserTypeBoth {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}
