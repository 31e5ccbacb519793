package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"marketplace/internal/session"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// sessionWriter saves the session and sets its cookie right before the first
// byte of the response goes out, so the next request always sees the final state.
type sessionWriter struct {
	gin.ResponseWriter
	c         *gin.Context
	mgr       *session.Manager
	sess      *session.Session
	logger    *slog.Logger
	committed bool
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	if err := w.mgr.Commit(w.c.Request.Context(), w.sess); err != nil {
		if errors.Is(err, session.ErrInvalidated) {
			// another request logged out or rotated this session; its cookie stays dead
			w.logger.Warn("session invalidated during request")
			return
		}
		w.logger.Error("save session", "error", err)
	}
	cookie, err := w.mgr.Cookie(w.sess)
	if err != nil {
		w.logger.Error("encode session cookie", "error", err)
		return
	}
	replaceCookie(w.ResponseWriter.Header(), cookie)
}

func (w *sessionWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}

// replaceCookie sets cookie, dropping any Set-Cookie header with the same name.
func replaceCookie(h http.Header, cookie *http.Cookie) {
	prefix := cookie.Name + "="
	existing := h.Values("Set-Cookie")
	h.Del("Set-Cookie")
	for _, v := range existing {
		if !strings.HasPrefix(v, prefix) {
			h.Add("Set-Cookie", v)
		}
	}
	h.Add("Set-Cookie", cookie.String())
}

// Sessions loads (or starts) the session of every request and stores it in the
// gin context. Expired CSRF tokens are purged, idle sessions replaced and
// authenticated ids rotated on schedule by the manager.
func Sessions(mgr *session.Manager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieValue, _ := c.Cookie(mgr.CookieName())

		sess, err := mgr.Start(c.Request.Context(), cookieValue)
		if err != nil {
			logger.Error("start session", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				response.Error(http.StatusInternalServerError, "Something went wrong, please try again later"))
			return
		}
		c.Set(sessionKey, sess)

		w := &sessionWriter{ResponseWriter: c.Writer, c: c, mgr: mgr, sess: sess, logger: logger}
		c.Writer = w
		c.Next()
		w.commit()
	}
}

// CurrentSession returns the session loaded by Sessions, or nil outside of it.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}
