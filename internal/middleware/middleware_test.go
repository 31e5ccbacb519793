package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestReplaceCookie(t *testing.T) {
	h := http.Header{}
	h.Add("Set-Cookie", "sid=old; Path=/")
	h.Add("Set-Cookie", "remember=token; Path=/")

	replaceCookie(h, &http.Cookie{Name: "sid", Value: "new", Path: "/"})

	values := h.Values("Set-Cookie")
	assert.Len(t, values, 2)
	assert.Contains(t, values, "remember=token; Path=/")
	assert.Contains(t, values, "sid=new; Path=/")
}

func TestCSRFTokenLookupOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		form   string
		query  string
		want   string
	}{
		{"header wins", "h", "f", "q", "h"},
		{"form before query", "", "f", "q", "f"},
		{"query fallback", "", "", "q", "q"},
		{"missing", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target += "?" + CSRFField + "=" + tt.query
			}
			form := url.Values{}
			if tt.form != "" {
				form.Set(CSRFField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.header != "" {
				req.Header.Set(CSRFHeader, tt.header)
			}

			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = req
			assert.Equal(t, tt.want, CSRFToken(c))
		})
	}
}

func TestRequireAuthRejectsMissingSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/seller", RequireUserType("seller"), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/private", "/seller"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
