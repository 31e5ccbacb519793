package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{query: "", want: Params{Page: 1, Limit: 20, Offset: 0}},
		{query: "page=3&limit=10", want: Params{Page: 3, Limit: 10, Offset: 20}},
		{query: "page=-1&limit=0", want: Params{Page: 1, Limit: 20, Offset: 0}},
		{query: "page=abc&limit=1000", want: Params{Page: 1, Limit: 100, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQuery(tt.query))
		})
	}
}

func TestNewPage(t *testing.T) {
	p := Params{Page: 2, Limit: 10, Offset: 10}
	page := p.NewPage([]int{1, 2}, 21)
	assert.Equal(t, 3, page.TotalPages)
	assert.EqualValues(t, 21, page.Total)
	assert.Equal(t, 2, page.Page)

	assert.Equal(t, 0, p.NewPage(nil, 0).TotalPages)
}
