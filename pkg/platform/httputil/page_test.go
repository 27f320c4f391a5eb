package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "/x", 1, DefaultPageLimit},
		{"explicit", "/x?page=3&limit=50", 3, 50},
		{"limit clamped", "/x?limit=1000", 1, MaxPageLimit},
		{"negative ignored", "/x?page=-1&limit=-5", 1, DefaultPageLimit},
		{"garbage ignored", "/x?page=abc&limit=xyz", 1, DefaultPageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := ParsePageParams(httptest.NewRequest("GET", tt.url, nil))
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, PageParams{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, PageParams{Page: 3, Limit: 20}.Offset())
}

func TestNewPage(t *testing.T) {
	params := PageParams{Page: 2, Limit: 10}

	page := NewPage(params, 25, []string{"a", "b"})
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	empty := NewPage[string](params, 0, nil)
	assert.Equal(t, 0, empty.TotalPages)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}
