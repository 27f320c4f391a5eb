package httputil

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageParams carries the page/limit pagination convention used by all
// listing endpoints.
type PageParams struct {
	Page  int
	Limit int
}

// Offset returns the row offset for the current page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePageParams reads page and limit query parameters with defaults.
// Out-of-range values are clamped rather than rejected.
func ParsePageParams(r *http.Request) PageParams {
	params := PageParams{Page: 1, Limit: DefaultPageLimit}

	if v := r.URL.Query().Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			params.Page = page
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			params.Limit = limit
		}
	}
	if params.Limit > MaxPageLimit {
		params.Limit = MaxPageLimit
	}
	return params
}

// Page is the standard paginated response envelope.
type Page[T any] struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}

// NewPage assembles the pagination envelope for a result slice.
func NewPage[T any](params PageParams, total int, items []T) Page[T] {
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Items:      items,
	}
}
