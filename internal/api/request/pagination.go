package request

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Pagination is a parsed cursor/limit pair. The cursor is the ID of the
// last item of the previous page, opaque to clients.
type Pagination struct {
	Limit  int
	Cursor string
}

// ParsePagination reads limit and cursor query parameters. A missing,
// malformed, or non-positive limit falls back to the default; anything
// above the cap is clamped rather than rejected.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()
	p := Pagination{Limit: defaultPageSize, Cursor: q.Get("cursor")}

	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}
