package shared

import (
	"net/http"
	"strconv"
)

// DefaultPageSize applies when the caller does not pass a limit.
const DefaultPageSize = 50

// MaxPageSize caps list requests.
const MaxPageSize = 500

// ListParams carries limit/offset for list endpoints.
type ListParams struct {
	Limit  int
	Offset int
}

// Normalize clamps limit and offset into their valid ranges.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListParamsFromRequest reads ?limit= and ?offset= from the query string.
func ListParamsFromRequest(r *http.Request) ListParams {
	var p ListParams
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			p.Limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			p.Offset = parsed
		}
	}
	return p.Normalize()
}
