package pagination

import (
	"net/http"
	"strconv"
)

// Params are limit/offset pagination parameters.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Bounds configures the default and the maximum page size.
type Bounds struct {
	DefaultLimit int
	MaxLimit     int
}

// ProductBounds are used by product listings: 10 per page, at most 50.
var ProductBounds = Bounds{DefaultLimit: 10, MaxLimit: 50}

// FromRequest reads ?limit= and ?offset= from r. Missing or malformed values
// fall back to defaults and limits above MaxLimit are clamped.
func FromRequest(r *http.Request, b Bounds) Params {
	q := r.URL.Query()
	p := Params{Limit: b.DefaultLimit}

	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if b.MaxLimit > 0 && p.Limit > b.MaxLimit {
		p.Limit = b.MaxLimit
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		p.Offset = v
	}
	return p
}

// Page returns the 1-based page number for the current offset.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// Window returns the bounds of the slice [lo:hi] selected by p over n items.
func (p Params) Window(n int) (lo, hi int) {
	lo = min(max(p.Offset, 0), n)
	hi = n
	if p.Limit > 0 {
		hi = min(lo+p.Limit, n)
	}
	return lo, hi
}
