// Package paging implements offset pagination arithmetic.
package paging

const (
	// MinPerPage is the per-page floor used by list endpoints.
	MinPerPage = 5

	// DefaultPerPage is the per-page floor used by search endpoints.
	DefaultPerPage = 10
)

// Page is both the page request and the page result.
//
// Search, Filters and Orders carry the raw client query; Response strips
// them so raw query text is never echoed back.
type Page[T any] struct {
	Page          int    `json:"page"`
	PerPage       int    `json:"perPage"`
	FilteredCount int64  `json:"filteredCount"`
	TotalCount    int64  `json:"totalCount"`
	Search        string `json:"search,omitempty"`
	Filters       string `json:"filters,omitempty"`
	Orders        string `json:"orders,omitempty"`
	Records       []T    `json:"records"`
}

// Normalize returns a copy of p with page floored to 1, perPage defaulted
// to minPerPage when < 1, and both counts cleared.
func Normalize[T any](p Page[T], minPerPage int) Page[T] {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = minPerPage
	}
	p.FilteredCount = 0
	p.TotalCount = 0
	return p
}

// Limit computes the window for p after its FilteredCount is known.
//
// Page is clamped down to the last page, then floored to 1, so an empty
// result set always reads page 1 at offset 0.
func Limit[T any](p Page[T], minPerPage int) (page, perPage, offset int) {
	page, perPage = p.Page, p.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = minPerPage
	}
	if perPage < 1 {
		perPage = 1
	}

	maxPage := MaxPage(p.FilteredCount, perPage)
	if page > maxPage {
		page = maxPage
	}
	if page < 1 {
		page = 1
	}
	return page, perPage, (page - 1) * perPage
}

// MaxPage returns ceil(count / perPage).
func MaxPage(count int64, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 0
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

// Response returns a copy of p without the raw search, filters and orders.
func Response[T any](p Page[T]) Page[T] {
	p.Search = ""
	p.Filters = ""
	p.Orders = ""
	if p.Records == nil {
		p.Records = []T{}
	}
	return p
}

// Map converts the records of p with fn, keeping every other field.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{
		Page:          p.Page,
		PerPage:       p.PerPage,
		FilteredCount: p.FilteredCount,
		TotalCount:    p.TotalCount,
		Search:        p.Search,
		Filters:       p.Filters,
		Orders:        p.Orders,
		Records:       make([]U, len(p.Records)),
	}
	for i, r := range p.Records {
		out.Records[i] = fn(r)
	}
	return out
}
