package store

import "strings"

// Filter selects the ordering applied to a paginated listing.
type Filter string

// Recognized filter keys. Anything else falls back to FilterPopular.
const (
	FilterPopular Filter = "popular" // usage counter descending
	FilterRecent  Filter = "recent"  // createdAt descending
	FilterOldest  Filter = "oldest"  // createdAt ascending
	FilterName    Filter = "name"    // display name ascending
)

// Pagination bounds.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SearchParams carries pagination, free-text, and ordering inputs for
// listing operations. Zero values mean "use the default".
type SearchParams struct {
	Page     int    // 1-based page number
	PageSize int    // items per page
	Query    string // case-insensitive substring match, empty matches all
	Filter   Filter // ordering key
}

// Normalize clamps the parameters into their valid ranges and resolves the
// filter key. Out-of-range and unrecognized inputs become defaults rather
// than errors; the request validator rejects anything worth rejecting
// before the store sees it.
func (p *SearchParams) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	switch p.Filter {
	case FilterPopular, FilterRecent, FilterOldest, FilterName:
	default:
		p.Filter = FilterPopular
	}
}

// Skip returns how many matching items precede the requested page.
func (p SearchParams) Skip() int {
	return (p.Page - 1) * p.PageSize
}

// matchesQuery reports whether text contains the query, ignoring case.
// An empty query matches everything. Plain substring containment only;
// the query is never compiled into a pattern.
func matchesQuery(text, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}

// PagedResult is one page of a listing plus the math clients need to
// build a pager.
type PagedResult[T any] struct {
	Items  []T  `json:"items"`
	Total  int  `json:"total"`   // total matching items across all pages
	IsNext bool `json:"is_next"` // true when another page follows this one
}

// pageOf slices one page out of an already filtered and sorted item list
// and fills in the paging metadata.
func pageOf[T any](items []T, params SearchParams) *PagedResult[T] {
	total := len(items)

	start := params.Skip()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	page := items[start:end]

	return &PagedResult[T]{
		Items:  page,
		Total:  total,
		IsNext: total > start+len(page),
	}
}
