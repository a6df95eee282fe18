package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata. The requested page is clamped
// into the valid range so that asking for a page past the end keeps the view
// on the last page instead of showing an empty one.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Skip returns the record offset for the current page.
func (p Pagination) Skip() int {
	return (p.Page - 1) * p.PerPage
}

// HasPrev reports whether an earlier page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a later page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// FirstRow returns the 1-based index of the first row on the page, 0 when empty.
func (p Pagination) FirstRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Skip() + 1
}

// LastRow returns the 1-based index of the last row on the page.
func (p Pagination) LastRow() int {
	last := p.Skip() + p.PerPage
	if last > p.Total {
		last = p.Total
	}
	return last
}
