package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// Page is a 1-based page request. Size 0 means every row.
type Page struct {
	Number int
	Size   int
}

// AllRows requests an unpaginated listing.
var AllRows = Page{Number: 1}

// ParsePage reads ?page= and ?limit= (or ?per_page=). Missing or invalid
// values fall back to page 1 and defaultSize; a positive maxSize caps the size.
func ParsePage(r *http.Request, defaultSize, maxSize int) Page {
	q := r.URL.Query()
	p := Page{Number: positive(q.Get("page"), 1), Size: defaultSize}
	if raw := q.Get("limit"); raw != "" {
		p.Size = positive(raw, defaultSize)
	} else if raw := q.Get("per_page"); raw != "" {
		p.Size = positive(raw, defaultSize)
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

// Offset is the number of rows before the page.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Meta describes the page in a response.
func (p Page) Meta(total int) Pagination {
	return Pagination{Page: max(p.Number, 1), PerPage: p.Size, TotalItems: total}
}

func positive(raw string, fallback int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return fallback
}
