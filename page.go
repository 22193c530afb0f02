package leads

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a clamped pagination request: Number >= 1, Size in [1,100].
type Page struct {
	Number int
	Size   int
}

// Offset is the number of records to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ParsePage reads page/limit from the query, clamping out-of-range values
// instead of rejecting them. Non-numeric values fall back to the defaults.
func ParsePage(q url.Values) Page {
	p := Page{Number: 1, Size: DefaultPageSize}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Number = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Size = n
		}
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// PageResult is one page of leads plus count metadata.
type PageResult struct {
	Data       []Lead `json:"data"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// NewPageResult assembles the list response. Data is never nil so the JSON
// always carries an array, and an empty result has zero pages.
func NewPageResult(data []Lead, page Page, total int) PageResult {
	if data == nil {
		data = []Lead{}
	}
	r := PageResult{
		Data:  data,
		Page:  page.Number,
		Limit: page.Size,
		Total: total,
	}
	if total > 0 {
		r.TotalPages = (total + page.Size - 1) / page.Size
	}
	return r
}
