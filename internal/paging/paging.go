// Package paging carries page/limit through the read paths without
// interpreting them beyond bounds checks.
package paging

const (
	DefaultLimit = 20
	MaxLimit     = 200
	// MaxPage keeps (Page-1)*Limit far from int overflow on every platform.
	MaxPage = 1_000_000
)

// Request is a 1-based page and a page size.
type Request struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps the request into supported bounds.
func (r Request) Normalize() Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Page > MaxPage {
		r.Page = MaxPage
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	return r
}

// Offset is the number of rows to skip.
func (r Request) Offset() int {
	r = r.Normalize()
	return (r.Page - 1) * r.Limit
}

// Result is one page of items plus the unpaged total.
type Result[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewResult builds a Result echoing the normalized request.
func NewResult[T any](items []T, total int, req Request) Result[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Total: total, Page: req.Page, Limit: req.Limit}
}

// Window returns the bounds of the requested page inside a slice of length n.
func Window(n int, req Request) (start, end int) {
	req = req.Normalize()
	start = req.Offset()
	if start > n {
		start = n
	}
	end = n
	if n-start > req.Limit {
		end = start + req.Limit
	}
	return start, end
}
