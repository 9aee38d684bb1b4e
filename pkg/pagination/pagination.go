// Package pagination provides page request parsing and paged result envelopes.
package pagination

import (
	"net/url"
	"strconv"
)

// PageRequest identifies a page of results.
type PageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Normalize clamps the request into the bounds defined by cfg.
func (r *PageRequest) Normalize(cfg Config) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
}

// Offset returns the row offset for the request.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// PageRequestFromQuery parses page and pageSize query parameters,
// normalized against cfg.
func PageRequestFromQuery(query url.Values, cfg Config) PageRequest {
	request := PageRequest{}

	if v := query.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			request.Page = page
		}
	}
	if v := query.Get("pageSize"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			request.PageSize = size
		}
	}

	request.Normalize(cfg)
	return request
}

// PageResult is a single page of items plus paging metadata.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// NewPageResult assembles a PageResult from a page of items and the total count.
func NewPageResult[T any](items []T, totalItems int, request PageRequest) PageResult[T] {
	totalPages := 0
	if request.PageSize > 0 {
		totalPages = (totalItems + request.PageSize - 1) / request.PageSize
	}

	if items == nil {
		items = []T{}
	}

	return PageResult[T]{
		Items:      items,
		Page:       request.Page,
		PageSize:   request.PageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
