// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"backoffice/internal/domain"
)

// --- List Response ---

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// PaginationResponse contains pagination metadata.
type PaginationResponse struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PerPage  int   `json:"perPage"`
	LastPage int   `json:"lastPage"`
}

// FromPage maps a domain page, converting each row with conv.
func FromPage[S, T any](p *domain.PageResult[S], conv func(S) T) PageResponse[T] {
	data := make([]T, 0, len(p.Data))
	for _, row := range p.Data {
		data = append(data, conv(row))
	}
	return PageResponse[T]{
		Data: data,
		Pagination: PaginationResponse{
			Total:    p.Total,
			Page:     p.Page,
			PerPage:  p.PerPage,
			LastPage: p.LastPage,
		},
	}
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
