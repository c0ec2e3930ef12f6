package dto

import (
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/opname"
)

// --- Requests ---

// CreateSessionRequest opens a DRAFT session. BranchID is only honoured for
// head-office accounts; branch staff always count their own branch.
type CreateSessionRequest struct {
	BranchID string `json:"branchId"`
	Notes    string `json:"notes" binding:"max=2000"`
}

// AddItemRequest records one counted product.
type AddItemRequest struct {
	ProductID       string `json:"productId" binding:"required"`
	CountedQuantity *int64 `json:"countedQuantity" binding:"required"`
	Notes           string `json:"notes" binding:"max=500"`
}

// RejectRequest carries the reviewer's reason.
type RejectRequest struct {
	AdminNotes string `json:"adminNotes"`
}

// ListSessionsQuery are the listing query parameters.
type ListSessionsQuery struct {
	Status   string `form:"status"`
	BranchID string `form:"branchId"`
	Search   string `form:"search"`
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	Page     int    `form:"page"`
	PerPage  int    `form:"perPage"`
	OrderBy  string `form:"orderBy"`
}

// ToFilter converts everything but the branch, which depends on the caller.
func (q ListSessionsQuery) ToFilter() (opname.ListFilter, error) {
	f := opname.ListFilter{
		Search:  q.Search,
		Page:    q.Page,
		PerPage: q.PerPage,
		OrderBy: q.OrderBy,
	}
	if q.Status != "" {
		st, err := opname.ParseStatus(q.Status)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}

	var err error
	if f.DateFrom, err = parseDate("dateFrom", q.DateFrom, false); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate("dateTo", q.DateTo, true); err != nil {
		return f, err
	}
	return f, nil
}

// parseDate accepts RFC 3339 or a bare date. A bare dateTo covers the whole day.
func parseDate(field, s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, apperror.NewValidation("invalid "+field).
			WithDetail("field", field).
			WithDetail("value", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// --- Responses ---

// ItemResponse is an item with its valuation.
type ItemResponse struct {
	opname.Item
	DifferenceValue types.Money `json:"differenceValue"`
}

// SessionResponse is a session with items and totals.
type SessionResponse struct {
	*opname.Session
	Items  []ItemResponse `json:"items"`
	Totals opname.Totals  `json:"totals"`
}

// FromSession builds the detail response.
func FromSession(s *opname.Session) SessionResponse {
	items := make([]ItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, ItemResponse{Item: it, DifferenceValue: it.DifferenceValue()})
	}
	return SessionResponse{
		Session: s,
		Items:   items,
		Totals:  s.Totals(),
	}
}

// SessionSummaryResponse is one listing row.
type SessionSummaryResponse struct {
	opname.SessionSummary
	NetAdjustment int64 `json:"netAdjustment"`
}

// FromSummary builds a listing row.
func FromSummary(s opname.SessionSummary) SessionSummaryResponse {
	return SessionSummaryResponse{SessionSummary: s, NetAdjustment: s.NetAdjustment()}
}

// ImportResponse reports an import.
type ImportResponse struct {
	*opname.ImportReport
	AcceptedCount int `json:"acceptedCount"`
	RejectedCount int `json:"rejectedCount"`
}

// FromImportReport builds the import response.
func FromImportReport(r *opname.ImportReport) ImportResponse {
	return ImportResponse{
		ImportReport:  r,
		AcceptedCount: len(r.Accepted),
		RejectedCount: len(r.Rejected),
	}
}
