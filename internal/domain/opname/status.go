package opname

import (
	"fmt"
	"slices"

	"backoffice/internal/core/apperror"
)

// Status is the lifecycle state of a stock opname session.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusSubmit   Status = "SUBMIT"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusDraft, StatusSubmit, StatusApproved, StatusRejected}

// transitions is the only place allowed edges are declared.
var transitions = map[Status][]Status{
	StatusDraft:  {StatusSubmit},
	StatusSubmit: {StatusApproved, StatusRejected},
}

// ParseStatus validates a status coming from outside (query strings, files).
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", apperror.NewValidation(fmt.Sprintf("unknown status %q", s)).
			WithDetail("allowed", AllStatuses)
	}
	return st, nil
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool {
	return slices.Contains(AllStatuses, s)
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// CanTransitionTo reports whether from s to "to" is an allowed edge.
func (s Status) CanTransitionTo(to Status) bool {
	return slices.Contains(transitions[s], to)
}

// Transition returns a state error when from -> to is not an allowed edge.
// operation names the caller's action for the error message.
func Transition(from, to Status, operation string) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return apperror.NewInvalidState(entityName, from, operation).
		WithDetail("target_status", to)
}
