package services

import (
	"fmt"

	"case_registry_go/models"
)

// TransitionPolicy decides whether a case may move between two statuses.
// Every accepted move is still written to the tracking ledger by the controller.
type TransitionPolicy interface {
	Allow(from, to models.CaseStatus) error
}

// PermissivePolicy accepts every transition, including administrative overrides such as RESOLVED -> PENDING
type PermissivePolicy struct{}

// Allow always succeeds
func (PermissivePolicy) Allow(from, to models.CaseStatus) error {
	return nil
}

// StrictPolicy accepts only the transitions listed in its table
type StrictPolicy struct {
	allowed map[models.CaseStatus]map[models.CaseStatus]bool
}

// NewStrictPolicy returns a policy with the default forward-only graph.
// ARCHIVED has no way out; REJECTED can only be archived.
func NewStrictPolicy() *StrictPolicy {
	return NewStrictPolicyFromTable(map[models.CaseStatus][]models.CaseStatus{
		models.CaseStatusPending: {
			models.CaseStatusUnderReview, models.CaseStatusInProgress,
			models.CaseStatusRejected, models.CaseStatusArchived,
		},
		models.CaseStatusUnderReview: {
			models.CaseStatusPending, models.CaseStatusInProgress, models.CaseStatusResolved,
			models.CaseStatusRejected, models.CaseStatusArchived,
		},
		models.CaseStatusInProgress: {
			models.CaseStatusUnderReview, models.CaseStatusResolved,
			models.CaseStatusRejected, models.CaseStatusArchived,
		},
		models.CaseStatusResolved: {models.CaseStatusInProgress, models.CaseStatusArchived},
		models.CaseStatusRejected: {models.CaseStatusArchived},
	})
}

// NewStrictPolicyFromTable builds a policy from an adjacency list
func NewStrictPolicyFromTable(table map[models.CaseStatus][]models.CaseStatus) *StrictPolicy {
	allowed := make(map[models.CaseStatus]map[models.CaseStatus]bool, len(table))
	for from, targets := range table {
		allowed[from] = make(map[models.CaseStatus]bool, len(targets))
		for _, to := range targets {
			allowed[from][to] = true
		}
	}
	return &StrictPolicy{allowed: allowed}
}

// Allow returns ErrTransitionForbidden for moves missing from the table
func (p *StrictPolicy) Allow(from, to models.CaseStatus) error {
	if p.allowed[from][to] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransitionForbidden, from, to)
}
