// Package ports defines the interfaces the leads domain requires from
// external systems. These form an anti-corruption layer: the leads domain
// only sees the data it needs, shaped the way it wants, and never imports
// the candidates domain directly.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// Candidate is an assignable agent or broker as the leads domain sees one.
type Candidate struct {
	UID         uuid.UUID
	Name        string
	CompanyName string
	Role        string
	Email       string
	Premium     bool
}

// SortKey is the label candidates are ordered by in the rotation: the
// display name, or the company name when no display name is set.
func (c Candidate) SortKey() string {
	if c.Name != "" {
		return c.Name
	}
	return c.CompanyName
}

// CandidateProvider yields the active assignable users for a set of roles.
// The implementation is wired in at the composition root and wraps the
// candidates repository.
type CandidateProvider interface {
	// FindActiveCandidates returns all active, visible users holding any of
	// the given roles. Order is not significant; the assignment engine sorts.
	FindActiveCandidates(ctx context.Context, roles []string) ([]Candidate, error)
}
