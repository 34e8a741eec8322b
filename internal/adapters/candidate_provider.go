// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping services from providing domains.
package adapters

import (
	"context"
	"strings"

	candidatesrepo "realty_leads_backend/internal/candidates/repository"
	"realty_leads_backend/internal/leads/ports"
)

// CandidatePoolProvider adapts the candidates repository to the leads
// domain's CandidateProvider interface, so the leads module never imports
// the candidates context directly.
type CandidatePoolProvider struct {
	repo *candidatesrepo.Repository
}

// NewCandidatePoolProvider creates a new adapter wrapping the candidates repository.
func NewCandidatePoolProvider(repo *candidatesrepo.Repository) *CandidatePoolProvider {
	return &CandidatePoolProvider{repo: repo}
}

// FindActiveCandidates returns the active users holding any of the given roles.
func (p *CandidatePoolProvider) FindActiveCandidates(ctx context.Context, roles []string) ([]ports.Candidate, error) {
	users, err := p.repo.FindActiveByRoles(ctx, roles)
	if err != nil {
		return nil, err
	}

	candidates := make([]ports.Candidate, 0, len(users))
	for _, user := range users {
		candidates = append(candidates, ports.Candidate{
			UID:         user.UID,
			Name:        user.Name,
			CompanyName: user.CompanyName,
			Role:        user.Role,
			Email:       user.Email,
			Premium:     strings.EqualFold(user.Plan, "premium"),
		})
	}

	return candidates, nil
}

var _ ports.CandidateProvider = (*CandidatePoolProvider)(nil)
