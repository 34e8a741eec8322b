// Package assignment routes an unassigned lead to exactly one active agent
// or broker, rotating fairly across the pool via a persisted counter.
package assignment

import (
	"context"
	"errors"
	"strings"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/ports"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AssignableRoles are the user roles eligible to receive leads.
var AssignableRoles = []string{"agent", "broker"}

// Store is the slice of the repository the engine needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	SetAssignment(ctx context.Context, id uuid.UUID, assignee repository.Assignee, at time.Time) (repository.Lead, error)
	repository.CounterStore
	repository.ActivityLogger
}

type Service struct {
	store      Store
	candidates ports.CandidateProvider
	bus        events.Bus
	log        *logger.Logger
	collator   *collate.Collator
	now        func() time.Time
}

func New(store Store, candidates ports.CandidateProvider, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		candidates: candidates,
		bus:        bus,
		log:        log,
		collator:   collate.New(language.Spanish, collate.IgnoreCase),
		now:        time.Now,
	}
}

// Assign picks a candidate for the lead and persists the assignment.
//
// Premium plan membership is a hard filter: if any premium candidate is
// active, standard candidates are not considered at all. Within the chosen
// pool, rotation continues from the persisted counter; when the last
// assigned candidate is no longer in the pool, rotation restarts at the
// first candidate in sort order.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found").WithOp("assignment.Assign")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "load lead", err).WithOp("assignment.Assign")
	}

	if lead.Status == domain.LegacyAssigned && lead.AssignedTo != nil {
		return repository.Lead{}, apperr.Conflict("lead is already assigned").WithOp("assignment.Assign")
	}

	pool, err := s.selectPool(ctx)
	if err != nil {
		return repository.Lead{}, err
	}

	index, err := s.nextIndex(ctx, pool)
	if err != nil {
		return repository.Lead{}, err
	}
	assignee := pool[index]

	now := s.now().UTC()
	updated, err := s.store.SetAssignment(ctx, lead.ID, repository.Assignee{
		UID:   assignee.UID,
		Name:  assignee.SortKey(),
		Role:  assignee.Role,
		Email: assignee.Email,
	}, now)
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "persist assignment", err).WithOp("assignment.Assign")
	}

	// Counter write is separate from the lead write and last-writer-wins.
	// Concurrent assignments can skew rotation but never corrupt a lead.
	if err := s.store.SetAssignmentCounter(ctx, assignee.UID); err != nil {
		s.log.DatabaseError("set assignment counter", err)
	}

	s.recordActivity(ctx, updated, assignee)

	s.log.LeadEvent("lead_assigned", updated.ID.String())
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        updated.ID,
		BuyerName:     updated.BuyerName,
		AssigneeUID:   assignee.UID,
		AssigneeName:  assignee.SortKey(),
		AssigneeEmail: assignee.Email,
		AssigneeRole:  assignee.Role,
	})

	return updated, nil
}

// selectPool fetches active candidates, applies the premium hard filter and
// sorts the survivors by display name for a stable rotation order.
func (s *Service) selectPool(ctx context.Context) ([]ports.Candidate, error) {
	all, err := s.candidates.FindActiveCandidates(ctx, AssignableRoles)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load candidates", err).WithOp("assignment.selectPool")
	}
	if len(all) == 0 {
		return nil, apperr.NotFound("no active candidates available").WithOp("assignment.selectPool")
	}

	premium := make([]ports.Candidate, 0, len(all))
	standard := make([]ports.Candidate, 0, len(all))
	for _, candidate := range all {
		if candidate.Premium {
			premium = append(premium, candidate)
		} else {
			standard = append(standard, candidate)
		}
	}

	pool := standard
	if len(premium) > 0 {
		pool = premium
	}

	s.collator.Sort(byName{pool: pool, collator: s.collator})
	return pool, nil
}

// nextIndex resolves the rotation cursor against the current pool. A cursor
// pointing at a candidate who has left the pool resets the rotation to the
// first slot. An unreadable counter fails the assignment.
func (s *Service) nextIndex(ctx context.Context, pool []ports.Candidate) (int, error) {
	lastAssigned, err := s.store.GetAssignmentCounter(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "read assignment counter", err).WithOp("assignment.nextIndex")
	}
	if lastAssigned == nil {
		return 0, nil
	}
	for i, candidate := range pool {
		if candidate.UID == *lastAssigned {
			return (i + 1) % len(pool), nil
		}
	}
	return 0, nil
}

func (s *Service) recordActivity(ctx context.Context, lead repository.Lead, assignee ports.Candidate) {
	err := s.store.AddActivity(ctx, lead.ID, "assignment", "lead_assigned", map[string]interface{}{
		"assigneeUid":  assignee.UID.String(),
		"assigneeName": assignee.SortKey(),
		"assigneeRole": assignee.Role,
	})
	if err != nil {
		s.log.DatabaseError("record assignment activity", err)
	}
}

// byName adapts a candidate slice to the collator's sort interface so
// rotation order follows locale rules rather than raw byte order.
type byName struct {
	pool     []ports.Candidate
	collator *collate.Collator
}

func (b byName) Len() int { return len(b.pool) }

func (b byName) Swap(i, j int) { b.pool[i], b.pool[j] = b.pool[j], b.pool[i] }

func (b byName) Bytes(i int) []byte {
	return []byte(strings.ToLower(b.pool[i].SortKey()))
}
