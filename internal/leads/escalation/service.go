// Package escalation raises overdue leads whose stage SLA deadline has
// passed. The sweep runs from the scheduler on a fixed cadence.
package escalation

import (
	"context"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/logger"
)

const sweepBatchSize = 100

// Store is the slice of the repository the sweep needs.
type Store interface {
	repository.EscalationStore
	repository.ActivityLogger
}

type Service struct {
	store    Store
	bus      events.Bus
	log      *logger.Logger
	maxLevel int
	now      func() time.Time
}

func New(store Store, bus events.Bus, log *logger.Logger, maxLevel int) *Service {
	return &Service{
		store:    store,
		bus:      bus,
		log:      log,
		maxLevel: maxLevel,
		now:      time.Now,
	}
}

// Sweep escalates every overdue lead below the maximum escalation level by
// one level. Returns the number of leads escalated. Individual failures are
// logged and skipped so one bad row cannot stall the batch.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()

	overdue, err := s.store.ListOverdue(ctx, now, s.maxLevel, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, lead := range overdue {
		level := lead.EscalationLevel + 1
		updated, err := s.store.SetEscalation(ctx, lead.ID, level, now)
		if err != nil {
			s.log.DatabaseError("set escalation", err)
			continue
		}

		if err := s.store.AddActivity(ctx, lead.ID, "escalation", "sla_overdue", map[string]interface{}{
			"stage":           string(lead.Stage),
			"escalationLevel": level,
		}); err != nil {
			s.log.DatabaseError("record escalation activity", err)
		}

		assigneeEmail := ""
		if updated.AssignedTo != nil {
			assigneeEmail = updated.AssignedTo.Email
		}

		s.log.LeadEvent("lead_escalated", lead.ID.String())
		s.bus.Publish(ctx, events.LeadEscalated{
			BaseEvent:       events.NewBaseEvent(),
			LeadID:          lead.ID,
			BuyerName:       updated.BuyerName,
			Stage:           string(updated.Stage),
			EscalationLevel: level,
			SLADueAt:        updated.StageSLADueAt,
			AssigneeEmail:   assigneeEmail,
		})
		escalated++
	}

	return escalated, nil
}
