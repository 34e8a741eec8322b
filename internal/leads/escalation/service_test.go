package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/logger"

	"github.com/google/uuid"
)

type captureBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *captureBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func overdueLead(mem *repository.Memory, dueAgo time.Duration, level int) repository.Lead {
	due := time.Now().UTC().Add(-dueAgo)
	lead := repository.Lead{
		ID:              uuid.New(),
		Type:            "request-info",
		Source:          "property",
		BuyerName:       "Ana Pérez",
		BuyerEmail:      "ana@x.com",
		Stage:           domain.StageAssigned,
		Status:          domain.LegacyAssigned,
		StageSLADueAt:   &due,
		EscalationLevel: level,
		Escalated:       level > 0,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	mem.Put(lead)
	return lead
}

func TestSweepEscalatesOverdueLeads(t *testing.T) {
	mem := repository.NewMemory()
	bus := &captureBus{}
	svc := New(mem, bus, logger.New("development"), 3)

	lead := overdueLead(mem, time.Hour, 0)
	onTime := repository.Lead{
		ID:         uuid.New(),
		Stage:      domain.StageAssigned,
		Status:     domain.LegacyAssigned,
		BuyerEmail: "fresh@x.com",
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	future := time.Now().UTC().Add(time.Hour)
	onTime.StageSLADueAt = &future
	mem.Put(onTime)

	escalated, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if escalated != 1 {
		t.Fatalf("expected one escalation, got %d", escalated)
	}

	after, _ := mem.GetByID(context.Background(), lead.ID)
	if !after.Escalated || after.EscalationLevel != 1 {
		t.Fatalf("expected level 1 escalation, got escalated=%v level=%d", after.Escalated, after.EscalationLevel)
	}

	untouched, _ := mem.GetByID(context.Background(), onTime.ID)
	if untouched.Escalated {
		t.Fatal("lead within SLA must not escalate")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.published) != 1 || bus.published[0].EventName() != "leads.lead.escalated" {
		t.Fatalf("expected escalated event, got %v", bus.published)
	}
	event, ok := bus.published[0].(events.LeadEscalated)
	if !ok {
		t.Fatalf("expected LeadEscalated, got %T", bus.published[0])
	}
	if event.BuyerName != lead.BuyerName {
		t.Fatalf("expected buyer name %q on event, got %q", lead.BuyerName, event.BuyerName)
	}
	if event.EscalationLevel != 1 {
		t.Fatalf("expected level 1 on event, got %d", event.EscalationLevel)
	}
}

func TestSweepStopsAtMaxLevel(t *testing.T) {
	mem := repository.NewMemory()
	svc := New(mem, &captureBus{}, logger.New("development"), 2)

	lead := overdueLead(mem, time.Hour, 2)

	escalated, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("expected no escalation past max level, got %d", escalated)
	}

	after, _ := mem.GetByID(context.Background(), lead.ID)
	if after.EscalationLevel != 2 {
		t.Fatalf("expected level unchanged at 2, got %d", after.EscalationLevel)
	}
}

func TestSweepLevelsAccumulate(t *testing.T) {
	mem := repository.NewMemory()
	svc := New(mem, &captureBus{}, logger.New("development"), 3)

	lead := overdueLead(mem, time.Hour, 0)

	for want := 1; want <= 3; want++ {
		if _, err := svc.Sweep(context.Background()); err != nil {
			t.Fatalf("sweep %d failed: %v", want, err)
		}
		after, _ := mem.GetByID(context.Background(), lead.ID)
		if after.EscalationLevel != want {
			t.Fatalf("expected level %d, got %d", want, after.EscalationLevel)
		}
	}

	// A fourth sweep must be a no-op.
	escalated, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("final sweep failed: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("expected no escalations past max, got %d", escalated)
	}
}
