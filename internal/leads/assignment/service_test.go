package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/ports"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/apperr"
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

type staticPool []ports.Candidate

func (p staticPool) FindActiveCandidates(context.Context, []string) ([]ports.Candidate, error) {
	return p, nil
}

func newTestService(store Store, pool []ports.Candidate) *Service {
	return New(store, staticPool(pool), &captureBus{}, logger.New("development"))
}

func unassignedLead(mem *repository.Memory) repository.Lead {
	lead := repository.Lead{
		ID:         uuid.New(),
		Type:       "request-info",
		Source:     "property",
		BuyerName:  "Ana Pérez",
		BuyerEmail: "ana@x.com",
		Stage:      domain.StageNew,
		Status:     domain.LegacyUnassigned,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	mem.Put(lead)
	return lead
}

func candidate(name, plan string) ports.Candidate {
	return ports.Candidate{
		UID:     uuid.New(),
		Name:    name,
		Role:    "agent",
		Email:   name + "@example.com",
		Premium: plan == "premium",
	}
}

func TestAssignLeadNotFound(t *testing.T) {
	svc := newTestService(repository.NewMemory(), []ports.Candidate{candidate("Ana", "standard")})

	_, err := svc.Assign(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssignAlreadyAssignedIsConflictAndDoesNotMutate(t *testing.T) {
	mem := repository.NewMemory()
	svc := newTestService(mem, []ports.Candidate{candidate("Ana", "standard"), candidate("Berta", "standard")})
	lead := unassignedLead(mem)

	first, err := svc.Assign(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("first assignment failed: %v", err)
	}

	counterBefore, _ := mem.GetAssignmentCounter(context.Background())

	_, err = svc.Assign(context.Background(), lead.ID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on second assignment, got %v", err)
	}

	after, _ := mem.GetByID(context.Background(), lead.ID)
	if after.AssignedTo == nil || after.AssignedTo.UID != first.AssignedTo.UID {
		t.Fatal("failed assignment must not mutate the lead")
	}
	counterAfter, _ := mem.GetAssignmentCounter(context.Background())
	if *counterBefore != *counterAfter {
		t.Fatal("failed assignment must not advance the counter")
	}
}

func TestAssignNoCandidates(t *testing.T) {
	mem := repository.NewMemory()
	svc := newTestService(mem, nil)
	lead := unassignedLead(mem)

	_, err := svc.Assign(context.Background(), lead.ID)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected no-candidates as not found, got %v", err)
	}
}

func TestAssignPremiumIsHardFilter(t *testing.T) {
	mem := repository.NewMemory()
	premium := candidate("Zoe", "premium")
	pool := []ports.Candidate{
		candidate("Ana", "standard"),
		candidate("Berta", "standard"),
		candidate("Carlos", "standard"),
		premium,
	}
	svc := newTestService(mem, pool)

	// Every assignment must land on the sole premium candidate, regardless
	// of rotation position.
	for i := 0; i < 3; i++ {
		lead := unassignedLead(mem)
		assigned, err := svc.Assign(context.Background(), lead.ID)
		if err != nil {
			t.Fatalf("assignment %d failed: %v", i, err)
		}
		if assigned.AssignedTo.UID != premium.UID {
			t.Fatalf("assignment %d went to %s, want premium candidate", i, assigned.AssignedTo.Name)
		}
	}
}

func TestAssignRoundRobinContinuation(t *testing.T) {
	mem := repository.NewMemory()
	ana := candidate("Ana", "standard")
	berta := candidate("Berta", "standard")
	carlos := candidate("Carlos", "standard")
	svc := newTestService(mem, []ports.Candidate{carlos, ana, berta})

	if err := mem.SetAssignmentCounter(context.Background(), ana.UID); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	lead := unassignedLead(mem)
	assigned, err := svc.Assign(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}
	if assigned.AssignedTo.UID != berta.UID {
		t.Fatalf("expected Berta after Ana, got %s", assigned.AssignedTo.Name)
	}

	// Wrap-around from the last slot back to the first.
	if err := mem.SetAssignmentCounter(context.Background(), carlos.UID); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	lead = unassignedLead(mem)
	assigned, err = svc.Assign(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}
	if assigned.AssignedTo.UID != ana.UID {
		t.Fatalf("expected wrap to Ana, got %s", assigned.AssignedTo.Name)
	}
}

func TestAssignCounterChurnResetsRotation(t *testing.T) {
	mem := repository.NewMemory()
	ana := candidate("Ana", "standard")
	berta := candidate("Berta", "standard")
	svc := newTestService(mem, []ports.Candidate{berta, ana})

	// Counter points at a candidate who left the pool.
	if err := mem.SetAssignmentCounter(context.Background(), uuid.New()); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	lead := unassignedLead(mem)
	assigned, err := svc.Assign(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}
	if assigned.AssignedTo.UID != ana.UID {
		t.Fatalf("expected rotation reset to first candidate Ana, got %s", assigned.AssignedTo.Name)
	}
}

type counterReadFailStore struct {
	*repository.Memory
	readErr error
}

func (s *counterReadFailStore) GetAssignmentCounter(ctx context.Context) (*uuid.UUID, error) {
	return nil, s.readErr
}

func TestAssignUnreadableCounterIsInternalError(t *testing.T) {
	mem := repository.NewMemory()
	store := &counterReadFailStore{Memory: mem, readErr: errors.New("connection refused")}
	svc := newTestService(store, []ports.Candidate{candidate("Ana", "standard"), candidate("Berta", "standard")})
	lead := unassignedLead(mem)

	_, err := svc.Assign(context.Background(), lead.ID)
	if apperr.GetKind(err) != apperr.KindInternal {
		t.Fatalf("expected internal error on unreadable counter, got %v", err)
	}

	after, _ := mem.GetByID(context.Background(), lead.ID)
	if after.AssignedTo != nil || after.Stage != domain.StageNew {
		t.Fatal("failed counter read must leave the lead unassigned")
	}
	if len(mem.Activities()) != 0 {
		t.Fatal("failed assignment must not record activity")
	}
}

func TestAssignPublishesEventWithBuyerName(t *testing.T) {
	mem := repository.NewMemory()
	bus := &captureBus{}
	ana := candidate("Ana", "standard")
	svc := New(mem, staticPool([]ports.Candidate{ana}), bus, logger.New("development"))
	lead := unassignedLead(mem)

	if _, err := svc.Assign(context.Background(), lead.ID); err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	assigned, ok := bus.published[0].(events.LeadAssigned)
	if !ok {
		t.Fatalf("expected LeadAssigned, got %T", bus.published[0])
	}
	if assigned.BuyerName != lead.BuyerName {
		t.Fatalf("expected buyer name %q on event, got %q", lead.BuyerName, assigned.BuyerName)
	}
	if assigned.AssigneeUID != ana.UID || assigned.AssigneeEmail != ana.Email {
		t.Fatalf("expected assignee %s on event, got %v", ana.Email, assigned)
	}
}

func TestAssignWritesStageCounterAndActivity(t *testing.T) {
	mem := repository.NewMemory()
	ana := candidate("Ana", "standard")
	svc := newTestService(mem, []ports.Candidate{ana})
	lead := unassignedLead(mem)

	assigned, err := svc.Assign(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}

	if assigned.Stage != domain.StageAssigned {
		t.Fatalf("expected stage assigned, got %s", assigned.Stage)
	}
	if assigned.Status != domain.LegacyAssigned {
		t.Fatalf("expected status assigned, got %s", assigned.Status)
	}
	if assigned.AssignedAt == nil || assigned.StageSLADueAt == nil {
		t.Fatal("expected assignedAt and SLA deadline to be set")
	}
	slaGap := assigned.StageSLADueAt.Sub(*assigned.AssignedAt)
	if slaGap != 2*time.Hour {
		t.Fatalf("expected two hour SLA for assigned stage, got %v", slaGap)
	}

	counter, err := mem.GetAssignmentCounter(context.Background())
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if counter == nil || *counter != ana.UID {
		t.Fatalf("expected counter at Ana, got %v", counter)
	}

	activities := mem.Activities()
	if len(activities) != 1 || activities[0].Action != "lead_assigned" {
		t.Fatalf("expected one lead_assigned activity, got %v", activities)
	}
}
