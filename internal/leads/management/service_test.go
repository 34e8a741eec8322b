package management

import (
	"context"
	"sync"
	"testing"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/internal/leads/transport"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/logger"
	"realty_leads_backend/platform/validator"

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

func newTestService(mem *repository.Memory) (*Service, *captureBus) {
	bus := &captureBus{}
	return New(mem, validator.New(), bus, logger.New("development")), bus
}

func seedLead(mem *repository.Memory, stage domain.Stage) repository.Lead {
	lead := repository.Lead{
		ID:         uuid.New(),
		Type:       "request-info",
		Source:     "property",
		BuyerName:  "Ana Pérez",
		BuyerEmail: "ana@x.com",
		Stage:      stage,
		Status:     domain.LegacyStatus(stage),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	mem.Put(lead)
	return lead
}

func TestUpdateStageValidTransition(t *testing.T) {
	mem := repository.NewMemory()
	svc, bus := newTestService(mem)
	lead := seedLead(mem, domain.StageAssigned)

	resp, err := svc.UpdateStage(context.Background(), lead.ID, transport.UpdateStageRequest{
		Stage:  "contacted",
		Reason: "called the buyer",
	})
	if err != nil {
		t.Fatalf("update stage failed: %v", err)
	}

	if resp.Stage != "contacted" {
		t.Fatalf("expected stage contacted, got %s", resp.Stage)
	}
	if resp.Status != domain.LegacyContacted {
		t.Fatalf("expected derived status contacted, got %s", resp.Status)
	}
	if resp.StageSLADueAt == nil {
		t.Fatal("expected SLA deadline for contacted stage")
	}

	activities := mem.Activities()
	if len(activities) != 1 || activities[0].Action != "stage_changed" {
		t.Fatalf("expected stage_changed activity, got %v", activities)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.published) != 1 || bus.published[0].EventName() != "leads.lead.stage_changed" {
		t.Fatalf("expected stage_changed event, got %v", bus.published)
	}
}

func TestUpdateStageClearsEscalation(t *testing.T) {
	mem := repository.NewMemory()
	svc, _ := newTestService(mem)

	lead := seedLead(mem, domain.StageAssigned)
	if _, err := mem.SetEscalation(context.Background(), lead.ID, 2, time.Now().UTC()); err != nil {
		t.Fatalf("seed escalation: %v", err)
	}

	resp, err := svc.UpdateStage(context.Background(), lead.ID, transport.UpdateStageRequest{Stage: "contacted"})
	if err != nil {
		t.Fatalf("update stage failed: %v", err)
	}
	if resp.Escalated || resp.EscalationLevel != 0 {
		t.Fatalf("expected escalation cleared, got escalated=%v level=%d", resp.Escalated, resp.EscalationLevel)
	}
}

func TestUpdateStageTerminalClearsSLA(t *testing.T) {
	mem := repository.NewMemory()
	svc, _ := newTestService(mem)
	lead := seedLead(mem, domain.StageNegotiating)

	resp, err := svc.UpdateStage(context.Background(), lead.ID, transport.UpdateStageRequest{Stage: "won"})
	if err != nil {
		t.Fatalf("update stage failed: %v", err)
	}
	if resp.StageSLADueAt != nil {
		t.Fatal("terminal stage must carry no SLA deadline")
	}
	if resp.Status != domain.LegacyWon {
		t.Fatalf("expected status won, got %s", resp.Status)
	}
}

func TestUpdateStageInvalidTransition(t *testing.T) {
	mem := repository.NewMemory()
	svc, _ := newTestService(mem)
	lead := seedLead(mem, domain.StageNew)

	_, err := svc.UpdateStage(context.Background(), lead.ID, transport.UpdateStageRequest{Stage: "won"})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
	if apperr.GetCode(err) != domain.CodeInvalidStageTransition {
		t.Fatalf("expected INVALID_STAGE_TRANSITION code, got %q", apperr.GetCode(err))
	}
}

func TestUpdateStageUnknownStageValue(t *testing.T) {
	mem := repository.NewMemory()
	svc, _ := newTestService(mem)
	lead := seedLead(mem, domain.StageNew)

	_, err := svc.UpdateStage(context.Background(), lead.ID, transport.UpdateStageRequest{Stage: "paused"})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for unknown stage, got %v", err)
	}
}

func TestUpdateStageNotFound(t *testing.T) {
	mem := repository.NewMemory()
	svc, _ := newTestService(mem)

	_, err := svc.UpdateStage(context.Background(), uuid.New(), transport.UpdateStageRequest{Stage: "contacted"})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	mem := repository.NewMemory()
	svc, _ := newTestService(mem)

	for i := 0; i < 7; i++ {
		seedLead(mem, domain.StageNew)
	}

	resp, err := svc.List(context.Background(), transport.ListLeadsRequest{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if resp.Total != 7 {
		t.Fatalf("expected total 7, got %d", resp.Total)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("expected 3 items on page 2, got %d", len(resp.Items))
	}
	if resp.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", resp.TotalPages)
	}
}

func TestListFilterByStage(t *testing.T) {
	mem := repository.NewMemory()
	svc, _ := newTestService(mem)

	seedLead(mem, domain.StageNew)
	seedLead(mem, domain.StageWon)

	resp, err := svc.List(context.Background(), transport.ListLeadsRequest{Stage: "won"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Stage != "won" {
		t.Fatalf("expected single won lead, got %v", resp.Items)
	}
}
