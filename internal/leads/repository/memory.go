package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Activity mirrors a lead_activity row for in-memory inspection.
type Activity struct {
	LeadID uuid.UUID
	Type   string
	Action string
	Meta   map[string]interface{}
}

// Memory is an in-process implementation of the repository interfaces,
// used by service tests. Behavior tracks the SQL implementation: status is
// derived from stage on every write, and SetStage resets escalation.
type Memory struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]Lead
	counter    *uuid.UUID
	activities []Activity

	// Err, when set, is returned by every store operation. Tests use it to
	// simulate an unavailable backend.
	Err error
}

func NewMemory() *Memory {
	return &Memory{leads: make(map[uuid.UUID]Lead)}
}

func (m *Memory) GetByID(_ context.Context, id uuid.UUID) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Lead{}, m.Err
	}
	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

func (m *Memory) List(_ context.Context, params ListParams) ([]Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}

	matched := make([]Lead, 0)
	for _, lead := range m.leads {
		if params.Stage != "" && string(lead.Stage) != params.Stage {
			continue
		}
		if params.Status != "" && lead.Status != params.Status {
			continue
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			phone := ""
			if lead.BuyerPhone != nil {
				phone = *lead.BuyerPhone
			}
			if !strings.Contains(strings.ToLower(lead.BuyerName), needle) &&
				!strings.Contains(strings.ToLower(lead.BuyerEmail), needle) &&
				!strings.Contains(strings.ToLower(phone), needle) {
				continue
			}
		}
		matched = append(matched, lead)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if params.Offset >= len(matched) {
		return []Lead{}, total, nil
	}
	matched = matched[params.Offset:]
	if params.Limit > 0 && params.Limit < len(matched) {
		matched = matched[:params.Limit]
	}
	return matched, total, nil
}

func (m *Memory) FindOpenByEmailOrPhone(_ context.Context, email, phoneDigits string, statusIn []string) ([]Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	allowed := make(map[string]bool, len(statusIn))
	for _, status := range statusIn {
		allowed[status] = true
	}

	matched := make([]Lead, 0)
	for _, lead := range m.leads {
		if !allowed[lead.Status] {
			continue
		}
		emailHit := email != "" && lead.BuyerEmail == email
		phoneHit := phoneDigits != "" && lead.BuyerPhoneNormalized != nil && *lead.BuyerPhoneNormalized == phoneDigits
		if emailHit || phoneHit {
			matched = append(matched, lead)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return touchedAt(matched[i]).After(touchedAt(matched[j]))
	})
	return matched, nil
}

func touchedAt(lead Lead) time.Time {
	if !lead.UpdatedAt.IsZero() {
		return lead.UpdatedAt
	}
	return lead.CreatedAt
}

func (m *Memory) Create(_ context.Context, params CreateLeadParams) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Lead{}, m.Err
	}

	now := time.Now().UTC()
	reason := params.StageChangeReason
	lead := Lead{
		ID:                   uuid.New(),
		Type:                 params.Type,
		Source:               params.Source,
		SourceID:             params.SourceID,
		BuyerName:            params.BuyerName,
		BuyerEmail:           params.BuyerEmail,
		BuyerPhone:           params.BuyerPhone,
		BuyerPhoneNormalized: params.BuyerPhoneNormalized,
		Message:              params.Message,
		Stage:                params.Stage,
		Status:               domain.LegacyStatus(params.Stage),
		StageChangedAt:       now,
		StageChangeReason:    &reason,
		StageSLADueAt:        params.StageSLADueAt,
		Payload:              params.Payload,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	m.leads[lead.ID] = lead
	return lead, nil
}

func (m *Memory) MergeDuplicate(_ context.Context, id uuid.UUID, at time.Time) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Lead{}, m.Err
	}

	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	lead.DuplicateCount++
	lead.LastDuplicateAt = &at
	lead.UpdatedAt = at
	m.leads[id] = lead
	return lead, nil
}

func (m *Memory) SetAssignment(_ context.Context, id uuid.UUID, assignee Assignee, at time.Time) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Lead{}, m.Err
	}

	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}

	stage := domain.StageAssigned
	reason := "lead_assigned"
	lead.Stage = stage
	lead.Status = domain.LegacyStatus(stage)
	lead.AssignedTo = &assignee
	lead.AssignedAt = &at
	lead.StageChangedAt = at
	lead.StageChangeReason = &reason
	lead.StageSLADueAt = domain.SLADueAt(stage, at)
	lead.UpdatedAt = at
	m.leads[id] = lead
	return lead, nil
}

func (m *Memory) SetStage(_ context.Context, id uuid.UUID, params SetStageParams) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Lead{}, m.Err
	}

	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}

	reason := params.Reason
	lead.Stage = params.Stage
	lead.Status = domain.LegacyStatus(params.Stage)
	lead.StageChangedAt = params.ChangedAt
	lead.StageChangeReason = &reason
	lead.StageSLADueAt = params.SLADueAt
	lead.Escalated = false
	lead.EscalationLevel = 0
	lead.UpdatedAt = params.ChangedAt
	m.leads[id] = lead
	return lead, nil
}

func (m *Memory) ListOverdue(_ context.Context, before time.Time, maxLevel int, limit int) ([]Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	overdue := make([]Lead, 0)
	for _, lead := range m.leads {
		if lead.StageSLADueAt == nil || !lead.StageSLADueAt.Before(before) {
			continue
		}
		if lead.EscalationLevel >= maxLevel {
			continue
		}
		overdue = append(overdue, lead)
	}

	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].StageSLADueAt.Before(*overdue[j].StageSLADueAt)
	})
	if limit > 0 && limit < len(overdue) {
		overdue = overdue[:limit]
	}
	return overdue, nil
}

func (m *Memory) SetEscalation(_ context.Context, id uuid.UUID, level int, at time.Time) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Lead{}, m.Err
	}

	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	lead.Escalated = true
	lead.EscalationLevel = level
	lead.UpdatedAt = at
	m.leads[id] = lead
	return lead, nil
}

func (m *Memory) GetAssignmentCounter(_ context.Context) (*uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.counter == nil {
		return nil, nil
	}
	value := *m.counter
	return &value, nil
}

func (m *Memory) SetAssignmentCounter(_ context.Context, lastAssignedUID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.counter = &lastAssignedUID
	return nil
}

func (m *Memory) AddActivity(_ context.Context, leadID uuid.UUID, activityType, action string, meta map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.activities = append(m.activities, Activity{LeadID: leadID, Type: activityType, Action: action, Meta: meta})
	return nil
}

// Activities returns a copy of the recorded audit entries.
func (m *Memory) Activities() []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Activity, len(m.activities))
	copy(out, m.activities)
	return out
}

// Put stores a lead verbatim, for test setup.
func (m *Memory) Put(lead Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[lead.ID] = lead
}
