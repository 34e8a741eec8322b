// Package events provides domain event definitions for decoupled
// communication between modules. Infrastructure (Bus, Handler) lives in
// platform/events.
package events

import (
	"time"

	"realty_leads_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// LeadCreated is published when ingestion stores a brand-new lead.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	LeadType   string    `json:"leadType"`
	Source     string    `json:"source"`
	BuyerName  string    `json:"buyerName"`
	BuyerEmail string    `json:"buyerEmail"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadDuplicateMerged is published when an incoming submission was folded
// into an existing open lead instead of creating a new record.
type LeadDuplicateMerged struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	DuplicateCount int       `json:"duplicateCount"`
	BuyerEmail     string    `json:"buyerEmail"`
}

func (e LeadDuplicateMerged) EventName() string { return "leads.lead.duplicate_merged" }

// LeadAssigned is published after the assignment engine picks a candidate.
type LeadAssigned struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	BuyerName     string    `json:"buyerName"`
	AssigneeUID   uuid.UUID `json:"assigneeUid"`
	AssigneeName  string    `json:"assigneeName"`
	AssigneeEmail string    `json:"assigneeEmail"`
	AssigneeRole  string    `json:"assigneeRole"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStageChanged is published on every successful stage transition.
type LeadStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	FromStage string     `json:"fromStage"`
	ToStage   string     `json:"toStage"`
	Reason    string     `json:"reason,omitempty"`
	SLADueAt  *time.Time `json:"slaDueAt,omitempty"`
}

func (e LeadStageChanged) EventName() string { return "leads.lead.stage_changed" }

// LeadEscalated is published when the SLA sweep raises a lead's escalation
// level.
type LeadEscalated struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	BuyerName       string     `json:"buyerName"`
	Stage           string     `json:"stage"`
	EscalationLevel int        `json:"escalationLevel"`
	SLADueAt        *time.Time `json:"slaDueAt,omitempty"`
	AssigneeEmail   string     `json:"assigneeEmail,omitempty"`
}

func (e LeadEscalated) EventName() string { return "leads.lead.escalated" }
