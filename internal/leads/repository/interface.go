package repository

import (
	"context"
	"errors"
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("lead not found")

// Assignee identifies the agent or broker currently responsible for a lead.
type Assignee struct {
	UID   uuid.UUID
	Name  string
	Role  string
	Email string
}

// Lead is the persisted lead record. Status is always the legacy projection
// of Stage; the repository derives it on every stage write so the two
// columns cannot drift.
type Lead struct {
	ID                   uuid.UUID
	Type                 string
	Source               string
	SourceID             *string
	BuyerName            string
	BuyerEmail           string
	BuyerPhone           *string
	BuyerPhoneNormalized *string
	Message              *string
	Stage                domain.Stage
	Status               string
	StageChangedAt       time.Time
	StageChangeReason    *string
	StageSLADueAt        *time.Time
	AssignedTo           *Assignee
	AssignedAt           *time.Time
	Escalated            bool
	EscalationLevel      int
	DuplicateCount       int
	LastDuplicateAt      *time.Time
	Payload              map[string]interface{}
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateLeadParams carries the fields of a freshly ingested lead. Stage,
// status and SLA fields are computed by the ingestion service; timestamps
// are assigned by the store.
type CreateLeadParams struct {
	Type                 string
	Source               string
	SourceID             *string
	BuyerName            string
	BuyerEmail           string
	BuyerPhone           *string
	BuyerPhoneNormalized *string
	Message              *string
	Stage                domain.Stage
	StageChangeReason    string
	StageSLADueAt        *time.Time
	Payload              map[string]interface{}
}

// ListParams filters and pages the lead list.
type ListParams struct {
	Stage     string
	Status    string
	Search    string
	Offset    int
	Limit     int
	SortBy    string
	SortOrder string
}

// SetStageParams carries a validated stage transition.
type SetStageParams struct {
	Stage     domain.Stage
	Reason    string
	SLADueAt  *time.Time
	ChangedAt time.Time
}

// Consumer-driven interfaces. Services declare only the slice of the
// repository they need, so tests can swap in the in-memory store.

// LeadReader provides read access to individual leads and lists.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// DuplicateFinder runs the coarse open-lead prefilter for dedup matching.
// statusIn is the legacy-status superset; callers apply the authoritative
// stage-level terminal check on the result.
type DuplicateFinder interface {
	FindOpenByEmailOrPhone(ctx context.Context, email, phoneDigits string, statusIn []string) ([]Lead, error)
}

// LeadWriter mutates lead records.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	MergeDuplicate(ctx context.Context, id uuid.UUID, at time.Time) (Lead, error)
	SetAssignment(ctx context.Context, id uuid.UUID, assignee Assignee, at time.Time) (Lead, error)
	SetStage(ctx context.Context, id uuid.UUID, params SetStageParams) (Lead, error)
}

// EscalationStore supports the SLA escalation sweep.
type EscalationStore interface {
	ListOverdue(ctx context.Context, before time.Time, maxLevel int, limit int) ([]Lead, error)
	SetEscalation(ctx context.Context, id uuid.UUID, level int, at time.Time) (Lead, error)
}

// CounterStore persists the round-robin assignment cursor. Get returns nil
// when no assignment has happened yet.
type CounterStore interface {
	GetAssignmentCounter(ctx context.Context) (*uuid.UUID, error)
	SetAssignmentCounter(ctx context.Context, lastAssignedUID uuid.UUID) error
}

// ActivityLogger records audit entries. Failures are observability, not
// correctness; callers log and move on.
type ActivityLogger interface {
	AddActivity(ctx context.Context, leadID uuid.UUID, activityType, action string, meta map[string]interface{}) error
}
