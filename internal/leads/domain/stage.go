// Package domain provides core business rules for the leads bounded context.
// It is pure: no I/O, no clock beyond the timestamps callers pass in.
package domain

import (
	"time"

	"realty_leads_backend/platform/apperr"
)

// Stage is a lead's position in the lifecycle.
type Stage string

const (
	StageNew         Stage = "new"
	StageAssigned    Stage = "assigned"
	StageContacted   Stage = "contacted"
	StageQualified   Stage = "qualified"
	StageNegotiating Stage = "negotiating"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
	StageArchived    Stage = "archived"
)

// Legacy status values, a coarser 5-value projection of Stage kept for
// backward-compatible consumers. Never a second source of truth: always
// derived from the stage on write.
const (
	LegacyUnassigned = "unassigned"
	LegacyAssigned   = "assigned"
	LegacyContacted  = "contacted"
	LegacyWon        = "won"
	LegacyLost       = "lost"
)

// Error codes carried on stage validation failures.
const (
	CodeInvalidStage           = "INVALID_STAGE"
	CodeInvalidStageTransition = "INVALID_STAGE_TRANSITION"
)

// AllStages lists every stage in creation order.
var AllStages = []Stage{
	StageNew,
	StageAssigned,
	StageContacted,
	StageQualified,
	StageNegotiating,
	StageWon,
	StageLost,
	StageArchived,
}

// allowedTransitions holds the directed edges of the lifecycle. A
// self-transition is always legal and is not listed.
var allowedTransitions = map[Stage][]Stage{
	StageNew:         {StageAssigned, StageLost, StageArchived},
	StageAssigned:    {StageContacted, StageLost, StageArchived},
	StageContacted:   {StageQualified, StageLost, StageArchived},
	StageQualified:   {StageNegotiating, StageLost, StageArchived},
	StageNegotiating: {StageWon, StageLost, StageArchived},
	StageWon:         {StageArchived},
	StageLost:        {StageArchived},
	StageArchived:    {},
}

// terminalStages are stages where no further business activity is expected.
// Terminal leads are excluded from duplicate matching.
var terminalStages = map[Stage]bool{
	StageWon:      true,
	StageLost:     true,
	StageArchived: true,
}

// legacyToStage maps the 5-value legacy status back to a stage for records
// written before stages existed.
var legacyToStage = map[string]Stage{
	LegacyUnassigned: StageNew,
	LegacyAssigned:   StageAssigned,
	LegacyContacted:  StageContacted,
	LegacyWon:        StageWon,
	LegacyLost:       StageLost,
}

// slaHours defines how many hours a lead may sit in a stage before the next
// business action is overdue. Zero means the stage carries no deadline.
var slaHours = map[Stage]int{
	StageNew:         1,
	StageAssigned:    2,
	StageContacted:   24,
	StageQualified:   48,
	StageNegotiating: 72,
	StageWon:         0,
	StageLost:        0,
	StageArchived:    0,
}

// IsKnownStage reports whether value is one of the eight defined stages.
func IsKnownStage(value string) bool {
	_, ok := slaHours[Stage(value)]
	return ok
}

// IsTerminal reports whether the stage is terminal (won, lost, archived).
func IsTerminal(stage Stage) bool {
	return terminalStages[stage]
}

// LegacyStatus projects a stage onto the legacy 5-value status. The mapping
// is intentionally lossy: qualified and negotiating both project to
// "contacted".
func LegacyStatus(stage Stage) string {
	switch stage {
	case StageNew:
		return LegacyUnassigned
	case StageAssigned:
		return LegacyAssigned
	case StageContacted, StageQualified, StageNegotiating:
		return LegacyContacted
	case StageWon:
		return LegacyWon
	default:
		return LegacyLost
	}
}

// OpenLegacyStatuses are the legacy statuses under which a lead may still
// receive duplicate merges. Used as a coarse prefilter; the stage-level
// terminal check remains authoritative.
func OpenLegacyStatuses() []string {
	return []string{LegacyUnassigned, LegacyAssigned, LegacyContacted}
}

// NormalizeStage coerces an arbitrary stored value to a valid stage. It
// returns value when it is a recognized stage, otherwise maps
// fallbackLegacyStatus to its stage, otherwise defaults to StageNew.
// It never fails.
func NormalizeStage(value string, fallbackLegacyStatus string) Stage {
	if IsKnownStage(value) {
		return Stage(value)
	}
	if stage, ok := legacyToStage[fallbackLegacyStatus]; ok {
		return stage
	}
	return StageNew
}

// ValidateTransition checks that moving a lead from current to next follows
// an allowed edge. A self-transition is always legal. Returns a typed error
// carrying CodeInvalidStage when next is not a recognized stage, or
// CodeInvalidStageTransition when the edge is not allowed.
func ValidateTransition(current, next Stage) error {
	if !IsKnownStage(string(next)) {
		return apperr.BadRequest("unknown lead stage: " + string(next)).
			WithCode(CodeInvalidStage).
			WithDetails(map[string]string{"currentStage": string(current), "nextStage": string(next)})
	}
	if current == next {
		return nil
	}
	for _, allowed := range allowedTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return apperr.BadRequest("transition " + string(current) + " -> " + string(next) + " is not allowed").
		WithCode(CodeInvalidStageTransition).
		WithDetails(map[string]string{"currentStage": string(current), "nextStage": string(next)})
}

// SLADueAt computes the deadline for the stage entered at from. It returns
// nil for stages with no SLA (the terminal stages).
func SLADueAt(stage Stage, from time.Time) *time.Time {
	hours := slaHours[stage]
	if hours == 0 {
		return nil
	}
	due := from.Add(time.Duration(hours) * time.Hour)
	return &due
}
