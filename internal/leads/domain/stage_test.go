package domain

import (
	"testing"
	"time"

	"realty_leads_backend/platform/apperr"
)

// allowedPairs enumerates every legal non-self transition. Everything else
// over the 8x8 stage grid must be rejected.
var allowedPairs = map[Stage][]Stage{
	StageNew:         {StageAssigned, StageLost, StageArchived},
	StageAssigned:    {StageContacted, StageLost, StageArchived},
	StageContacted:   {StageQualified, StageLost, StageArchived},
	StageQualified:   {StageNegotiating, StageLost, StageArchived},
	StageNegotiating: {StageWon, StageLost, StageArchived},
	StageWon:         {StageArchived},
	StageLost:        {StageArchived},
	StageArchived:    {},
}

func isAllowedPair(from, to Stage) bool {
	if from == to {
		return true
	}
	for _, allowed := range allowedPairs[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func TestValidateTransitionClosure(t *testing.T) {
	for _, from := range AllStages {
		for _, to := range AllStages {
			err := ValidateTransition(from, to)
			if isAllowedPair(from, to) {
				if err != nil {
					t.Errorf("ValidateTransition(%s, %s) = %v, want nil", from, to, err)
				}
				continue
			}
			if err == nil {
				t.Errorf("ValidateTransition(%s, %s) = nil, want error", from, to)
				continue
			}
			if code := apperr.GetCode(err); code != CodeInvalidStageTransition {
				t.Errorf("ValidateTransition(%s, %s) code = %q, want %q", from, to, code, CodeInvalidStageTransition)
			}
		}
	}
}

func TestValidateTransitionUnknownStage(t *testing.T) {
	err := ValidateTransition(StageNew, Stage("bogus"))
	if err == nil {
		t.Fatal("expected error for unknown stage")
	}
	if code := apperr.GetCode(err); code != CodeInvalidStage {
		t.Errorf("code = %q, want %q", code, CodeInvalidStage)
	}
}

func TestArchivedIsAbsorbing(t *testing.T) {
	for _, to := range AllStages {
		err := ValidateTransition(StageArchived, to)
		if to == StageArchived {
			if err != nil {
				t.Errorf("archived self-loop rejected: %v", err)
			}
			continue
		}
		if err == nil {
			t.Errorf("ValidateTransition(archived, %s) = nil, want error", to)
		}
	}
}

func TestLegacyStatusTotality(t *testing.T) {
	legal := map[string]bool{
		LegacyUnassigned: true,
		LegacyAssigned:   true,
		LegacyContacted:  true,
		LegacyWon:        true,
		LegacyLost:       true,
	}
	for _, stage := range AllStages {
		status := LegacyStatus(stage)
		if !legal[status] {
			t.Errorf("LegacyStatus(%s) = %q, not one of the 5 legacy values", stage, status)
		}
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	// The 5 canonical stages survive a stage -> legacy -> stage round trip.
	canonical := []Stage{StageNew, StageAssigned, StageContacted, StageWon, StageLost}
	for _, stage := range canonical {
		got := NormalizeStage("", LegacyStatus(stage))
		if got != stage {
			t.Errorf("round trip of %s via legacy status gave %s", stage, got)
		}
	}

	// qualified and negotiating intentionally collapse to contacted: the
	// projection is lossy, not broken.
	for _, stage := range []Stage{StageQualified, StageNegotiating} {
		status := LegacyStatus(stage)
		if status != LegacyContacted {
			t.Errorf("LegacyStatus(%s) = %q, want %q", stage, status, LegacyContacted)
		}
		if got := NormalizeStage("", status); got != StageContacted {
			t.Errorf("NormalizeStage via legacy of %s gave %s, want contacted", stage, got)
		}
	}

	// archived also projects to lost; it does not round trip either.
	if got := LegacyStatus(StageArchived); got != LegacyLost {
		t.Errorf("LegacyStatus(archived) = %q, want %q", got, LegacyLost)
	}
}

func TestNormalizeStage(t *testing.T) {
	tests := []struct {
		value    string
		fallback string
		want     Stage
	}{
		{"negotiating", "", StageNegotiating},
		{"archived", "unassigned", StageArchived},
		{"", "unassigned", StageNew},
		{"", "assigned", StageAssigned},
		{"", "contacted", StageContacted},
		{"", "won", StageWon},
		{"", "lost", StageLost},
		{"garbage", "garbage", StageNew},
		{"", "", StageNew},
	}

	for _, tc := range tests {
		if got := NormalizeStage(tc.value, tc.fallback); got != tc.want {
			t.Errorf("NormalizeStage(%q, %q) = %s, want %s", tc.value, tc.fallback, got, tc.want)
		}
	}
}

func TestSLADueAt(t *testing.T) {
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	wantHours := map[Stage]int{
		StageNew:         1,
		StageAssigned:    2,
		StageContacted:   24,
		StageQualified:   48,
		StageNegotiating: 72,
	}

	for _, stage := range AllStages {
		due := SLADueAt(stage, from)
		if IsTerminal(stage) {
			if due != nil {
				t.Errorf("SLADueAt(%s) = %v, want nil", stage, due)
			}
			continue
		}
		if due == nil {
			t.Errorf("SLADueAt(%s) = nil, want a deadline", stage)
			continue
		}
		want := from.Add(time.Duration(wantHours[stage]) * time.Hour)
		if !due.Equal(want) {
			t.Errorf("SLADueAt(%s) = %v, want %v", stage, due, want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[Stage]bool{StageWon: true, StageLost: true, StageArchived: true}
	for _, stage := range AllStages {
		if IsTerminal(stage) != terminal[stage] {
			t.Errorf("IsTerminal(%s) = %v, want %v", stage, IsTerminal(stage), terminal[stage])
		}
	}
}
