package transition

import (
	"testing"

	"github.com/steveyegge/metis/internal/metisdoc"
)

func TestAdvanceStrategyFullChain(t *testing.T) {
	steps := []metisdoc.Phase{"Design", "Ready", "Active", "Completed"}
	phase := metisdoc.Phase("Shaping")
	for _, want := range steps {
		got, err := Advance(metisdoc.Strategy, phase)
		if err != nil {
			t.Fatalf("advance from %s: %v", phase, err)
		}
		if got != want {
			t.Fatalf("advance from %s = %s, want %s", phase, got, want)
		}
		phase = got
	}

	if _, err := Advance(metisdoc.Strategy, phase); err == nil {
		t.Fatalf("expected advance past Completed to fail")
	}
}

func TestVisionPublishedAdvanceDeadEnd(t *testing.T) {
	if _, err := Advance(metisdoc.Vision, "Published"); err == nil {
		t.Fatalf("expected advance from Published to fail")
	}
}

func TestVisionPublishedToReviewExplicitTargetAllowed(t *testing.T) {
	if !IsValidTransition(metisdoc.Vision, "Published", "Review") {
		t.Fatalf("expected Published -> Review to be a valid explicit-target transition")
	}
	got, err := Transition(metisdoc.Vision, "Published", "Review", false)
	if err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if got != "Review" {
		t.Fatalf("Transition = %s, want Review", got)
	}
}

func TestADRDecidedIsFullyTerminal(t *testing.T) {
	if _, err := Advance(metisdoc.ADR, "Decided"); err == nil {
		t.Fatalf("expected advance from Decided to fail")
	}
	if IsValidTransition(metisdoc.ADR, "Decided", "Discussion") {
		t.Fatalf("expected Decided -> Discussion to be invalid: Decided has no outgoing edges")
	}
}

func TestTaskBacklogIsOneWay(t *testing.T) {
	if IsValidTransition(metisdoc.Task, "Todo", "Backlog") {
		t.Fatalf("expected Todo -> Backlog to be invalid")
	}
	if !IsValidTransition(metisdoc.Task, "Backlog", "Todo") {
		t.Fatalf("expected Backlog -> Todo to be valid")
	}
}

func TestTransitionInvalidRejected(t *testing.T) {
	if _, err := Transition(metisdoc.Strategy, "Shaping", "Active", false); err == nil {
		t.Fatalf("expected Shaping -> Active to be rejected")
	}
}

func TestTransitionForceStillRequiresKnownPhase(t *testing.T) {
	if _, err := Transition(metisdoc.Strategy, "Shaping", "NotAPhase", true); err == nil {
		t.Fatalf("expected force transition to an unknown phase to fail")
	}
	got, err := Transition(metisdoc.Strategy, "Shaping", "Active", true)
	if err != nil {
		t.Fatalf("force transition to known-but-non-adjacent phase should succeed: %v", err)
	}
	if got != "Active" {
		t.Fatalf("Transition = %s, want Active", got)
	}
}

func TestInitiativeFullChain(t *testing.T) {
	phase := metisdoc.Phase("Discovery")
	for _, want := range []metisdoc.Phase{"Design", "Ready", "Decompose", "Active", "Completed"} {
		got, err := Advance(metisdoc.Initiative, phase)
		if err != nil {
			t.Fatalf("advance from %s: %v", phase, err)
		}
		if got != want {
			t.Fatalf("advance from %s = %s, want %s", phase, got, want)
		}
		phase = got
	}
}
