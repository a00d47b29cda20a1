// Package transition implements the per-document-type phase lifecycle
// state machine: "advance to next phase" and "transition to an
// explicit target phase", both validated against a per-type edge
// table.
package transition

import (
	"github.com/steveyegge/metis/internal/metisdoc"
)

// edges is the full, bidirectional-where-applicable transition table.
// It is consulted by explicit-target transitions directly. "Advance"
// uses the separate nextPhase table below, because a handful of edges
// (Vision Published->Review, Strategy/Initiative/ADR backward edges)
// are valid explicit targets but are not reachable by forward advance.
var edges = map[metisdoc.DocumentType]map[metisdoc.Phase][]metisdoc.Phase{
	metisdoc.Vision: {
		"Draft":     {"Review"},
		"Review":    {"Draft", "Published"},
		"Published": {"Review"},
	},
	metisdoc.Strategy: {
		"Shaping":   {"Design"},
		"Design":    {"Shaping", "Ready"},
		"Ready":     {"Design", "Active"},
		"Active":    {"Ready", "Completed"},
		"Completed": {},
	},
	metisdoc.Initiative: {
		"Discovery": {"Design"},
		"Design":    {"Discovery", "Ready"},
		"Ready":     {"Design", "Decompose"},
		"Decompose": {"Ready", "Active"},
		"Active":    {"Decompose", "Completed"},
		"Completed": {},
	},
	metisdoc.Task: {
		"Backlog":   {"Todo"},
		"Todo":      {"Active", "Blocked"},
		"Active":    {"Todo", "Completed", "Blocked"},
		"Blocked":   {"Todo", "Active"},
		"Completed": {},
	},
	metisdoc.ADR: {
		"Draft":      {"Discussion"},
		"Discussion": {"Draft", "Decided"},
		"Decided":    {},
	},
}

// nextPhase is the single forward step used by the "advance" operation.
// Terminal entries (mapped to "") produce InvalidPhaseTransition.
var nextPhase = map[metisdoc.DocumentType]map[metisdoc.Phase]metisdoc.Phase{
	metisdoc.Vision: {
		"Draft":     "Review",
		"Review":    "Published",
		"Published": "",
	},
	metisdoc.Strategy: {
		"Shaping":   "Design",
		"Design":    "Ready",
		"Ready":     "Active",
		"Active":    "Completed",
		"Completed": "",
	},
	metisdoc.Initiative: {
		"Discovery": "Design",
		"Design":    "Ready",
		"Ready":     "Decompose",
		"Decompose": "Active",
		"Active":    "Completed",
		"Completed": "",
	},
	metisdoc.Task: {
		"Backlog":   "Todo",
		"Todo":      "Active",
		"Active":    "Completed",
		"Blocked":   "Active",
		"Completed": "",
	},
	metisdoc.ADR: {
		"Draft":      "Discussion",
		"Discussion": "Decided",
		"Decided":    "",
	},
}

// ValidTransitions returns the set of phases reachable from phase by
// an explicit-target transition for the given document type. The
// returned slice is nil for an unrecognized (from, docType) pair.
func ValidTransitions(docType metisdoc.DocumentType, phase metisdoc.Phase) []metisdoc.Phase {
	table, ok := edges[docType]
	if !ok {
		return nil
	}
	return table[phase]
}

// IsValidTransition reports whether (docType, from, to) is a member of
// the allowed edge set.
func IsValidTransition(docType metisdoc.DocumentType, from, to metisdoc.Phase) bool {
	for _, candidate := range ValidTransitions(docType, from) {
		if candidate == to {
			return true
		}
	}
	return false
}

// Transition validates and returns the target phase for an
// explicit-target transition. If force is true, validation is skipped
// but the target phase must still be a phase that appears somewhere
// in the document type's edge table (a syntactically valid phase).
func Transition(docType metisdoc.DocumentType, from, to metisdoc.Phase, force bool) (metisdoc.Phase, error) {
	if force {
		if !isKnownPhase(docType, to) {
			return "", &metisdoc.InvalidPhaseTransitionError{DocType: docType, From: from, To: to}
		}
		return to, nil
	}
	if !IsValidTransition(docType, from, to) {
		return "", &metisdoc.InvalidPhaseTransitionError{DocType: docType, From: from, To: to}
	}
	return to, nil
}

// Advance computes the single forward step from phase for the given
// document type. Terminal states (including dead-end-only states like
// Vision's Published) return InvalidPhaseTransitionError with To set
// to the empty phase.
func Advance(docType metisdoc.DocumentType, from metisdoc.Phase) (metisdoc.Phase, error) {
	table, ok := nextPhase[docType]
	if !ok {
		return "", &metisdoc.InvalidPhaseTransitionError{DocType: docType, From: from, To: ""}
	}
	next, ok := table[from]
	if !ok || next == "" {
		return "", &metisdoc.InvalidPhaseTransitionError{DocType: docType, From: from, To: ""}
	}
	return next, nil
}

func isKnownPhase(docType metisdoc.DocumentType, phase metisdoc.Phase) bool {
	table, ok := edges[docType]
	if !ok {
		return false
	}
	if _, ok := table[phase]; ok {
		return true
	}
	for _, targets := range table {
		for _, t := range targets {
			if t == phase {
				return true
			}
		}
	}
	return false
}
