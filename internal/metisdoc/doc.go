// Package metisdoc defines the document model shared across the sync,
// hydration, projection, and phase-transition packages: the document
// types, lifecycle phases, and the common error taxonomy they all
// return.
package metisdoc

// DocumentType is the tagged variant over the five kinds of planning
// artifact Metis manages. Per-kind behavior (state-machine edges,
// frontmatter keys, directory layout) is a lookup keyed by this type
// rather than a type hierarchy.
type DocumentType string

const (
	Vision     DocumentType = "vision"
	Strategy   DocumentType = "strategy"
	Initiative DocumentType = "initiative"
	Task       DocumentType = "task"
	ADR        DocumentType = "adr"
)

// Valid reports whether t is one of the five recognized document types.
func (t DocumentType) Valid() bool {
	switch t {
	case Vision, Strategy, Initiative, Task, ADR:
		return true
	default:
		return false
	}
}

// Phase is a document's lifecycle state. The set of valid phases for a
// given phase string depends on the document's DocumentType; see
// internal/transition for the per-type edge tables.
type Phase string

// UnknownPhase is substituted when a document's frontmatter carries no
// tag of the form #phase/<value>.
const UnknownPhase Phase = "unknown"

// Document is a unit of planning content persisted as one markdown
// file, as reconstructed by the projection cache or handed to the
// dehydrator by a caller.
type Document struct {
	ShortCode    string
	DocumentType DocumentType
	Phase        Phase
	Parent       string // short_code of parent, empty if none
	BlockedBy    []string
	Archived     bool
	Workspace    string // prefix of the owning workspace
	Owned        bool   // true iff Workspace == the local owned prefix
	Title        string
	FilePath     string
	Body         string
}

// FileEntry is a path/content pair as exchanged with SyncContext's
// commit_update and read_blob operations.
type FileEntry struct {
	Path    string
	Content []byte
}
