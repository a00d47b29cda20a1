package metisdoc

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by SyncContext, hydration, dehydration, and
// the sync orchestrator. Check them with errors.Is():
//
//	if errors.Is(err, metisdoc.ErrPushRejected) {
//	    // retry the cycle
//	}
var (
	// ErrInvalidURL is returned by SyncContext.Open when the remote
	// URL is empty.
	ErrInvalidURL = errors.New("invalid remote url")

	// ErrAuth is returned when the authentication chain (ssh-agent,
	// key files, credential helper) is exhausted without success.
	ErrAuth = errors.New("authentication failed")

	// ErrFetchFailed is returned for network/protocol failures during
	// fetch that are not authentication failures.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrPushRejected is returned when the remote rejects a push due
	// to non-fast-forward, ref-lock contention, or a concurrent
	// update. Retriable: the orchestrator re-enters the full cycle.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrEmptyRemote names the empty-remote member of the taxonomy. No
	// function in this module returns it: Fetch reports an empty
	// remote as (zero hash, false, nil).
	ErrEmptyRemote = errors.New("remote has no commits")

	// ErrRetriesExhausted is returned by the orchestrator when the
	// first cycle and all max_retries retried cycles have ended in
	// ErrPushRejected.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// PathOutsideWorkspaceError is returned by commit_update when a file
// or removal path is not prefixed by the context's owned workspace
// prefix. It is the sole write-isolation mechanism between workspaces.
type PathOutsideWorkspaceError struct {
	Path   string
	Prefix string
}

func (e *PathOutsideWorkspaceError) Error() string {
	return fmt.Sprintf("path %q is outside workspace prefix %q", e.Path, e.Prefix)
}

// CommitNotFoundError is returned by diff_since when the prior commit
// id is not resolvable in the fetched history.
type CommitNotFoundError struct {
	CommitID string
}

func (e *CommitNotFoundError) Error() string {
	return fmt.Sprintf("commit not found: %s", e.CommitID)
}

// PushFailedError wraps a push failure that is neither an auth failure
// nor classified as a retriable rejection.
type PushFailedError struct {
	Reason string
}

func (e *PushFailedError) Error() string {
	return fmt.Sprintf("push failed: %s", e.Reason)
}

// RetriesExhaustedError carries the configured retry budget that was
// exceeded. errors.Is(err, ErrRetriesExhausted) still matches it.
type RetriesExhaustedError struct {
	MaxRetries int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d retries", e.MaxRetries)
}

func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// InvalidPhaseTransitionError is returned whenever a requested phase
// transition is not a member of the document type's allowed edge set
// (and force was not set).
type InvalidPhaseTransitionError struct {
	DocType DocumentType
	From    Phase
	To      Phase
}

func (e *InvalidPhaseTransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition for %s: %s -> %s", e.DocType, e.From, e.To)
}

// IsRetryable returns true if the error is a push rejection: the
// orchestrator's retry loop, not the caller, is expected to resolve it
// by re-running the full fetch/hydrate/dehydrate/push cycle.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPushRejected)
}

// IsFatal returns true if the error terminates the current sync
// attempt without any retry being useful (auth/network/boundary
// errors).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrFetchFailed) || errors.Is(err, ErrInvalidURL) {
		return true
	}
	var pathErr *PathOutsideWorkspaceError
	var cnfErr *CommitNotFoundError
	return errors.As(err, &pathErr) || errors.As(err, &cnfErr)
}
