package syncengine

import (
	"log"
	"os"

	"github.com/steveyegge/metis/internal/dehydration"
	"github.com/steveyegge/metis/internal/hydration"
	"github.com/steveyegge/metis/internal/metisdoc"
)

// defaultMaxRetries is used when SyncOptions.MaxRetries is zero.
const defaultMaxRetries = 5

// SyncConfig names the remote and the owned workspace for one sync
// call. It is read from .metis/config.toml's [sync] and [workspace]
// sections by internal/config; the orchestrator itself is agnostic to
// where these values came from.
type SyncConfig struct {
	UpstreamURL     string
	WorkspacePrefix string
}

// SyncOptions tunes a single Sync call.
type SyncOptions struct {
	// Force is carried for callers but read by nothing in this
	// package: Sync performs no phase transitions, so setting it does
	// not change what a sync does.
	Force      bool
	MaxRetries int
}

// SyncResult reports the outcome of one Sync or SyncPullOnly call.
type SyncResult struct {
	Hydration       *hydration.Result
	Dehydration     *dehydration.Result
	NewSyncedCommit string
	PushRetries     int
	IsNoop          bool
	Warnings        []string
}

// Sync composes fetch -> hydrate -> dehydrate -> push into one cycle,
// retrying the full cycle (with a fresh SyncContext and a fresh fetch)
// whenever the remote rejects the push as a non-fast-forward or
// lock-contended update. commit_update must never observe a prior
// failed push attempt's state, which is why each retry discards ctx
// entirely rather than reusing it.
func Sync(config SyncConfig, metisDir string, localDocuments []metisdoc.Document, options SyncOptions, logger *log.Logger) (SyncResult, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncengine] ", log.LstdFlags)
	}
	maxRetries := options.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	retries := 0
	for {
		result, err := runCycle(config, metisDir, localDocuments, logger)
		if err == nil {
			result.PushRetries = retries
			return result, nil
		}
		if !metisdoc.IsRetryable(err) {
			return SyncResult{}, err
		}
		if retries >= maxRetries {
			return SyncResult{}, &metisdoc.RetriesExhaustedError{MaxRetries: maxRetries}
		}
		retries++
		logger.Printf("push rejected for prefix %s, retrying full cycle (attempt %d/%d)", config.WorkspacePrefix, retries, maxRetries)
	}
}

// runCycle executes exactly one fetch/hydrate/dehydrate/push cycle
// against a brand-new SyncContext.
func runCycle(config SyncConfig, metisDir string, localDocuments []metisdoc.Document, logger *log.Logger) (SyncResult, error) {
	ctx, err := openContext(config.UpstreamURL, config.WorkspacePrefix, logger)
	if err != nil {
		return SyncResult{}, err
	}
	defer ctx.Close()

	head, hasHead, err := ctx.Fetch()
	if err != nil {
		return SyncResult{}, err
	}

	var warnings []string
	var hydrationResult *hydration.Result
	if hasHead {
		adapter := newCtxAdapter(ctx)
		r, err := hydration.Hydrate(adapter, metisDir, config.WorkspacePrefix, logger)
		if err != nil {
			return SyncResult{}, err
		}
		for _, werr := range r.Errors {
			warnings = append(warnings, werr.Prefix+": "+werr.Message)
		}
		hydrationResult = &r
	}

	dehydrationResult, err := dehydration.Dehydrate(newCtxAdapter(ctx), localDocuments, config.WorkspacePrefix, logger)
	if err != nil {
		return SyncResult{}, err
	}

	newCommit := dehydrationResult.CommitOID
	if newCommit == "" {
		newCommit = head.String()
	}

	isNoop := (hydrationResult == nil || (hydrationResult.FilesWritten == 0 && hydrationResult.FilesRemoved == 0)) &&
		dehydrationResult.FilesPushed == 0 && dehydrationResult.FilesRemoved == 0

	return SyncResult{
		Hydration:       hydrationResult,
		Dehydration:     &dehydrationResult,
		NewSyncedCommit: newCommit,
		IsNoop:          isNoop,
		Warnings:        warnings,
	}, nil
}

// SyncPullOnly runs fetch and hydrate only. No commit or push occurs,
// and the pull is never retried: there is no push rejection to retry
// against.
func SyncPullOnly(config SyncConfig, metisDir string, logger *log.Logger) (SyncResult, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncengine] ", log.LstdFlags)
	}

	ctx, err := openContext(config.UpstreamURL, config.WorkspacePrefix, logger)
	if err != nil {
		return SyncResult{}, err
	}
	defer ctx.Close()

	head, hasHead, err := ctx.Fetch()
	if err != nil {
		return SyncResult{}, err
	}
	if !hasHead {
		return SyncResult{IsNoop: true}, nil
	}

	adapter := newCtxAdapter(ctx)
	r, err := hydration.Hydrate(adapter, metisDir, config.WorkspacePrefix, logger)
	if err != nil {
		return SyncResult{}, err
	}

	var warnings []string
	for _, werr := range r.Errors {
		warnings = append(warnings, werr.Prefix+": "+werr.Message)
	}

	return SyncResult{
		Hydration:       &r,
		NewSyncedCommit: head.String(),
		IsNoop:          r.FilesWritten == 0 && r.FilesRemoved == 0,
		Warnings:        warnings,
	}, nil
}
