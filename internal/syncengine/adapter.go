// Package syncengine composes SyncContext, hydration, and dehydration
// into the sync orchestrator's fetch -> hydrate -> dehydrate -> push
// cycle, and owns the full-cycle retry loop on push rejection.
package syncengine

import (
	"log"

	"github.com/steveyegge/metis/internal/metisdoc"
	"github.com/steveyegge/metis/internal/metisgit"
)

// ctxAdapter narrows *metisgit.SyncContext to the plain-string-commit
// interfaces that hydration and dehydration depend on, keeping
// go-git's plumbing.Hash type out of those packages' contracts.
type ctxAdapter struct {
	ctx *metisgit.SyncContext
}

func newCtxAdapter(ctx *metisgit.SyncContext) *ctxAdapter {
	return &ctxAdapter{ctx: ctx}
}

func (a *ctxAdapter) ListWorkspaceFolders() ([]string, error) {
	return a.ctx.ListWorkspaceFolders()
}

func (a *ctxAdapter) ListWorkspaceFiles(prefix string) ([]metisdoc.FileEntry, error) {
	return a.ctx.ListWorkspaceFiles(prefix)
}

func (a *ctxAdapter) ReadBlob(commitHash, path string) ([]byte, error) {
	return a.ctx.ReadBlob(commitHash, path)
}

func (a *ctxAdapter) CommitUpdate(files []metisdoc.FileEntry, removals []string, message string) (string, error) {
	hash, err := a.ctx.CommitUpdate(files, removals, message)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (a *ctxAdapter) Push() error {
	return a.ctx.Push()
}

func (a *ctxAdapter) HasFetchedHead() bool {
	_, ok := a.ctx.FetchedHead()
	return ok
}

// openContext is a package-level var so tests can substitute a fake
// without touching real git/network state.
var openContext = func(remoteURL, prefix string, logger *log.Logger) (*metisgit.SyncContext, error) {
	return metisgit.Open(remoteURL, prefix, logger)
}
