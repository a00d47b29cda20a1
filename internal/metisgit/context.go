// Package metisgit implements SyncContext: a transient git working
// area scoped to one sync operation. No .git directory is ever
// created inside the real .metis workspace directory — all git state
// lives in an in-memory repository that is discarded when the context
// is closed.
package metisgit

import (
	"fmt"
	"log"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	_ "github.com/go-git/go-git/v5/plumbing/transport/file"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// ChangeKind classifies a single path's change between two commits, as
// returned by DiffSince.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Deleted  ChangeKind = "deleted"
)

// FileChange is one entry of a DiffSince result.
type FileChange struct {
	Path string
	Kind ChangeKind
}

// SyncContext is a short-lived git working area bound to one remote
// URL and one owned workspace prefix. It is created at the start of a
// sync call and released (Close) at the end; it carries no state
// across sync invocations.
type SyncContext struct {
	remoteURL string
	prefix    string

	repo        *git.Repository
	worktreeFS  billy.Filesystem
	fetchedHead *plumbing.Hash // nil until Fetch resolves one; stays nil forever for an empty remote
	branchName  string

	logger *log.Logger
}

// Open initializes a fresh in-memory git repository, configures
// "origin" to remoteURL, and records the owned workspace prefix. It
// performs no network I/O. It fails with metisdoc.ErrInvalidURL if
// remoteURL is empty.
//
// If logger is nil, a default logger writing to stderr is used,
// matching the convention used throughout this module's ambient
// components.
func Open(remoteURL, workspacePrefix string, logger *log.Logger) (*SyncContext, error) {
	if remoteURL == "" {
		return nil, metisdoc.ErrInvalidURL
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[metisgit] ", log.LstdFlags)
	}

	storer := memory.NewStorage()
	worktreeFS := memfs.New()

	repo, err := git.Init(storer, worktreeFS)
	if err != nil {
		return nil, fmt.Errorf("init transient repo: %w", err)
	}

	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURL},
	}); err != nil {
		return nil, fmt.Errorf("configure origin remote: %w", err)
	}

	return &SyncContext{
		remoteURL:  remoteURL,
		prefix:     workspacePrefix,
		repo:       repo,
		worktreeFS: worktreeFS,
		logger:     logger,
	}, nil
}

// Close releases the transient working area. It is always safe to
// call, and safe to call more than once. There is no persistent state
// to flush: the in-memory repository and worktree are simply dropped.
func (c *SyncContext) Close() error {
	c.repo = nil
	c.worktreeFS = nil
	return nil
}

// Prefix returns the owned workspace prefix this context was opened
// with.
func (c *SyncContext) Prefix() string {
	return c.prefix
}

// FetchedHead returns the resolved remote HEAD commit hash, or
// (plumbing.ZeroHash, false) if the remote has no commits or Fetch
// has not yet been called.
func (c *SyncContext) FetchedHead() (plumbing.Hash, bool) {
	if c.fetchedHead == nil {
		return plumbing.ZeroHash, false
	}
	return *c.fetchedHead, true
}

func (c *SyncContext) headTree() (*object.Tree, error) {
	if c.fetchedHead == nil {
		return &object.Tree{}, nil
	}
	commit, err := c.repo.CommitObject(*c.fetchedHead)
	if err != nil {
		return nil, fmt.Errorf("resolve fetched head commit: %w", err)
	}
	return commit.Tree()
}

// ensureOpen guards call sites that assume an open context.
func ensureOpen(c *SyncContext) error {
	if c == nil || c.repo == nil {
		return fmt.Errorf("sync context is not open")
	}
	return nil
}
