package metisgit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// ReadBlob extracts a file's content from a specific commit's tree.
func (c *SyncContext) ReadBlob(commitHash, path string) ([]byte, error) {
	if err := ensureOpen(c); err != nil {
		return nil, err
	}
	hash, err := c.repo.ResolveRevision(revision(commitHash))
	if err != nil {
		return nil, &metisdoc.CommitNotFoundError{CommitID: commitHash}
	}
	commit, err := c.repo.CommitObject(*hash)
	if err != nil {
		return nil, &metisdoc.CommitNotFoundError{CommitID: commitHash}
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree for commit %s: %w", commitHash, err)
	}
	file, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("read blob %s at %s: %w", path, commitHash, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read blob contents %s: %w", path, err)
	}
	return []byte(contents), nil
}

// ListWorkspaceFolders returns the ordered list of top-level directory
// names in the fetched HEAD's tree. Each name is a workspace prefix.
// Returns an empty slice if no fetch has resolved a head yet.
func (c *SyncContext) ListWorkspaceFolders() ([]string, error) {
	if err := ensureOpen(c); err != nil {
		return nil, err
	}
	tree, err := c.headTree()
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, entry := range tree.Entries {
		if entry.Mode == filemode.Dir {
			folders = append(folders, entry.Name)
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// ListWorkspaceFiles returns the ordered list of (filename, content)
// pairs for every .md blob directly under prefix/ in the fetched
// HEAD's tree. Nested trees and non-.md entries are ignored. Returns
// an empty slice if prefix is absent.
func (c *SyncContext) ListWorkspaceFiles(prefix string) ([]metisdoc.FileEntry, error) {
	if err := ensureOpen(c); err != nil {
		return nil, err
	}
	tree, err := c.headTree()
	if err != nil {
		return nil, err
	}
	sub, err := tree.Tree(prefix)
	if err != nil {
		return nil, nil
	}

	var names []string
	for _, entry := range sub.Entries {
		if entry.Mode == filemode.Dir || !strings.HasSuffix(entry.Name, ".md") {
			continue
		}
		names = append(names, entry.Name)
	}
	sort.Strings(names)

	entries := make([]metisdoc.FileEntry, 0, len(names))
	for _, name := range names {
		file, err := sub.File(name)
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", prefix, name, err)
		}
		contents, err := file.Contents()
		if err != nil {
			return nil, fmt.Errorf("read %s/%s contents: %w", prefix, name, err)
		}
		entries = append(entries, metisdoc.FileEntry{
			Path:    prefix + "/" + name,
			Content: []byte(contents),
		})
	}
	return entries, nil
}

// DiffSince computes the ordered list of changes between priorCommit
// and the fetched HEAD, optionally filtered to a single path prefix.
// A missing priorCommit (empty string) treats every file in HEAD as
// Added. An unresolvable priorCommit fails with CommitNotFoundError.
func (c *SyncContext) DiffSince(priorCommit, pathFilter string) ([]FileChange, error) {
	if err := ensureOpen(c); err != nil {
		return nil, err
	}
	toTree, err := c.headTree()
	if err != nil {
		return nil, err
	}

	var fromTree *object.Tree
	if priorCommit == "" {
		fromTree = &object.Tree{}
	} else {
		hash, err := c.repo.ResolveRevision(revision(priorCommit))
		if err != nil {
			return nil, &metisdoc.CommitNotFoundError{CommitID: priorCommit}
		}
		commit, err := c.repo.CommitObject(*hash)
		if err != nil {
			return nil, &metisdoc.CommitNotFoundError{CommitID: priorCommit}
		}
		fromTree, err = commit.Tree()
		if err != nil {
			return nil, fmt.Errorf("read prior tree: %w", err)
		}
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	var out []FileChange
	for _, change := range changes {
		path := changePath(change)
		if pathFilter != "" && !strings.HasPrefix(path, pathFilter) {
			continue
		}
		kind, ok := classifyChange(change)
		if !ok {
			continue
		}
		out = append(out, FileChange{Path: path, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func changePath(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}

func classifyChange(change *object.Change) (ChangeKind, bool) {
	switch {
	case change.From.Name == "" && change.To.Name != "":
		return Added, true
	case change.From.Name != "" && change.To.Name == "":
		return Deleted, true
	case change.From.Name != "" && change.To.Name != "":
		return Modified, true
	default:
		return "", false
	}
}

func revision(s string) plumbing.Revision {
	return plumbing.Revision(s)
}
