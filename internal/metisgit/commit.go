package metisgit

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// defaultCommitSignature is used for every commit metisgit creates.
// Sync commits are machine-authored; there is no interactive user
// identity to read from a git config in the transient context.
var defaultCommitSignature = object.Signature{
	Name:  "metis-sync",
	Email: "metis-sync@localhost",
}

// CommitUpdate builds a new tree by applying upserts (files) and
// removals to the fetched HEAD's tree (or the empty tree if the
// remote has no commits), then creates a commit with the fetched HEAD
// as its sole parent. HEAD is left detached at the new commit; no
// branch ref is moved. Every path in files and removals MUST be
// prefixed with "<prefix>/" — this is the sole write-isolation
// mechanism between workspaces.
func (c *SyncContext) CommitUpdate(files []metisdoc.FileEntry, removals []string, message string) (plumbing.Hash, error) {
	if err := ensureOpen(c); err != nil {
		return plumbing.ZeroHash, err
	}

	for _, f := range files {
		if !withinPrefix(f.Path, c.prefix) {
			return plumbing.ZeroHash, &metisdoc.PathOutsideWorkspaceError{Path: f.Path, Prefix: c.prefix}
		}
	}
	for _, p := range removals {
		if !withinPrefix(p, c.prefix) {
			return plumbing.ZeroHash, &metisdoc.PathOutsideWorkspaceError{Path: p, Prefix: c.prefix}
		}
	}

	blobsByPath, err := c.flattenHeadTree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("flatten base tree: %w", err)
	}

	for _, f := range files {
		hash, err := c.writeBlob(f.Content)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("write blob for %s: %w", f.Path, err)
		}
		blobsByPath[f.Path] = hash
	}
	for _, p := range removals {
		delete(blobsByPath, p)
	}

	rootTreeHash, err := c.buildTree(blobsByPath)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("build tree: %w", err)
	}

	var parents []plumbing.Hash
	if c.fetchedHead != nil {
		parents = append(parents, *c.fetchedHead)
	}

	now := time.Now().UTC()
	sig := defaultCommitSignature
	sig.When = now

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     rootTreeHash,
		ParentHashes: parents,
	}

	obj := c.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode commit: %w", err)
	}
	commitHash, err := c.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store commit: %w", err)
	}

	if err := c.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, commitHash)); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("detach head to new commit: %w", err)
	}

	c.logger.Printf("committed %s with %d file(s), %d removal(s) for prefix %s", commitHash, len(files), len(removals), c.prefix)
	return commitHash, nil
}

func withinPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// flattenHeadTree walks the fetched HEAD's tree (or returns an empty
// map for an empty remote) and returns every blob keyed by its full
// path, so CommitUpdate can apply upserts/removals as simple map
// operations before rebuilding the tree structure.
func (c *SyncContext) flattenHeadTree() (map[string]plumbing.Hash, error) {
	result := map[string]plumbing.Hash{}
	if c.fetchedHead == nil {
		return result, nil
	}
	tree, err := c.headTree()
	if err != nil {
		return nil, err
	}
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		result[name] = entry.Hash
	}
	return result, nil
}

func (c *SyncContext) writeBlob(content []byte) (plumbing.Hash, error) {
	obj := c.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return c.repo.Storer.SetEncodedObject(obj)
}

// buildTree reconstructs a tree hierarchy from a flat path->blob-hash
// map and returns the root tree's hash, encoding every intermediate
// subtree object along the way.
func (c *SyncContext) buildTree(blobsByPath map[string]plumbing.Hash) (plumbing.Hash, error) {
	type node struct {
		files    map[string]plumbing.Hash
		children map[string]*node
	}
	newNode := func() *node {
		return &node{files: map[string]plumbing.Hash{}, children: map[string]*node{}}
	}
	root := newNode()

	for path, hash := range blobsByPath {
		parts := strings.Split(path, "/")
		cur := root
		for i, part := range parts {
			if i == len(parts)-1 {
				cur.files[part] = hash
				break
			}
			next, ok := cur.children[part]
			if !ok {
				next = newNode()
				cur.children[part] = next
			}
			cur = next
		}
	}

	var encode func(n *node) (plumbing.Hash, error)
	encode = func(n *node) (plumbing.Hash, error) {
		var entries []object.TreeEntry

		names := make([]string, 0, len(n.files))
		for name := range n.files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: n.files[name]})
		}

		childNames := make([]string, 0, len(n.children))
		for name := range n.children {
			childNames = append(childNames, name)
		}
		sort.Strings(childNames)
		for _, name := range childNames {
			childHash, err := encode(n.children[name])
			if err != nil {
				return plumbing.ZeroHash, err
			}
			entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: childHash})
		}

		tree := &object.Tree{Entries: entries}
		obj := c.repo.Storer.NewEncodedObject()
		obj.SetType(plumbing.TreeObject)
		if err := tree.Encode(obj); err != nil {
			return plumbing.ZeroHash, err
		}
		return c.repo.Storer.SetEncodedObject(obj)
	}

	return encode(root)
}
