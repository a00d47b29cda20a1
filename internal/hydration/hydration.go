// Package hydration mirrors every peer workspace folder from a
// SyncContext's fetched remote tree into the local .metis/<prefix>/
// directories, leaving the owned workspace's hierarchical layout
// untouched.
package hydration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// reservedNames are top-level .metis/ children that are never treated
// as hydrated peer workspaces, whether or not they happen to match a
// remote workspace folder name.
var reservedNames = map[string]bool{
	"archived":                true,
	"strategies":              true,
	"adrs":                    true,
	"backlog":                 true,
	"templates":               true,
	"code-index.md":           true,
	"code-index-hashes.json":  true,
	"code-index-symbols.json": true,
	"config.toml":             true,
	"metis.db":                true,
	"metis.db-journal":        true,
	"metis.db-wal":            true,
	"metis.db-shm":            true,
	".gitignore":              true,
	".index-dirty":            true,
}

const gitignoreBanner = "# Hydrated remote workspaces"

// FetchedTree is the subset of SyncContext's read surface hydration
// needs. Defined here so hydration depends only on an interface, not
// on the metisgit package's concrete type.
type FetchedTree interface {
	ListWorkspaceFolders() ([]string, error)
	ListWorkspaceFiles(prefix string) ([]metisdoc.FileEntry, error)
}

// Result reports what a single Hydrate call did.
type Result struct {
	HydratedWorkspaces []string
	FilesWritten       int
	FilesRemoved       int
	FoldersRemoved     int
	Errors             []WorkspaceError
}

// WorkspaceError records a non-fatal per-workspace failure. Hydration
// continues with the remaining peer workspaces when one fails.
type WorkspaceError struct {
	Prefix  string
	Message string
}

// Hydrate mirrors every workspace folder in ctx's fetched tree, except
// ownedPrefix, into metisDir. Hydrate does not check whether ctx has a
// fetched head: an empty folder list is treated as a central tree with
// no workspaces, so stale flat folders are still removed. The sync
// orchestrator skips Hydrate when the fetch found no head.
func Hydrate(ctx FetchedTree, metisDir, ownedPrefix string, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[hydration] ", log.LstdFlags)
	}

	folders, err := ctx.ListWorkspaceFolders()
	if err != nil {
		return Result{}, fmt.Errorf("list workspace folders: %w", err)
	}

	var result Result
	centralTop := map[string]bool{}
	for _, f := range folders {
		centralTop[f] = true
	}

	for _, prefix := range folders {
		if prefix == ownedPrefix {
			continue
		}
		written, removed, err := hydrateWorkspace(ctx, metisDir, prefix)
		if err != nil {
			result.Errors = append(result.Errors, WorkspaceError{Prefix: prefix, Message: err.Error()})
			logger.Printf("hydration error for %s: %v", prefix, err)
			continue
		}
		result.HydratedWorkspaces = append(result.HydratedWorkspaces, prefix)
		result.FilesWritten += written
		result.FilesRemoved += removed
	}

	removedFolders, err := removeStaleWorkspaceFolders(metisDir, ownedPrefix, centralTop)
	if err != nil {
		logger.Printf("stale folder cleanup error: %v", err)
	}
	result.FoldersRemoved = removedFolders

	if len(result.HydratedWorkspaces) > 0 {
		if err := updateGitignore(metisDir, result.HydratedWorkspaces); err != nil {
			logger.Printf("gitignore update error: %v", err)
		}
	}

	sort.Strings(result.HydratedWorkspaces)
	logger.Printf("hydrated %d workspace(s): %d file(s) written, %d removed, %d stale folder(s) removed",
		len(result.HydratedWorkspaces), result.FilesWritten, result.FilesRemoved, result.FoldersRemoved)
	return result, nil
}

func hydrateWorkspace(ctx FetchedTree, metisDir, prefix string) (written, removed int, err error) {
	dir := filepath.Join(metisDir, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("create workspace dir: %w", err)
	}

	files, err := ctx.ListWorkspaceFiles(prefix)
	if err != nil {
		return 0, 0, fmt.Errorf("list workspace files: %w", err)
	}

	central := map[string]bool{}
	for _, f := range files {
		name := filepath.Base(f.Path)
		central[name] = true
		if existing, err := os.ReadFile(filepath.Join(dir, name)); err == nil && string(existing) == string(f.Content) {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), f.Content, 0o644); err != nil {
			return written, removed, fmt.Errorf("write %s: %w", name, err)
		}
		written++
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return written, removed, fmt.Errorf("read workspace dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if central[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return written, removed, fmt.Errorf("remove stale file %s: %w", entry.Name(), err)
		}
		removed++
	}

	return written, removed, nil
}

// removeStaleWorkspaceFolders deletes direct children of metisDir that
// are no longer present at the remote, are not the owned prefix, not
// reserved, not hidden, and are "flat" — contain only .md files (or
// are empty). The flat check prevents deleting directories shaped
// like the owned hierarchical layout.
func removeStaleWorkspaceFolders(metisDir, ownedPrefix string, centralTop map[string]bool) (int, error) {
	entries, err := os.ReadDir(metisDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read metis dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			continue
		}
		if name == ownedPrefix || reservedNames[name] || strings.HasPrefix(name, ".") {
			continue
		}
		if centralTop[name] {
			continue
		}
		path := filepath.Join(metisDir, name)
		flat, err := isHydratedWorkspace(path)
		if err != nil {
			return removed, fmt.Errorf("inspect %s: %w", name, err)
		}
		if !flat {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("remove stale folder %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// isHydratedWorkspace reports whether dir contains only .md files (or
// is empty) — i.e. is safe to delete as derived hydration state.
func isHydratedWorkspace(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return false, nil
		}
		if !strings.HasSuffix(entry.Name(), ".md") {
			return false, nil
		}
	}
	return true, nil
}

// updateGitignore appends "<prefix>/" entries for every newly hydrated
// prefix under a "# Hydrated remote workspaces" banner, creating the
// file if absent. Existing content and entries are preserved;
// duplicates are suppressed. Idempotent across repeated calls.
func updateGitignore(metisDir string, prefixes []string) error {
	path := filepath.Join(metisDir, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read .gitignore: %w", err)
	}

	lines := []string{}
	present := map[string]bool{}
	if len(existing) > 0 {
		for _, line := range strings.Split(string(existing), "\n") {
			lines = append(lines, line)
			present[strings.TrimSpace(line)] = true
		}
	}

	var toAdd []string
	for _, prefix := range prefixes {
		entry := prefix + "/"
		if !present[entry] {
			toAdd = append(toAdd, entry)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}

	if !present[gitignoreBanner] {
		lines = append(lines, gitignoreBanner)
	}
	lines = append(lines, toAdd...)

	content := strings.Join(lines, "\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
