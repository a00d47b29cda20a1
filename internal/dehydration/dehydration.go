// Package dehydration flattens the owned hierarchical workspace into
// a single flat folder under the remote tree and synchronizes central
// with the caller's view of owned-document state.
package dehydration

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// Committer is the subset of SyncContext's write surface dehydration
// needs.
type Committer interface {
	ListWorkspaceFiles(prefix string) ([]metisdoc.FileEntry, error)
	ReadBlob(commitHash, path string) ([]byte, error)
	CommitUpdate(files []metisdoc.FileEntry, removals []string, message string) (commitHash string, err error)
	Push() error
	HasFetchedHead() bool
}

// Result reports the outcome of a single Dehydrate call.
type Result struct {
	CommitOID    string
	FilesPushed  int
	FilesRemoved int
	Pushed       bool
}

// Dehydrate maps documents to flat files under prefix/, diffs them
// against central, and — unless the diff is empty — commits and
// pushes the delta. documents is the caller-supplied authoritative
// flattened list for the owned workspace.
func Dehydrate(ctx Committer, documents []metisdoc.Document, prefix string, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[dehydration] ", log.LstdFlags)
	}

	local := map[string]metisdoc.FileEntry{}
	for _, doc := range documents {
		filename := filenameFor(doc)
		path := prefix + "/" + filename
		local[filename] = metisdoc.FileEntry{Path: path, Content: []byte(doc.Body)}
	}

	central, err := ctx.ListWorkspaceFiles(prefix)
	if err != nil {
		return Result{}, fmt.Errorf("list central workspace files: %w", err)
	}
	centralByName := map[string]metisdoc.FileEntry{}
	for _, f := range central {
		centralByName[filepath.Base(f.Path)] = f
	}

	var removals []string
	for name := range centralByName {
		if _, ok := local[name]; !ok {
			removals = append(removals, prefix+"/"+name)
		}
	}

	if len(removals) == 0 && contentIdentical(local, centralByName) {
		logger.Printf("dehydrate %s: no-op, nothing to push", prefix)
		return Result{Pushed: false}, nil
	}

	var files []metisdoc.FileEntry
	for _, f := range local {
		files = append(files, f)
	}

	message := fmt.Sprintf("sync: %s @ %s", prefix, time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	commitOID, err := ctx.CommitUpdate(files, removals, message)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Push(); err != nil {
		return Result{}, err
	}

	logger.Printf("dehydrate %s: pushed %d file(s), removed %d, commit %s", prefix, len(files), len(removals), commitOID)
	return Result{
		CommitOID:    commitOID,
		FilesPushed:  len(files),
		FilesRemoved: len(removals),
		Pushed:       true,
	}, nil
}

func filenameFor(doc metisdoc.Document) string {
	if doc.FilePath != "" {
		return filepath.Base(doc.FilePath)
	}
	return doc.ShortCode + ".md"
}

func contentIdentical(local, central map[string]metisdoc.FileEntry) bool {
	if len(local) != len(central) {
		return false
	}
	for name, localFile := range local {
		centralFile, ok := central[name]
		if !ok {
			return false
		}
		if !bytes.Equal(localFile.Content, centralFile.Content) {
			return false
		}
	}
	return true
}
