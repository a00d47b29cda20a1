// Package projection rebuilds an in-memory, cross-workspace index of
// every document under .metis/ after each sync. The cache is rebuilt
// from scratch on every call; there is no incremental update path.
package projection

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// reservedDirs are workspace-directory-shaped children of .metis/ that
// are never scanned as workspace members.
var reservedDirs = map[string]bool{
	"archived":   true,
	"templates":  true,
	"strategies": true,
	"adrs":       true,
	"backlog":    true,
}

const phaseTagPrefix = "#phase/"

// CachedDocument is the in-memory projection of one parsed markdown
// file's frontmatter.
type CachedDocument struct {
	ShortCode    string
	DocumentType metisdoc.DocumentType
	Phase        metisdoc.Phase
	Parent       string
	BlockedBy    []string
	Archived     bool
	Workspace    string
	Owned        bool
	Title        string
	FilePath     string
}

// ProgressSummary buckets a document's children by phase category.
type ProgressSummary struct {
	Backlog   int
	Todo      int
	Active    int
	Completed int
	Blocked   int
	Other     int
}

// ProjectionWarning records a non-fatal parse problem. The offending
// file is skipped; the cache is built from the remainder.
type ProjectionWarning struct {
	FilePath string
	Message  string
}

// Cache is the rebuilt-from-disk cross-workspace index.
type Cache struct {
	documents      map[string]CachedDocument
	childrenIndex  map[string][]string
	blocksIndex    map[string][]string
	workspaceIndex map[string][]string
	warnings       []ProjectionWarning
}

// frontmatter mirrors the YAML fields observed in document files.
// Body content is ignored; only the header block between --- markers
// is decoded.
type frontmatter struct {
	ShortCode string   `yaml:"short_code"`
	Level     string   `yaml:"level"`
	Title     string   `yaml:"title"`
	Parent    string   `yaml:"parent"`
	BlockedBy []string `yaml:"blocked_by"`
	Archived  bool     `yaml:"archived"`
	Tags      []string `yaml:"tags"`
}

// Build scans every workspace directory under metisDir and returns a
// fully populated Cache. ownedPrefix is processed first so that, on a
// duplicate short_code, the locally-owned (writable) copy wins over a
// peer's hydrated copy.
func Build(metisDir, ownedPrefix string, logger *log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[projection] ", log.LstdFlags)
	}

	cache := &Cache{
		documents:      map[string]CachedDocument{},
		childrenIndex:  map[string][]string{},
		blocksIndex:    map[string][]string{},
		workspaceIndex: map[string][]string{},
	}

	prefixes, err := discoverWorkspaces(metisDir, ownedPrefix)
	if err != nil {
		return nil, fmt.Errorf("discover workspaces: %w", err)
	}

	for _, prefix := range prefixes {
		if err := cache.scanWorkspace(metisDir, prefix, ownedPrefix); err != nil {
			return nil, fmt.Errorf("scan workspace %s: %w", prefix, err)
		}
	}

	cache.buildIndices()
	logger.Printf("projection built: %d document(s), %d warning(s) across %d workspace(s)",
		len(cache.documents), len(cache.warnings), len(prefixes))
	return cache, nil
}

// discoverWorkspaces lists direct children of metisDir and orders them
// with ownedPrefix first, the rest alphabetically.
func discoverWorkspaces(metisDir, ownedPrefix string) ([]string, error) {
	entries, err := os.ReadDir(metisDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var others []string
	hasOwned := false
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || reservedDirs[name] {
			continue
		}
		if name == ownedPrefix {
			hasOwned = true
			continue
		}
		others = append(others, name)
	}
	sort.Strings(others)

	if !hasOwned {
		// The owned prefix's directory may not exist yet (brand new
		// workspace); that's fine, there's simply nothing to scan for it.
		return others, nil
	}
	return append([]string{ownedPrefix}, others...), nil
}

func (c *Cache) scanWorkspace(metisDir, prefix, ownedPrefix string) error {
	root := filepath.Join(metisDir, prefix)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
			return nil
		}

		doc, warning, err := parseDocument(path, prefix, ownedPrefix)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if warning != nil {
			c.warnings = append(c.warnings, *warning)
			return nil
		}

		if _, exists := c.documents[doc.ShortCode]; exists {
			c.warnings = append(c.warnings, ProjectionWarning{
				FilePath: path,
				Message:  fmt.Sprintf("duplicate short_code %q, first occurrence kept", doc.ShortCode),
			})
			return nil
		}
		c.documents[doc.ShortCode] = *doc
		return nil
	})
}

func parseDocument(path, prefix, ownedPrefix string) (*CachedDocument, *ProjectionWarning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	body := string(raw)
	fm, ok := extractFrontmatter(body)
	if !ok {
		return nil, &ProjectionWarning{FilePath: path, Message: "no frontmatter block found"}, nil
	}

	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return nil, &ProjectionWarning{FilePath: path, Message: fmt.Sprintf("invalid frontmatter yaml: %v", err)}, nil
	}

	shortCode := strings.TrimSpace(parsed.ShortCode)
	if shortCode == "" || shortCode == "NULL" {
		return nil, &ProjectionWarning{FilePath: path, Message: "missing short_code"}, nil
	}
	if parsed.Level == "" {
		return nil, &ProjectionWarning{FilePath: path, Message: "missing level"}, nil
	}
	docType := metisdoc.DocumentType(parsed.Level)
	if !docType.Valid() {
		return nil, &ProjectionWarning{FilePath: path, Message: fmt.Sprintf("unknown document type %q", parsed.Level)}, nil
	}

	parent := parsed.Parent
	if parent == "NULL" {
		parent = ""
	}

	var blockedBy []string
	for _, code := range parsed.BlockedBy {
		code = strings.TrimSpace(code)
		if code == "" || code == "NULL" {
			continue
		}
		blockedBy = append(blockedBy, code)
	}

	phase := metisdoc.UnknownPhase
	for _, tag := range parsed.Tags {
		if strings.HasPrefix(tag, phaseTagPrefix) {
			phase = metisdoc.Phase(strings.TrimPrefix(tag, phaseTagPrefix))
			break
		}
	}

	return &CachedDocument{
		ShortCode:    shortCode,
		DocumentType: docType,
		Phase:        phase,
		Parent:       parent,
		BlockedBy:    blockedBy,
		Archived:     parsed.Archived,
		Workspace:    prefix,
		Owned:        prefix == ownedPrefix,
		Title:        parsed.Title,
		FilePath:     path,
	}, nil, nil
}

// extractFrontmatter returns the YAML block between the opening and
// closing "---" delimiters at the top of the file.
func extractFrontmatter(body string) (string, bool) {
	const delim = "---"
	body = strings.TrimLeft(body, "﻿ \t\r\n")
	if !strings.HasPrefix(body, delim) {
		return "", false
	}
	rest := body[len(delim):]
	end := strings.Index(rest, delim)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

func (c *Cache) buildIndices() {
	for code, doc := range c.documents {
		c.workspaceIndex[doc.Workspace] = append(c.workspaceIndex[doc.Workspace], code)
		if doc.Parent != "" {
			c.childrenIndex[doc.Parent] = append(c.childrenIndex[doc.Parent], code)
		}
		for _, blocker := range doc.BlockedBy {
			c.blocksIndex[blocker] = append(c.blocksIndex[blocker], code)
		}
	}
	for k := range c.workspaceIndex {
		sort.Strings(c.workspaceIndex[k])
	}
	for k := range c.childrenIndex {
		sort.Strings(c.childrenIndex[k])
	}
	for k := range c.blocksIndex {
		sort.Strings(c.blocksIndex[k])
	}
}

// Get returns the document with the given short_code.
func (c *Cache) Get(code string) (CachedDocument, bool) {
	doc, ok := c.documents[code]
	return doc, ok
}

// AllDocuments returns every cached document, ordered by short_code.
func (c *Cache) AllDocuments() []CachedDocument {
	codes := make([]string, 0, len(c.documents))
	for code := range c.documents {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	docs := make([]CachedDocument, 0, len(codes))
	for _, code := range codes {
		docs = append(docs, c.documents[code])
	}
	return docs
}

// Workspaces returns every workspace prefix observed during the scan.
func (c *Cache) Workspaces() []string {
	prefixes := make([]string, 0, len(c.workspaceIndex))
	for prefix := range c.workspaceIndex {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes
}

// WorkspaceDocuments returns every document owned by prefix.
func (c *Cache) WorkspaceDocuments(prefix string) []CachedDocument {
	codes := c.workspaceIndex[prefix]
	docs := make([]CachedDocument, 0, len(codes))
	for _, code := range codes {
		docs = append(docs, c.documents[code])
	}
	return docs
}

// ChildrenOf returns every document whose parent is code, regardless
// of workspace. A dangling parent reference (code not itself cached)
// still yields its registered children.
func (c *Cache) ChildrenOf(code string) []CachedDocument {
	codes := c.childrenIndex[code]
	docs := make([]CachedDocument, 0, len(codes))
	for _, child := range codes {
		docs = append(docs, c.documents[child])
	}
	return docs
}

// Blocks returns every document that lists code in its blocked_by set.
func (c *Cache) Blocks(code string) []CachedDocument {
	codes := c.blocksIndex[code]
	docs := make([]CachedDocument, 0, len(codes))
	for _, blocked := range codes {
		docs = append(docs, c.documents[blocked])
	}
	return docs
}

// Progress buckets code's children by phase category.
func (c *Cache) Progress(code string) ProgressSummary {
	var summary ProgressSummary
	for _, child := range c.ChildrenOf(code) {
		switch child.Phase {
		case "backlog":
			summary.Backlog++
		case "todo":
			summary.Todo++
		case "active":
			summary.Active++
		case "completed":
			summary.Completed++
		case "blocked":
			summary.Blocked++
		default:
			summary.Other++
		}
	}
	return summary
}

// UpstreamContext walks the parent chain of every document in prefix
// and collects ancestors whose workspace differs from prefix. The walk
// carries a visited set so cyclic or self-referential parent chains
// terminate instead of looping forever; unresolved parents end the
// walk silently.
func (c *Cache) UpstreamContext(prefix string) []CachedDocument {
	seen := map[string]bool{}
	var out []CachedDocument

	for _, doc := range c.WorkspaceDocuments(prefix) {
		visited := map[string]bool{doc.ShortCode: true}
		parent := doc.Parent
		for parent != "" && !visited[parent] {
			visited[parent] = true
			ancestor, ok := c.documents[parent]
			if !ok {
				break
			}
			if ancestor.Workspace != prefix && !seen[ancestor.ShortCode] {
				seen[ancestor.ShortCode] = true
				out = append(out, ancestor)
			}
			parent = ancestor.Parent
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ShortCode < out[j].ShortCode })
	return out
}

// Warnings returns every non-fatal parse problem recorded during Build.
func (c *Cache) Warnings() []ProjectionWarning {
	return c.warnings
}
