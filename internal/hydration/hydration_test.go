package hydration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// fakeTree is an in-memory FetchedTree double, avoiding any dependency
// on a real git repository for hydration's own unit tests.
type fakeTree struct {
	folders []string
	files   map[string][]metisdoc.FileEntry
}

func (f *fakeTree) ListWorkspaceFolders() ([]string, error) {
	return f.folders, nil
}

func (f *fakeTree) ListWorkspaceFiles(prefix string) ([]metisdoc.FileEntry, error) {
	return f.files[prefix], nil
}

func TestHydrateWritesPeerWorkspaceFiles(t *testing.T) {
	metisDir := t.TempDir()
	tree := &fakeTree{
		folders: []string{"api", "sre"},
		files: map[string][]metisdoc.FileEntry{
			"sre": {{Path: "sre/SRE-V-0001.md", Content: []byte("# vision")}},
		},
	}

	result, err := Hydrate(tree, metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if len(result.HydratedWorkspaces) != 1 || result.HydratedWorkspaces[0] != "sre" {
		t.Fatalf("HydratedWorkspaces = %v, want [sre]", result.HydratedWorkspaces)
	}
	if result.FilesWritten != 1 {
		t.Fatalf("FilesWritten = %d, want 1", result.FilesWritten)
	}

	content, err := os.ReadFile(filepath.Join(metisDir, "sre", "SRE-V-0001.md"))
	if err != nil {
		t.Fatalf("read hydrated file: %v", err)
	}
	if string(content) != "# vision" {
		t.Fatalf("content = %q, want %q", content, "# vision")
	}

	gitignore, err := os.ReadFile(filepath.Join(metisDir, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	if !strings.Contains(string(gitignore), "sre/") {
		t.Fatalf(".gitignore = %q, want to contain sre/", gitignore)
	}
}

func TestHydrateOwnedPrefixSkipped(t *testing.T) {
	metisDir := t.TempDir()
	tree := &fakeTree{
		folders: []string{"api"},
		files: map[string][]metisdoc.FileEntry{
			"api": {{Path: "api/API-V-0001.md", Content: []byte("# vision")}},
		},
	}

	result, err := Hydrate(tree, metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if len(result.HydratedWorkspaces) != 0 {
		t.Fatalf("expected owned prefix to be skipped, got %v", result.HydratedWorkspaces)
	}
	if _, err := os.Stat(filepath.Join(metisDir, "api")); !os.IsNotExist(err) {
		t.Fatalf("expected api/ not to be created by hydration")
	}
}

func TestHydrateIdempotence(t *testing.T) {
	metisDir := t.TempDir()
	tree := &fakeTree{
		folders: []string{"sre"},
		files: map[string][]metisdoc.FileEntry{
			"sre": {
				{Path: "sre/SRE-V-0001.md", Content: []byte("a")},
				{Path: "sre/SRE-V-0002.md", Content: []byte("b")},
			},
		},
	}

	if _, err := Hydrate(tree, metisDir, "api", nil); err != nil {
		t.Fatalf("first Hydrate: %v", err)
	}
	before, err := os.ReadDir(filepath.Join(metisDir, "sre"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}

	result, err := Hydrate(tree, metisDir, "api", nil)
	if err != nil {
		t.Fatalf("second Hydrate: %v", err)
	}
	if result.FilesRemoved != 0 {
		t.Fatalf("second hydrate removed %d files, want 0 (idempotent)", result.FilesRemoved)
	}
	after, err := os.ReadDir(filepath.Join(metisDir, "sre"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("idempotence violated: before %d entries, after %d", len(before), len(after))
	}
}

func TestHydrateRemovesStaleFiles(t *testing.T) {
	metisDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(metisDir, "sre"), 0o755); err != nil {
		t.Fatal(err)
	}
	stalePath := filepath.Join(metisDir, "sre", "SRE-V-0999.md")
	if err := os.WriteFile(stalePath, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree := &fakeTree{
		folders: []string{"sre"},
		files: map[string][]metisdoc.FileEntry{
			"sre": {{Path: "sre/SRE-V-0001.md", Content: []byte("current")}},
		},
	}

	result, err := Hydrate(tree, metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if result.FilesRemoved != 1 {
		t.Fatalf("FilesRemoved = %d, want 1", result.FilesRemoved)
	}
	if _, err := os.Stat(stalePath); !os.IsNotExist(err) {
		t.Fatalf("expected stale file to be removed")
	}
}

func TestHydrateRemovesStaleWorkspaceFolder(t *testing.T) {
	metisDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(metisDir, "gone"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(metisDir, "gone", "X-V-0001.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree := &fakeTree{folders: []string{}, files: map[string][]metisdoc.FileEntry{}}

	result, err := Hydrate(tree, metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if result.FoldersRemoved != 1 {
		t.Fatalf("FoldersRemoved = %d, want 1", result.FoldersRemoved)
	}
	if _, err := os.Stat(filepath.Join(metisDir, "gone")); !os.IsNotExist(err) {
		t.Fatalf("expected stale workspace folder to be removed")
	}
}

func TestHydrateLeavesNonFlatFolderAlone(t *testing.T) {
	metisDir := t.TempDir()
	nested := filepath.Join(metisDir, "hierarchical", "strategies")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	tree := &fakeTree{folders: []string{}, files: map[string][]metisdoc.FileEntry{}}

	result, err := Hydrate(tree, metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if result.FoldersRemoved != 0 {
		t.Fatalf("FoldersRemoved = %d, want 0: non-flat folder must be left alone", result.FoldersRemoved)
	}
	if _, err := os.Stat(nested); err != nil {
		t.Fatalf("expected hierarchical folder to survive: %v", err)
	}
}
