package projection

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, dir, name, frontmatter string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "---\n" + frontmatter + "\n---\n\n# body\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildCrossWorkspaceChildren(t *testing.T) {
	metisDir := t.TempDir()

	writeDoc(t, filepath.Join(metisDir, "strat"), "WGR-I-0001.md",
		"short_code: WGR-I-0001\nlevel: initiative\ntags: [\"#phase/active\"]\n")
	writeDoc(t, filepath.Join(metisDir, "api"), "API-T-0001.md",
		"short_code: API-T-0001\nlevel: task\nparent: WGR-I-0001\ntags: [\"#phase/todo\"]\n")
	writeDoc(t, filepath.Join(metisDir, "sre"), "SRE-T-0001.md",
		"short_code: SRE-T-0001\nlevel: task\nparent: WGR-I-0001\ntags: [\"#phase/completed\"]\n")

	cache, err := Build(metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	children := cache.ChildrenOf("WGR-I-0001")
	if len(children) != 2 {
		t.Fatalf("ChildrenOf returned %d, want 2", len(children))
	}

	progress := cache.Progress("WGR-I-0001")
	if progress.Todo != 1 || progress.Completed != 1 {
		t.Fatalf("Progress = %+v, want todo=1 completed=1", progress)
	}
}

func TestBuildDuplicateShortCodeOwnedFirstWins(t *testing.T) {
	metisDir := t.TempDir()
	writeDoc(t, filepath.Join(metisDir, "api"), "DUP-V-0001.md",
		"short_code: DUP-V-0001\nlevel: vision\ntitle: owned copy\n")
	writeDoc(t, filepath.Join(metisDir, "sre"), "DUP-V-0001.md",
		"short_code: DUP-V-0001\nlevel: vision\ntitle: peer copy\n")

	cache, err := Build(metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	doc, ok := cache.Get("DUP-V-0001")
	if !ok {
		t.Fatalf("expected DUP-V-0001 to be present")
	}
	if doc.Title != "owned copy" {
		t.Fatalf("Title = %q, want %q (owned-first ordering)", doc.Title, "owned copy")
	}
	if len(cache.Warnings()) != 1 {
		t.Fatalf("expected one duplicate warning, got %d", len(cache.Warnings()))
	}
}

func TestBuildMissingShortCodeWarns(t *testing.T) {
	metisDir := t.TempDir()
	writeDoc(t, filepath.Join(metisDir, "api"), "BAD.md", "level: vision\n")

	cache, err := Build(metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(cache.AllDocuments()) != 0 {
		t.Fatalf("expected no documents parsed")
	}
	if len(cache.Warnings()) != 1 {
		t.Fatalf("expected one warning for missing short_code")
	}
}

func TestBuildUnknownPhaseDefaultsToUnknown(t *testing.T) {
	metisDir := t.TempDir()
	writeDoc(t, filepath.Join(metisDir, "api"), "API-V-0001.md",
		"short_code: API-V-0001\nlevel: vision\n")

	cache, err := Build(metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	doc, ok := cache.Get("API-V-0001")
	if !ok {
		t.Fatalf("expected document to be present")
	}
	if doc.Phase != "unknown" {
		t.Fatalf("Phase = %q, want unknown", doc.Phase)
	}
}

func TestUpstreamContextCyclicSafe(t *testing.T) {
	metisDir := t.TempDir()
	writeDoc(t, filepath.Join(metisDir, "api"), "A.md",
		"short_code: A\nlevel: task\nparent: B\n")
	writeDoc(t, filepath.Join(metisDir, "strat"), "B.md",
		"short_code: B\nlevel: initiative\nparent: A\n")

	cache, err := Build(metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Must terminate despite the A -> B -> A cycle.
	ctxDocs := cache.UpstreamContext("api")
	if len(ctxDocs) != 1 || ctxDocs[0].ShortCode != "B" {
		t.Fatalf("UpstreamContext = %v, want [B]", ctxDocs)
	}
}

func TestBuildIgnoresArchivedDir(t *testing.T) {
	metisDir := t.TempDir()
	writeDoc(t, filepath.Join(metisDir, "archived"), "OLD-V-0001.md",
		"short_code: OLD-V-0001\nlevel: vision\n")

	cache, err := Build(metisDir, "api", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(cache.AllDocuments()) != 0 {
		t.Fatalf("expected archived/ to be excluded from scan")
	}
}
