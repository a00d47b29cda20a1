package metisgit

import (
	"sort"
	"testing"

	"github.com/steveyegge/metis/internal/metisdoc"
)

func TestDiffSinceTreatsAllAsAddedWithNoPriorCommit(t *testing.T) {
	remote := newBareRemote(t)
	ctx, err := Open(remote, "api", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctx.Close()
	if _, _, err := ctx.Fetch(); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	files := []metisdoc.FileEntry{
		{Path: "api/A.md", Content: []byte("a")},
		{Path: "api/B.md", Content: []byte("b")},
	}
	if _, err := ctx.CommitUpdate(files, nil, "sync: api @ t1"); err != nil {
		t.Fatalf("CommitUpdate: %v", err)
	}
	if err := ctx.Push(); err != nil {
		t.Fatalf("Push: %v", err)
	}

	verify, err := Open(remote, "api", nil)
	if err != nil {
		t.Fatalf("Open verify: %v", err)
	}
	defer verify.Close()
	if _, _, err := verify.Fetch(); err != nil {
		t.Fatalf("verify Fetch: %v", err)
	}

	changes, err := verify.DiffSince("", "")
	if err != nil {
		t.Fatalf("DiffSince: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("DiffSince returned %d changes, want 2", len(changes))
	}
	for _, c := range changes {
		if c.Kind != Added {
			t.Fatalf("change %+v, want kind Added", c)
		}
	}
}

func TestDiffSinceBetweenTwoCommits(t *testing.T) {
	remote := newBareRemote(t)
	ctx, err := Open(remote, "api", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctx.Close()
	if _, _, err := ctx.Fetch(); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	firstHash, err := ctx.CommitUpdate([]metisdoc.FileEntry{
		{Path: "api/A.md", Content: []byte("a")},
		{Path: "api/B.md", Content: []byte("b")},
	}, nil, "sync: api @ t1")
	if err != nil {
		t.Fatalf("first CommitUpdate: %v", err)
	}
	if err := ctx.Push(); err != nil {
		t.Fatalf("first Push: %v", err)
	}

	if _, _, err := ctx.Fetch(); err != nil {
		t.Fatalf("re-fetch: %v", err)
	}
	if _, err := ctx.CommitUpdate(
		[]metisdoc.FileEntry{{Path: "api/B.md", Content: []byte("b2")}},
		[]string{"api/A.md"},
		"sync: api @ t2",
	); err != nil {
		t.Fatalf("second CommitUpdate: %v", err)
	}
	if err := ctx.Push(); err != nil {
		t.Fatalf("second Push: %v", err)
	}
	if _, _, err := ctx.Fetch(); err != nil {
		t.Fatalf("second re-fetch: %v", err)
	}

	changes, err := ctx.DiffSince(firstHash.String(), "")
	if err != nil {
		t.Fatalf("DiffSince: %v", err)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	if len(changes) != 2 {
		t.Fatalf("DiffSince returned %d changes, want 2: %+v", len(changes), changes)
	}
	if changes[0].Path != "api/A.md" || changes[0].Kind != Deleted {
		t.Fatalf("changes[0] = %+v, want api/A.md Deleted", changes[0])
	}
	if changes[1].Path != "api/B.md" || changes[1].Kind != Modified {
		t.Fatalf("changes[1] = %+v, want api/B.md Modified", changes[1])
	}
}

func TestReadBlobUnknownCommitFails(t *testing.T) {
	remote := newBareRemote(t)
	ctx, err := Open(remote, "api", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctx.Close()

	_, err = ctx.ReadBlob("0000000000000000000000000000000000000000", "api/A.md")
	if err == nil {
		t.Fatalf("expected CommitNotFoundError")
	}
	if _, ok := err.(*metisdoc.CommitNotFoundError); !ok {
		t.Fatalf("expected *metisdoc.CommitNotFoundError, got %T", err)
	}
}
