package syncengine

import (
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/metis/internal/metisdoc"
)

// TestSyncConcurrentPushConflictResolvedByRetry exercises scenario 3
// from the end-to-end spec: two workspaces racing against a remote
// seeded with one commit. Each supplies one new document under its own
// prefix; both calls must return success, and the push-retry budget
// must stay within bounds whether or not one of the two loses its
// first race and has to retry the full cycle.
func TestSyncConcurrentPushConflictResolvedByRetry(t *testing.T) {
	remote := newBareRemote(t)

	// Seed the remote with one dummy commit so both racing syncs fetch
	// a non-empty head, matching the scenario's stated setup.
	seedDir := t.TempDir()
	seedConfig := SyncConfig{UpstreamURL: remote, WorkspacePrefix: "seed"}
	if _, err := Sync(seedConfig, seedDir, []metisdoc.Document{{ShortCode: "SEED-V-0001", Body: "# seed"}}, SyncOptions{}, nil); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	alphaDir := t.TempDir()
	betaDir := t.TempDir()

	var group errgroup.Group
	var alphaRetries, betaRetries int

	group.Go(func() error {
		result, err := Sync(SyncConfig{UpstreamURL: remote, WorkspacePrefix: "alpha"}, alphaDir,
			[]metisdoc.Document{{ShortCode: "ALPHA-V-0001", Body: "# alpha"}}, SyncOptions{MaxRetries: 10}, nil)
		if err != nil {
			return err
		}
		alphaRetries = result.PushRetries
		return nil
	})
	group.Go(func() error {
		result, err := Sync(SyncConfig{UpstreamURL: remote, WorkspacePrefix: "beta"}, betaDir,
			[]metisdoc.Document{{ShortCode: "BETA-V-0001", Body: "# beta"}}, SyncOptions{MaxRetries: 10}, nil)
		if err != nil {
			return err
		}
		betaRetries = result.PushRetries
		return nil
	})

	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent sync failed: %v", err)
	}

	total := alphaRetries + betaRetries
	if total < 0 || total > 10 {
		t.Fatalf("sum of push_retries = %d, want between 0 and 10", total)
	}

	verifyConfig := SyncConfig{UpstreamURL: remote, WorkspacePrefix: "checker"}
	checkerDir := t.TempDir()
	result, err := SyncPullOnly(verifyConfig, checkerDir, nil)
	if err != nil {
		t.Fatalf("verify SyncPullOnly: %v", err)
	}
	hydrated := map[string]bool{}
	for _, prefix := range result.Hydration.HydratedWorkspaces {
		hydrated[prefix] = true
	}
	if !hydrated["alpha"] || !hydrated["beta"] {
		t.Fatalf("expected both alpha and beta to land at the remote, got %v", result.Hydration.HydratedWorkspaces)
	}
}
