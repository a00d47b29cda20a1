package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/metis/internal/config"
	"github.com/steveyegge/metis/internal/metisdoc"
	"github.com/steveyegge/metis/internal/projection"
	"github.com/steveyegge/metis/internal/syncengine"
)

// ownedDocuments reads the current body of every document the cache
// found under prefix and reassembles them into the flattened
// metisdoc.Document form dehydration expects as its authoritative
// input.
func ownedDocuments(cache *projection.Cache, prefix string) ([]metisdoc.Document, error) {
	var docs []metisdoc.Document
	for _, cached := range cache.WorkspaceDocuments(prefix) {
		body, err := os.ReadFile(cached.FilePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cached.FilePath, err)
		}
		docs = append(docs, metisdoc.Document{
			ShortCode:    cached.ShortCode,
			DocumentType: cached.DocumentType,
			Phase:        cached.Phase,
			Parent:       cached.Parent,
			BlockedBy:    cached.BlockedBy,
			Archived:     cached.Archived,
			Workspace:    cached.Workspace,
			Owned:        cached.Owned,
			Title:        cached.Title,
			FilePath:     cached.FilePath,
			Body:         string(body),
		})
	}
	return docs, nil
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one orchestrated sync cycle (fetch, hydrate, dehydrate, push)",
	Long: `sync fetches the upstream remote, hydrates peer workspace folders
into .metis/, flattens and pushes the owned workspace's documents, and
retries the full cycle on push rejection up to sync.max_retries.

With --pull-only, only fetch and hydrate run; no commit or push is
attempted.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("pull-only", false, "fetch and hydrate only; skip commit and push")
	syncCmd.Flags().Bool("force", false, "set SyncOptions.Force; sync runs no phase transitions, so this has no effect on the cycle")
}

func runSync(cmd *cobra.Command, args []string) error {
	metisDir, _ := cmd.Flags().GetString("metis-dir")
	pullOnly, _ := cmd.Flags().GetBool("pull-only")
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := config.Load(filepath.Join(metisDir, "config.toml"))
	if err != nil {
		return err
	}
	cfg = config.Overlay(cfg)
	if !cfg.HasSync() {
		fmt.Println("sync disabled: [sync] or [workspace] section missing from config.toml")
		return nil
	}

	logger := newLogger("[metisd-sync] ", cfg)
	syncConfig := syncengine.SyncConfig{
		UpstreamURL:     cfg.Sync.UpstreamURL,
		WorkspacePrefix: cfg.Workspace.Prefix,
	}

	if pullOnly {
		result, err := syncengine.SyncPullOnly(syncConfig, metisDir, logger)
		if err != nil {
			return err
		}
		printSyncResult(result)
		return nil
	}

	cache, err := projection.Build(metisDir, cfg.Workspace.Prefix, logger)
	if err != nil {
		return fmt.Errorf("build projection cache for dehydration input: %w", err)
	}
	docs, err := ownedDocuments(cache, cfg.Workspace.Prefix)
	if err != nil {
		return err
	}

	result, err := syncengine.Sync(syncConfig, metisDir, docs, syncengine.SyncOptions{
		Force:      force,
		MaxRetries: cfg.Sync.MaxRetries,
	}, logger)
	if err != nil {
		return err
	}
	printSyncResult(result)
	return nil
}

func printSyncResult(result syncengine.SyncResult) {
	if result.IsNoop {
		fmt.Println("sync: no-op, nothing changed")
		return
	}
	fmt.Printf("sync: new commit %s, push retries %d\n", result.NewSyncedCommit, result.PushRetries)
	if result.Hydration != nil {
		fmt.Printf("  hydrated %d workspace(s): %d file(s) written, %d removed\n",
			len(result.Hydration.HydratedWorkspaces), result.Hydration.FilesWritten, result.Hydration.FilesRemoved)
	}
	if result.Dehydration != nil && result.Dehydration.Pushed {
		fmt.Printf("  pushed %d file(s), removed %d\n", result.Dehydration.FilesPushed, result.Dehydration.FilesRemoved)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", w)
	}
}
