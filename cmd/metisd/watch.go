package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/metis/internal/config"
	"github.com/steveyegge/metis/internal/projection"
	"github.com/steveyegge/metis/internal/syncengine"
	"github.com/steveyegge/metis/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the owned workspace and trigger a debounced sync on changes",
	Long: `watch runs a debounced filesystem watcher over the owned workspace's
directory tree. Bursts of local edits within sync.debounce_seconds of
each other coalesce into a single sync cycle.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	metisDir, _ := cmd.Flags().GetString("metis-dir")

	cfg, err := config.Load(filepath.Join(metisDir, "config.toml"))
	if err != nil {
		return err
	}
	cfg = config.Overlay(cfg)
	if !cfg.HasSync() {
		return fmt.Errorf("watch requires [sync] and [workspace] to be configured")
	}

	logger := newLogger("[metisd-watch] ", cfg)
	syncConfig := syncengine.SyncConfig{
		UpstreamURL:     cfg.Sync.UpstreamURL,
		WorkspacePrefix: cfg.Workspace.Prefix,
	}
	ownedDir := filepath.Join(metisDir, cfg.Workspace.Prefix)

	trigger := func(changed []string) {
		cache, err := projection.Build(metisDir, cfg.Workspace.Prefix, logger)
		if err != nil {
			logger.Printf("projection rebuild failed: %v", err)
			return
		}
		docs, err := ownedDocuments(cache, cfg.Workspace.Prefix)
		if err != nil {
			logger.Printf("reading changed documents failed: %v", err)
			return
		}
		result, err := syncengine.Sync(syncConfig, metisDir, docs, syncengine.SyncOptions{
			MaxRetries: cfg.Sync.MaxRetries,
		}, logger)
		if err != nil {
			logger.Printf("triggered sync failed: %v", err)
			return
		}
		logger.Printf("triggered sync complete: noop=%v retries=%d", result.IsNoop, result.PushRetries)
	}

	quiet := time.Duration(cfg.Sync.DebounceSeconds) * time.Second
	watcher, err := watch.New(ownedDir, quiet, trigger, logger)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	go watcher.Run()
	fmt.Printf("watching %s (debounce %s), press Ctrl+C to stop\n", ownedDir, quiet)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	fmt.Println("\nstopping watcher...")
	return watcher.Close()
}
