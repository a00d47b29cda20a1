package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/metis/internal/config"
	"github.com/steveyegge/metis/internal/projection"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the projection cache",
}

var cacheQueryCmd = &cobra.Command{
	Use:   "query <short_code>",
	Short: "Print children, blockers, and progress for a document",
	Long: `query builds the projection cache from .metis/ and prints the
cross-workspace children, blocks-by relationships, and progress
summary for the given short_code. This is a minimal read-only
inspection surface, not a general front-end.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheQuery,
}

func init() {
	cacheCmd.AddCommand(cacheQueryCmd)
}

func runCacheQuery(cmd *cobra.Command, args []string) error {
	metisDir, _ := cmd.Flags().GetString("metis-dir")
	code := args[0]

	cfg, err := config.Load(filepath.Join(metisDir, "config.toml"))
	if err != nil {
		return err
	}

	logger := newLogger("[metisd-cache] ", cfg)
	cache, err := projection.Build(metisDir, cfg.Workspace.Prefix, logger)
	if err != nil {
		return err
	}

	doc, ok := cache.Get(code)
	if !ok {
		return fmt.Errorf("no document with short_code %q", code)
	}

	fmt.Printf("%s (%s, phase=%s, workspace=%s)\n", doc.ShortCode, doc.DocumentType, doc.Phase, doc.Workspace)
	fmt.Printf("  title: %s\n", doc.Title)

	children := cache.ChildrenOf(code)
	fmt.Printf("  children (%d):\n", len(children))
	for _, c := range children {
		fmt.Printf("    %s (%s, %s)\n", c.ShortCode, c.DocumentType, c.Phase)
	}

	blocks := cache.Blocks(code)
	fmt.Printf("  blocks (%d):\n", len(blocks))
	for _, b := range blocks {
		fmt.Printf("    %s (%s, %s)\n", b.ShortCode, b.DocumentType, b.Phase)
	}

	progress := cache.Progress(code)
	fmt.Printf("  progress: backlog=%d todo=%d active=%d completed=%d blocked=%d other=%d\n",
		progress.Backlog, progress.Todo, progress.Active, progress.Completed, progress.Blocked, progress.Other)

	for _, w := range cache.Warnings() {
		fmt.Printf("  warning: %s: %s\n", w.FilePath, w.Message)
	}
	return nil
}
