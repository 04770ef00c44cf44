package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/docsync/internal/metrics"
	"github.com/conneroisu/docsync/internal/syncer"
	"github.com/conneroisu/docsync/internal/tracker"
	"github.com/conneroisu/docsync/internal/types"
)

var (
	syncDryRun bool
	syncForce  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [path...]",
	Short: "Run one sync cycle over the watched paths",
	Long: `Run a single sync cycle. Every file under the given paths (default
watch.paths) whose digest differs from the digest cache is treated as
changed, and the pages of the affected packages are regenerated, merged,
validated and written.

Examples:
  docsync sync                       # Sync what changed since the last run
  docsync sync --dry-run             # Print diffs without writing
  docsync sync --force packages/ui   # Regenerate ui regardless of the cache`,
	RunE: runSyncCommand,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "Print unified diffs instead of writing pages")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Ignore the digest cache")
}

func runSyncCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := commandContext(cmd)

	engine, err := newEngine(ctx, cfg, logger, metrics.NewMetrics(), syncForce)
	if err != nil {
		return err
	}

	roots := args
	if len(roots) == 0 {
		roots = cfg.Watch.Paths
	}
	events, err := collectEvents(roots)
	if err != nil {
		return err
	}
	events = append(events, deletedEvents(engine.Tracker())...)

	var results []syncer.PackageResult
	if syncDryRun {
		results, err = engine.DryRun(ctx, events)
	} else {
		results, err = engine.Process(ctx, events)
	}
	printResults(cmd.OutOrStdout(), results)
	if err != nil {
		return err
	}

	if !syncDryRun {
		saveCache(ctx, cfg, engine.Tracker(), logger)
	}
	return syncer.Err(results)
}

// deletedEvents reports tracked files that no longer exist.
func deletedEvents(tr *tracker.Tracker) []types.ChangeEvent {
	var events []types.ChangeEvent
	now := time.Now()
	for _, path := range tr.Paths() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			events = append(events, types.ChangeEvent{Type: types.EventDelete, Path: path, Timestamp: now})
		}
	}
	return events
}
