package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/docsync/internal/config"
	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/metrics"
	"github.com/conneroisu/docsync/internal/syncer"
	"github.com/conneroisu/docsync/internal/tracker"
	"github.com/conneroisu/docsync/internal/types"
	"github.com/conneroisu/docsync/internal/validation"
	"github.com/conneroisu/docsync/internal/watcher"
)

// newEngine wires the configured generator, tracker and validator into a
// sync engine. The digest cache is loaded unless ignoreCache is set.
func newEngine(ctx context.Context, cfg *config.Config, logger logging.Logger, m *metrics.Metrics, ignoreCache bool) (*syncer.Engine, error) {
	if cfg.Generate.Command == "" {
		return nil, fmt.Errorf("generate.command is not configured")
	}
	gen, err := syncer.NewCommandGenerator(cfg.Generate)
	if err != nil {
		return nil, err
	}

	tr, err := cfg.NewTracker(logger)
	if err != nil {
		return nil, err
	}
	if cfg.Tracker.Cache != "" && !ignoreCache {
		if err := tr.LoadCache(cfg.Tracker.Cache); err != nil {
			logger.Warn(ctx, err, "Ignoring unreadable digest cache", "path", cfg.Tracker.Cache)
		}
	}

	return syncer.NewEngine(gen, syncer.Options{
		DocsDir:  cfg.Docs.Dir,
		Merge:    cfg.MergeOptions(),
		Sanitize: cfg.Merge.Sanitize,
	},
		syncer.WithTracker(tr),
		syncer.WithValidator(validation.New(cfg.Validation)),
		syncer.WithMetrics(m),
		syncer.WithLogger(logger),
	), nil
}

func saveCache(ctx context.Context, cfg *config.Config, tr *tracker.Tracker, logger logging.Logger) {
	if cfg.Tracker.Cache == "" {
		return
	}
	if err := tr.SaveCache(cfg.Tracker.Cache); err != nil {
		logger.Warn(ctx, err, "Failed to save digest cache", "path", cfg.Tracker.Cache)
	}
}

// collectEvents lists every file under roots that the watch filters accept
// as a modify event.
func collectEvents(roots []string) ([]types.ChangeEvent, error) {
	filters := watcher.DefaultFilters()
	now := time.Now()

	var events []types.ChangeEvent
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == root {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if path != root && watcher.SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			for _, accept := range filters {
				if !accept(path) {
					return nil
				}
			}
			events = append(events, types.ChangeEvent{Type: types.EventModify, Path: path, Timestamp: now})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return events, nil
}

func printResults(w io.Writer, results []syncer.PackageResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "Nothing to sync")
		return
	}

	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "❌ %s (%s): %v\n", r.Package, r.Scope, r.Err)
			continue
		case r.Skipped:
			fmt.Fprintf(w, "⏭️  %s: no documentation inputs changed\n", r.Package)
			continue
		}

		written, unchanged, failed := 0, 0, 0
		for _, p := range r.Pages {
			switch {
			case p.Err != nil:
				failed++
			case p.Written, p.Diff != "":
				written++
			default:
				unchanged++
			}
		}
		icon := "✅"
		if !r.OK() {
			icon = "❌"
		}
		fmt.Fprintf(w, "%s %s (%s): %d changed, %d unchanged, %d failed in %s\n",
			icon, r.Package, r.Scope, written, unchanged, failed, r.Duration.Round(time.Millisecond))

		for _, p := range r.Pages {
			if p.Err != nil {
				fmt.Fprintf(w, "   %s: %v\n", p.Path, p.Err)
				for _, msg := range p.Validation.Messages() {
					fmt.Fprintf(w, "      %s\n", msg)
				}
			}
			if p.Diff != "" {
				fmt.Fprint(w, p.Diff)
			}
		}
	}
}
