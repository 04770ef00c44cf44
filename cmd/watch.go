package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/docsync/internal/config"
	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/metrics"
	"github.com/conneroisu/docsync/internal/syncer"
	"github.com/conneroisu/docsync/internal/types"
	"github.com/conneroisu/docsync/internal/watcher"
	"github.com/conneroisu/docsync/internal/websocket"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate documentation as package sources change",
	Long: `Watch the configured paths and run a sync cycle for every debounced
batch of changes. Pages under docs.dir are never watched.

With a metrics address the command also serves Prometheus metrics on
/metrics and a WebSocket stream of page_updated, page_rejected and
sync_failed notifications on /events.

Examples:
  docsync watch                               # Watch watch.paths
  docsync watch --metrics-addr 127.0.0.1:9464 # Also serve /metrics and /events
  docsync watch --verbose                     # Print every changed path`,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
	watchCmd.Flags().String("metrics-addr", "", "Serve /metrics and /events on this address (metrics.addr)")
	bindFlags(watchCmd.Flags(), map[string]string{"metrics.addr": "metrics-addr"})
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics()
	engine, err := newEngine(ctx, cfg, logger, m, false)
	if err != nil {
		return err
	}

	var hub *websocket.Hub
	if cfg.Metrics.Addr != "" {
		hub = websocket.NewHub(logger, cfg.Metrics.Origins...)
		shutdown, err := serve(ctx, cfg.Metrics.Addr, m, hub, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	fileWatcher, err := watcher.NewFileWatcher(watcher.Options{
		Debounce: cfg.Watch.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	for _, filter := range watcher.DefaultFilters() {
		fileWatcher.AddFilter(filter)
	}
	docsFilter, err := outsideFilter(cfg.Docs.Dir)
	if err != nil {
		return err
	}
	fileWatcher.AddFilter(docsFilter)

	out := cmd.OutOrStdout()
	fileWatcher.AddHandler(newBatchHandler(ctx, cfg, engine, m, hub, logger, out))

	fmt.Fprintln(out, "🔍 Setting up file watching...")
	watched := 0
	for _, path := range cfg.Watch.Paths {
		if err := fileWatcher.AddRecursive(path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to watch path %s: %v\n", path, err)
			continue
		}
		watched++
		fmt.Fprintf(out, "   - Watching: %s\n", path)
	}
	if watched == 0 {
		return errors.New("no watch path could be watched")
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintln(out, "👀 Watching for changes... (Press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Fprintln(out, "\n🛑 Stopping file watcher...")

	saveCache(context.Background(), cfg, engine.Tracker(), logger)
	return nil
}

// newBatchHandler runs one sync cycle per debounced batch and persists the
// digest cache after it. Outcomes are broadcast when hub is not nil.
func newBatchHandler(ctx context.Context, cfg *config.Config, engine *syncer.Engine, m *metrics.Metrics, hub *websocket.Hub, logger logging.Logger, out io.Writer) watcher.ChangeHandler {
	return func(events []types.ChangeEvent) error {
		m.RecordBatch(len(events))

		if watchVerbose {
			fmt.Fprintf(out, "📁 File changes detected:\n")
			for _, event := range events {
				fmt.Fprintf(out, "   %s: %s\n", event.Type, event.Path)
			}
		} else {
			fmt.Fprintf(out, "📁 %d file(s) changed\n", len(events))
		}

		results, err := engine.Process(ctx, events)
		printResults(out, results)
		saveCache(ctx, cfg, engine.Tracker(), logger)
		if hub != nil {
			for _, msg := range websocket.ResultMessages(results) {
				if err := hub.Broadcast(msg); err != nil {
					logger.Warn(ctx, err, "Failed to broadcast sync result")
					break
				}
			}
		}
		if err != nil {
			return err
		}
		return syncer.Err(results)
	}
}

// outsideFilter rejects paths inside dir so written pages do not trigger
// another cycle.
func outsideFilter(dir string) (watcher.FileFilter, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	return func(path string) bool {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		rel, err := filepath.Rel(absDir, absPath)
		if err != nil {
			return true
		}
		return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
	}, nil
}

// serve starts the /metrics and /events listener. The returned function
// disconnects event clients and shuts the listener down.
func serve(ctx context.Context, addr string, m *metrics.Metrics, hub *websocket.Hub, logger logging.Logger) (func(), error) {
	reg, err := metrics.NewRegistry(m)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/events", hub)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, err, "Listener failed", "addr", addr)
		}
	}()
	logger.Info(ctx, "Serving /metrics and /events", "addr", addr)

	return func() {
		hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}
