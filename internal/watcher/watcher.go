// Package watcher turns file-system notifications into debounced batches of
// change events.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/types"
)

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles file change events
type ChangeHandler func(events []types.ChangeEvent) error

// Options configures a FileWatcher.
type Options struct {
	// Root bounds every watched path. It defaults to the working directory.
	Root     string
	Debounce DebouncerOptions
	Logger   logging.Logger
}

// FileWatcher watches directories and feeds a Debouncer.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	root      string
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(opts Options) (*FileWatcher, error) {
	root := opts.Root
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
		root = cwd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute root: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher: watcher,
		root:    absRoot,
		logger:  logger.WithComponent("watcher"),
		done:    make(chan struct{}),
	}
	fw.debouncer = NewDebouncer(opts.Debounce, fw.dispatch)
	return fw, nil
}

// AddFilter adds a file filter. An event is kept only if every filter
// accepts its path.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// Debouncer returns the watcher's debouncer.
func (fw *FileWatcher) Debouncer() *Debouncer {
	return fw.debouncer
}

// AddPath adds a path to watch
func (fw *FileWatcher) AddPath(path string) error {
	cleanPath, err := fw.validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return fw.watcher.Add(cleanPath)
}

// AddRecursive adds a directory and all subdirectories to watch. Version
// control, dependency and build output directories are skipped.
func (fw *FileWatcher) AddRecursive(root string) error {
	cleanRoot, err := fw.validatePath(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	return filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != cleanRoot && SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// WatchedPaths returns the directories currently watched.
func (fw *FileWatcher) WatchedPaths() []string {
	return fw.watcher.WatchList()
}

// validatePath cleans path and makes sure it stays inside the watch root.
func (fw *FileWatcher) validatePath(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	rel, err := filepath.Rel(fw.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside %s", path, fw.root)
	}
	return absPath, nil
}

// Start starts the file watcher. It returns immediately; events are
// processed until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.watchLoop(ctx)
	return nil
}

// Stop discards pending events and closes the underlying watcher.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.done)
		fw.debouncer.Cancel()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			fw.debouncer.Cancel()
			return
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	eventType, ok := mapOp(event.Op)
	if !ok {
		return
	}

	// new directories are watched as they appear
	if eventType == types.EventAdd {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !SkipDir(info.Name()) {
				if err := fw.AddRecursive(event.Name); err != nil {
					fw.logger.Warn(context.Background(), err, "Failed to watch new directory", "path", event.Name)
				}
			}
			return
		}
	}

	if !fw.accept(event.Name) {
		return
	}

	fw.debouncer.Add(types.ChangeEvent{
		Type:      eventType,
		Path:      event.Name,
		Timestamp: time.Now(),
	})
}

func (fw *FileWatcher) accept(path string) bool {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()
	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

// mapOp converts an fsnotify operation. A rename reports the old name, so
// it is a delete; the new name arrives as a create.
func mapOp(op fsnotify.Op) (types.EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return types.EventAdd, true
	case op.Has(fsnotify.Write):
		return types.EventModify, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return types.EventDelete, true
	default:
		return 0, false
	}
}

func (fw *FileWatcher) dispatch(events []types.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	fw.mutex.RLock()
	handlers := make([]ChangeHandler, len(fw.handlers))
	copy(handlers, fw.handlers)
	fw.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler(events); err != nil {
			fw.logger.Warn(context.Background(), err, "File watcher handler error", "events", len(events))
		}
	}
}
