// Package tracker decides which packages need their documentation
// regenerated.
//
// A Tracker keeps a digest per path and reports a path as changed when its
// current content digest differs from the recorded one. A failure to compute
// a digest counts as a change, so a real edit is never skipped. Events are
// grouped by package and classified into categories, and the categories of a
// package select its regeneration scope.
package tracker

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/conneroisu/docsync/internal/errors"
	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/types"
)

// Tracker owns the path -> digest map. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	digests  map[string]string
	digester *Digester

	classifier *Classifier
	resolver   PackageResolver
	logger     logging.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClassifier sets the classifier used by AnalyzeChanges.
func WithClassifier(c *Classifier) Option {
	return func(t *Tracker) {
		if c != nil {
			t.classifier = c
		}
	}
}

// WithResolver sets how package names are derived from paths.
func WithResolver(r PackageResolver) Option {
	return func(t *Tracker) {
		if r != nil {
			t.resolver = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l.WithComponent("tracker")
		}
	}
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		digests:    make(map[string]string),
		digester:   NewDigester(),
		classifier: DefaultClassifier(),
		resolver:   PackagesDirResolver("packages"),
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasChanged reports whether path differs from its recorded digest. A path
// with no recorded digest has changed. When the digest cannot be computed
// HasChanged returns true together with a tracker error.
func (t *Tracker) HasChanged(ctx context.Context, path string) (bool, error) {
	key := Key(path)

	t.mu.RLock()
	recorded, ok := t.digests[key]
	t.mu.RUnlock()
	if !ok {
		return true, nil
	}

	current, err := t.digester.Digest(ctx, key)
	if err != nil {
		return true, digestError(err, key)
	}
	return current != recorded, nil
}

// Record computes and stores the digest of path. On failure any previous
// digest is dropped so the path keeps reporting as changed.
func (t *Tracker) Record(ctx context.Context, path string) error {
	key := Key(path)

	digest, err := t.digester.Digest(ctx, key)
	if err != nil {
		t.mu.Lock()
		delete(t.digests, key)
		t.mu.Unlock()
		return digestError(err, key)
	}

	t.mu.Lock()
	t.digests[key] = digest
	t.mu.Unlock()
	return nil
}

// Clear forgets the digest of path.
func (t *Tracker) Clear(path string) {
	key := Key(path)
	t.mu.Lock()
	delete(t.digests, key)
	t.mu.Unlock()
	t.digester.Forget(key)
}

// ClearAll forgets every digest.
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	t.digests = make(map[string]string)
	t.mu.Unlock()
	t.digester.Reset()
}

// Digest returns the recorded digest of path.
func (t *Tracker) Digest(path string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.digests[Key(path)]
	return d, ok
}

// Len returns the number of recorded digests.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.digests)
}

// Snapshot returns a copy of the digest map.
func (t *Tracker) Snapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.digests))
	for k, v := range t.digests {
		out[k] = v
	}
	return out
}

// Paths returns the recorded paths in sorted order.
func (t *Tracker) Paths() []string {
	t.mu.RLock()
	paths := make([]string, 0, len(t.digests))
	for p := range t.digests {
		paths = append(paths, p)
	}
	t.mu.RUnlock()
	sort.Strings(paths)
	return paths
}

// FilterUnchanged drops modify events whose content digest matches the
// recorded one. Add and delete events always pass.
func (t *Tracker) FilterUnchanged(ctx context.Context, events []types.ChangeEvent) []types.ChangeEvent {
	out := make([]types.ChangeEvent, 0, len(events))
	for _, ev := range events {
		if ev.Type != types.EventModify {
			out = append(out, ev)
			continue
		}
		changed, err := t.HasChanged(ctx, ev.Path)
		if err != nil {
			t.logger.Warn(ctx, err, "Treating unreadable file as changed", "path", ev.Path)
		}
		if changed {
			out = append(out, ev)
		}
	}
	return out
}

// Classify returns the category of path.
func (t *Tracker) Classify(path string) Category {
	return t.classifier.Classify(path)
}

// Key returns the form of path used for digest keys. Paths are made
// absolute so a relative path from a directory walk and the absolute path
// the watcher reports for the same file share one digest.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func digestError(err error, path string) error {
	return errors.NewTrackerError(errors.ErrCodeDigestFailed, "failed to compute content digest", err).
		WithLocation(path, 0, 0)
}
