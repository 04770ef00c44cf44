package watcher

import (
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/docsync/internal/types"
)

// DebouncerOptions holds the two debounce timers.
type DebouncerOptions struct {
	// QuietPeriod is restarted by every event; the batch is delivered once
	// it elapses with no further arrivals.
	QuietPeriod time.Duration `mapstructure:"quiet_period" yaml:"quiet_period"`
	// MaxWait is armed by the first event of a batch and bounds how long a
	// continuous stream of events can delay delivery.
	MaxWait time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
}

// DefaultDebouncerOptions returns a 300ms quiet period and a 2s max wait.
func DefaultDebouncerOptions() DebouncerOptions {
	return DebouncerOptions{
		QuietPeriod: 300 * time.Millisecond,
		MaxWait:     2 * time.Second,
	}
}

// BatchHandler receives a consolidated batch of events.
type BatchHandler func(events []types.ChangeEvent)

// Debouncer groups rapid file changes together. It owns its pending buffer;
// batches handed to the handler are fresh slices.
//
// Handlers are called one at a time from a timer goroutine or from Flush.
// A handler may call Add but must not call Flush.
type Debouncer struct {
	opts    DebouncerOptions
	handler BatchHandler

	mu      sync.Mutex
	pending []types.ChangeEvent
	quiet   *time.Timer
	maxWait *time.Timer
	// generation changes whenever the buffer is taken or discarded, so a
	// timer that fired for an older batch does nothing.
	generation uint64
	// quietSeq identifies the live quiet timer.
	quietSeq uint64

	deliverMu sync.Mutex
}

// NewDebouncer creates a debouncer delivering to handler. Non-positive
// durations fall back to the defaults and MaxWait is raised to at least
// QuietPeriod.
func NewDebouncer(opts DebouncerOptions, handler BatchHandler) *Debouncer {
	defaults := DefaultDebouncerOptions()
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = defaults.QuietPeriod
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = defaults.MaxWait
	}
	if opts.MaxWait < opts.QuietPeriod {
		opts.MaxWait = opts.QuietPeriod
	}
	if handler == nil {
		handler = func([]types.ChangeEvent) {}
	}
	return &Debouncer{opts: opts, handler: handler}
}

// Add buffers an event and restarts the quiet period.
func (d *Debouncer) Add(event types.ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(event)
}

// AddAll buffers events and restarts the quiet period once.
func (d *Debouncer) AddAll(events []types.ChangeEvent) {
	if len(events) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, events[:len(events)-1]...)
	d.addLocked(events[len(events)-1])
}

func (d *Debouncer) addLocked(event types.ChangeEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	d.pending = append(d.pending, event)

	gen := d.generation
	d.quietSeq++
	seq := d.quietSeq
	if d.quiet != nil {
		d.quiet.Stop()
	}
	d.quiet = time.AfterFunc(d.opts.QuietPeriod, func() {
		d.fire(gen, seq, true)
	})

	if d.maxWait == nil {
		d.maxWait = time.AfterFunc(d.opts.MaxWait, func() {
			d.fire(gen, 0, false)
		})
	}
}

// fire delivers the batch of generation gen unless it was already taken.
func (d *Debouncer) fire(gen, seq uint64, fromQuiet bool) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	if gen != d.generation || len(d.pending) == 0 || (fromQuiet && seq != d.quietSeq) {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()

	d.handler(Consolidate(batch))
}

// Flush delivers whatever is buffered before returning, bypassing the quiet
// period.
func (d *Debouncer) Flush() {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	batch := d.takeLocked()
	d.mu.Unlock()

	if len(batch) > 0 {
		d.handler(Consolidate(batch))
	}
}

// Cancel discards buffered events and stops both timers. The handler is not
// called.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.takeLocked()
}

// PendingCount returns the number of buffered events.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// takeLocked stops both timers, empties the buffer and starts a new
// generation.
func (d *Debouncer) takeLocked() []types.ChangeEvent {
	if d.quiet != nil {
		d.quiet.Stop()
		d.quiet = nil
	}
	if d.maxWait != nil {
		d.maxWait.Stop()
		d.maxWait = nil
	}
	d.generation++
	batch := d.pending
	d.pending = nil
	return batch
}

// Consolidate reduces a batch to at most one event per path. The event with
// the latest timestamp wins, except that a delete of a path added earlier
// in the batch cancels out, even with modifies in between, and a delete
// followed by an add becomes a modify. Paths keep the order in which they
// were first seen.
func Consolidate(events []types.ChangeEvent) []types.ChangeEvent {
	if len(events) == 0 {
		return nil
	}

	var order []string
	byPath := make(map[string][]types.ChangeEvent)
	for _, ev := range events {
		if _, ok := byPath[ev.Path]; !ok {
			order = append(order, ev.Path)
		}
		byPath[ev.Path] = append(byPath[ev.Path], ev)
	}

	out := make([]types.ChangeEvent, 0, len(order))
	for _, path := range order {
		if ev, ok := foldPath(byPath[path]); ok {
			out = append(out, ev)
		}
	}
	return out
}

func foldPath(events []types.ChangeEvent) (types.ChangeEvent, bool) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	var cur types.ChangeEvent
	var have bool
	// born is set while the path did not exist before the batch
	var born bool
	var pkg string
	for _, ev := range events {
		if ev.PackageName != "" {
			pkg = ev.PackageName
		}
		switch {
		case !have:
			cur, have = ev, true
			born = ev.Type == types.EventAdd
		case born && ev.Type == types.EventDelete:
			have = false
		case cur.Type == types.EventDelete && ev.Type == types.EventAdd:
			cur = ev
			cur.Type = types.EventModify
		default:
			cur = ev
		}
	}
	if have && cur.PackageName == "" {
		cur.PackageName = pkg
	}
	return cur, have
}
