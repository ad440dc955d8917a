// Package watch notices when the database file is changed by another
// process so an open grid can refresh. Last write wins; the watcher only
// says "something changed", the grid re-reads and merges.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"airgrid/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the bursts of writes a single commit produces.
const DefaultDebounce = 300 * time.Millisecond

// Change is one debounced notification.
type Change struct {
	Path   string // last file that changed
	Events int    // raw events folded into this change
	At     time.Time
}

// Stats tracks watcher activity for debugging.
type Stats struct {
	Events        int
	Changes       int
	Errors        int
	LastEventPath string
	LastEventType string
	LastEventTime time.Time
}

// DBWatcher watches a database file and its SQLite sidecar files (-wal,
// -shm, -journal).
type DBWatcher struct {
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	dir      string
	base     string
	debounce time.Duration
	changes  chan Change
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	pending     int
	pendingPath string
	lastEvent   time.Time

	stats Stats
}

// NewDBWatcher creates a watcher for dbPath. A debounce of zero uses
// DefaultDebounce.
func NewDBWatcher(dbPath string, debounce time.Duration) (*DBWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		abs = dbPath
	}
	return &DBWatcher{
		watcher:  watcher,
		dir:      filepath.Dir(abs),
		base:     filepath.Base(abs),
		debounce: debounce,
		changes:  make(chan Change, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Changes delivers debounced notifications. Changes that arrive while one is
// still unread are folded into it.
func (w *DBWatcher) Changes() <-chan Change { return w.changes }

// Start begins watching. It is non-blocking.
func (w *DBWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		logging.WatchWarn("DBWatcher: failed to create dir %s: %v (continuing anyway)", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("DBWatcher: watching %s in %s", w.base, w.dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine.
func (w *DBWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchWarn("DBWatcher: error closing watcher: %v", err)
	}
	logging.Watch("DBWatcher: stopped")
}

// Stats returns a copy of the activity counters.
func (w *DBWatcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *DBWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(w.debounce / 4)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchWarn("DBWatcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case now := <-tick.C:
			w.flush(now)
		}
	}
}

// relevant reports whether name is the database or one of its sidecars.
func (w *DBWatcher) relevant(name string) bool {
	file := filepath.Base(name)
	if file == w.base {
		return true
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if file == w.base+suffix {
			return true
		}
	}
	return false
}

func (w *DBWatcher) handleEvent(event fsnotify.Event) {
	if !w.relevant(event.Name) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.WatchDebug("DBWatcher: %s event for %s", eventType, event.Name)

	now := time.Now()
	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	w.stats.LastEventTime = now
	w.mu.Unlock()

	w.pending++
	w.pendingPath = event.Name
	w.lastEvent = now
}

// flush emits the pending change once the files have been quiet for the
// debounce interval.
func (w *DBWatcher) flush(now time.Time) {
	if w.pending == 0 || now.Sub(w.lastEvent) < w.debounce {
		return
	}
	change := Change{Path: w.pendingPath, Events: w.pending, At: now}
	w.pending = 0

	select {
	case w.changes <- change:
	default:
		// Unread change still queued; it already tells the reader to refresh.
		logging.WatchDebug("DBWatcher: folded %d events into queued change", change.Events)
	}

	w.mu.Lock()
	w.stats.Changes++
	w.mu.Unlock()
	logging.WatchDebug("DBWatcher: change after %d events (%s)", change.Events, strings.TrimPrefix(change.Path, w.dir+string(filepath.Separator)))
}
