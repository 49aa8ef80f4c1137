// Package watch notices edits made to the snapshot file by other processes
// and reloads the store so it does not overwrite them with stale state.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/logging"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle. Editors and the atomic save both produce several per change.
const DefaultDebounce = 100 * time.Millisecond

// Reloader re-reads persisted state. *taskstore.Store satisfies it.
type Reloader interface {
	Reload() error
}

// Watcher watches one snapshot file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	target   Reloader
	bus      *event.Bus
	logger   *logging.Logger
	debounce time.Duration

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	mu      sync.Mutex
	reloads int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithBus publishes a SnapshotChangedEvent for every settled change.
func WithBus(bus *event.Bus) Option {
	return func(w *Watcher) { w.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l.WithComponent("watch")
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New prepares a watcher for the snapshot at path. The parent directory is
// watched rather than the file, because atomic saves replace the file.
func New(path string, target Reloader, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		path:     abs,
		target:   target,
		logger:   logging.NopLogger(),
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the watched snapshot path.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.watchLoop()
	}
}

// Stop stops watching and releases the underlying watcher. It is safe to
// call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	if w.started.Load() {
		<-w.done
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.Start()
	<-ctx.Done()
	w.Stop()
	return nil
}

// Reloads returns how many reloads the watcher has triggered.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	var pending fsnotify.Op
	for {
		select {
		case <-w.stopCh:
			debounceTimer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending |= ev.Op
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			if pending != 0 {
				w.flush(pending)
				pending = 0
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// flush handles one settled burst of changes.
func (w *Watcher) flush(op fsnotify.Op) {
	log := w.logger.With("path", w.path, "op", op.String())
	w.bus.Publish(event.NewSnapshotChangedEvent(w.path, op.String()))

	if _, err := os.Stat(w.path); err != nil {
		// A removed snapshot would reload as empty and wipe the store.
		log.Warn("snapshot missing after change, keeping in-memory state", "error", err)
		return
	}
	if err := w.target.Reload(); err != nil {
		log.Error("reload after external change failed", "error", err)
		return
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	log.Info("snapshot reloaded after external change")
}
