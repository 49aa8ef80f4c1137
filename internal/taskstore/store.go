package taskstore

import (
	"slices"
	"sync"
	"time"

	"github.com/Iron-Ham/tasktree/internal/depgraph"
	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/logging"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// Store owns the top-level task map and the derived dependency graph.
type Store struct {
	mu      sync.RWMutex
	tasks   map[string]*task.Task // top-level id -> task
	graph   *depgraph.Graph
	storage snapshot.Storage

	logger *logging.Logger
	bus    *event.Bus
	now    func() time.Time

	pending []event.Event // published once the write lock is released
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent("taskstore")
		}
	}
}

// WithBus publishes task lifecycle events on bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty store writing snapshots to storage. A nil storage
// keeps everything in memory.
func New(storage snapshot.Storage, opts ...Option) *Store {
	s := &Store{
		tasks:   make(map[string]*task.Task),
		graph:   depgraph.New(),
		storage: storage,
		logger:  logging.NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store populated from storage.
func Open(storage snapshot.Storage, opts ...Option) (*Store, error) {
	s := New(storage, opts...)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Location describes where snapshots are written, empty for in-memory stores.
func (s *Store) Location() string {
	if s.storage == nil {
		return ""
	}
	return s.storage.Location()
}

// -----------------------------------------------------------------------------
// Lookup helpers. Callers hold s.mu.
// -----------------------------------------------------------------------------

// forest returns the top-level tasks in id order.
func (s *Store) forest() []*task.Task {
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *task.Task) int { return taskid.Compare(a.ID, b.ID) })
	return out
}

// find resolves id anywhere in the forest. Top-level entries are checked
// first, then the subtree of the id's root, then every subtree so that
// subtasks stored at the top level while their parent was missing are
// still reachable.
func (s *Store) find(id string) *task.Task {
	if t, ok := s.tasks[id]; ok {
		return t
	}
	if root, ok := s.tasks[taskid.Root(id)]; ok {
		if t := task.Find(root.Subtasks, id); t != nil {
			return t
		}
	}
	return task.Find(s.forest(), id)
}

// owner returns the slice holding id and its index in it. A nil parent means
// id is stored in the top-level map.
func (s *Store) owner(id string) (parent *task.Task, index int, ok bool) {
	if _, found := s.tasks[id]; found {
		return nil, -1, true
	}
	var result *task.Task
	idx := -1
	task.Walk(s.forest(), func(t *task.Task) bool {
		for i, sub := range t.Subtasks {
			if sub.ID == id {
				result, idx = t, i
				return false
			}
		}
		return true
	})
	return result, idx, result != nil
}

func (s *Store) exists(id string) bool {
	return s.find(id) != nil
}

// parentOf returns the task owning id as a subtask, or nil.
func (s *Store) parentOf(id string) *task.Task {
	parent, _, ok := s.owner(id)
	if !ok {
		return nil
	}
	return parent
}

// dependenciesOf adapts the live forest to depgraph.DependenciesFunc.
func (s *Store) dependenciesOf(id string) []string {
	t := s.find(id)
	if t == nil {
		return nil
	}
	return t.Dependencies.Sorted()
}

func (s *Store) allIDs() []string {
	return task.IDs(s.forest())
}

func (s *Store) countAll() int {
	n := 0
	task.Walk(s.forest(), func(*task.Task) bool {
		n++
		return true
	})
	return n
}

// -----------------------------------------------------------------------------
// Write path
// -----------------------------------------------------------------------------

// write runs fn under the write lock. When fn succeeds the full snapshot is
// persisted. Events queued by fn are published after the lock is released,
// whether or not persisting succeeded.
func (s *Store) write(fn func() error) error {
	s.mu.Lock()
	err := fn()
	if err == nil {
		err = s.persist()
	}
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range events {
		s.bus.Publish(e)
	}
	return err
}

// persist writes the full snapshot. Failures leave memory untouched.
func (s *Store) persist() error {
	if s.storage == nil {
		return nil
	}
	if err := s.storage.Save(snapshot.ToRecords(s.forest())); err != nil {
		s.logger.Error("snapshot write failed, memory and disk have drifted",
			"location", s.storage.Location(),
			"error", err)
		s.emit(event.NewPersistFailedEvent(s.storage.Location(), err))
		if errors.IsPersistence(err) {
			return err
		}
		return errors.NewPersistenceError(s.storage.Location(), err)
	}
	return nil
}

func (s *Store) emit(e event.Event) {
	if s.bus == nil {
		return
	}
	s.pending = append(s.pending, e)
}

// Reload replaces in-memory state with the stored snapshot and rebuilds the
// dependency graph. Cycles found in the loaded data are logged, not rejected.
func (s *Store) Reload() error {
	if s.storage == nil {
		return nil
	}
	records, err := s.storage.Load()
	if err != nil {
		s.logger.Error("snapshot load failed", "location", s.storage.Location(), "error", err)
		return err
	}

	s.mu.Lock()
	s.replace(snapshot.FromRecords(records, s.now()))
	cycles := depgraph.FindCycles(s.forest())
	for _, c := range cycles {
		s.logger.Warn("dependency cycle in loaded snapshot", "cycle", c)
	}
	count := s.countAll()
	s.logger.Info("snapshot loaded", "location", s.storage.Location(), "tasks", count)
	s.emit(event.NewStoreLoadedEvent(s.storage.Location(), count, len(cycles)))
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range events {
		s.bus.Publish(e)
	}
	return nil
}

// replace installs forest as the full task set. Duplicate top-level ids
// keep the last occurrence.
func (s *Store) replace(forest []*task.Task) {
	s.tasks = make(map[string]*task.Task, len(forest))
	for _, t := range forest {
		if _, dup := s.tasks[t.ID]; dup {
			s.logger.Warn("duplicate task id in snapshot, keeping last", "task_id", t.ID)
		}
		s.tasks[t.ID] = t
	}
	s.graph = depgraph.Rebuild(s.forest())
}

// Clear drops every task and writes an empty snapshot.
func (s *Store) Clear() error {
	return s.write(func() error {
		removed := s.countAll()
		s.tasks = make(map[string]*task.Task)
		s.graph = depgraph.New()
		s.logger.Info("store cleared", "removed", removed)
		s.emit(event.NewStoreClearedEvent(removed))
		return nil
	})
}
