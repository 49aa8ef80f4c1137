package taskstore

import (
	"slices"

	"github.com/Iron-Ham/tasktree/internal/depgraph"
	"github.com/Iron-Ham/tasktree/internal/scheduler"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// DefaultPageSize is used by List when Filter.PageSize is not positive.
const DefaultPageSize = 100

// Filter narrows List. Zero-valued fields match everything.
type Filter struct {
	Status     task.Status
	Priority   task.Priority
	Tag        string
	AssignedTo string

	// Page is 1-based; values below 1 are treated as 1.
	Page     int
	PageSize int
}

func (f Filter) match(t *task.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Tag != "" && !t.HasTag(f.Tag) {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	return true
}

// Get returns a copy of the task with id, top-level or nested.
func (s *Store) Get(id string) (*task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.find(id)
	if t == nil {
		return nil, false
	}
	return t.Clone(), true
}

// Forest returns a copy of every top-level task with its subtree, in id order.
func (s *Store) Forest() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	forest := s.forest()
	out := make([]*task.Task, len(forest))
	for i, t := range forest {
		out[i] = t.Clone()
	}
	return out
}

// List flattens every task, nested ones included, applies f, sorts by id
// and returns the requested page together with the number of matches.
// Returned tasks are copies and keep their subtasks.
func (s *Store) List(f Filter) ([]*task.Task, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*task.Task
	task.Walk(s.forest(), func(t *task.Task) bool {
		if f.match(t) {
			matched = append(matched, t)
		}
		return true
	})
	slices.SortStableFunc(matched, func(a, b *task.Task) int { return taskid.Compare(a.ID, b.ID) })

	total := len(matched)
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	// Compare in pages first so huge page numbers cannot overflow the offset.
	if total == 0 || page-1 > (total-1)/size {
		return []*task.Task{}, total
	}
	start := (page - 1) * size
	end := min(start+size, total)

	out := make([]*task.Task, 0, end-start)
	for _, t := range matched[start:end] {
		out = append(out, t.Clone())
	}
	return out, total
}

// CountByStatus tallies every task, nested ones included. Every status has
// an entry.
func (s *Store) CountByStatus() map[task.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[task.Status]int, len(task.Statuses))
	for _, st := range task.Statuses {
		counts[st] = 0
	}
	task.Walk(s.forest(), func(t *task.Task) bool {
		counts[t.Status]++
		return true
	})
	return counts
}

// Select runs the scheduler over the current state. The selection holds
// copies, so callers may keep it across mutations.
func (s *Store) Select(limit int) scheduler.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel := scheduler.Select(s.forest(), s.graph, limit)
	if sel.Parent != nil {
		s.logger.WithOperation("next").Debug("parent selected",
			"parent_id", sel.Parent.ID,
			"candidates", len(sel.Candidates))
	}

	out := scheduler.Selection{Parent: sel.Parent.Clone()}
	for _, c := range sel.Candidates {
		out.Candidates = append(out.Candidates, c.Clone())
	}
	return out
}

// Next returns the single task to work on next. The second result is false
// when nothing is executable.
func (s *Store) Next() (*task.Task, bool) {
	return s.Select(1).Next()
}

// Dependents returns the ids of tasks that depend on id.
func (s *Store) Dependents(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Dependents(id)
}

// Cycles reports every dependency cycle in the current data. Writes through
// the store never create one; loaded or hand-edited snapshots may hold some.
func (s *Store) Cycles() [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return depgraph.FindCycles(s.forest())
}

// Len returns the number of tasks, nested ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countAll()
}
