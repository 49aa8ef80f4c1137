package taskstore

import (
	"slices"

	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/task"
)

// Delete removes id and its subtree from their owner, strips every removed
// id from the remaining tasks' dependencies and blockers, and prunes the
// graph. It reports false when no such task exists.
func (s *Store) Delete(id string) (bool, error) {
	found := false
	err := s.write(func() error {
		parent, index, ok := s.owner(id)
		if !ok {
			return errNotFound
		}
		found = true

		var victim *task.Task
		if parent == nil {
			victim = s.tasks[id]
			delete(s.tasks, id)
		} else {
			victim = parent.Subtasks[index]
			parent.Subtasks = slices.Delete(parent.Subtasks, index, index+1)
			parent.Touch(s.now())
		}

		removed := task.IDs([]*task.Task{victim})
		for _, rid := range removed {
			s.stripReferences(rid)
		}
		s.logger.WithOperation("delete").WithTask(id).Debug("task deleted", "removed", removed)
		s.emit(event.NewTaskDeletedEvent(id, removed))
		return nil
	})
	if !found {
		return false, nil
	}
	return true, err
}

// stripReferences removes id from every task's dependency and blocker sets
// and drops its graph entry.
func (s *Store) stripReferences(id string) {
	now := s.now()
	task.Walk(s.forest(), func(t *task.Task) bool {
		if t.Dependencies.Has(id) || t.BlockedBy.Has(id) {
			t.RemoveDependency(id, now)
		}
		return true
	})
	s.graph.Remove(id)
}
