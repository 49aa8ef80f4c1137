package taskstore

import (
	"time"

	"github.com/Iron-Ham/tasktree/internal/depgraph"
	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// LinkResult reports the outcome of one pair in a bulk dependency update.
type LinkResult struct {
	TaskID      string
	DependsOnID string
	OK          bool
	Reason      errors.Reason
	Err         error
}

// SetDependency makes taskID depend on dependsOnID. It fails with a
// structural error if either id is unknown, the ids are equal, or the edge
// would close a cycle. Depending on a task that is already done does not
// block.
func (s *Store) SetDependency(taskID, dependsOnID string) error {
	return s.write(func() error {
		return s.link(taskID, dependsOnID)
	})
}

// RemoveDependency drops the edge taskID -> dependsOnID. Removing an absent
// edge is not an error; an unknown taskID is.
func (s *Store) RemoveDependency(taskID, dependsOnID string) error {
	return s.write(func() error {
		t := s.find(taskID)
		if t == nil {
			return errors.TaskNotFound(taskID)
		}
		s.unlink(t, dependsOnID)
		return nil
	})
}

// SetDependencies links taskID to every id in dependsOn independently. Valid
// pairs are applied even when others fail; the returned slice holds one
// result per requested pair, in order. The error is non-nil only for an
// unknown taskID or a failed snapshot write.
func (s *Store) SetDependencies(taskID string, dependsOn []string) ([]LinkResult, error) {
	var results []LinkResult
	err := s.write(func() error {
		if !s.exists(taskID) {
			return errors.TaskNotFound(taskID)
		}
		results = s.linkAll(taskID, dependsOn)
		return nil
	})
	return results, err
}

func (s *Store) linkAll(taskID string, dependsOn []string) []LinkResult {
	results := make([]LinkResult, 0, len(dependsOn))
	for _, dep := range dependsOn {
		err := s.link(taskID, dep)
		results = append(results, LinkResult{
			TaskID:      taskID,
			DependsOnID: dep,
			OK:          err == nil,
			Reason:      errors.ReasonOf(err),
			Err:         err,
		})
	}
	return results
}

// checkLink validates taskID -> dependsOnID without touching anything.
func (s *Store) checkLink(taskID, dependsOnID string) error {
	if !s.exists(taskID) {
		return errors.TaskNotFound(taskID)
	}
	if taskID == dependsOnID {
		return errors.SelfDependency(taskID)
	}
	if !s.exists(dependsOnID) {
		return errors.DependencyNotFound(taskID, dependsOnID)
	}
	if depgraph.WouldCreateCycle(taskID, dependsOnID, s.dependenciesOf) {
		return errors.DependencyCycle(taskID, dependsOnID)
	}
	return nil
}

// link adds the edge after validating it. Callers hold the write lock.
func (s *Store) link(taskID, dependsOnID string) error {
	if err := s.checkLink(taskID, dependsOnID); err != nil {
		s.logger.WithOperation("link").Debug("dependency rejected",
			"task_id", taskID,
			"depends_on", dependsOnID,
			"reason", errors.ReasonOf(err))
		return err
	}
	t := s.find(taskID)
	dep := s.find(dependsOnID)
	now := s.now()

	t.AddDependency(dependsOnID, now)
	blocking := dep.Status != task.StatusDone
	if !blocking {
		t.RemoveBlockedBy(dependsOnID, now)
	}
	s.graph.AddEdge(dependsOnID, taskID)

	s.logger.WithOperation("link").WithTask(taskID).Debug("dependency added",
		"depends_on", dependsOnID,
		"blocking", blocking)
	s.emit(event.NewDependencyAddedEvent(taskID, dependsOnID, blocking))
	return nil
}

func (s *Store) unlink(t *task.Task, dependsOnID string) {
	had := t.Dependencies.Has(dependsOnID) || t.BlockedBy.Has(dependsOnID)
	t.RemoveDependency(dependsOnID, s.now())
	s.graph.RemoveEdge(dependsOnID, t.ID)
	if !had {
		return
	}
	s.logger.WithOperation("unlink").WithTask(t.ID).Debug("dependency removed", "depends_on", dependsOnID)
	s.emit(event.NewDependencyRemovedEvent(t.ID, dependsOnID))
}

// unblockDependents clears id from the blocked-by set of every task that
// depends on it and returns the ids that changed.
func (s *Store) unblockDependents(id string, now time.Time) []string {
	var unblocked []string
	for _, depID := range s.graph.Dependents(id) {
		dependent := s.find(depID)
		if dependent == nil {
			continue
		}
		if dependent.RemoveBlockedBy(id, now) {
			unblocked = append(unblocked, depID)
		}
	}
	return unblocked
}

// applyStatus moves t to status and runs the propagation that follows: a
// transition into done unblocks dependents, and any change re-derives the
// ancestors' statuses. It reports whether the status changed.
func (s *Store) applyStatus(t *task.Task, status task.Status, synced bool, fields []string) bool {
	now := s.now()
	from := t.Status
	if !t.SetStatus(status, now) {
		return false
	}
	s.logger.WithTask(t.ID).Debug("status changed", "from", from, "to", status, "synced", synced)
	s.emit(event.NewTaskUpdatedEvent(t.ID, fields, string(from), string(status), synced))

	if status == task.StatusDone {
		unblocked := s.unblockDependents(t.ID, now)
		s.emit(event.NewTaskCompletedEvent(t.ID, unblocked, synced))
	}
	s.syncParent(t.ID)
	return true
}

// syncParent re-derives the status of id's parent from its children. A
// parent whose status changes propagates further up.
func (s *Store) syncParent(id string) {
	parentID, ok := taskid.Parent(id)
	if !ok {
		return
	}
	parent := s.parentOf(id)
	if parent == nil {
		// Orphaned subtask stored at the top level.
		return
	}
	if parent.ID != parentID {
		s.logger.Warn("subtask id does not extend its owner", "task_id", id, "owner", parent.ID)
	}
	status, ok := task.RollupStatus(parent.Subtasks)
	if !ok || status == parent.Status {
		return
	}
	s.applyStatus(parent, status, true, []string{"status"})
}
