package taskstore

import (
	"slices"

	"github.com/Iron-Ham/tasktree/internal/depgraph"
	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// Update lists the fields to change. Nil fields are left alone. The id is
// never settable.
type Update struct {
	Name           *string
	Description    *string
	Status         *task.Status
	Priority       *task.Priority
	Complexity     *task.Complexity
	Tags           *[]string
	AssignedTo     *string
	EstimatedHours *float64
	ActualHours    *float64
	CodeReferences *[]string

	// Dependencies replaces the declared dependency set. Every new edge is
	// validated like SetDependency before anything changes.
	Dependencies *[]string

	// Subtasks replaces the child list with fully formed tasks.
	Subtasks *[]*task.Task
	// SubtaskRecords replaces the child list with wire records, converted
	// after validation. Setting both Subtasks and SubtaskRecords is an error.
	SubtaskRecords *[]snapshot.Record
}

// Ptr returns a pointer to v, for building an Update inline.
func Ptr[T any](v T) *T {
	return &v
}

// Fields returns the names of the fields u sets, in wire order.
func (u Update) Fields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(u.Name != nil, "name")
	add(u.Description != nil, "description")
	add(u.Status != nil, "status")
	add(u.Priority != nil, "priority")
	add(u.Complexity != nil, "complexity")
	add(u.Dependencies != nil, "dependencies")
	add(u.Tags != nil, "tags")
	add(u.AssignedTo != nil, "assigned_to")
	add(u.EstimatedHours != nil, "estimated_hours")
	add(u.ActualHours != nil, "actual_hours")
	add(u.CodeReferences != nil, "code_references")
	add(u.Subtasks != nil || u.SubtaskRecords != nil, "subtasks")
	return out
}

// Update applies u to the task with id. The second result is false when no
// such task exists. Validation and structural failures leave the task
// untouched. A status change re-derives the parent's status; a change into
// done also unblocks dependents.
func (s *Store) Update(id string, u Update) (*task.Task, bool, error) {
	found := false
	err := s.write(func() error {
		t := s.find(id)
		if t == nil {
			return errNotFound
		}
		found = true
		return s.update(t, u)
	})
	if !found {
		return nil, false, nil
	}
	return s.cloneOf(id), true, err
}

// MarkDone moves id to done and unblocks its dependents. It reports false
// when no such task exists.
func (s *Store) MarkDone(id string) (bool, error) {
	_, ok, err := s.Update(id, Update{Status: Ptr(task.StatusDone)})
	return ok, err
}

// Start moves id to in_progress.
func (s *Store) Start(id string) (bool, error) {
	_, ok, err := s.Update(id, Update{Status: Ptr(task.StatusInProgress)})
	return ok, err
}

// errNotFound aborts a write without persisting. It never escapes the store.
var errNotFound = errors.New("not found")

func (s *Store) update(t *task.Task, u Update) error {
	if err := s.validateUpdate(t, u); err != nil {
		return err
	}
	subtasks, err := s.resolveSubtasks(t, u)
	if err != nil {
		return err
	}

	now := s.now()
	fields := u.Fields()
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Complexity != nil {
		t.Complexity = *u.Complexity
	}
	if u.Tags != nil {
		t.Tags = slices.Clone(*u.Tags)
	}
	if u.AssignedTo != nil {
		t.AssignedTo = *u.AssignedTo
	}
	if u.EstimatedHours != nil {
		hours := *u.EstimatedHours
		t.EstimatedHours = &hours
	}
	if u.ActualHours != nil {
		hours := *u.ActualHours
		t.ActualHours = &hours
	}
	if u.CodeReferences != nil {
		t.CodeReferences = slices.Clone(*u.CodeReferences)
	}
	if u.Dependencies != nil {
		s.replaceDependencies(t, *u.Dependencies)
	}
	if subtasks != nil {
		s.replaceSubtasks(t, *subtasks)
	}
	t.Touch(now)

	s.logger.WithOperation("update").WithTask(t.ID).Debug("task updated", "fields", fields)

	statusChanged := false
	if u.Status != nil {
		statusChanged = s.applyStatus(t, *u.Status, false, fields)
	}
	if !statusChanged {
		s.emit(event.NewTaskUpdatedEvent(t.ID, fields, string(t.Status), string(t.Status), false))
	}
	if subtasks != nil {
		s.syncChildren(t)
	}
	return nil
}

func (s *Store) validateUpdate(t *task.Task, u Update) error {
	var status task.Status
	var priority task.Priority
	var complexity task.Complexity
	if u.Status != nil {
		status = *u.Status
		if status == "" {
			return errors.NewValidationError("status cannot be empty").
				WithField("status").
				WithCause(errors.ErrInvalidStatus)
		}
	}
	if u.Priority != nil {
		priority = *u.Priority
		if priority == "" {
			return errors.NewValidationError("priority cannot be empty").
				WithField("priority").
				WithCause(errors.ErrInvalidPriority)
		}
	}
	if u.Complexity != nil {
		complexity = *u.Complexity
		if complexity == "" {
			return errors.NewValidationError("complexity cannot be empty").
				WithField("complexity").
				WithCause(errors.ErrInvalidComplexity)
		}
	}
	if err := validateEnums(status, priority, complexity); err != nil {
		return err
	}
	if u.Subtasks != nil && u.SubtaskRecords != nil {
		return errors.NewValidationError("set either subtask tasks or subtask records, not both").
			WithField("subtasks").
			WithCause(errors.ErrInvalidSubtask)
	}
	if u.Dependencies != nil {
		for _, dep := range *u.Dependencies {
			if t.Dependencies.Has(dep) {
				continue
			}
			if err := s.checkLink(t.ID, dep); err != nil {
				return err
			}
		}
	}
	return nil
}

// replaceDependencies swaps t's declared dependencies for deps. New edges
// were validated by validateUpdate.
func (s *Store) replaceDependencies(t *task.Task, deps []string) {
	want := task.NewIDSet(deps...)
	for _, old := range t.Dependencies.Sorted() {
		if !want.Has(old) {
			s.unlink(t, old)
		}
	}
	for _, dep := range deps {
		if t.Dependencies.Has(dep) {
			continue
		}
		if err := s.link(t.ID, dep); err != nil {
			s.logger.WithTask(t.ID).Warn("dependency dropped during replace", "depends_on", dep, "error", err)
		}
	}
}

// resolveSubtasks converts and validates a replacement child list. It
// returns nil when u does not touch subtasks.
func (s *Store) resolveSubtasks(parent *task.Task, u Update) (*[]*task.Task, error) {
	var children []*task.Task
	switch {
	case u.Subtasks != nil:
		for _, sub := range *u.Subtasks {
			if sub == nil {
				return nil, errors.NewValidationError("nil subtask").
					WithField("subtasks").
					WithCause(errors.ErrInvalidSubtask)
			}
			children = append(children, sub.Clone())
		}
	case u.SubtaskRecords != nil:
		now := s.now()
		for _, r := range *u.SubtaskRecords {
			if err := snapshot.Validate(r); err != nil {
				return nil, err
			}
			children = append(children, snapshot.FromRecord(r, now))
		}
	default:
		return nil, nil
	}

	// Ids already used outside the subtree being replaced.
	outside := task.NewIDSet()
	for _, id := range s.allIDs() {
		if id == parent.ID || !taskid.IsDescendant(id, parent.ID) {
			outside.Add(id)
		}
	}
	seen := task.NewIDSet()
	var checkErr error
	task.Walk(children, func(c *task.Task) bool {
		switch {
		case !taskid.Valid(c.ID):
			checkErr = errors.NewValidationError("malformed subtask id").
				WithField("subtasks").WithValue(c.ID).WithCause(errors.ErrInvalidID)
		case !taskid.IsDescendant(c.ID, parent.ID):
			checkErr = errors.NewValidationError("subtask id must extend its parent id").
				WithField("subtasks").WithValue(c.ID).WithCause(errors.ErrInvalidSubtask)
		case seen.Has(c.ID) || outside.Has(c.ID):
			checkErr = errors.NewValidationError("duplicate subtask id").
				WithField("subtasks").WithValue(c.ID).WithCause(errors.ErrInvalidSubtask)
		}
		seen.Add(c.ID)
		return checkErr == nil
	})
	if checkErr != nil {
		return nil, checkErr
	}
	for _, c := range children {
		if !taskid.IsDirectChild(c.ID, parent.ID) {
			return nil, errors.NewValidationError("subtask id must be a direct child of its parent").
				WithField("subtasks").WithValue(c.ID).WithCause(errors.ErrInvalidSubtask)
		}
	}

	// Dependencies must resolve and must not close a cycle once installed.
	candidate := s.candidateForest(parent.ID, children)
	known := task.NewIDSet(task.IDs(candidate)...)
	var depErr error
	task.Walk(children, func(c *task.Task) bool {
		for _, dep := range c.Dependencies.Sorted() {
			if dep == c.ID {
				depErr = errors.SelfDependency(c.ID)
				return false
			}
			if !known.Has(dep) {
				depErr = errors.DependencyNotFound(c.ID, dep)
				return false
			}
		}
		return true
	})
	if depErr != nil {
		return nil, depErr
	}
	for _, c := range depgraph.FindCycles(candidate) {
		if slices.ContainsFunc(c, seen.Has) {
			return nil, errors.DependencyCycle(c[0], c[1])
		}
	}
	return &children, nil
}

// candidateForest returns the forest as it would look with parentID's
// children replaced. Only the path down to parentID is copied.
func (s *Store) candidateForest(parentID string, children []*task.Task) []*task.Task {
	var rebuild func(list []*task.Task) []*task.Task
	rebuild = func(list []*task.Task) []*task.Task {
		out := make([]*task.Task, len(list))
		for i, t := range list {
			switch {
			case t.ID == parentID:
				cp := *t
				cp.Subtasks = children
				out[i] = &cp
			case taskid.IsDescendant(parentID, t.ID):
				cp := *t
				cp.Subtasks = rebuild(t.Subtasks)
				out[i] = &cp
			default:
				out[i] = t
			}
		}
		return out
	}
	return rebuild(s.forest())
}

// replaceSubtasks installs children under parent. Blockers are normalized
// so declared dependencies that are not yet done block, and done ones do
// not. The graph is rebuilt because whole subtrees come and go.
func (s *Store) replaceSubtasks(parent *task.Task, children []*task.Task) {
	removed := task.IDs(parent.Subtasks)
	parent.Subtasks = children

	keep := task.NewIDSet(task.IDs(children)...)
	for _, id := range removed {
		if keep.Has(id) {
			continue
		}
		s.stripReferences(id)
	}

	now := s.now()
	task.Walk(children, func(c *task.Task) bool {
		for dep := range c.Dependencies {
			c.AddBlockedBy(dep, now)
		}
		for dep := range c.BlockedBy {
			if d := s.find(dep); d != nil && d.Status == task.StatusDone {
				c.RemoveBlockedBy(dep, now)
			}
		}
		return true
	})
	s.graph = depgraph.Rebuild(s.forest())
}

// syncChildren re-derives parent's status from a freshly installed child list.
func (s *Store) syncChildren(parent *task.Task) {
	if len(parent.Subtasks) == 0 {
		return
	}
	s.syncParent(parent.Subtasks[0].ID)
}

// cloneOf returns a deep copy of id, or nil.
func (s *Store) cloneOf(id string) *task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(id).Clone()
}
