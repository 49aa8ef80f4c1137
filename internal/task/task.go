package task

import (
	"slices"
	"time"
)

// Task is one unit of work. A task exclusively owns its Subtasks; the parent
// of a task is derived from its ID and never stored.
type Task struct {
	ID          string
	Name        string
	Description string
	Status      Status
	Priority    Priority
	Complexity  Complexity

	// Dependencies is the declared set of ids that must be done first.
	Dependencies IDSet

	// BlockedBy is the live set of unfinished prerequisites.
	BlockedBy IDSet

	Tags           []string
	AssignedTo     string
	EstimatedHours *float64
	ActualHours    *float64
	CodeReferences []string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	Subtasks []*Task
}

// Params holds the descriptive fields for New. Zero-valued enums take their defaults.
type Params struct {
	ID             string
	Name           string
	Description    string
	Status         Status
	Priority       Priority
	Complexity     Complexity
	Dependencies   []string
	Tags           []string
	AssignedTo     string
	EstimatedHours *float64
	ActualHours    *float64
	CodeReferences []string
}

// New builds a task stamped with now. Status defaults to todo, priority and
// complexity to medium, and BlockedBy is seeded from Dependencies.
func New(p Params, now time.Time) *Task {
	t := &Task{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Status:         p.Status,
		Priority:       p.Priority,
		Complexity:     p.Complexity,
		Dependencies:   NewIDSet(),
		BlockedBy:      NewIDSet(),
		Tags:           cloneStrings(p.Tags),
		AssignedTo:     p.AssignedTo,
		EstimatedHours: cloneFloat(p.EstimatedHours),
		ActualHours:    cloneFloat(p.ActualHours),
		CodeReferences: cloneStrings(p.CodeReferences),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Complexity == "" {
		t.Complexity = ComplexityMedium
	}
	for _, dep := range p.Dependencies {
		if dep == "" || dep == t.ID {
			continue
		}
		t.Dependencies.Add(dep)
		t.BlockedBy.Add(dep)
	}
	if t.Status == StatusDone {
		done := now
		t.CompletedAt = &done
	}
	return t
}

// IsExecutable reports whether nothing blocks the task and it is not terminal.
func (t *Task) IsExecutable() bool {
	return len(t.BlockedBy) == 0 && !t.Status.IsTerminal()
}

// HasSubtasks reports whether the task owns any children.
func (t *Task) HasSubtasks() bool {
	return len(t.Subtasks) > 0
}

// Touch bumps UpdatedAt.
func (t *Task) Touch(now time.Time) {
	t.UpdatedAt = now
}

// AddDependency records id as both a declared dependency and a live blocker.
// Self-membership is ignored.
func (t *Task) AddDependency(id string, now time.Time) {
	if id == t.ID {
		return
	}
	t.ensureSets()
	t.Dependencies.Add(id)
	t.BlockedBy.Add(id)
	t.Touch(now)
}

// RemoveDependency drops id from both sets. Removing an absent id is a no-op
// apart from the timestamp.
func (t *Task) RemoveDependency(id string, now time.Time) {
	delete(t.Dependencies, id)
	delete(t.BlockedBy, id)
	t.Touch(now)
}

// AddBlockedBy marks id as a live blocker without declaring a dependency.
func (t *Task) AddBlockedBy(id string, now time.Time) {
	if id == t.ID {
		return
	}
	t.ensureSets()
	t.BlockedBy.Add(id)
	t.Touch(now)
}

// RemoveBlockedBy clears id from the live blockers. It reports whether id was present.
func (t *Task) RemoveBlockedBy(id string, now time.Time) bool {
	if !t.BlockedBy.Has(id) {
		return false
	}
	delete(t.BlockedBy, id)
	t.Touch(now)
	return true
}

// SetStatus moves the task to s and reports whether the status changed.
// Entering done sets CompletedAt; leaving done clears it.
func (t *Task) SetStatus(s Status, now time.Time) bool {
	t.Touch(now)
	if t.Status == s {
		return false
	}
	t.Status = s
	if s == StatusDone {
		done := now
		t.CompletedAt = &done
	} else {
		t.CompletedAt = nil
	}
	return true
}

// MarkInProgress moves the task to in_progress.
func (t *Task) MarkInProgress(now time.Time) bool {
	return t.SetStatus(StatusInProgress, now)
}

// MarkDone moves the task to done and stamps CompletedAt.
func (t *Task) MarkDone(now time.Time) bool {
	return t.SetStatus(StatusDone, now)
}

// MarkBlocked moves the task to blocked.
func (t *Task) MarkBlocked(now time.Time) bool {
	return t.SetStatus(StatusBlocked, now)
}

// MarkCancelled moves the task to cancelled.
func (t *Task) MarkCancelled(now time.Time) bool {
	return t.SetStatus(StatusCancelled, now)
}

// Clone returns a deep copy of the task and its whole subtree.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Dependencies = t.Dependencies.Clone()
	c.BlockedBy = t.BlockedBy.Clone()
	c.Tags = cloneStrings(t.Tags)
	c.CodeReferences = cloneStrings(t.CodeReferences)
	c.EstimatedHours = cloneFloat(t.EstimatedHours)
	c.ActualHours = cloneFloat(t.ActualHours)
	if t.CompletedAt != nil {
		done := *t.CompletedAt
		c.CompletedAt = &done
	}
	if t.Subtasks != nil {
		c.Subtasks = make([]*Task, len(t.Subtasks))
		for i, sub := range t.Subtasks {
			c.Subtasks[i] = sub.Clone()
		}
	}
	return &c
}

// HasTag reports whether the task carries tag.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

func (t *Task) ensureSets() {
	if t.Dependencies == nil {
		t.Dependencies = NewIDSet()
	}
	if t.BlockedBy == nil {
		t.BlockedBy = NewIDSet()
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
