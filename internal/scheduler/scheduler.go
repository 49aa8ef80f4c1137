// Package scheduler selects the next executable task from a task forest.
//
// Selection is depth-first into the single most urgent top-level task:
//
//  1. Top-level tasks that are executable and in_progress or todo are ranked
//     by (status, priority, dependents, created_at, id). In-progress work
//     outranks untouched work; among todo parents, a task that unblocks more
//     downstream work ranks higher.
//  2. Only the top-ranked parent is explored. Its executable subtasks are
//     ranked by (status, priority, created_at, id) and returned.
//  3. When the parent has no executable subtask and every subtask (if any)
//     is done, the parent itself is returned.
//
// The scheduler never mutates tasks. It is deterministic: a fixed forest
// always yields the same selection.
package scheduler

import (
	"sort"

	"github.com/Iron-Ham/tasktree/internal/depgraph"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// DefaultLimit bounds Select when callers pass a non-positive limit.
const DefaultLimit = 5

// Selection is the outcome of one scheduling pass.
type Selection struct {
	// Parent is the top-ranked top-level task, nil when nothing qualifies.
	Parent *task.Task

	// Candidates holds the executable tasks in rank order, at most limit long.
	// Candidates[0] is the task to work on next.
	Candidates []*task.Task
}

// Found reports whether any task was selected.
func (s Selection) Found() bool {
	return len(s.Candidates) > 0
}

// Next returns the top candidate.
func (s Selection) Next() (*task.Task, bool) {
	if len(s.Candidates) == 0 {
		return nil, false
	}
	return s.Candidates[0], true
}

// Select runs the selection over the top-level forest using g for dependent
// counts. The returned tasks are the forest's own pointers; callers that
// hand them out must clone.
func Select(forest []*task.Task, g *depgraph.Graph, limit int) Selection {
	if limit <= 0 {
		limit = DefaultLimit
	}

	parents := RankParents(forest, g)
	if len(parents) == 0 {
		return Selection{}
	}
	top := parents[0]
	sel := Selection{Parent: top}

	if ready := RankSubtasks(top.Subtasks); len(ready) > 0 {
		if len(ready) > limit {
			ready = ready[:limit]
		}
		sel.Candidates = ready
		return sel
	}

	if task.AllDone(top.Subtasks) {
		sel.Candidates = []*task.Task{top}
	}
	return sel
}

// Next is shorthand for Select(forest, g, 1).Next().
func Next(forest []*task.Task, g *depgraph.Graph) (*task.Task, bool) {
	return Select(forest, g, 1).Next()
}

// RankParents returns the schedulable top-level tasks in rank order.
func RankParents(forest []*task.Task, g *depgraph.Graph) []*task.Task {
	var out []*task.Task
	for _, t := range forest {
		if !taskid.IsTopLevel(t.ID) || !schedulable(t) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Status == task.StatusTodo && g != nil {
			da, db := g.DependentCount(a.ID), g.DependentCount(b.ID)
			if da != db {
				return da > db
			}
		}
		return earlier(a, b)
	})
	return out
}

// RankSubtasks returns the executable entries of subtasks in rank order.
func RankSubtasks(subtasks []*task.Task) []*task.Task {
	var out []*task.Task
	for _, t := range subtasks {
		if schedulable(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return earlier(a, b)
	})
	return out
}

// schedulable reports whether t is todo or in_progress with nothing blocking it.
func schedulable(t *task.Task) bool {
	if t.Status != task.StatusTodo && t.Status != task.StatusInProgress {
		return false
	}
	return t.BlockedBy.Len() == 0
}

func earlier(a, b *task.Task) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return taskid.Less(a.ID, b.ID)
}
