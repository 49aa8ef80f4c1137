package tui

import (
	"strings"

	"github.com/Iron-Ham/tasktree/internal/task"
)

// row is one visible line of the board.
type row struct {
	task  *task.Task
	depth int
}

// buildRows flattens forest into display rows. Children of collapsed ids
// are hidden. A non-empty filter switches to a flat list of every task
// whose id or name contains it, case-insensitively, regardless of
// collapsing.
func buildRows(forest []*task.Task, collapsed map[string]bool, filter string) []row {
	var rows []row
	filter = strings.ToLower(strings.TrimSpace(filter))

	var walk func(ts []*task.Task, depth int)
	walk = func(ts []*task.Task, depth int) {
		for _, t := range ts {
			if filter == "" {
				rows = append(rows, row{task: t, depth: depth})
				if !collapsed[t.ID] {
					walk(t.Subtasks, depth+1)
				}
				continue
			}
			if matches(t, filter) {
				rows = append(rows, row{task: t, depth: depth})
			}
			walk(t.Subtasks, depth+1)
		}
	}
	walk(forest, 0)
	return rows
}

func matches(t *task.Task, filter string) bool {
	return strings.Contains(strings.ToLower(t.ID), filter) ||
		strings.Contains(strings.ToLower(t.Name), filter)
}

// indexOf returns the row holding id, or -1.
func indexOf(rows []row, id string) int {
	for i, r := range rows {
		if r.task.ID == id {
			return i
		}
	}
	return -1
}
