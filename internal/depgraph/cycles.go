package depgraph

import (
	"slices"
	"sort"
	"strings"

	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// FindCycles reports every dependency cycle present in the forest. Each cycle
// is listed once, rotated to start at its smallest id, and closed by
// repeating that id ("1", "2", "1"). Data written through the store never
// contains cycles; this audits snapshots edited by hand or imported.
func FindCycles(forest []*task.Task) [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	deps := ForestDependencies(forest)
	ids := task.IDs(forest)
	sort.Slice(ids, func(i, j int) bool { return taskid.Less(ids[i], ids[j]) })

	color := make(map[string]int)
	var stack []string
	seen := make(map[string]bool)
	var cycles [][]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		for _, next := range deps(node) {
			switch color[next] {
			case gray:
				start := slices.Index(stack, next)
				cycle := normalizeCycle(stack[start:])
				key := strings.Join(cycle, ">")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			case white:
				dfs(next)
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, id := range ids {
		if color[id] == white {
			dfs(id)
		}
	}
	return cycles
}

// normalizeCycle rotates path so the smallest id comes first and appends
// that id again to close the loop.
func normalizeCycle(path []string) []string {
	minIdx := 0
	for i, id := range path {
		if taskid.Less(id, path[minIdx]) {
			minIdx = i
		}
	}
	out := make([]string, 0, len(path)+1)
	out = append(out, path[minIdx:]...)
	out = append(out, path[:minIdx]...)
	out = append(out, out[0])
	return out
}
