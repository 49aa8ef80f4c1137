// Package depgraph maintains the derived dependents index over a task forest.
//
// graph[x] holds every id y such that y depends on x. The graph is a cache:
// it can always be rebuilt from task state with [Rebuild] and is never a
// source of truth for task fields. Every known id has an entry, even with no
// dependents, so lookups never need existence checks.
//
// Cycle prevention ([WouldCreateCycle]) walks the tasks' own dependency sets
// rather than this index, so it stays correct while the index is being edited.
package depgraph

import (
	"sort"

	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// Graph maps a dependency id to the set of ids that depend on it.
// It is not safe for concurrent use; the owning store serializes access.
type Graph struct {
	dependents map[string]task.IDSet
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{dependents: make(map[string]task.IDSet)}
}

// Rebuild derives the graph from every task in the forest, nested subtasks
// included. Dependencies on ids absent from the forest are tolerated: their
// entries are created lazily.
func Rebuild(forest []*task.Task) *Graph {
	g := New()
	task.Walk(forest, func(t *task.Task) bool {
		g.Ensure(t.ID)
		for dep := range t.Dependencies {
			g.AddEdge(dep, t.ID)
		}
		return true
	})
	return g
}

// Ensure creates an empty entry for id if none exists.
func (g *Graph) Ensure(id string) {
	if _, ok := g.dependents[id]; !ok {
		g.dependents[id] = task.NewIDSet()
	}
}

// Has reports whether id has an entry.
func (g *Graph) Has(id string) bool {
	_, ok := g.dependents[id]
	return ok
}

// Len returns the number of entries.
func (g *Graph) Len() int {
	return len(g.dependents)
}

// AddEdge records that dependent depends on dependency.
func (g *Graph) AddEdge(dependency, dependent string) {
	g.Ensure(dependency)
	g.Ensure(dependent)
	set := g.dependents[dependency]
	set.Add(dependent)
}

// RemoveEdge drops the dependency -> dependent edge. Missing edges are ignored.
func (g *Graph) RemoveEdge(dependency, dependent string) {
	if set, ok := g.dependents[dependency]; ok {
		delete(set, dependent)
	}
}

// hasEdge reports whether dependent depends on dependency.
func (g *Graph) hasEdge(dependency, dependent string) bool {
	return g.dependents[dependency].Has(dependent)
}

// Dependents returns the ids that depend on id, in id order.
func (g *Graph) Dependents(id string) []string {
	out := g.dependents[id].Sorted()
	sort.SliceStable(out, func(i, j int) bool { return taskid.Less(out[i], out[j]) })
	return out
}

// DependentCount returns |graph[id]|.
func (g *Graph) DependentCount(id string) int {
	return len(g.dependents[id])
}

// Remove deletes the entry for id and every edge that names it.
func (g *Graph) Remove(id string) {
	delete(g.dependents, id)
	for _, set := range g.dependents {
		delete(set, id)
	}
}

// IDs returns every id with an entry, in id order.
func (g *Graph) IDs() []string {
	out := make([]string, 0, len(g.dependents))
	for id := range g.dependents {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return taskid.Less(out[i], out[j]) })
	return out
}

// Clone returns an independent copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{dependents: make(map[string]task.IDSet, len(g.dependents))}
	for id, set := range g.dependents {
		c.dependents[id] = set.Clone()
	}
	return c
}

// DependenciesFunc returns the declared dependency ids of a task, or nil
// when the id is unknown.
type DependenciesFunc func(id string) []string

// WouldCreateCycle reports whether making taskID depend on candidate would
// close a cycle. It runs a breadth-first traversal from candidate over each
// visited task's own dependencies and stops as soon as taskID is reached.
// Runs in O(V+E). A task depending on itself counts as a cycle.
func WouldCreateCycle(taskID, candidate string, deps DependenciesFunc) bool {
	if taskID == candidate {
		return true
	}
	visited := map[string]bool{candidate: true}
	queue := []string{candidate}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range deps(current) {
			if next == taskID {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// ForestDependencies adapts a task forest to a DependenciesFunc.
func ForestDependencies(forest []*task.Task) DependenciesFunc {
	index := make(map[string]*task.Task)
	task.Walk(forest, func(t *task.Task) bool {
		index[t.ID] = t
		return true
	})
	return func(id string) []string {
		t, ok := index[id]
		if !ok {
			return nil
		}
		return t.Dependencies.Sorted()
	}
}
