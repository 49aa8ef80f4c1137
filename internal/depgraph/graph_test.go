package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Iron-Ham/tasktree/internal/task"
)

func mkTask(id string, deps ...string) *task.Task {
	return &task.Task{ID: id, Dependencies: task.NewIDSet(deps...), BlockedBy: task.NewIDSet(deps...)}
}

func TestRebuild(t *testing.T) {
	parent := mkTask("1")
	parent.Subtasks = []*task.Task{mkTask("1.1"), mkTask("1.2", "1.1")}
	forest := []*task.Task{parent, mkTask("2", "1"), mkTask("3", "1", "9")}

	g := Rebuild(forest)

	assert.Equal(t, []string{"2", "3"}, g.Dependents("1"))
	assert.Equal(t, []string{"1.2"}, g.Dependents("1.1"))
	assert.Empty(t, g.Dependents("2"))
	assert.True(t, g.Has("2"), "every known id has an entry")
	assert.True(t, g.Has("1.2"))
	assert.True(t, g.Has("9"), "missing targets are created lazily")
	assert.Equal(t, 2, g.DependentCount("1"))
}

func TestEdges(t *testing.T) {
	g := New()
	g.AddEdge("1", "2")
	g.AddEdge("1", "3")
	assert.True(t, g.hasEdge("1", "2"))

	g.RemoveEdge("1", "2")
	g.RemoveEdge("1", "2")
	g.RemoveEdge("7", "2")
	assert.False(t, g.hasEdge("1", "2"))
	assert.Equal(t, []string{"3"}, g.Dependents("1"))

	g.Remove("3")
	assert.False(t, g.Has("3"))
	assert.Empty(t, g.Dependents("1"))
	assert.Equal(t, []string{"1", "2"}, g.IDs())
}

func TestClone(t *testing.T) {
	g := New()
	g.AddEdge("1", "2")
	c := g.Clone()
	c.AddEdge("1", "3")
	assert.Equal(t, 1, g.DependentCount("1"))
	assert.Equal(t, 2, c.DependentCount("1"))
}

func TestDependentsNumericOrder(t *testing.T) {
	g := New()
	for _, id := range []string{"10", "2", "1.10", "1.9"} {
		g.AddEdge("1", id)
	}
	assert.Equal(t, []string{"1.9", "1.10", "2", "10"}, g.Dependents("1"))
}

func TestWouldCreateCycle(t *testing.T) {
	// 3 -> 2 -> 1 (3 depends on 2, 2 depends on 1)
	forest := []*task.Task{mkTask("1"), mkTask("2", "1"), mkTask("3", "2"), mkTask("4")}
	deps := ForestDependencies(forest)

	tests := []struct {
		name      string
		taskID    string
		candidate string
		want      bool
	}{
		{"self", "1", "1", true},
		{"direct back edge", "1", "2", true},
		{"transitive back edge", "1", "3", true},
		{"forward edge", "3", "1", false},
		{"unrelated", "4", "3", false},
		{"unknown candidate", "1", "99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WouldCreateCycle(tt.taskID, tt.candidate, deps))
		})
	}
}

func TestWouldCreateCycle_Diamond(t *testing.T) {
	// 4 depends on 2 and 3, both depend on 1.
	forest := []*task.Task{mkTask("1"), mkTask("2", "1"), mkTask("3", "1"), mkTask("4", "2", "3")}
	deps := ForestDependencies(forest)

	assert.False(t, WouldCreateCycle("5", "4", deps))
	assert.True(t, WouldCreateCycle("1", "4", deps))
}

func TestFindCycles(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		forest := []*task.Task{mkTask("1"), mkTask("2", "1")}
		assert.Empty(t, FindCycles(forest))
	})

	t.Run("two cycles", func(t *testing.T) {
		sub := mkTask("5")
		sub.Subtasks = []*task.Task{mkTask("5.1", "5.2"), mkTask("5.2", "5.1")}
		forest := []*task.Task{
			mkTask("1", "3"),
			mkTask("2", "1"),
			mkTask("3", "2"),
			mkTask("4", "1"),
			sub,
		}

		cycles := FindCycles(forest)
		assert.Equal(t, [][]string{
			{"1", "3", "2", "1"},
			{"5.1", "5.2", "5.1"},
		}, cycles)
	})
}
