package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/tasktree/internal/errors"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNew_Defaults(t *testing.T) {
	tk := New(Params{ID: "3", Name: "Write parser", Dependencies: []string{"1", "2", "3", ""}}, t0)

	assert.Equal(t, StatusTodo, tk.Status)
	assert.Equal(t, PriorityMedium, tk.Priority)
	assert.Equal(t, ComplexityMedium, tk.Complexity)
	assert.Equal(t, []string{"1", "2"}, tk.Dependencies.Sorted(), "self and empty ids are dropped")
	assert.True(t, tk.Dependencies.Equal(tk.BlockedBy))
	assert.Equal(t, t0, tk.CreatedAt)
	assert.Equal(t, t0, tk.UpdatedAt)
	assert.Nil(t, tk.CompletedAt)
	assert.False(t, tk.IsExecutable())
}

func TestNew_DoneSetsCompletedAt(t *testing.T) {
	tk := New(Params{ID: "1", Status: StatusDone}, t0)
	require.NotNil(t, tk.CompletedAt)
	assert.Equal(t, t0, *tk.CompletedAt)
}

func TestDependencyMutators(t *testing.T) {
	tk := New(Params{ID: "1"}, t0)
	later := t0.Add(time.Minute)

	tk.AddDependency("2", later)
	assert.True(t, tk.Dependencies.Has("2"))
	assert.True(t, tk.BlockedBy.Has("2"))
	assert.Equal(t, later, tk.UpdatedAt)

	tk.AddDependency("1", later)
	assert.False(t, tk.Dependencies.Has("1"), "self dependency ignored")

	assert.True(t, tk.RemoveBlockedBy("2", later))
	assert.False(t, tk.RemoveBlockedBy("2", later))
	assert.True(t, tk.Dependencies.Has("2"))
	assert.True(t, tk.IsExecutable())

	tk.RemoveDependency("2", later)
	tk.RemoveDependency("2", later)
	assert.Zero(t, tk.Dependencies.Len())

	tk.AddBlockedBy("9", later)
	assert.True(t, tk.BlockedBy.Has("9"))
	assert.False(t, tk.Dependencies.Has("9"))
}

func TestAddDependency_NilSets(t *testing.T) {
	tk := &Task{ID: "1"}
	tk.AddDependency("2", t0)
	assert.True(t, tk.Dependencies.Has("2"))
	assert.True(t, tk.BlockedBy.Has("2"))
}

func TestIDSet_AddOnZeroValue(t *testing.T) {
	var s IDSet
	assert.False(t, s.Has("1"))

	s.Add("1")
	s.Add("1")
	s.Add("2")
	assert.Equal(t, []string{"1", "2"}, s.Sorted())
	assert.True(t, s.Equal(NewIDSet("2", "1")))
}

func TestStatusMutators(t *testing.T) {
	tk := New(Params{ID: "1"}, t0)

	assert.True(t, tk.MarkInProgress(t0))
	assert.False(t, tk.MarkInProgress(t0))
	assert.Equal(t, StatusInProgress, tk.Status)

	done := t0.Add(time.Hour)
	assert.True(t, tk.MarkDone(done))
	require.NotNil(t, tk.CompletedAt)
	assert.Equal(t, done, *tk.CompletedAt)
	assert.False(t, tk.IsExecutable())

	assert.True(t, tk.MarkBlocked(done))
	assert.Nil(t, tk.CompletedAt)

	assert.True(t, tk.MarkCancelled(done))
	assert.False(t, tk.IsExecutable())
}

func TestClone_Deep(t *testing.T) {
	hours := 2.5
	parent := New(Params{ID: "1", Tags: []string{"api"}, EstimatedHours: &hours, Dependencies: []string{"4"}}, t0)
	parent.Subtasks = []*Task{New(Params{ID: "1.1"}, t0)}

	c := parent.Clone()
	c.Tags[0] = "changed"
	*c.EstimatedHours = 9
	c.Dependencies["5"] = struct{}{}
	c.Subtasks[0].Name = "changed"

	assert.Equal(t, "api", parent.Tags[0])
	assert.Equal(t, 2.5, *parent.EstimatedHours)
	assert.False(t, parent.Dependencies.Has("5"))
	assert.Empty(t, parent.Subtasks[0].Name)
	assert.Nil(t, (*Task)(nil).Clone())
}

func TestParseEnums(t *testing.T) {
	s, err := ParseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("finished")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonInvalidStatus, errors.ReasonOf(err))
	assert.True(t, errors.IsValidation(err))

	p, err := ParsePriority(" critical ")
	require.NoError(t, err)
	assert.Equal(t, PriorityCritical, p)

	_, err = ParsePriority("urgent")
	assert.Equal(t, errors.ReasonInvalidPriority, errors.ReasonOf(err))

	c, err := ParseComplexity("high")
	require.NoError(t, err)
	assert.Equal(t, ComplexityHigh, c)

	_, err = ParseComplexity("huge")
	assert.Equal(t, errors.ReasonInvalidComplexity, errors.ReasonOf(err))
}

func TestRanks(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Less(t, StatusInProgress.Rank(), StatusTodo.Rank())
	assert.True(t, StatusDone.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusBlocked.IsTerminal())
}

func TestRollupStatus(t *testing.T) {
	mk := func(statuses ...Status) []*Task {
		out := make([]*Task, len(statuses))
		for i, s := range statuses {
			out[i] = &Task{Status: s}
		}
		return out
	}

	tests := []struct {
		name     string
		children []*Task
		want     Status
		ok       bool
	}{
		{"no children", nil, "", false},
		{"all done", mk(StatusDone, StatusDone), StatusDone, true},
		{"blocked wins over in progress", mk(StatusBlocked, StatusInProgress, StatusDone), StatusBlocked, true},
		{"any in progress", mk(StatusTodo, StatusInProgress), StatusInProgress, true},
		{"only todo leaves parent alone", mk(StatusTodo, StatusDone), "", false},
		{"cancelled is not done", mk(StatusDone, StatusCancelled), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RollupStatus(tt.children)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTreeHelpers(t *testing.T) {
	forest := []*Task{
		{ID: "1", Subtasks: []*Task{{ID: "1.1", Subtasks: []*Task{{ID: "1.1.1"}}}, {ID: "1.2"}}},
		{ID: "2"},
	}

	assert.Equal(t, []string{"1", "1.1", "1.1.1", "1.2", "2"}, IDs(forest))
	assert.Len(t, Flatten(forest), 5)
	require.NotNil(t, Find(forest, "1.1.1"))
	assert.Nil(t, Find(forest, "3"))

	assert.True(t, AllDone(nil))
	assert.False(t, AllDone([]*Task{{Status: StatusDone}, {Status: StatusTodo}}))
}
