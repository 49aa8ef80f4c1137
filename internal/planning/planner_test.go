package planning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
)

func TestNormalizeNumSubtasks(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{1, 1},
		{5, 5},
		{10, 10},
		{0, FallbackNumSubtasks},
		{-2, FallbackNumSubtasks},
		{11, FallbackNumSubtasks},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeNumSubtasks(tt.in), "input %d", tt.in)
	}
}

func TestTruncateContext(t *testing.T) {
	assert.Equal(t, "short", TruncateContext("short", 10))
	assert.Equal(t, "exactly", TruncateContext("exactly", 7))
	assert.Equal(t, "abc"+TruncationSuffix, TruncateContext("abcdef", 3))
	assert.Equal(t, "héé"+TruncationSuffix, TruncateContext("héééé", 3), "cuts on characters, not bytes")
	assert.Equal(t, "whole", TruncateContext("whole", 0))
}

func TestNewExpansionRequest(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	parent := task.New(task.Params{ID: "2", Name: "API", Description: "Build it"}, now)
	forest := []*task.Task{
		task.New(task.Params{ID: "1", Name: "Schema", Description: "Tables first\nthen indexes"}, now),
		parent,
		task.New(task.Params{ID: "3", Name: "Docs", Description: strings.Repeat("x", 150)}, now),
	}

	req := NewExpansionRequest(parent, forest, strings.Repeat("d", 50), Options{NumSubtasks: 42, ContextChars: 20})

	assert.Equal(t, "2", req.Parent.ID)
	assert.Equal(t, FallbackNumSubtasks, req.NumSubtasks)
	assert.Equal(t, strings.Repeat("d", 20)+TruncationSuffix, req.Context)
	require.Len(t, req.Siblings, 3)
	assert.Equal(t, "Tables first", req.Siblings[0].Summary)
	assert.Equal(t, strings.Repeat("x", 100)+"...", req.Siblings[2].Summary)
}

// fakeExpander proposes count subtasks per parent and tracks concurrency.
type fakeExpander struct {
	count    int
	fail     map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32

	mu   sync.Mutex
	reqs []ExpansionRequest
}

func (f *fakeExpander) Expand(ctx context.Context, req ExpansionRequest) ([]snapshot.Record, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.fail[req.Parent.ID] {
		return nil, fmt.Errorf("generator unavailable")
	}
	out := make([]snapshot.Record, f.count)
	for i := range out {
		out[i] = snapshot.Record{Name: fmt.Sprintf("%s step %d", req.Parent.Name, i+1)}
		if i > 0 {
			out[i].Dependencies = []string{fmt.Sprintf("%s.%d", req.Parent.ID, i)}
		}
	}
	return out, nil
}

func seededStore(t *testing.T, n int) *taskstore.Store {
	t.Helper()
	s := taskstore.New(nil)
	for i := range n {
		_, err := s.Create(taskstore.CreateParams{Name: fmt.Sprintf("task %d", i+1)})
		require.NoError(t, err)
	}
	return s
}

func TestPlanner_Expand(t *testing.T) {
	s := seededStore(t, 2)
	p := NewPlanner(s, DefaultOptions(), nil)
	exp := &fakeExpander{count: 3}

	added, err := p.Expand(context.Background(), exp, "1", "requirements")
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.Equal(t, "1.1", added[0].ID)
	assert.Equal(t, []string{"1.2"}, added[2].BlockedBy.Sorted())

	require.Len(t, exp.reqs, 1)
	assert.Equal(t, DefaultNumSubtasks, exp.reqs[0].NumSubtasks)
	assert.Equal(t, "requirements", exp.reqs[0].Context)

	next, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "1.1", next.ID)

	_, err = p.Expand(context.Background(), exp, "9", "")
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
}

func TestPlanner_ExpandNothingProposed(t *testing.T) {
	s := seededStore(t, 1)
	p := NewPlanner(s, DefaultOptions(), nil)

	added, err := p.Expand(context.Background(), &fakeExpander{count: 0}, "1", "")
	assert.NoError(t, err)
	assert.Empty(t, added)
	got, _ := s.Get("1")
	assert.Empty(t, got.Subtasks)
}

func TestPlanner_ExpandAll(t *testing.T) {
	s := seededStore(t, 6)
	p := NewPlanner(s, Options{NumSubtasks: 2, MaxParallel: 2}, nil)
	exp := &fakeExpander{count: 2, delay: 20 * time.Millisecond, fail: map[string]bool{"4": true}}

	ids := p.PendingParents()
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, ids)

	results := p.ExpandAll(context.Background(), exp, ids, "")
	require.Len(t, results, 6)
	for i, r := range results {
		assert.Equal(t, ids[i], r.ParentID)
		if r.ParentID == "4" {
			assert.Error(t, r.Err)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Len(t, r.Added, 2)
	}
	assert.LessOrEqual(t, exp.peak.Load(), int32(2))
	assert.Equal(t, 6+5*2, s.Len())
	assert.Equal(t, []string{"4"}, p.PendingParents())
}

func TestPlanner_ExpandAllCancelled(t *testing.T) {
	s := seededStore(t, 3)
	p := NewPlanner(s, Options{NumSubtasks: 2, MaxParallel: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.ExpandAll(ctx, &fakeExpander{count: 1}, []string{"1", "2", "3"}, "")
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, 3, s.Len())
}

func TestPlanner_Decompose(t *testing.T) {
	s := seededStore(t, 2)
	p := NewPlanner(s, DefaultOptions(), nil)
	doc := `
- id: 1
  title: Research
- id: 2
  title: Build
  depends_on: [1]
`
	result, err := p.Decompose(context.Background(), TextDecomposer{Format: FormatYAML}, doc, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, result.Created)

	built, ok := s.Get("2")
	require.True(t, ok)
	assert.Equal(t, "Build", built.Name)
	assert.Equal(t, []string{"1"}, built.BlockedBy.Sorted())
	assert.Equal(t, 2, s.Len(), "replace drops the seeded tasks")

	_, err = p.Decompose(context.Background(), TextDecomposer{Format: FormatJSON}, "{", false)
	assert.Error(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestFileExpander(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/keyed.json", []byte(`{
		"1": [{"name": "a"}, {"name": "b"}],
		"2": {"subtasks": [{"name": "c"}]}
	}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/shared.yaml", []byte("- name: x\n- name: y\n"), 0o644))

	keyed, err := NewFileExpander(fs, "/keyed.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, keyed.Parents())

	got, err := keyed.Expand(context.Background(), ExpansionRequest{Parent: snapshot.Record{ID: "2"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Name)

	got, err = keyed.Expand(context.Background(), ExpansionRequest{Parent: snapshot.Record{ID: "3"}})
	require.NoError(t, err)
	assert.Empty(t, got)

	shared, err := NewFileExpander(fs, "/shared.yaml")
	require.NoError(t, err)
	assert.Nil(t, shared.Parents())
	got, err = shared.Expand(context.Background(), ExpansionRequest{Parent: snapshot.Record{ID: "7"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
