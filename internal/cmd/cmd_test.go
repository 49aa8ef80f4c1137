package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/tasktree/internal/config"
	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// setup isolates viper and the user config directory, and returns a
// function running tasktree against a fresh storage directory.
func setup(t *testing.T) (run func(args ...string) (string, error), dir string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir = t.TempDir()
	run = func(args ...string) (string, error) {
		return executeCommand(NewRootCmd(), append([]string{"--dir", dir}, args...)...)
	}
	return run, dir
}

func decodeJSON[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "tasktree", root.Use)

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"add", "get", "list", "update", "delete", "done", "start", "depend",
		"undepend", "next", "stats", "import", "expand", "export", "check",
		"watch", "clear", "board", "config",
	} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestAddAndGet(t *testing.T) {
	run, dir := setup(t)

	out, err := run("add", "Design schema", "--priority", "high", "--tag", "db,backend")
	require.NoError(t, err)
	assert.Contains(t, out, "Created task 1: Design schema")

	out, err = run("add", "Tables", "--parent", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Created task 1.1: Tables")

	_, err = os.Stat(filepath.Join(dir, config.DefaultFileName))
	require.NoError(t, err, "snapshot written under --dir")

	out, err = run("--json", "get", "1")
	require.NoError(t, err)
	rec := decodeJSON[snapshot.Record](t, out)
	assert.Equal(t, "Design schema", rec.Name)
	assert.Equal(t, "high", rec.Priority)
	assert.Equal(t, []string{"db", "backend"}, rec.Tags)
	require.Len(t, rec.Subtasks, 1)
	assert.Equal(t, "1.1", rec.Subtasks[0].ID)

	out, err = run("get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Design schema")
	assert.Contains(t, out, "Subtasks")
}

func TestAdd_InvalidPriority(t *testing.T) {
	run, _ := setup(t)

	_, err := run("add", "X", "--priority", "urgent")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonInvalidPriority, errors.ReasonOf(err))
}

func TestGet_NotFound(t *testing.T) {
	run, _ := setup(t)

	_, err := run("get", "9")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonTaskNotFound, errors.ReasonOf(err))
}

func TestList(t *testing.T) {
	run, _ := setup(t)
	for _, args := range [][]string{
		{"add", "One", "--tag", "x"},
		{"add", "Two"},
		{"add", "Child", "--parent", "1", "--tag", "x"},
	} {
		_, err := run(args...)
		require.NoError(t, err)
	}

	out, err := run("--json", "list")
	require.NoError(t, err)
	res := decodeJSON[listResult](t, out)
	assert.Equal(t, 3, res.Total)
	ids := make([]string, 0, len(res.Tasks))
	for _, r := range res.Tasks {
		ids = append(ids, r.ID)
		assert.Empty(t, r.Subtasks)
	}
	assert.Equal(t, []string{"1", "1.1", "2"}, ids)

	out, err = run("--json", "list", "--tag", "x", "--page-size", "1", "--page", "2")
	require.NoError(t, err)
	res = decodeJSON[listResult](t, out)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "1.1", res.Tasks[0].ID)

	out, err = run("list", "--page-size", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "page 1 of 2 (3 tasks)")

	out, err = run("list", "--tree")
	require.NoError(t, err)
	assert.Contains(t, out, "Child")
}

func TestList_Empty(t *testing.T) {
	run, _ := setup(t)

	out, err := run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks")
}

func TestUpdate(t *testing.T) {
	run, _ := setup(t)
	_, err := run("add", "Old")
	require.NoError(t, err)

	out, err := run("update", "1", "--name", "New", "--status", "in_progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated task 1")

	out, err = run("--json", "get", "1")
	require.NoError(t, err)
	rec := decodeJSON[snapshot.Record](t, out)
	assert.Equal(t, "New", rec.Name)
	assert.Equal(t, "in_progress", rec.Status)

	_, err = run("update", "1")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonInvalidInput, errors.ReasonOf(err))

	_, err = run("update", "7", "--name", "X")
	assert.Equal(t, errors.ReasonTaskNotFound, errors.ReasonOf(err))
}

func TestDone_UnblocksDependents(t *testing.T) {
	run, _ := setup(t)
	_, err := run("add", "Base")
	require.NoError(t, err)
	_, err = run("add", "Top", "--depends", "1")
	require.NoError(t, err)

	out, err := run("--json", "get", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, decodeJSON[snapshot.Record](t, out).BlockedBy)

	out, err = run("done", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed task 1: Base")
	assert.Contains(t, out, "unblocked 2")

	out, err = run("--json", "start", "2")
	require.NoError(t, err)
	res := decodeJSON[transitionResult](t, out)
	assert.Equal(t, "in_progress", res.Task.Status)
	assert.Empty(t, res.Unblocked)

	_, err = run("done", "42")
	assert.Equal(t, errors.ReasonTaskNotFound, errors.ReasonOf(err))
}

func TestDependAndUndepend(t *testing.T) {
	run, _ := setup(t)
	for _, name := range []string{"A", "B", "C"} {
		_, err := run("add", name)
		require.NoError(t, err)
	}

	out, err := run("depend", "2", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 now depends on 1")

	out, err = run("--json", "depend", "1", "2", "3")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonDependencyCycle, errors.ReasonOf(err))
	links := decodeJSON[[]linkJSON](t, out)
	require.Len(t, links, 2)
	assert.False(t, links[0].OK)
	assert.Equal(t, "dependency_cycle", links[0].Reason)
	assert.True(t, links[1].OK, "other links are applied")

	_, err = run("depend", "1", "9")
	assert.Equal(t, errors.ReasonDependencyNotFound, errors.ReasonOf(err))

	out, err = run("undepend", "2", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 no longer depends on 1")

	out, err = run("--json", "get", "2")
	require.NoError(t, err)
	assert.Empty(t, decodeJSON[snapshot.Record](t, out).Dependencies)
}

func TestDelete(t *testing.T) {
	run, _ := setup(t)
	_, err := run("add", "Parent")
	require.NoError(t, err)
	_, err = run("add", "Child", "--parent", "1")
	require.NoError(t, err)
	_, err = run("add", "Other", "--depends", "1.1")
	require.NoError(t, err)

	out, err := run("rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted task 1")

	out, err = run("--json", "get", "2")
	require.NoError(t, err)
	rec := decodeJSON[snapshot.Record](t, out)
	assert.Empty(t, rec.Dependencies)
	assert.Empty(t, rec.BlockedBy)

	_, err = run("delete", "1")
	assert.Equal(t, errors.ReasonTaskNotFound, errors.ReasonOf(err))
}

func TestNext(t *testing.T) {
	run, _ := setup(t)

	out, err := run("next")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to work on")

	for _, args := range [][]string{
		{"add", "Feature", "--priority", "critical"},
		{"add", "Spec", "--parent", "1"},
		{"add", "Code", "--parent", "1", "--depends", "1.1"},
		{"add", "Chore", "--priority", "low"},
	} {
		_, err := run(args...)
		require.NoError(t, err)
	}

	out, err = run("next")
	require.NoError(t, err)
	assert.Contains(t, out, "Next: 1.1  Spec")
	assert.Contains(t, out, "part of 1  Feature")

	out, err = run("--json", "next")
	require.NoError(t, err)
	res := decodeJSON[nextResult](t, out)
	require.NotNil(t, res.Parent)
	assert.Equal(t, "1", res.Parent.ID)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "1.1", res.Candidates[0].ID)
}

func TestStats(t *testing.T) {
	run, dir := setup(t)
	_, err := run("add", "A")
	require.NoError(t, err)
	_, err = run("add", "B")
	require.NoError(t, err)
	_, err = run("done", "1")
	require.NoError(t, err)

	out, err := run("--json", "stats")
	require.NoError(t, err)
	res := decodeJSON[statsResult](t, out)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.ByStatus["done"])
	assert.Equal(t, 1, res.ByStatus["todo"])
	assert.Equal(t, filepath.Join(dir, config.DefaultFileName), res.Location)

	out, err = run("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress: 50%")
	assert.Contains(t, out, "In Progress:")
}

func TestImport(t *testing.T) {
	run, dir := setup(t)
	_, err := run("add", "Existing")
	require.NoError(t, err)

	doc := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(`tasks:
  - id: "1"
    title: Setup
    subtasks:
      - id: "1.1"
        name: Install
  - id: "2"
    name: Build
    depends_on: ["1", "7"]
`), 0o644))

	out, err := run("--json", "import", doc)
	require.NoError(t, err)
	res := decodeJSON[importResult](t, out)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, "3", res.Remapped["1"], "taken id renumbered past the batch")
	require.NotEmpty(t, res.Links)

	out, err = run("--json", "list")
	require.NoError(t, err)
	assert.Equal(t, 4, decodeJSON[listResult](t, out).Total)
}

func TestImport_ReplaceFromJSON(t *testing.T) {
	run, dir := setup(t)
	_, err := run("add", "Gone")
	require.NoError(t, err)

	doc := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(doc, []byte(`[{"id":"1","name":"Fresh"},{"id":"2","name":"After","dependencies":["1"]}]`), 0o644))

	out, err := run("import", doc, "--replace")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 task(s)")

	out, err = run("--json", "get", "1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", decodeJSON[snapshot.Record](t, out).Name)

	_, err = run("import", filepath.Join(dir, "noext"))
	assert.Equal(t, errors.ReasonInvalidInput, errors.ReasonOf(err))
}

func TestExpand(t *testing.T) {
	run, dir := setup(t)
	_, err := run("add", "Auth")
	require.NoError(t, err)
	_, err = run("add", "Billing")
	require.NoError(t, err)

	subtasks := filepath.Join(dir, "subtasks.json")
	require.NoError(t, os.WriteFile(subtasks, []byte(`[{"name":"Login"},{"name":"Logout"}]`), 0o644))

	out, err := run("expand", "1", "--from", subtasks)
	require.NoError(t, err)
	assert.Contains(t, out, "1: added 2 subtask(s)")

	out, err = run("--json", "get", "1")
	require.NoError(t, err)
	rec := decodeJSON[snapshot.Record](t, out)
	require.Len(t, rec.Subtasks, 2)
	assert.Equal(t, "1.1", rec.Subtasks[0].ID)
	assert.Equal(t, "Logout", rec.Subtasks[1].Name)

	keyed := filepath.Join(dir, "keyed.yaml")
	require.NoError(t, os.WriteFile(keyed, []byte(`"2":
  - name: Invoices
`), 0o644))
	out, err = run("--json", "expand", "--all", "--from", keyed)
	require.NoError(t, err)
	results := decodeJSON[[]expandResult](t, out)
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].ParentID)
	require.Len(t, results[0].Added, 1)
	assert.Equal(t, "2.1", results[0].Added[0].ID)

	_, err = run("expand", "1")
	assert.Equal(t, errors.ReasonInvalidInput, errors.ReasonOf(err), "--from is required")

	_, err = run("expand", "1", "2", "--from", subtasks)
	assert.Equal(t, errors.ReasonInvalidInput, errors.ReasonOf(err), "several ids need --all")

	_, err = run("expand", "9", "--from", subtasks)
	assert.Equal(t, errors.ReasonTaskNotFound, errors.ReasonOf(err))
}

func TestExport(t *testing.T) {
	run, dir := setup(t)
	_, err := run("add", "Only")
	require.NoError(t, err)

	out, err := run("export")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, config.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, string(data), out, "json export matches the snapshot")

	out, err = run("export", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Only")

	target := filepath.Join(dir, "out.json")
	out, err = run("export", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 task(s)")
	_, err = os.Stat(target)
	require.NoError(t, err)

	_, err = run("export", "--format", "toml")
	assert.Equal(t, errors.ReasonInvalidInput, errors.ReasonOf(err))
}

func TestCheck(t *testing.T) {
	run, dir := setup(t)

	out, err := run("check")
	require.NoError(t, err)
	assert.Contains(t, out, "no dependency cycles")

	// A hand-edited snapshot can contain a cycle.
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFileName), []byte(`[
  {"id": "1", "name": "A", "dependencies": ["2"]},
  {"id": "2", "name": "B", "dependencies": ["1"]}
]`), 0o644))

	out, err = run("--json", "check")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonDependencyCycle, errors.ReasonOf(err))
	res := decodeJSON[checkResult](t, out)
	assert.Equal(t, 2, res.Tasks)
	assert.Len(t, res.Cycles, 1)
}

func TestClear(t *testing.T) {
	run, _ := setup(t)
	_, err := run("add", "A")
	require.NoError(t, err)

	_, err = run("clear")
	require.Error(t, err)
	assert.Equal(t, errors.ReasonInvalidInput, errors.ReasonOf(err))

	out, err := run("clear", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 task(s)")

	out, err = run("clear")
	require.NoError(t, err, "an empty store needs no confirmation")
	assert.Contains(t, out, "Deleted 0 task(s)")
}

func TestStorageDirFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv("TASKTREE_STORAGE_DIR", dir)

	_, err := executeCommand(NewRootCmd(), "add", "Env")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, config.DefaultFileName))
	assert.NoError(t, err)
}

func TestInvalidConfiguration(t *testing.T) {
	run, _ := setup(t)
	t.Setenv("TASKTREE_LIST_PAGE_SIZE", "-1")

	_, err := run("list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		asJSON bool
		want   string
	}{
		{
			name:   "text",
			err:    errors.TaskNotFound("3"),
			asJSON: false,
			want:   "Error: ",
		},
		{
			name:   "json with reason",
			err:    errors.TaskNotFound("3"),
			asJSON: true,
			want:   `"reason":"task_not_found","severity":"warning"`,
		},
		{
			name:   "retryable persistence failure",
			err:    errors.NewPersistenceError("/data/all_tasks.json", errors.New("disk full")),
			asJSON: true,
			want:   `"severity":"error","retryable":true`,
		},
		{
			name:   "retry hint",
			err:    errors.NewPersistenceError("/data/all_tasks.json", errors.New("disk full")),
			asJSON: false,
			want:   "run the command again",
		},
		{
			name:   "validation hint",
			err:    errors.NewValidationError("unknown status").WithCause(errors.ErrInvalidStatus),
			asJSON: false,
			want:   "Nothing was changed.",
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			asJSON: true,
			want:   `"reason":"internal_error","severity":"error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reportError(&buf, tt.err, tt.asJSON)
			assert.Contains(t, buf.String(), tt.want)
			if tt.asJSON {
				payload := decodeJSON[errorPayload](t, buf.String())
				assert.Equal(t, tt.err.Error(), payload.Error)
			}
		})
	}
}

func TestWantsJSON(t *testing.T) {
	assert.True(t, wantsJSON([]string{"get", "1", "--json"}))
	assert.True(t, wantsJSON([]string{"--json=true", "list"}))
	assert.False(t, wantsJSON([]string{"add", "--", "--json"}))
	assert.False(t, wantsJSON([]string{"list"}))
}

func TestConfigCommands(t *testing.T) {
	run, _ := setup(t)

	out, err := run("config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, config.ConfigFile())

	out, err = run("config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created config file")
	_, err = os.Stat(config.ConfigFile())
	require.NoError(t, err)

	_, err = run("config", "init")
	require.Error(t, err, "init refuses to overwrite")

	out, err = run("config", "set", "scheduler.limit", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "Set scheduler.limit = 9")
	data, err := os.ReadFile(config.ConfigFile())
	require.NoError(t, err)
	assert.Contains(t, string(data), "limit: 9")

	out, err = run("config", "set", "logging.max_size_mb", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Set logging.max_size_mb = 2")

	out, err = run("config")
	require.NoError(t, err)
	assert.Contains(t, out, "limit: 9")
	assert.Contains(t, out, "max_size_mb: 2")
	assert.Contains(t, out, "max_backups: 3")

	tests := []struct {
		key, value, want string
	}{
		{"bogus.key", "1", "unknown configuration key"},
		{"storage.lock", "maybe", "expected true or false"},
		{"list.page_size", "many", "expected integer"},
		{"scheduler.limit", "-3", "must be non-negative"},
		{"logging.level", "loud", "Valid options"},
		{"logging.max_backups", "-1", "must be non-negative"},
	}
	for _, tt := range tests {
		_, err := run("config", "set", tt.key, tt.value)
		require.Error(t, err, tt.key)
		assert.True(t, strings.Contains(err.Error(), tt.want), "%s: %v", tt.key, err)
	}
}
