package planning

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/tasktree/internal/errors"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" toml ", FormatTOML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Equal(t, errors.ReasonInvalidInput, errors.ReasonOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FormatFromPath("plan")
	assert.Error(t, err)
	f, err := FormatFromPath("/tmp/plan.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
}

func TestParseRecords_JSONList(t *testing.T) {
	doc := `[
	  {"id": 1, "title": "Schema", "priority": "High", "depends_on": [], "estimated_hours": "3.5"},
	  {"id": "2", "name": "API", "dependencies": [1], "tags": "backend, http",
	   "subtasks": [{"id": "2.1", "name": "Routes", "files": ["api/routes.go"]}]}
	]`
	records, err := ParseRecords([]byte(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "Schema", records[0].Name)
	assert.Equal(t, "high", records[0].Priority)
	require.NotNil(t, records[0].EstimatedHours)
	assert.InDelta(t, 3.5, *records[0].EstimatedHours, 0.001)

	assert.Equal(t, []string{"1"}, records[1].Dependencies)
	assert.Equal(t, []string{"backend", "http"}, records[1].Tags)
	require.Len(t, records[1].Subtasks, 1)
	assert.Equal(t, []string{"api/routes.go"}, records[1].Subtasks[0].CodeReferences)
}

func TestParseRecords_YAMLWrapped(t *testing.T) {
	doc := `
plan:
  summary: storage work
  tasks:
    - id: 1
      title: Pick a driver
      complexity: LOW
      assignee: kim
    - id: 2
      title: Write migrations
      depends: [1]
      estimate: 6
`
	records, err := ParseRecords([]byte(doc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Pick a driver", records[0].Name)
	assert.Equal(t, "low", records[0].Complexity)
	require.NotNil(t, records[0].AssignedTo)
	assert.Equal(t, "kim", *records[0].AssignedTo)
	assert.Equal(t, []string{"1"}, records[1].Dependencies)
	require.NotNil(t, records[1].EstimatedHours)
	assert.InDelta(t, 6, *records[1].EstimatedHours, 0.001)
}

func TestParseRecords_TOML(t *testing.T) {
	doc := `
[[tasks]]
id = "1"
name = "Design"
tags = ["docs"]

[[tasks]]
id = "2"
name = "Build"
dependencies = ["1"]
actual_hours = 2.5
`
	records, err := ParseRecords([]byte(doc), FormatTOML)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"docs"}, records[0].Tags)
	assert.Equal(t, []string{"1"}, records[1].Dependencies)
	require.NotNil(t, records[1].ActualHours)
	assert.InDelta(t, 2.5, *records[1].ActualHours, 0.001)
}

func TestParseRecords_CanonicalNameWins(t *testing.T) {
	records, err := ParseRecords([]byte(`[{"name": "kept", "title": "ignored"}]`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "kept", records[0].Name)
}

func TestParseRecords_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		format Format
	}{
		{"not json", `{`, FormatJSON},
		{"scalar document", `42`, FormatJSON},
		{"object without list", `{"items": []}`, FormatJSON},
		{"entry not an object", `["1"]`, FormatJSON},
		{"bad hours", `[{"id": "1", "estimated_hours": "soon"}]`, FormatJSON},
		{"bad nested", `[{"id": "1", "subtasks": [7]}]`, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecords([]byte(tt.doc), tt.format)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}
}

func TestParseRecords_Empty(t *testing.T) {
	records, err := ParseRecords([]byte(`[]`), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = ParseRecords([]byte(``), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/tasks.yaml", []byte("- id: 1\n  name: One\n"), 0o644))

	records, err := ReadFile(fs, "/in/tasks.yaml")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "One", records[0].Name)

	_, err = ReadFile(fs, "/in/missing.json")
	assert.Error(t, err)
}
