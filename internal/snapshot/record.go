package snapshot

import (
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// Record is the wire form of one task, shared by the snapshot file and the
// collaborator interfaces. Every field is always written so snapshots stay
// self-describing.
type Record struct {
	ID             string   `json:"id" yaml:"id" mapstructure:"id"`
	Name           string   `json:"name" yaml:"name" mapstructure:"name"`
	Description    string   `json:"description" yaml:"description" mapstructure:"description"`
	Status         string   `json:"status" yaml:"status" mapstructure:"status"`
	Priority       string   `json:"priority" yaml:"priority" mapstructure:"priority"`
	Complexity     string   `json:"complexity" yaml:"complexity" mapstructure:"complexity"`
	Dependencies   []string `json:"dependencies" yaml:"dependencies" mapstructure:"dependencies"`
	BlockedBy      []string `json:"blocked_by" yaml:"blocked_by" mapstructure:"blocked_by"`
	Tags           []string `json:"tags" yaml:"tags" mapstructure:"tags"`
	AssignedTo     *string  `json:"assigned_to" yaml:"assigned_to" mapstructure:"assigned_to"`
	EstimatedHours *float64 `json:"estimated_hours" yaml:"estimated_hours" mapstructure:"estimated_hours"`
	ActualHours    *float64 `json:"actual_hours" yaml:"actual_hours" mapstructure:"actual_hours"`
	CodeReferences []string `json:"code_references" yaml:"code_references" mapstructure:"code_references"`
	CreatedAt      string   `json:"created_at" yaml:"created_at" mapstructure:"created_at"`
	UpdatedAt      string   `json:"updated_at" yaml:"updated_at" mapstructure:"updated_at"`
	CompletedAt    *string  `json:"completed_at" yaml:"completed_at" mapstructure:"completed_at"`
	Subtasks       []Record `json:"subtasks" yaml:"subtasks" mapstructure:"subtasks"`
}

// TimeLayout is the timestamp format written to snapshots.
const TimeLayout = time.RFC3339Nano

// parseLayouts are tried in order when reading timestamps. Zone-less forms
// are read as UTC.
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatTime renders t in the snapshot layout, normalized to UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads an ISO-8601 timestamp in any accepted layout.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToRecord converts a task and its subtree to wire form. Sets are written
// sorted and nil slices as empty arrays so output is stable.
func ToRecord(t *task.Task) Record {
	r := Record{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		Complexity:     string(t.Complexity),
		Dependencies:   sortedIDs(t.Dependencies),
		BlockedBy:      sortedIDs(t.BlockedBy),
		Tags:           nonNil(t.Tags),
		EstimatedHours: cloneFloat(t.EstimatedHours),
		ActualHours:    cloneFloat(t.ActualHours),
		CodeReferences: nonNil(t.CodeReferences),
		CreatedAt:      FormatTime(t.CreatedAt),
		UpdatedAt:      FormatTime(t.UpdatedAt),
		Subtasks:       make([]Record, 0, len(t.Subtasks)),
	}
	if t.AssignedTo != "" {
		who := t.AssignedTo
		r.AssignedTo = &who
	}
	if t.CompletedAt != nil {
		done := FormatTime(*t.CompletedAt)
		r.CompletedAt = &done
	}
	for _, sub := range t.Subtasks {
		r.Subtasks = append(r.Subtasks, ToRecord(sub))
	}
	return r
}

// ToRecords converts a forest.
func ToRecords(forest []*task.Task) []Record {
	out := make([]Record, 0, len(forest))
	for _, t := range forest {
		out = append(out, ToRecord(t))
	}
	return out
}

// FromRecord converts a record and its subtree to a task. It never fails:
// missing or unknown enum values take their defaults, missing or unparsable
// timestamps become now, and an unparsable completed_at becomes nil.
// Use Validate first when the record comes from untrusted input.
func FromRecord(r Record, now time.Time) *task.Task {
	t := &task.Task{
		ID:             strings.TrimSpace(r.ID),
		Name:           r.Name,
		Description:    r.Description,
		Status:         task.Status(r.Status),
		Priority:       task.Priority(r.Priority),
		Complexity:     task.Complexity(r.Complexity),
		Dependencies:   task.NewIDSet(),
		BlockedBy:      task.NewIDSet(),
		Tags:           slices.Clone(r.Tags),
		EstimatedHours: cloneFloat(r.EstimatedHours),
		ActualHours:    cloneFloat(r.ActualHours),
		CodeReferences: slices.Clone(r.CodeReferences),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if !t.Status.Valid() {
		t.Status = task.StatusTodo
	}
	if !t.Priority.Valid() {
		t.Priority = task.PriorityMedium
	}
	if !t.Complexity.Valid() {
		t.Complexity = task.ComplexityMedium
	}
	for _, dep := range r.Dependencies {
		if dep != "" && dep != t.ID {
			t.Dependencies.Add(dep)
		}
	}
	for _, dep := range r.BlockedBy {
		if dep != "" && dep != t.ID {
			t.BlockedBy.Add(dep)
		}
	}
	if r.AssignedTo != nil {
		t.AssignedTo = *r.AssignedTo
	}
	if ts, ok := ParseTime(r.CreatedAt); ok {
		t.CreatedAt = ts
	}
	if ts, ok := ParseTime(r.UpdatedAt); ok {
		t.UpdatedAt = ts
	}
	if r.CompletedAt != nil {
		if ts, ok := ParseTime(*r.CompletedAt); ok {
			t.CompletedAt = &ts
		}
	}
	if len(r.Subtasks) > 0 {
		t.Subtasks = make([]*task.Task, 0, len(r.Subtasks))
		for _, sub := range r.Subtasks {
			t.Subtasks = append(t.Subtasks, FromRecord(sub, now))
		}
	}
	return t
}

// FromRecords converts a list of records.
func FromRecords(records []Record, now time.Time) []*task.Task {
	out := make([]*task.Task, 0, len(records))
	for _, r := range records {
		out = append(out, FromRecord(r, now))
	}
	return out
}

// Validate checks a record from untrusted input: a well-formed id, known enum
// values when present, and subtasks whose ids extend the record's own id.
func Validate(r Record) error {
	if !taskid.Valid(r.ID) {
		return errors.NewValidationError("malformed task id").
			WithField("id").
			WithValue(r.ID).
			WithCause(errors.ErrInvalidID)
	}
	if r.Status != "" {
		if _, err := task.ParseStatus(r.Status); err != nil {
			return err
		}
	}
	if r.Priority != "" {
		if _, err := task.ParsePriority(r.Priority); err != nil {
			return err
		}
	}
	if r.Complexity != "" {
		if _, err := task.ParseComplexity(r.Complexity); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(r.Subtasks))
	for _, sub := range r.Subtasks {
		if !taskid.IsDirectChild(sub.ID, r.ID) {
			return errors.NewValidationError("subtask id must extend its parent id").
				WithField("subtasks").
				WithValue(sub.ID).
				WithCause(errors.ErrInvalidSubtask)
		}
		if seen[sub.ID] {
			return errors.NewValidationError("duplicate subtask id").
				WithField("subtasks").
				WithValue(sub.ID).
				WithCause(errors.ErrInvalidSubtask)
		}
		seen[sub.ID] = true
		if err := Validate(sub); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(s task.IDSet) []string {
	out := s.Sorted()
	slices.SortStableFunc(out, taskid.Compare)
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
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
