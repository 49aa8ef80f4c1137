package taskstore

import (
	"slices"
	"strings"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// ImportResult summarizes a bulk import.
type ImportResult struct {
	// Created holds the ids of the imported top-level tasks, in input order.
	Created []string
	// Remapped maps an input id that was malformed or already taken to the
	// id it was stored under.
	Remapped map[string]string
	// Links holds the second-pass dependency results, keyed by task id.
	Links map[string][]LinkResult
	// Rejected maps the input position of records that could not be
	// created to the reason.
	Rejected map[int]error
}

// Import creates candidate top-level records, typically produced by a
// decomposition collaborator. Tasks are created first without dependencies,
// then every dependency is linked in a second pass so records may reference
// later ones. Malformed or colliding ids are renumbered past every id the
// batch claims, and references to them rewritten. A record repeating an
// earlier record's id is rejected. Each pair is linked independently; failures are reported
// per pair in the result rather than aborting the import.
func (s *Store) Import(records []snapshot.Record) (ImportResult, error) {
	result := ImportResult{
		Remapped: make(map[string]string),
		Links:    make(map[string][]LinkResult),
		Rejected: make(map[int]error),
	}
	err := s.write(func() error {
		type pending struct {
			id   string
			deps []string
			subs []snapshot.Record
		}
		var queue []pending

		// Valid free ids are reserved for the records that ask for them, so a
		// repaired record never takes an id claimed later in the batch.
		taken := topLevelIDs(s.tasks)
		reserved := make(map[string]bool)
		duplicates := make(map[int]bool)
		firstSeen := make(map[string]bool)
		for i, r := range records {
			id := strings.TrimSpace(r.ID)
			if id == "" {
				continue
			}
			if firstSeen[id] {
				duplicates[i] = true
				continue
			}
			firstSeen[id] = true
			if taskid.Valid(id) && taskid.IsTopLevel(id) && !s.exists(id) {
				reserved[id] = true
				taken = append(taken, id)
			}
		}

		for i, r := range records {
			id := strings.TrimSpace(r.ID)
			if duplicates[i] {
				result.Rejected[i] = errors.NewValidationError("id repeated within the import").
					WithField("id").WithValue(id).WithCause(errors.ErrDuplicateID)
				continue
			}
			if err := validateRecordEnums(r); err != nil {
				result.Rejected[i] = err
				continue
			}
			if !reserved[id] {
				newID := taskid.Next(taken)
				taken = append(taken, newID)
				if id != "" {
					result.Remapped[id] = newID
				}
				s.logger.WithOperation("import").Info("renumbered imported task", "from", id, "to", newID)
				id = newID
			}
			t, err := s.create(recordParams(id, r))
			if err != nil {
				result.Rejected[i] = err
				continue
			}
			result.Created = append(result.Created, t.ID)
			queue = append(queue, pending{id: t.ID, deps: r.Dependencies, subs: r.Subtasks})
		}

		// Nested records are created once every top-level id is known.
		subDeps := make(map[string][]string)
		for _, p := range queue {
			s.importSubtasks(p.id, p.subs, result.Remapped, subDeps)
		}

		for _, p := range queue {
			if len(p.deps) > 0 {
				result.Links[p.id] = s.linkAll(p.id, remapAll(p.deps, result.Remapped))
			}
		}
		for _, id := range sortedKeys(subDeps) {
			result.Links[id] = s.linkAll(id, remapAll(subDeps[id], result.Remapped))
		}

		s.logger.WithOperation("import").Info("import finished",
			"created", len(result.Created),
			"rejected", len(result.Rejected),
			"remapped", len(result.Remapped))
		return nil
	})
	return result, err
}

// importSubtasks creates records under parentID, renumbering ids that do
// not extend it. Dependencies are collected for the linking pass.
func (s *Store) importSubtasks(parentID string, records []snapshot.Record, remap map[string]string, deps map[string][]string) {
	for _, r := range records {
		if validateRecordEnums(r) != nil {
			s.logger.WithOperation("import").Warn("skipping invalid subtask", "parent_id", parentID, "id", r.ID)
			continue
		}
		id := strings.TrimSpace(r.ID)
		if !taskid.Valid(id) || !taskid.IsDirectChild(id, parentID) || s.exists(id) {
			newID := taskid.NextChild(parentID, childIDs(s.find(parentID)))
			if id != "" {
				remap[id] = newID
			}
			id = newID
		}
		t, err := s.create(recordParams(id, r))
		if err != nil {
			s.logger.WithOperation("import").Warn("subtask not created", "id", id, "error", err)
			continue
		}
		if len(r.Dependencies) > 0 {
			deps[t.ID] = r.Dependencies
		}
		s.importSubtasks(t.ID, r.Subtasks, remap, deps)
	}
}

// ApplyExpansion appends candidate subtask records, typically produced by
// an expansion collaborator, to parentID's existing subtasks. Records
// without a usable id are numbered after the existing children; missing
// fields take their defaults. The combined list is installed through the
// same path as Update with subtask records, so it is validated as a whole.
func (s *Store) ApplyExpansion(parentID string, records []snapshot.Record) ([]*task.Task, error) {
	var added []string
	err := s.write(func() error {
		parent := s.find(parentID)
		if parent == nil {
			return errors.TaskNotFound(parentID)
		}

		taken := childIDs(parent)
		remap := make(map[string]string)
		prepared := make([]snapshot.Record, 0, len(records))
		for _, r := range records {
			id := strings.TrimSpace(r.ID)
			if !taskid.IsDirectChild(id, parentID) || !taskid.Valid(id) || slices.Contains(taken, id) {
				newID := taskid.NextChild(parentID, taken)
				if id != "" {
					remap[id] = newID
				}
				id = newID
			}
			taken = append(taken, id)
			r.ID = id
			r.Subtasks = nil
			prepared = append(prepared, r)
			added = append(added, id)
		}
		for i := range prepared {
			prepared[i].Dependencies = remapAll(prepared[i].Dependencies, remap)
			prepared[i].BlockedBy = nil
		}

		children := make([]*task.Task, 0, len(parent.Subtasks)+len(prepared))
		for _, sub := range parent.Subtasks {
			children = append(children, sub.Clone())
		}
		now := s.now()
		for _, r := range prepared {
			if err := snapshot.Validate(r); err != nil {
				return err
			}
			children = append(children, snapshot.FromRecord(r, now))
		}
		if err := s.update(parent, Update{Subtasks: &children}); err != nil {
			return err
		}
		for _, id := range added {
			s.emit(event.NewTaskCreatedEvent(id, parentID, s.find(id).Name))
		}
		s.logger.WithOperation("expand").WithTask(parentID).Info("subtasks added", "count", len(added))
		return nil
	})
	if err != nil && !errors.IsPersistence(err) {
		return nil, err
	}

	out := make([]*task.Task, 0, len(added))
	for _, id := range added {
		if t := s.cloneOf(id); t != nil {
			out = append(out, t)
		}
	}
	return out, err
}

// recordParams maps a wire record to creation parameters without
// dependencies; those are linked in a later pass.
func recordParams(id string, r snapshot.Record) CreateParams {
	p := CreateParams{
		ID:             id,
		Name:           r.Name,
		Description:    r.Description,
		Status:         task.Status(strings.TrimSpace(r.Status)),
		Priority:       task.Priority(strings.TrimSpace(r.Priority)),
		Complexity:     task.Complexity(strings.TrimSpace(r.Complexity)),
		Tags:           r.Tags,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
		CodeReferences: r.CodeReferences,
	}
	if r.AssignedTo != nil {
		p.AssignedTo = *r.AssignedTo
	}
	return p
}

func validateRecordEnums(r snapshot.Record) error {
	return validateEnums(
		task.Status(strings.TrimSpace(r.Status)),
		task.Priority(strings.TrimSpace(r.Priority)),
		task.Complexity(strings.TrimSpace(r.Complexity)),
	)
}

func remapAll(ids []string, remap map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if to, ok := remap[id]; ok {
			id = to
		}
		out = append(out, id)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.SortFunc(out, taskid.Compare)
	return out
}
