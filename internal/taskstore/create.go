package taskstore

import (
	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
)

// CreateParams describes a new task. Zero-valued enums take their defaults.
type CreateParams struct {
	// ID is optional. When empty, a child id of ParentID is generated, or
	// the next top-level id when ParentID is empty too.
	ID       string
	ParentID string

	Name           string
	Description    string
	Status         task.Status
	Priority       task.Priority
	Complexity     task.Complexity
	Dependencies   []string
	Tags           []string
	AssignedTo     string
	EstimatedHours *float64
	ActualHours    *float64
	CodeReferences []string
}

// Create adds a task and links its dependencies. A dotted id is appended to
// its parent's subtasks; when the parent does not exist yet the task is kept
// at the top level and adopted once the parent is created. A supplied id
// that is already taken fails with a duplicate-id error.
//
// If only the snapshot write fails, the created task is returned along with
// the persistence error.
func (s *Store) Create(p CreateParams) (*task.Task, error) {
	var created *task.Task
	err := s.write(func() error {
		t, err := s.create(p)
		created = t
		return err
	})
	if created == nil {
		return nil, err
	}
	return s.cloneOf(created.ID), err
}

func (s *Store) create(p CreateParams) (*task.Task, error) {
	if err := validateEnums(p.Status, p.Priority, p.Complexity); err != nil {
		return nil, err
	}
	id, err := s.resolveID(p.ID, p.ParentID)
	if err != nil {
		return nil, err
	}
	for _, dep := range p.Dependencies {
		if err := s.checkNewDependency(id, dep); err != nil {
			return nil, err
		}
	}

	now := s.now()
	t := task.New(task.Params{
		ID:             id,
		Name:           p.Name,
		Description:    p.Description,
		Status:         p.Status,
		Priority:       p.Priority,
		Complexity:     p.Complexity,
		Tags:           p.Tags,
		AssignedTo:     p.AssignedTo,
		EstimatedHours: p.EstimatedHours,
		ActualHours:    p.ActualHours,
		CodeReferences: p.CodeReferences,
	}, now)

	s.place(t)
	s.graph.Ensure(id)
	s.adoptOrphans(t)

	log := s.logger.WithOperation("create").WithTask(id)
	parentID, _ := taskid.Parent(id)
	log.Debug("task created", "parent_id", parentID, "priority", t.Priority)
	s.emit(event.NewTaskCreatedEvent(id, parentID, t.Name))

	for _, dep := range p.Dependencies {
		if t.Dependencies.Has(dep) {
			continue
		}
		if err := s.link(id, dep); err != nil {
			// Only reachable when loaded data already declared a dependency
			// on this id, closing a cycle through it.
			log.Warn("dependency dropped after create", "depends_on", dep, "error", err)
		}
	}
	return t, nil
}

// resolveID validates or generates the id of a new task.
func (s *Store) resolveID(id, parentID string) (string, error) {
	if parentID != "" && !s.exists(parentID) {
		return "", errors.TaskNotFound(parentID)
	}
	if id == "" {
		if parentID == "" {
			return taskid.Next(topLevelIDs(s.tasks)), nil
		}
		parent := s.find(parentID)
		return taskid.NextChild(parentID, childIDs(parent)), nil
	}
	if !taskid.Valid(id) {
		return "", errors.NewValidationError("malformed task id").
			WithField("id").
			WithValue(id).
			WithCause(errors.ErrInvalidID)
	}
	if parentID != "" && !taskid.IsDirectChild(id, parentID) {
		return "", errors.NewValidationError("subtask id must extend its parent id").
			WithField("id").
			WithValue(id).
			WithCause(errors.ErrInvalidSubtask)
	}
	if s.exists(id) {
		return "", errors.NewAlreadyExistsError("task", id)
	}
	return id, nil
}

// checkNewDependency validates a dependency of a task that does not exist yet.
func (s *Store) checkNewDependency(id, dep string) error {
	if dep == id {
		return errors.SelfDependency(id)
	}
	if !s.exists(dep) {
		return errors.DependencyNotFound(id, dep)
	}
	return nil
}

// place stores t under its parent, or at the top level when it is top-level
// or its parent is missing.
func (s *Store) place(t *task.Task) {
	parentID, ok := taskid.Parent(t.ID)
	if !ok {
		s.tasks[t.ID] = t
		return
	}
	parent := s.find(parentID)
	if parent == nil {
		s.logger.WithOperation("create").WithTask(t.ID).Warn(
			"parent task missing, storing subtask at top level",
			"parent_id", parentID)
		s.tasks[t.ID] = t
		return
	}
	parent.Subtasks = append(parent.Subtasks, t)
}

// adoptOrphans moves top-level entries whose ids name t as their parent into
// t's subtasks, in id order.
func (s *Store) adoptOrphans(t *task.Task) {
	for _, orphan := range s.forest() {
		if !taskid.IsDirectChild(orphan.ID, t.ID) {
			continue
		}
		delete(s.tasks, orphan.ID)
		t.Subtasks = append(t.Subtasks, orphan)
		s.logger.WithTask(orphan.ID).Info("subtask adopted by its parent", "parent_id", t.ID)
	}
}

func validateEnums(status task.Status, priority task.Priority, complexity task.Complexity) error {
	if status != "" {
		if _, err := task.ParseStatus(string(status)); err != nil {
			return err
		}
	}
	if priority != "" {
		if _, err := task.ParsePriority(string(priority)); err != nil {
			return err
		}
	}
	if complexity != "" {
		if _, err := task.ParseComplexity(string(complexity)); err != nil {
			return err
		}
	}
	return nil
}

func topLevelIDs(tasks map[string]*task.Task) []string {
	out := make([]string, 0, len(tasks))
	for id := range tasks {
		if taskid.IsTopLevel(id) {
			out = append(out, id)
		}
	}
	return out
}

func childIDs(parent *task.Task) []string {
	if parent == nil {
		return nil
	}
	out := make([]string, 0, len(parent.Subtasks))
	for _, sub := range parent.Subtasks {
		out = append(out, sub.ID)
	}
	return out
}
