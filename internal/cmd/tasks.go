package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
)

// fieldFlags are the descriptive task flags shared by add and update.
type fieldFlags struct {
	description string
	status      string
	priority    string
	complexity  string
	assignee    string
	tags        []string
	depends     []string
	refs        []string
	estimate    float64
	actual      float64
}

func (f *fieldFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "task description")
	fs.StringVar(&f.status, "status", "", "status: todo, in_progress, done, blocked, cancelled")
	fs.StringVarP(&f.priority, "priority", "p", "", "priority: critical, high, medium, low")
	fs.StringVar(&f.complexity, "complexity", "", "complexity: low, medium, high")
	fs.StringVar(&f.assignee, "assignee", "", "who the task is assigned to")
	fs.StringSliceVarP(&f.tags, "tag", "t", nil, "tag (repeatable or comma separated)")
	fs.StringSliceVar(&f.depends, "depends", nil, "ids this task depends on")
	fs.StringSliceVar(&f.refs, "ref", nil, "code reference such as a file path")
	fs.Float64Var(&f.estimate, "estimate", 0, "estimated hours")
	fs.Float64Var(&f.actual, "actual", 0, "actual hours")
}

// enums parses the status, priority and complexity flags. Empty flags stay
// zero so the store applies its defaults.
func (f *fieldFlags) enums() (task.Status, task.Priority, task.Complexity, error) {
	var (
		st  task.Status
		pr  task.Priority
		cx  task.Complexity
		err error
	)
	if f.status != "" {
		if st, err = task.ParseStatus(f.status); err != nil {
			return "", "", "", err
		}
	}
	if f.priority != "" {
		if pr, err = task.ParsePriority(f.priority); err != nil {
			return "", "", "", err
		}
	}
	if f.complexity != "" {
		if cx, err = task.ParseComplexity(f.complexity); err != nil {
			return "", "", "", err
		}
	}
	return st, pr, cx, nil
}

func newAddCmd(opts *options) *cobra.Command {
	var (
		fields   fieldFlags
		id       string
		parentID string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a task or subtask",
		Long: `Create a task. Without --id the next free id is generated: the next
top-level number, or the next child of --parent.

Examples:
  tasktree add "Design schema" --priority high
  tasktree add "Write migration" --parent 1 --depends 2`,
		Args: cobra.ExactArgs(1),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			st, pr, cx, err := fields.enums()
			if err != nil {
				return err
			}
			p := taskstore.CreateParams{
				ID:             id,
				ParentID:       parentID,
				Name:           args[0],
				Description:    fields.description,
				Status:         st,
				Priority:       pr,
				Complexity:     cx,
				Dependencies:   fields.depends,
				Tags:           fields.tags,
				AssignedTo:     fields.assignee,
				CodeReferences: fields.refs,
			}
			if cmd.Flags().Changed("estimate") {
				p.EstimatedHours = taskstore.Ptr(fields.estimate)
			}
			if cmd.Flags().Changed("actual") {
				p.ActualHours = taskstore.Ptr(fields.actual)
			}

			t, err := w.store.Create(p)
			if t == nil {
				return err
			}
			if w.json {
				if jerr := writeJSON(w.out, snapshot.ToRecord(t)); jerr != nil {
					return jerr
				}
				return err
			}
			w.p.printf("Created task %s: %s\n", t.ID, t.Name)
			return err
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "explicit id such as 3 or 1.2")
	cmd.Flags().StringVar(&parentID, "parent", "", "create as the next subtask of this id")
	fields.register(cmd.Flags())
	return cmd
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			t, ok := w.store.Get(args[0])
			if !ok {
				return errors.TaskNotFound(args[0])
			}
			if w.json {
				return writeJSON(w.out, snapshot.ToRecord(t))
			}
			w.p.detail(t)
			return nil
		}),
	}
}

func newUpdateCmd(opts *options) *cobra.Command {
	var (
		fields fieldFlags
		name   string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change task fields",
		Long: `Change the fields of a task. Only flags that are given are applied;
list flags such as --tag and --depends replace the whole list.

Examples:
  tasktree update 1.2 --status in_progress
  tasktree update 3 --depends 1,2 --priority critical`,
		Args: cobra.ExactArgs(1),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			u, err := fields.update(cmd.Flags(), name)
			if err != nil {
				return err
			}
			if len(u.Fields()) == 0 {
				return errors.NewValidationError("no fields to update").WithCause(errors.ErrInvalidInput)
			}

			t, found, err := w.store.Update(args[0], u)
			if !found {
				return errors.TaskNotFound(args[0])
			}
			if err != nil && !errors.IsPersistence(err) {
				return err
			}
			if w.json {
				if jerr := writeJSON(w.out, snapshot.ToRecord(t)); jerr != nil {
					return jerr
				}
				return err
			}
			w.p.printf("Updated task %s\n", t.ID)
			w.p.println(w.p.row(t, 0))
			return err
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "new task name")
	fields.register(cmd.Flags())
	return cmd
}

// update builds a store update from the flags that were set.
func (f *fieldFlags) update(fs *pflag.FlagSet, name string) (taskstore.Update, error) {
	var u taskstore.Update
	st, pr, cx, err := f.enums()
	if err != nil {
		return u, err
	}
	if fs.Changed("name") {
		u.Name = taskstore.Ptr(name)
	}
	if fs.Changed("description") {
		u.Description = taskstore.Ptr(f.description)
	}
	if fs.Changed("status") {
		u.Status = taskstore.Ptr(st)
	}
	if fs.Changed("priority") {
		u.Priority = taskstore.Ptr(pr)
	}
	if fs.Changed("complexity") {
		u.Complexity = taskstore.Ptr(cx)
	}
	if fs.Changed("assignee") {
		u.AssignedTo = taskstore.Ptr(f.assignee)
	}
	if fs.Changed("tag") {
		u.Tags = taskstore.Ptr(f.tags)
	}
	if fs.Changed("depends") {
		u.Dependencies = taskstore.Ptr(f.depends)
	}
	if fs.Changed("ref") {
		u.CodeReferences = taskstore.Ptr(f.refs)
	}
	if fs.Changed("estimate") {
		u.EstimatedHours = taskstore.Ptr(f.estimate)
	}
	if fs.Changed("actual") {
		u.ActualHours = taskstore.Ptr(f.actual)
	}
	return u, nil
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task and its subtasks",
		Long: `Delete a task together with its subtasks. References to the deleted
ids are removed from every remaining task's dependencies and blockers.`,
		Args: cobra.ExactArgs(1),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			found, err := w.store.Delete(args[0])
			if !found {
				if err != nil {
					return err
				}
				return errors.TaskNotFound(args[0])
			}
			if w.json {
				if jerr := writeJSON(w.out, map[string]any{"deleted": args[0]}); jerr != nil {
					return jerr
				}
				return err
			}
			w.p.printf("Deleted task %s\n", args[0])
			return err
		}),
	}
}

// transitionResult is the --json shape of done and start.
type transitionResult struct {
	Task      snapshot.Record `json:"task"`
	Unblocked []string        `json:"unblocked"`
}

func newDoneCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done and unblock its dependents",
		Args:  cobra.ExactArgs(1),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			return w.transition(args[0], w.store.MarkDone, "Completed")
		}),
	}
}

func newStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Mark a task in progress",
		Args:  cobra.ExactArgs(1),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			return w.transition(args[0], w.store.Start, "Started")
		}),
	}
}

// transition applies a status change and reports the dependents that
// became executable.
func (w *workspace) transition(id string, apply func(string) (bool, error), verb string) error {
	var before []string
	for _, dep := range w.store.Dependents(id) {
		if t, ok := w.store.Get(dep); ok && t.BlockedBy.Len() > 0 {
			before = append(before, dep)
		}
	}

	found, err := apply(id)
	if !found {
		if err != nil {
			return err
		}
		return errors.TaskNotFound(id)
	}
	if err != nil && !errors.IsPersistence(err) {
		return err
	}
	t, _ := w.store.Get(id)

	unblocked := []string{}
	for _, dep := range before {
		if d, ok := w.store.Get(dep); ok && d.BlockedBy.Len() == 0 {
			unblocked = append(unblocked, dep)
		}
	}

	if w.json {
		if jerr := writeJSON(w.out, transitionResult{Task: snapshot.ToRecord(t), Unblocked: unblocked}); jerr != nil {
			return jerr
		}
		return err
	}
	w.p.printf("%s task %s: %s\n", verb, t.ID, t.Name)
	for _, dep := range unblocked {
		w.p.printf("  unblocked %s\n", dep)
	}
	return err
}
