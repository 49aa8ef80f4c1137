package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/planning"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
)

// planner returns a planner over the workspace store configured from the
// expand section.
func (w *workspace) planner() *planning.Planner {
	return planning.NewPlanner(w.store, planning.Options{
		NumSubtasks:  w.cfg.Expand.NumSubtasks,
		ContextChars: w.cfg.Expand.ContextChars,
		MaxParallel:  w.cfg.Expand.MaxParallel,
	}, w.logger)
}

// readDocument reads path, or stdin when path is "-".
func readDocument(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := afero.ReadFile(afs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// importResult is the --json shape of import.
type importResult struct {
	Created  []string              `json:"created"`
	Remapped map[string]string     `json:"remapped"`
	Links    map[string][]linkJSON `json:"links"`
	Rejected map[string]string     `json:"rejected"`
}

func newImportCmd(opts *options) *cobra.Command {
	var (
		format  string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create tasks from a JSON, YAML or TOML task list",
		Long: `Create top-level tasks, with their subtasks, from a task list file. The
format follows the file extension unless --format is given; use "-" to read
from stdin.

Every task is created first and dependencies are linked afterwards, so tasks
may depend on ones listed later. Ids that are malformed or already taken are
renumbered and references to them rewritten. Dependencies that cannot be
linked are reported without failing the import.`,
		Args: cobra.ExactArgs(1),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			f, err := documentFormat(args[0], format)
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			res, err := w.planner().Decompose(cmd.Context(), planning.TextDecomposer{Format: f}, doc, replace)
			if err != nil && !errors.IsPersistence(err) {
				return err
			}

			if w.json {
				if jerr := writeJSON(w.out, toImportJSON(res)); jerr != nil {
					return jerr
				}
				return err
			}
			w.printImport(res)
			return err
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: json, yaml or toml (default from extension)")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete every existing task first")
	return cmd
}

func documentFormat(path, flag string) (planning.Format, error) {
	if flag != "" {
		return planning.ParseFormat(flag)
	}
	if path == "-" {
		return planning.FormatJSON, nil
	}
	return planning.FormatFromPath(path)
}

func toImportJSON(res taskstore.ImportResult) importResult {
	out := importResult{
		Created:  res.Created,
		Remapped: res.Remapped,
		Links:    make(map[string][]linkJSON, len(res.Links)),
		Rejected: make(map[string]string, len(res.Rejected)),
	}
	if out.Created == nil {
		out.Created = []string{}
	}
	if out.Remapped == nil {
		out.Remapped = map[string]string{}
	}
	for id, links := range res.Links {
		out.Links[id] = toLinkJSON(links)
	}
	for i, err := range res.Rejected {
		out.Rejected[strconv.Itoa(i)] = err.Error()
	}
	return out
}

func (w *workspace) printImport(res taskstore.ImportResult) {
	w.p.printf("Imported %d task(s)\n", len(res.Created))

	from := make([]string, 0, len(res.Remapped))
	for id := range res.Remapped {
		from = append(from, id)
	}
	sort.Strings(from)
	for _, id := range from {
		w.p.printf("  renumbered %s -> %s\n", id, res.Remapped[id])
	}

	ids := make([]string, 0, len(res.Links))
	for id := range res.Links {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, l := range res.Links[id] {
			if !l.OK {
				w.warnf("dependency %s -> %s not linked: %v", l.TaskID, l.DependsOnID, l.Err)
			}
		}
	}

	rejected := make([]int, 0, len(res.Rejected))
	for i := range res.Rejected {
		rejected = append(rejected, i)
	}
	sort.Ints(rejected)
	for _, i := range rejected {
		w.warnf("record %d skipped: %v", i, res.Rejected[i])
	}
}

// expandResult is one parent in --json output of expand.
type expandResult struct {
	ParentID string            `json:"parent_id"`
	Added    []snapshot.Record `json:"added"`
	Error    string            `json:"error,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

func newExpandCmd(opts *options) *cobra.Command {
	var (
		from        string
		contextFile string
		all         bool
	)
	cmd := &cobra.Command{
		Use:   "expand [id...]",
		Short: "Add subtasks to tasks from a pre-generated file",
		Long: `Append subtasks to a task. The --from file holds either a task list,
used for every expanded task, or an object keyed by parent id whose values
are task lists. Missing subtask ids are assigned after the existing
children.

With --all every given id is expanded concurrently (up to
expand.max_parallel at once). Without ids, --all expands the parents a keyed
file covers, or every top-level task that has no subtasks yet.

Examples:
  tasktree expand 3 --from subtasks.yaml
  tasktree expand --all --from breakdown.json`,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			if from == "" {
				return errors.NewValidationError("--from is required").
					WithField("from").
					WithCause(errors.ErrInvalidInput)
			}
			if !all && len(args) != 1 {
				return errors.NewValidationError("expand takes exactly one id without --all").
					WithField("id").
					WithValue(args).
					WithCause(errors.ErrInvalidInput)
			}

			expander, err := planning.NewFileExpander(afs, from)
			if err != nil {
				return err
			}
			var doc string
			if contextFile != "" {
				if doc, err = readDocument(cmd, contextFile); err != nil {
					return err
				}
			}

			p := w.planner()
			ids := args
			if len(ids) == 0 {
				ids = expander.Parents()
				if ids == nil {
					ids = p.PendingParents()
				}
			}

			results := p.ExpandAll(cmd.Context(), expander, ids, doc)
			return w.reportExpansion(results)
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "file with the proposed subtasks (json, yaml or toml)")
	cmd.Flags().StringVar(&contextFile, "context", "", "requirements document passed along as context")
	cmd.Flags().BoolVar(&all, "all", false, "expand several tasks concurrently")
	return cmd
}

func (w *workspace) reportExpansion(results []planning.ExpansionResult) error {
	var firstErr error
	failed := 0
	out := make([]expandResult, 0, len(results))
	for _, r := range results {
		er := expandResult{ParentID: r.ParentID, Added: make([]snapshot.Record, 0, len(r.Added))}
		for _, t := range r.Added {
			er.Added = append(er.Added, snapshot.ToRecord(t))
		}
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			er.Error = r.Err.Error()
			er.Reason = string(errors.ReasonOf(r.Err))
		}
		out = append(out, er)
	}

	if w.json {
		if err := writeJSON(w.out, out); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			switch {
			case r.Err != nil && len(r.Added) == 0:
				w.p.printf("%s %s: %v\n", w.p.styles.Error.Render("✗"), r.ParentID, r.Err)
			case len(r.Added) == 0:
				w.p.printf("%s %s: no subtasks proposed\n", w.p.styles.Muted.Render("-"), r.ParentID)
			default:
				w.p.printf("%s %s: added %d subtask(s)\n", w.p.styles.Success.Render("✓"), r.ParentID, len(r.Added))
				for _, t := range r.Added {
					w.p.println(w.p.row(t, 1))
				}
			}
		}
	}

	if failed > 1 {
		return fmt.Errorf("%d of %d expansions failed: %w", failed, len(results), firstErr)
	}
	return firstErr
}

func newExportCmd(opts *options) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task as JSON or YAML",
		Long: `Write the whole forest in snapshot form. JSON output is byte for byte
what tasktree stores on disk; YAML uses the same field names.`,
		Args: cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			records := snapshot.ToRecords(w.store.Forest())

			var (
				data []byte
				err  error
			)
			switch f, ferr := planning.ParseFormat(format); {
			case ferr != nil:
				return ferr
			case f == planning.FormatJSON:
				data, err = snapshot.Encode(records)
			case f == planning.FormatYAML:
				data, err = yaml.Marshal(records)
			default:
				return errors.NewValidationError("export supports json and yaml").
					WithField("format").
					WithValue(format).
					WithCause(errors.ErrInvalidInput)
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = w.out.Write(data)
				return err
			}
			if err := afero.WriteFile(afs, output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			if !w.json {
				w.p.printf("Exported %d task(s) to %s\n", w.store.Len(), output)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newClearCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			n := w.store.Len()
			if n > 0 && !force {
				return errors.NewValidationError(fmt.Sprintf("refusing to delete %d task(s) without --force", n)).
					WithField("force").
					WithCause(errors.ErrInvalidInput)
			}
			if err := w.store.Clear(); err != nil {
				return err
			}
			if w.json {
				return writeJSON(w.out, map[string]int{"deleted": n})
			}
			w.p.printf("Deleted %d task(s)\n", n)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm deleting every task")
	return cmd
}
