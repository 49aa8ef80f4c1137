package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
)

// linkJSON is one dependency outcome in --json output.
type linkJSON struct {
	TaskID      string `json:"task_id"`
	DependsOnID string `json:"depends_on_id"`
	OK          bool   `json:"ok"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
}

func toLinkJSON(results []taskstore.LinkResult) []linkJSON {
	out := make([]linkJSON, 0, len(results))
	for _, r := range results {
		l := linkJSON{TaskID: r.TaskID, DependsOnID: r.DependsOnID, OK: r.OK}
		if r.Err != nil {
			l.Reason = string(r.Reason)
			l.Error = r.Err.Error()
		}
		out = append(out, l)
	}
	return out
}

func newDependCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "depend <id> <depends-on>...",
		Short: "Make a task depend on other tasks",
		Long: `Add dependencies to a task. Each dependency is applied on its own:
unknown ids, self-dependencies and edges that would close a cycle are
rejected without affecting the others.`,
		Args: cobra.MinimumNArgs(2),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			results, err := w.store.SetDependencies(args[0], args[1:])
			if err != nil && !errors.IsPersistence(err) {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.OK {
					failed++
				}
			}

			if w.json {
				if jerr := writeJSON(w.out, toLinkJSON(results)); jerr != nil {
					return jerr
				}
			} else {
				for _, r := range results {
					if r.OK {
						w.p.printf("%s %s now depends on %s\n", w.p.styles.Success.Render("✓"), r.TaskID, r.DependsOnID)
					} else {
						w.p.printf("%s %s -> %s: %v\n", w.p.styles.Error.Render("✗"), r.TaskID, r.DependsOnID, r.Err)
					}
				}
			}

			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d dependencies rejected: %w", failed, len(results), firstLinkError(results))
			}
			return nil
		}),
	}
}

func firstLinkError(results []taskstore.LinkResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func newUndependCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "undepend <id> <depends-on>",
		Short: "Remove a dependency",
		Long: `Remove the dependency of a task on another. Removing a dependency that
does not exist is not an error.`,
		Args: cobra.ExactArgs(2),
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			err := w.store.RemoveDependency(args[0], args[1])
			if err != nil && !errors.IsPersistence(err) {
				return err
			}
			if w.json {
				if jerr := writeJSON(w.out, linkJSON{TaskID: args[0], DependsOnID: args[1], OK: true}); jerr != nil {
					return jerr
				}
				return err
			}
			w.p.printf("%s no longer depends on %s\n", args[0], args[1])
			return err
		}),
	}
}

// checkResult is the --json shape of check.
type checkResult struct {
	Tasks  int        `json:"tasks"`
	Cycles [][]string `json:"cycles"`
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report dependency cycles in the snapshot",
		Long: `Audit the stored tasks for dependency cycles. tasktree never creates a
cycle itself, but hand-edited or imported snapshots may contain some. The
command fails when any cycle is found.`,
		Args: cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			cycles := w.store.Cycles()
			if cycles == nil {
				cycles = [][]string{}
			}
			if w.json {
				if err := writeJSON(w.out, checkResult{Tasks: w.store.Len(), Cycles: cycles}); err != nil {
					return err
				}
			} else if len(cycles) == 0 {
				w.p.printf("%s %d tasks, no dependency cycles\n", w.p.styles.Success.Render("✓"), w.store.Len())
			} else {
				for _, c := range cycles {
					w.p.printf("%s cycle: %s\n", w.p.styles.Error.Render("✗"), strings.Join(c, " -> "))
				}
			}
			if len(cycles) > 0 {
				return errors.NewTaskError(errors.ReasonDependencyCycle,
					fmt.Sprintf("%d dependency cycle(s) found", len(cycles)), errors.ErrDependencyCycle)
			}
			return nil
		}),
	}
}
