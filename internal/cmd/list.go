package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
	"github.com/Iron-Ham/tasktree/internal/tui"
)

// listResult is the --json shape of list.
type listResult struct {
	Tasks    []snapshot.Record `json:"tasks"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func newListCmd(opts *options) *cobra.Command {
	var (
		status, priority, tag, assignee string
		page, pageSize                  int
		tree                            bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, nested ones included",
		Long: `List every task, subtasks included, in id order. Filters combine;
pagination applies after filtering.

With --tree the whole forest is drawn with subtasks under their parents and
the filters are ignored.`,
		Args: cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			if tree {
				forest := w.store.Forest()
				if w.json {
					return writeJSON(w.out, snapshot.ToRecords(forest))
				}
				if len(forest) == 0 {
					w.p.println("No tasks")
					return nil
				}
				w.p.tree(forest)
				return nil
			}

			f := taskstore.Filter{
				Tag:        tag,
				AssignedTo: assignee,
				Page:       page,
				PageSize:   pageSize,
			}
			if !cmd.Flags().Changed("page-size") {
				f.PageSize = w.cfg.List.PageSize
			}
			if status != "" {
				st, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				f.Status = st
			}
			if priority != "" {
				pr, err := task.ParsePriority(priority)
				if err != nil {
					return err
				}
				f.Priority = pr
			}

			tasks, total := w.store.List(f)
			if w.json {
				res := listResult{
					Tasks:    make([]snapshot.Record, 0, len(tasks)),
					Total:    total,
					Page:     max(f.Page, 1),
					PageSize: f.PageSize,
				}
				for _, t := range tasks {
					r := snapshot.ToRecord(t)
					r.Subtasks = []snapshot.Record{}
					res.Tasks = append(res.Tasks, r)
				}
				return writeJSON(w.out, res)
			}

			if total == 0 {
				w.p.println("No tasks")
				return nil
			}
			for _, t := range tasks {
				w.p.println(w.p.row(t, taskid.Depth(t.ID)-1))
			}
			if total > len(tasks) {
				pages := (total + f.PageSize - 1) / f.PageSize
				w.p.println(w.p.styles.Muted.Render(fmt.Sprintf("page %d of %d (%d tasks)", max(f.Page, 1), pages, total)))
			}
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&status, "status", "", "only tasks with this status")
	flags.StringVar(&priority, "priority", "", "only tasks with this priority")
	flags.StringVar(&tag, "tag", "", "only tasks carrying this tag")
	flags.StringVar(&assignee, "assignee", "", "only tasks assigned to this person")
	flags.IntVar(&page, "page", 1, "page number, starting at 1")
	flags.IntVar(&pageSize, "page-size", taskstore.DefaultPageSize, "tasks per page (default from list.page_size)")
	flags.BoolVar(&tree, "tree", false, "draw the whole forest as a tree")
	return cmd
}

// nextResult is the --json shape of next.
type nextResult struct {
	Parent     *snapshot.Record  `json:"parent"`
	Candidates []snapshot.Record `json:"candidates"`
}

func newNextCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the task to work on next",
		Long: `Pick the most urgent top-level task and list its executable subtasks
in rank order. The first candidate is the task to work on next. When the
parent has no open subtasks the parent itself is the candidate.

Ranking prefers in-progress work, then higher priority, then tasks that
unblock more dependents, then older tasks.`,
		Args: cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = w.cfg.Scheduler.Limit
			}
			sel := w.store.Select(limit)

			if w.json {
				res := nextResult{Candidates: make([]snapshot.Record, 0, len(sel.Candidates))}
				if sel.Parent != nil {
					r := snapshot.ToRecord(sel.Parent)
					res.Parent = &r
				}
				for _, c := range sel.Candidates {
					res.Candidates = append(res.Candidates, snapshot.ToRecord(c))
				}
				return writeJSON(w.out, res)
			}

			next, ok := sel.Next()
			if !ok {
				w.p.println("Nothing to work on")
				return nil
			}
			w.p.println(w.p.styles.Title.Render(fmt.Sprintf("Next: %s  %s", next.ID, next.Name)))
			if sel.Parent != nil && sel.Parent.ID != next.ID {
				w.p.println(w.p.styles.Muted.Render(fmt.Sprintf("part of %s  %s", sel.Parent.ID, sel.Parent.Name)))
			}
			if len(sel.Candidates) > 1 {
				w.p.println()
				for i, c := range sel.Candidates {
					w.p.printf("%d. %s\n", i+1, w.p.row(c, 0))
				}
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of candidates (default from scheduler.limit)")
	return cmd
}

// statsResult is the --json shape of stats.
type statsResult struct {
	Total    int                 `json:"total"`
	ByStatus map[task.Status]int `json:"by_status"`
	Cycles   int                 `json:"cycles"`
	Location string              `json:"location"`
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count tasks by status",
		Args:  cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			res := statsResult{
				Total:    w.store.Len(),
				ByStatus: w.store.CountByStatus(),
				Cycles:   len(w.store.Cycles()),
				Location: w.store.Location(),
			}
			if w.json {
				return writeJSON(w.out, res)
			}

			w.p.println(w.p.styles.Header.Render("TASKS"))
			w.p.printf("Total: %d\n", res.Total)
			for _, st := range task.Statuses {
				w.p.printf("  %-14s %d\n", tui.Label(string(st))+":", res.ByStatus[st])
			}
			if res.Total > 0 {
				done := res.ByStatus[task.StatusDone]
				w.p.printf("Progress: %.0f%%\n", float64(done)*100/float64(res.Total))
			}
			if res.Cycles > 0 {
				w.p.println(w.p.styles.Warning.Render(fmt.Sprintf("%d dependency cycle(s); run 'tasktree check'", res.Cycles)))
			}
			w.p.println(w.p.styles.Muted.Render("Snapshot: " + res.Location))
			return nil
		}),
	}
}
