package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/tui"
	"github.com/Iron-Ham/tasktree/internal/watch"
)

// reloadJSON is one line of watch --json output.
type reloadJSON struct {
	Time   string  `json:"time"`
	Tasks  int     `json:"tasks"`
	Cycles int     `json:"cycles"`
	Next   *string `json:"next"`
}

func newWatchCmd(opts *options) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow snapshot changes made by other processes",
		Long: `Watch the task snapshot and report every change written by another
tasktree process: the task count, dependency cycles and the next task.
Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.watch(ctx, debounce)
		}),
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before reloading")
	return cmd
}

// watch reloads the store on every external snapshot change until ctx is
// done, reporting each reload.
func (w *workspace) watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := watch.New(w.storage.Location(), w.store,
		watch.WithBus(w.bus),
		watch.WithLogger(w.logger),
		watch.WithDebounce(debounce))
	if err != nil {
		return err
	}

	w.bus.Subscribe(event.TypeStoreLoaded, func(e event.Event) {
		loaded := e.(event.StoreLoadedEvent)
		res := reloadJSON{
			Time:   snapshot.FormatTime(loaded.Timestamp()),
			Tasks:  loaded.TaskCount,
			Cycles: loaded.Cycles,
		}
		if next, ok := w.store.Next(); ok {
			res.Next = &next.ID
		}
		if w.json {
			_ = writeJSONLine(w.out, res)
			return
		}
		line := loaded.Timestamp().Format("15:04:05") + " reloaded: "
		line += pluralTasks(res.Tasks)
		if res.Next != nil {
			line += ", next " + *res.Next
		}
		w.p.println(line)
		if res.Cycles > 0 {
			w.warnf("%d dependency cycle(s) in the snapshot", res.Cycles)
		}
	})

	if !w.json {
		w.p.println(w.p.styles.Muted.Render("Watching " + watcher.Path() + " (Ctrl+C to stop)"))
	}
	return watcher.Run(ctx)
}

func pluralTasks(n int) string {
	if n == 1 {
		return "1 task"
	}
	return strconv.Itoa(n) + " tasks"
}

func newBoardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive task board",
		Long: `Open a terminal board over the task forest. The board follows
changes written by other tasktree processes.

Keys: j/k move, enter folds, n jumps to the next task, s starts, d marks done,
a/A add a task or subtask, x deletes, / filters, tab shows details, q quits.`,
		Args: cobra.NoArgs,
		RunE: withWorkspace(opts, func(w *workspace, cmd *cobra.Command, args []string) error {
			watcher, err := watch.New(w.storage.Location(), w.store,
				watch.WithBus(w.bus),
				watch.WithLogger(w.logger))
			if err != nil {
				return err
			}
			watcher.Start()
			defer watcher.Stop()

			app := tui.NewApp(w.store, w.bus, tui.Options{
				Color: w.cfg.TUI.Color && !opts.noColor,
				Title: w.storage.Location(),
			})
			return app.Run()
		}),
	}
}
