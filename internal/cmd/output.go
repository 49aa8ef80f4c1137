package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/tui"
	"github.com/Iron-Ham/tasktree/internal/util"
)

const defaultWidth = 100

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the column count of w, or defaultWidth when w is
// not a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeJSONLine writes v as a single line, for streamed output.
func writeJSONLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printer renders tasks for humans.
type printer struct {
	w      io.Writer
	styles tui.Styles
	width  int
}

func (p *printer) println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

func (p *printer) printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// row renders one task line: indent, status icon, id, priority and name.
func (p *printer) row(t *task.Task, depth int) string {
	icon := p.styles.StatusStyle(t.Status).Render(tui.StatusIcon(t.Status))
	line := fmt.Sprintf("%s%s %s  %s  %s",
		util.Indent(depth),
		icon,
		util.PadRight(t.ID, 8),
		util.PadRight(p.styles.Priority(t.Priority), 8),
		util.FirstLine(t.Name))
	if t.BlockedBy.Len() > 0 && !t.Status.IsTerminal() {
		line += p.styles.Warning.Render("  ⊘ " + strings.Join(t.BlockedBy.Sorted(), ","))
	}
	return util.TruncateANSI(line, p.width)
}

// tree prints forest with subtasks indented under their parents.
func (p *printer) tree(forest []*task.Task) {
	var walk func(ts []*task.Task, depth int)
	walk = func(ts []*task.Task, depth int) {
		for _, t := range ts {
			p.println(p.row(t, depth))
			walk(t.Subtasks, depth+1)
		}
	}
	walk(forest, 0)
}

// detail prints every field of t.
func (p *printer) detail(t *task.Task) {
	p.println(p.styles.Title.Render(t.ID + "  " + t.Name))
	field := func(label, value string) {
		if value == "" {
			return
		}
		p.printf("%s %s\n", p.styles.Muted.Render(util.PadRight(label+":", 14)), value)
	}
	field("Status", p.styles.Status(t.Status))
	field("Priority", p.styles.Priority(t.Priority))
	field("Complexity", tui.Label(string(t.Complexity)))
	field("Description", t.Description)
	field("Depends on", strings.Join(t.Dependencies.Sorted(), ", "))
	field("Blocked by", strings.Join(t.BlockedBy.Sorted(), ", "))
	field("Tags", strings.Join(t.Tags, ", "))
	field("Assigned to", t.AssignedTo)
	if t.EstimatedHours != nil {
		field("Estimate", fmt.Sprintf("%gh", *t.EstimatedHours))
	}
	if t.ActualHours != nil {
		field("Actual", fmt.Sprintf("%gh", *t.ActualHours))
	}
	field("Code refs", strings.Join(t.CodeReferences, ", "))
	field("Created", snapshot.FormatTime(t.CreatedAt))
	field("Updated", snapshot.FormatTime(t.UpdatedAt))
	if t.CompletedAt != nil {
		field("Completed", snapshot.FormatTime(*t.CompletedAt))
	}
	if t.HasSubtasks() {
		p.println()
		p.println(p.styles.Header.Render("Subtasks"))
		p.tree(t.Subtasks)
	}
}
