package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/util"
)

// chrome is the number of lines taken by the header and footer.
const chrome = 5

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	list := m.renderList()
	if m.showDetail {
		if t := m.selected(); t != nil {
			detail := m.styles.Panel.Width(max(m.width/2-4, 20)).Render(m.renderDetail(t))
			list = lipgloss.JoinHorizontal(lipgloss.Top, list, " ", detail)
		}
	}
	b.WriteString(list)
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.renderHelp())
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	counts := make(map[task.Status]int)
	total := 0
	task.Walk(m.forest, func(t *task.Task) bool {
		counts[t.Status]++
		total++
		return true
	})

	parts := []string{
		fmt.Sprintf("%d tasks", total),
		fmt.Sprintf("%d done", counts[task.StatusDone]),
		fmt.Sprintf("%d in progress", counts[task.StatusInProgress]),
	}
	if m.nextID != "" {
		parts = append(parts, "next: "+m.nextID)
	}
	title := "tasktree"
	if m.title != "" {
		title += "  " + m.styles.Muted.Render(m.title)
	}
	return m.styles.Header.Render(title) + "\n" + m.styles.Muted.Render(strings.Join(parts, " · "))
}

// visibleRows returns how many list rows fit on screen.
func (m Model) visibleRows() int {
	n := m.height - chrome
	if m.showHelp {
		n -= 3
	}
	return max(n, 1)
}

func (m Model) renderList() string {
	if len(m.rows) == 0 {
		if m.filter != "" {
			return m.styles.Muted.Render("No tasks match " + fmt.Sprintf("%q", m.filter))
		}
		return m.styles.Muted.Render("No tasks yet. Press a to add one.")
	}

	visible := m.visibleRows()
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.rows))

	width := m.width
	if m.showDetail {
		width = m.width / 2
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r row, selected bool, width int) string {
	t := r.task

	fold := "  "
	if t.HasSubtasks() {
		fold = "▾ "
		if m.collapsed[t.ID] {
			fold = "▸ "
		}
	}

	icon := m.styles.StatusStyle(t.Status).Render(StatusIcon(t.Status))
	line := fmt.Sprintf("%s%s%s %s %s", util.Indent(r.depth), fold, icon, util.PadRight(t.ID, 6), util.FirstLine(t.Name))
	if t.Priority == task.PriorityCritical || t.Priority == task.PriorityHigh {
		line += "  " + m.styles.Priority(t.Priority)
	}
	if t.BlockedBy.Len() > 0 && !t.Status.IsTerminal() {
		line += m.styles.Warning.Render(fmt.Sprintf("  ⊘ %d", t.BlockedBy.Len()))
	}
	if t.ID == m.nextID {
		line += m.styles.Highlight.Render("  ← next")
	}

	line = util.TruncateANSI(line, max(width-2, 10))
	if selected {
		return m.styles.Selected.Render("› " + line)
	}
	return "  " + line
}

func (m Model) renderDetail(t *task.Task) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(t.ID + " " + t.Name))
	b.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", m.styles.Muted.Render(label+":"), value)
	}
	field("Status", m.styles.Status(t.Status))
	field("Priority", m.styles.Priority(t.Priority))
	field("Complexity", Label(string(t.Complexity)))
	field("Depends on", strings.Join(t.Dependencies.Sorted(), ", "))
	field("Blocked by", strings.Join(t.BlockedBy.Sorted(), ", "))
	field("Tags", strings.Join(t.Tags, ", "))
	field("Assigned", t.AssignedTo)
	if t.HasSubtasks() {
		done := 0
		for _, s := range t.Subtasks {
			if s.Status == task.StatusDone {
				done++
			}
		}
		field("Subtasks", fmt.Sprintf("%d/%d done", done, len(t.Subtasks)))
	}
	if t.Description != "" {
		b.WriteString("\n")
		b.WriteString(t.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

var helpKeys = []struct{ key, desc string }{
	{"j/k", "move"},
	{"enter", "fold"},
	{"n", "next"},
	{"s", "start"},
	{"d", "done"},
	{"a/A", "add task/subtask"},
	{"x", "delete"},
	{"/", "filter"},
	{"tab", "details"},
	{"r", "reload"},
	{"q", "quit"},
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(helpKeys))
	for _, h := range helpKeys {
		parts = append(parts, m.styles.HelpKey.Render(h.key)+" "+h.desc)
	}
	return lipgloss.NewStyle().Width(max(m.width, 20)).Render(strings.Join(parts, "  "))
}

func (m Model) renderFooter() string {
	switch m.mode {
	case modeAdd, modeAddSubtask, modeFilter:
		return m.input.View()
	case modeConfirmDelete:
		if t := m.selected(); t != nil {
			return m.styles.Warning.Render(fmt.Sprintf("Delete %s and its subtasks? (y/N)", t.ID))
		}
	}
	if m.errorMsg != "" {
		return m.styles.Error.Render(util.TruncateString(m.errorMsg, max(m.width-2, 20)))
	}
	if m.message != "" {
		return m.styles.Success.Render(m.message)
	}
	if m.filter != "" {
		return m.styles.Muted.Render(fmt.Sprintf("filter: %q (esc to clear)", m.filter))
	}
	return m.styles.Muted.Render("? for help")
}
