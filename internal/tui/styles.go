package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Iron-Ham/tasktree/internal/task"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple
	SuccessColor = lipgloss.Color("#10B981") // Green
	WarningColor = lipgloss.Color("#F59E0B") // Amber
	ErrorColor   = lipgloss.Color("#F87171") // Red
	InfoColor    = lipgloss.Color("#60A5FA") // Blue
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor = lipgloss.Color("#1F2937") // Dark surface
	TextColor    = lipgloss.Color("#F9FAFB") // Light text
	BorderColor  = lipgloss.Color("#6B7280") // Gray
)

var titleCaser = cases.Title(language.English)

// Styles holds the rendering styles shared by the board and the CLI. A
// colorless Styles renders plain text.
type Styles struct {
	Color bool

	Title     lipgloss.Style
	Header    lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Highlight lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	HelpKey   lipgloss.Style
	StatusBar lipgloss.Style
	Panel     lipgloss.Style
}

// NewStyles returns the board styles, colored or plain.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			Title:     plain.Bold(true),
			Header:    plain.Bold(true),
			Muted:     plain,
			Selected:  plain.Reverse(true),
			Highlight: plain.Bold(true),
			Success:   plain,
			Warning:   plain,
			Error:     plain,
			HelpKey:   plain.Bold(true),
			StatusBar: plain,
			Panel:     plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}
	return Styles{
		Color: true,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(BorderColor),
		Muted: lipgloss.NewStyle().Foreground(MutedColor),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Background(SurfaceColor),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(InfoColor),
		Success:   lipgloss.NewStyle().Foreground(SuccessColor),
		Warning:   lipgloss.NewStyle().Foreground(WarningColor),
		Error:     lipgloss.NewStyle().Foreground(ErrorColor),
		HelpKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(SuccessColor),
		StatusBar: lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1),
	}
}

// StatusIcon returns a one-character marker for s.
func StatusIcon(s task.Status) string {
	switch s {
	case task.StatusDone:
		return "✓"
	case task.StatusInProgress:
		return "●"
	case task.StatusBlocked:
		return "⊘"
	case task.StatusCancelled:
		return "✗"
	default:
		return "○"
	}
}

// Label turns an enum value such as "in_progress" into "In Progress".
func Label(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

// StatusStyle returns the style used for tasks in status s.
func (s Styles) StatusStyle(st task.Status) lipgloss.Style {
	switch st {
	case task.StatusDone:
		return s.Success
	case task.StatusInProgress:
		return s.Highlight
	case task.StatusBlocked:
		return s.Warning
	case task.StatusCancelled:
		return s.Muted
	default:
		return lipgloss.NewStyle()
	}
}

// Status renders the icon and label for st.
func (s Styles) Status(st task.Status) string {
	return s.StatusStyle(st).Render(StatusIcon(st) + " " + Label(string(st)))
}

// Priority renders p, emphasizing urgent work.
func (s Styles) Priority(p task.Priority) string {
	switch p {
	case task.PriorityCritical:
		return s.Error.Render(Label(string(p)))
	case task.PriorityHigh:
		return s.Warning.Render(Label(string(p)))
	case task.PriorityLow:
		return s.Muted.Render(Label(string(p)))
	default:
		return Label(string(p))
	}
}
