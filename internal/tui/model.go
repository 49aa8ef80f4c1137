package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/tasktree/internal/errors"
	"github.com/Iron-Ham/tasktree/internal/scheduler"
	"github.com/Iron-Ham/tasktree/internal/task"
	"github.com/Iron-Ham/tasktree/internal/taskid"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
)

// Board is the store surface the board reads and mutates. *taskstore.Store
// satisfies it.
type Board interface {
	Forest() []*task.Task
	Select(limit int) scheduler.Selection
	Create(p taskstore.CreateParams) (*task.Task, error)
	MarkDone(id string) (bool, error)
	Start(id string) (bool, error)
	Delete(id string) (bool, error)
	Reload() error
}

// ReloadMsg asks the board to re-read the store, typically after the
// snapshot changed on disk.
type ReloadMsg struct{}

type mode int

const (
	modeNormal mode = iota
	modeAdd
	modeAddSubtask
	modeFilter
	modeConfirmDelete
)

// Options configures the board.
type Options struct {
	Color bool
	// Title is shown in the header, usually the snapshot path.
	Title string
}

// Model is the Bubbletea model for the task board.
type Model struct {
	store  Board
	styles Styles
	title  string

	forest    []*task.Task
	rows      []row
	cursor    int
	collapsed map[string]bool
	filter    string
	nextID    string
	parentID  string // top-ranked parent from the last selection

	mode       mode
	input      textinput.Model
	showDetail bool
	showHelp   bool

	message  string
	errorMsg string

	width  int
	height int
}

// New creates a board over store.
func New(store Board, opts Options) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 60

	m := Model{
		store:     store,
		styles:    NewStyles(opts.Color),
		title:     opts.Title,
		collapsed: make(map[string]bool),
		input:     ti,
		width:     100,
		height:    30,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// refresh re-reads the forest and recomputes the rows, keeping the cursor
// on the same task when it is still visible.
func (m *Model) refresh() {
	selected := m.selectedID()

	m.forest = m.store.Forest()
	m.rows = buildRows(m.forest, m.collapsed, m.filter)

	sel := m.store.Select(1)
	m.nextID, m.parentID = "", ""
	if next, ok := sel.Next(); ok {
		m.nextID = next.ID
	}
	if sel.Parent != nil {
		m.parentID = sel.Parent.ID
	}

	if i := indexOf(m.rows, selected); i >= 0 {
		m.cursor = i
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selectedID() string {
	if t := m.selected(); t != nil {
		return t.ID
	}
	return ""
}

func (m Model) selected() *task.Task {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].task
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ReloadMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		m.message = ""
		m.errorMsg = ""
		if m.mode != modeNormal {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "down", "j":
		m.cursor++
		m.clampCursor()
	case "up", "k":
		m.cursor--
		m.clampCursor()
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = len(m.rows) - 1
		m.clampCursor()

	case "enter", " ":
		if t := m.selected(); t != nil && t.HasSubtasks() && m.filter == "" {
			m.collapsed[t.ID] = !m.collapsed[t.ID]
			m.refresh()
		}
	case "tab":
		m.showDetail = !m.showDetail
	case "?":
		m.showHelp = !m.showHelp

	case "n":
		if m.nextID == "" {
			m.message = "Nothing to work on"
			break
		}
		m.reveal(m.nextID)

	case "d":
		if t := m.selected(); t != nil {
			m.apply(t.ID, m.store.MarkDone, "Completed")
		}
	case "s":
		if t := m.selected(); t != nil {
			m.apply(t.ID, m.store.Start, "Started")
		}
	case "x":
		if m.selected() != nil {
			m.mode = modeConfirmDelete
		}

	case "a":
		return m.startInput(modeAdd, "New task name")
	case "A":
		if m.selected() == nil {
			break
		}
		return m.startInput(modeAddSubtask, "New subtask name")
	case "/":
		m.input.SetValue(m.filter)
		return m.startInput(modeFilter, "Filter by id or name")
	case "esc":
		if m.filter != "" {
			m.filter = ""
			m.refresh()
		}

	case "r":
		if err := m.store.Reload(); err != nil {
			m.errorMsg = err.Error()
		} else {
			m.message = "Reloaded"
		}
		m.refresh()
	}
	return m, nil
}

func (m Model) startInput(md mode, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.input.Placeholder = placeholder
	if md != modeFilter {
		m.input.SetValue("")
	}
	return m, m.input.Focus()
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirmDelete {
		if msg.String() == "y" {
			if t := m.selected(); t != nil {
				m.apply(t.ID, m.store.Delete, "Deleted")
			}
		}
		m.mode = modeNormal
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case "enter":
		value := m.input.Value()
		md := m.mode
		m.mode = modeNormal
		m.input.Blur()
		m.submit(md, value)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeFilter {
		m.filter = m.input.Value()
		m.refresh()
	}
	return m, cmd
}

// submit handles the text entered in an input mode.
func (m *Model) submit(md mode, value string) {
	switch md {
	case modeFilter:
		m.filter = value
		m.refresh()
	case modeAdd, modeAddSubtask:
		if value == "" {
			return
		}
		p := taskstore.CreateParams{Name: value}
		if md == modeAddSubtask {
			if t := m.selected(); t != nil {
				p.ParentID = t.ID
				delete(m.collapsed, t.ID)
			}
		}
		t, err := m.store.Create(p)
		if t == nil {
			m.errorMsg = err.Error()
			return
		}
		if err != nil {
			m.errorMsg = err.Error()
		} else {
			m.message = fmt.Sprintf("Created %s", t.ID)
		}
		m.refresh()
		m.reveal(t.ID)
	}
}

// apply runs a status or delete operation on id and reports the outcome.
func (m *Model) apply(id string, op func(string) (bool, error), verb string) {
	found, err := op(id)
	switch {
	case !found && err == nil:
		m.errorMsg = errors.TaskNotFound(id).Error()
	case err != nil:
		m.errorMsg = err.Error()
	default:
		m.message = fmt.Sprintf("%s %s", verb, id)
	}
	m.refresh()
}

// reveal moves the cursor to id, expanding collapsed ancestors and clearing
// a filter that hides it.
func (m *Model) reveal(id string) {
	if indexOf(m.rows, id) < 0 {
		m.filter = ""
		for _, anc := range taskid.Ancestors(id) {
			delete(m.collapsed, anc)
		}
		m.refresh()
	}
	if i := indexOf(m.rows, id); i >= 0 {
		m.cursor = i
	}
}
