package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/tasktree/internal/event"
)

// App wires a board model to a running program.
type App struct {
	model   Model
	bus     *event.Bus
	program *tea.Program
}

// NewApp creates the board application. When bus is non-nil the board
// refreshes whenever the store reloads its snapshot.
func NewApp(store Board, bus *event.Bus, opts Options) *App {
	return &App{
		model: New(store, opts),
		bus:   bus,
	}
}

// Run starts the TUI application and blocks until the user quits.
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Quit cleanly on termination signals so the terminal is restored.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-sigChan:
			a.program.Send(tea.Quit())
		case <-done:
		}
	}()

	if a.bus != nil {
		id := a.bus.Subscribe(event.TypeStoreLoaded, func(event.Event) {
			a.program.Send(ReloadMsg{})
		})
		defer a.bus.Unsubscribe(id)
	}

	_, err := a.program.Run()
	return err
}
