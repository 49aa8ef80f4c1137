package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/tasktree/internal/config"
	"github.com/Iron-Ham/tasktree/internal/event"
	"github.com/Iron-Ham/tasktree/internal/logging"
	"github.com/Iron-Ham/tasktree/internal/snapshot"
	"github.com/Iron-Ham/tasktree/internal/taskstore"
	"github.com/Iron-Ham/tasktree/internal/tui"
)

// afs backs snapshots and input documents.
var afs = afero.NewOsFs()

// workspace is everything a command needs to operate on the task snapshot.
type workspace struct {
	cfg     *config.Config
	dir     string
	storage *snapshot.File
	store   *taskstore.Store
	bus     *event.Bus
	logger  *logging.Logger

	json bool
	out  io.Writer
	errw io.Writer
	p    *printer
}

// openWorkspace loads configuration and the task snapshot.
func openWorkspace(cmd *cobra.Command, opts *options) (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.dir != "" {
		cfg.Storage.Dir = opts.dir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	path := cfg.Storage.SnapshotPath(cwd)
	dir := filepath.Dir(path)

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(dir, logging.ParseLevel(cfg.Logging.Level), logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
	}

	bus := event.NewBus()
	storage := snapshot.NewFile(afs, path, snapshot.WithLock(cfg.Storage.Lock))
	store, err := taskstore.Open(storage,
		taskstore.WithLogger(logger),
		taskstore.WithBus(bus))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	out := cmd.OutOrStdout()
	color := cfg.TUI.Color && !opts.noColor && isTerminal(out)
	return &workspace{
		cfg:     cfg,
		dir:     dir,
		storage: storage,
		store:   store,
		bus:     bus,
		logger:  logger,
		json:    opts.json,
		out:     out,
		errw:    cmd.ErrOrStderr(),
		p: &printer{
			w:      out,
			styles: tui.NewStyles(color),
			width:  terminalWidth(out),
		},
	}, nil
}

// Close releases the log file.
func (w *workspace) Close() {
	w.bus.Clear()
	_ = w.logger.Close()
}

// warnf writes a human-readable warning to stderr. JSON mode stays silent
// so stdout remains parseable.
func (w *workspace) warnf(format string, a ...any) {
	if w.json {
		return
	}
	fmt.Fprintf(w.errw, "Warning: "+format+"\n", a...)
}

// withWorkspace adapts fn into a cobra RunE that opens and closes the
// workspace around it.
func withWorkspace(opts *options, fn func(w *workspace, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace(cmd, opts)
		if err != nil {
			return err
		}
		defer w.Close()
		return fn(w, cmd, args)
	}
}
