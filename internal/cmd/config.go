package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/tasktree/internal/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	show := func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, opts)
	}
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify tasktree configuration",
		Long: `View or modify tasktree configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
		Args: cobra.NoArgs,
		RunE: show,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			Args:  cobra.NoArgs,
			RunE:  show,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  tasktree config set scheduler.limit 10
  tasktree config set storage.lock false

Valid keys:
  storage.dir            - Snapshot directory
  storage.file_name      - Snapshot file name
  storage.lock           - Lock the snapshot between processes (true/false)
  logging.enabled        - Write tasktree.log next to the snapshot (true/false)
  logging.level          - Options: debug, info, warn, error
  logging.max_size_mb    - Rotate tasktree.log past this size, 0 to disable
  logging.max_backups    - Rotated log files to keep
  list.page_size         - Tasks per list page
  scheduler.limit        - Candidates shown by next
  expand.num_subtasks    - Subtasks requested per expansion (1-10)
  expand.context_chars   - Cap on expansion context, 0 for none
  expand.max_parallel    - Concurrent expansions
  tui.color              - Colored output (true/false)`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default config file",
			Long:  `Create a default config file at ~/.config/tasktree/config.yaml with all available options.`,
			Args:  cobra.NoArgs,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the config file path",
			Args:  cobra.NoArgs,
			RunE:  runConfigPath,
		},
	)
	return cmd
}

// configKeys maps every settable key to its value kind.
var configKeys = map[string]string{
	"storage.dir":          "string",
	"storage.file_name":    "string",
	"storage.lock":         "bool",
	"logging.enabled":      "bool",
	"logging.level":        "level",
	"logging.max_size_mb":  "int",
	"logging.max_backups":  "int",
	"list.page_size":       "int",
	"scheduler.limit":      "int",
	"expand.num_subtasks":  "int",
	"expand.context_chars": "int",
	"expand.max_parallel":  "int",
	"tui.color":            "bool",
}

func runConfigShow(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	out := cmd.OutOrStdout()

	if opts.json {
		return writeJSON(out, map[string]any{
			"config_file": viper.ConfigFileUsed(),
			"settings":    viper.AllSettings(),
		})
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "Config file: (none - using defaults)")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "storage:")
	fmt.Fprintf(out, "  dir: %s\n", cfg.Storage.Dir)
	fmt.Fprintf(out, "  file_name: %s\n", cfg.Storage.FileName)
	fmt.Fprintf(out, "  lock: %v\n", cfg.Storage.Lock)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)

	fmt.Fprintln(out, "list:")
	fmt.Fprintf(out, "  page_size: %d\n", cfg.List.PageSize)

	fmt.Fprintln(out, "scheduler:")
	fmt.Fprintf(out, "  limit: %d\n", cfg.Scheduler.Limit)

	fmt.Fprintln(out, "expand:")
	fmt.Fprintf(out, "  num_subtasks: %d\n", cfg.Expand.NumSubtasks)
	fmt.Fprintf(out, "  context_chars: %d\n", cfg.Expand.ContextChars)
	fmt.Fprintf(out, "  max_parallel: %d\n", cfg.Expand.MaxParallel)

	fmt.Fprintln(out, "tui:")
	fmt.Fprintf(out, "  color: %v\n", cfg.TUI.Color)
	return nil
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	kind, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'tasktree config set --help' to see valid keys", key)
	}

	var typed any
	switch kind {
	case "string":
		typed = value
	case "level":
		if !slices.Contains(config.ValidLogLevels(), value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		typed = value
	case "bool":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typed = b
	case "int":
		n, err := cast.ToIntE(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typed = n
	}

	viper.Set(key, typed)
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typed)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigContent = `# tasktree configuration

# Where the task snapshot lives
storage:
  # Relative paths resolve against the working directory
  dir: .tasktree
  file_name: all_tasks.json
  # Lock the snapshot so several tasktree processes can share it
  lock: true

# tasktree.log written next to the snapshot
logging:
  enabled: true
  # Options: debug, info, warn, error
  level: info
  # Rotate past this many megabytes, 0 to disable
  max_size_mb: 10
  max_backups: 3

list:
  # Tasks per page
  page_size: 100

scheduler:
  # Ranked candidates shown by 'tasktree next'
  limit: 5

expand:
  # Subtasks requested per expansion (1-10, otherwise 3)
  num_subtasks: 5
  # Cap on the document context handed to an expander, 0 for none
  context_chars: 2000
  # Concurrent expansions for 'tasktree expand --all'
  max_parallel: 3

tui:
  color: true
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'tasktree config set' to modify values", configFile)
	}
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize tasktree's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: TASKTREE_* (e.g., TASKTREE_STORAGE_DIR)")
	return nil
}
