package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/tasktree/internal/config"
	"github.com/Iron-Ham/tasktree/internal/errors"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configFile string
	dir        string
	json       bool
	noColor    bool
}

// NewRootCmd builds the tasktree command tree. Each call returns a fresh
// tree so tests can execute commands independently.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tasktree",
		Short: "Hierarchical task tracker with dependency-aware scheduling",
		Long: `tasktree keeps a forest of tasks and subtasks with dependencies
between them, propagates completion through the tree, and picks the next
task worth working on.

Tasks are stored as a JSON snapshot in .tasktree/all_tasks.json under the
current directory unless storage.dir says otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig(opts.configFile)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default is $HOME/.config/tasktree/config.yaml)")
	flags.StringVarP(&opts.dir, "dir", "d", "", "storage directory (overrides storage.dir)")
	flags.BoolVar(&opts.json, "json", false, "write machine-readable JSON output")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newAddCmd(opts),
		newGetCmd(opts),
		newListCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newDoneCmd(opts),
		newStartCmd(opts),
		newDependCmd(opts),
		newUndependCmd(opts),
		newNextCmd(opts),
		newStatsCmd(opts),
		newImportCmd(opts),
		newExpandCmd(opts),
		newExportCmd(opts),
		newCheckCmd(opts),
		newWatchCmd(opts),
		newClearCmd(opts),
		newBoardCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the root command. Errors are written to stderr, as a JSON
// object when --json was requested.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		reportError(root.ErrOrStderr(), err, wantsJSON(os.Args[1:]))
	}
	return err
}

func initConfig(cfgFile string) {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	// A .env file in the working directory may carry TASKTREE_* overrides.
	// Existing environment variables win.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TASKTREE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TASKTREE_STORAGE_DIR for storage.dir
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// errorPayload is the --json shape of a failed command.
type errorPayload struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Severity  string `json:"severity"`
	Retryable bool   `json:"retryable,omitempty"`
}

func reportError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		payload := errorPayload{
			Error:     err.Error(),
			Reason:    string(errors.ReasonOf(err)),
			Severity:  errors.GetSeverity(err).String(),
			Retryable: errors.IsRetryable(err),
		}
		data, _ := json.Marshal(payload)
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	switch {
	case errors.IsRetryable(err):
		fmt.Fprintln(w, "The failure may be temporary; run the command again.")
	case errors.IsValidation(err):
		fmt.Fprintln(w, "Nothing was changed.")
	}
}

// wantsJSON reports whether --json appears among args. Flag parsing may
// have failed, so the raw arguments are inspected.
func wantsJSON(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "--json" || a == "--json=true" {
			return true
		}
	}
	return false
}
