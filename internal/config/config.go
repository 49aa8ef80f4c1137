package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete tasktree configuration
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	List      ListConfig      `mapstructure:"list"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Expand    ExpandConfig    `mapstructure:"expand"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// StorageConfig controls where the task snapshot lives
type StorageConfig struct {
	// Dir is the directory holding the snapshot (default: ".tasktree").
	// Relative paths resolve against the working directory; ~ expands to the
	// home directory.
	Dir string `mapstructure:"dir"`
	// FileName is the snapshot file name inside Dir (default: "all_tasks.json")
	FileName string `mapstructure:"file_name"`
	// Lock guards snapshot reads and writes with a flock(2) lock file so
	// several tasktree processes can share one snapshot (default: true)
	Lock bool `mapstructure:"lock"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logs are written to Storage.Dir (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log file size in megabytes before rotation; 0 disables
	// rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// ListConfig controls task listing
type ListConfig struct {
	// PageSize is the number of tasks per page (default: 100)
	PageSize int `mapstructure:"page_size"`
}

// SchedulerConfig controls next-task selection
type SchedulerConfig struct {
	// Limit is how many ranked candidates `next` shows (default: 5)
	Limit int `mapstructure:"limit"`
}

// ExpandConfig controls subtask expansion
type ExpandConfig struct {
	// NumSubtasks is how many subtasks to ask an expander for. Values outside
	// 1..10 fall back to 3 (default: 5)
	NumSubtasks int `mapstructure:"num_subtasks"`
	// ContextChars caps the document context handed to an expander;
	// 0 disables the cap (default: 2000)
	ContextChars int `mapstructure:"context_chars"`
	// MaxParallel is the maximum number of concurrent expander calls (default: 3)
	MaxParallel int `mapstructure:"max_parallel"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// Color enables colored output in the board and CLI tables (default: true)
	Color bool `mapstructure:"color"`
}

// ResolveDir returns the resolved storage directory.
// If Dir is empty, it returns ".tasktree" relative to baseDir.
// If Dir starts with ~, it expands to the user's home directory.
// If Dir is a relative path, it's resolved relative to baseDir.
func (s *StorageConfig) ResolveDir(baseDir string) string {
	if s.Dir == "" {
		return filepath.Join(baseDir, DefaultStorageDir)
	}

	path := s.Dir

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// SnapshotPath returns the full snapshot path for baseDir.
func (s *StorageConfig) SnapshotPath(baseDir string) string {
	name := s.FileName
	if name == "" {
		name = DefaultFileName
	}
	return filepath.Join(s.ResolveDir(baseDir), name)
}

const (
	DefaultStorageDir = ".tasktree"
	DefaultFileName   = "all_tasks.json"

	// FallbackNumSubtasks replaces an out-of-range expand.num_subtasks.
	FallbackNumSubtasks = 3
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:      DefaultStorageDir,
			FileName: DefaultFileName,
			Lock:     true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		List: ListConfig{
			PageSize: 100,
		},
		Scheduler: SchedulerConfig{
			Limit: 5,
		},
		Expand: ExpandConfig{
			NumSubtasks:  5,
			ContextChars: 2000,
			MaxParallel:  3,
		},
		TUI: TUIConfig{
			Color: true,
		},
	}
}

// SubtaskCount returns NumSubtasks, or FallbackNumSubtasks when it is
// outside 1..10.
func (c *ExpandConfig) SubtaskCount() int {
	if c.NumSubtasks < 1 || c.NumSubtasks > 10 {
		return FallbackNumSubtasks
	}
	return c.NumSubtasks
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Storage defaults
	viper.SetDefault("storage.dir", defaults.Storage.Dir)
	viper.SetDefault("storage.file_name", defaults.Storage.FileName)
	viper.SetDefault("storage.lock", defaults.Storage.Lock)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// List defaults
	viper.SetDefault("list.page_size", defaults.List.PageSize)

	// Scheduler defaults
	viper.SetDefault("scheduler.limit", defaults.Scheduler.Limit)

	// Expand defaults
	viper.SetDefault("expand.num_subtasks", defaults.Expand.NumSubtasks)
	viper.SetDefault("expand.context_chars", defaults.Expand.ContextChars)
	viper.SetDefault("expand.max_parallel", defaults.Expand.MaxParallel)

	// TUI defaults
	viper.SetDefault("tui.color", defaults.TUI.Color)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tasktree")
	}
	// Fall back to ~/.config/tasktree
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultStorageDir
	}
	return filepath.Join(home, ".config", "tasktree")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
