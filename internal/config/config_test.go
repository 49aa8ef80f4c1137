package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default storage config
	if cfg.Storage.Dir != ".tasktree" {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, ".tasktree")
	}
	if cfg.Storage.FileName != "all_tasks.json" {
		t.Errorf("Storage.FileName = %q, want %q", cfg.Storage.FileName, "all_tasks.json")
	}
	if !cfg.Storage.Lock {
		t.Error("Storage.Lock should be true by default")
	}

	// Verify default logging config
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging rotation = (%d, %d), want (10, 3)", cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	if cfg.List.PageSize != 100 {
		t.Errorf("List.PageSize = %d, want 100", cfg.List.PageSize)
	}
	if cfg.Scheduler.Limit != 5 {
		t.Errorf("Scheduler.Limit = %d, want 5", cfg.Scheduler.Limit)
	}

	// Verify default expand config
	if cfg.Expand.NumSubtasks != 5 {
		t.Errorf("Expand.NumSubtasks = %d, want 5", cfg.Expand.NumSubtasks)
	}
	if cfg.Expand.ContextChars != 2000 {
		t.Errorf("Expand.ContextChars = %d, want 2000", cfg.Expand.ContextChars)
	}
	if cfg.Expand.MaxParallel != 3 {
		t.Errorf("Expand.MaxParallel = %d, want 3", cfg.Expand.MaxParallel)
	}

	if !cfg.TUI.Color {
		t.Error("TUI.Color should be true by default")
	}
}

func TestExpandConfig_SubtaskCount(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{1, 1},
		{5, 5},
		{10, 10},
		{0, 3},
		{-1, 3},
		{11, 3},
	}

	for _, tt := range tests {
		cfg := ExpandConfig{NumSubtasks: tt.n}
		result := cfg.SubtaskCount()
		if result != tt.expected {
			t.Errorf("SubtaskCount() with %d = %d, want %d", tt.n, result, tt.expected)
		}
	}
}

func TestStorageConfig_ResolveDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name     string
		dir      string
		baseDir  string
		expected string
	}{
		{"empty uses default", "", "/work", "/work/.tasktree"},
		{"relative", "data/tasks", "/work", "/work/data/tasks"},
		{"absolute", "/srv/tasks", "/work", "/srv/tasks"},
		{"home", "~", "/work", home},
		{"home relative", "~/tasks", "/work", filepath.Join(home, "tasks")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := StorageConfig{Dir: tt.dir}
			if got := cfg.ResolveDir(tt.baseDir); got != tt.expected {
				t.Errorf("ResolveDir(%q) = %q, want %q", tt.baseDir, got, tt.expected)
			}
		})
	}
}

func TestStorageConfig_SnapshotPath(t *testing.T) {
	cfg := StorageConfig{Dir: "/srv/tasks"}
	if got := cfg.SnapshotPath("/work"); got != "/srv/tasks/all_tasks.json" {
		t.Errorf("SnapshotPath() = %q, want %q", got, "/srv/tasks/all_tasks.json")
	}

	cfg.FileName = "board.json"
	if got := cfg.SnapshotPath("/work"); got != "/srv/tasks/board.json" {
		t.Errorf("SnapshotPath() = %q, want %q", got, "/srv/tasks/board.json")
	}
}

func TestConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/tasktree"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	// Test without XDG_CONFIG_HOME
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "tasktree")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/tasktree/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	if cfg.Storage.FileName != "all_tasks.json" {
		t.Errorf("Get().Storage.FileName = %q, want %q", cfg.Storage.FileName, "all_tasks.json")
	}
	if cfg.Scheduler.Limit != 5 {
		t.Errorf("Get().Scheduler.Limit = %d, want 5", cfg.Scheduler.Limit)
	}
}

func TestLoad_Overrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	viper.Set("list.page_size", 25)
	viper.Set("expand.num_subtasks", 42)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.List.PageSize != 25 {
		t.Errorf("List.PageSize = %d, want 25", cfg.List.PageSize)
	}
	// Out-of-range subtask counts load fine and fall back at use.
	if cfg.Expand.SubtaskCount() != 3 {
		t.Errorf("SubtaskCount() = %d, want 3", cfg.Expand.SubtaskCount())
	}
}

func TestLoad_Invalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	viper.Set("scheduler.limit", 0)
	viper.Set("logging.level", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for invalid values")
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(errs), errs)
	}

	// Get falls back to defaults
	if cfg := Get(); cfg.Scheduler.Limit != 5 {
		t.Errorf("Get().Scheduler.Limit = %d, want 5", cfg.Scheduler.Limit)
	}
}
