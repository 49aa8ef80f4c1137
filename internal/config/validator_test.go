package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"empty file name", func(c *Config) { c.Storage.FileName = "" }, "storage.file_name"},
		{"file name with directory", func(c *Config) { c.Storage.FileName = "sub/tasks.json" }, "storage.file_name"},
		{"file name dot dot", func(c *Config) { c.Storage.FileName = ".." }, "storage.file_name"},
		{"null in dir", func(c *Config) { c.Storage.Dir = "a\x00b" }, "storage.dir"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"negative log backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"zero page size", func(c *Config) { c.List.PageSize = 0 }, "list.page_size"},
		{"huge page size", func(c *Config) { c.List.PageSize = maxPageSize + 1 }, "list.page_size"},
		{"zero scheduler limit", func(c *Config) { c.Scheduler.Limit = 0 }, "scheduler.limit"},
		{"huge scheduler limit", func(c *Config) { c.Scheduler.Limit = maxSchedulerLimit + 1 }, "scheduler.limit"},
		{"negative context", func(c *Config) { c.Expand.ContextChars = -1 }, "expand.context_chars"},
		{"huge context", func(c *Config) { c.Expand.ContextChars = maxContextChars + 1 }, "expand.context_chars"},
		{"zero parallel", func(c *Config) { c.Expand.MaxParallel = 0 }, "expand.max_parallel"},
		{"huge parallel", func(c *Config) { c.Expand.MaxParallel = maxParallel + 1 }, "expand.max_parallel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Validate() field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Validate_AllowsOutOfRangeSubtasks(t *testing.T) {
	cfg := Default()
	cfg.Expand.NumSubtasks = 50
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("num_subtasks out of range should not fail validation, got %v", errs)
	}
}

func TestConfig_Validate_EmptyLevelAllowed(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = ""
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("empty log level should be valid, got %v", errs)
	}
}

func TestValidLogLevels(t *testing.T) {
	levels := ValidLogLevels()
	expected := []string{"debug", "info", "warn", "error"}
	if len(levels) != len(expected) {
		t.Fatalf("ValidLogLevels() length = %d, want %d", len(levels), len(expected))
	}
	for i, level := range expected {
		if levels[i] != level {
			t.Errorf("ValidLogLevels()[%d] = %q, want %q", i, levels[i], level)
		}
	}
}
