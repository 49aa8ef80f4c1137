package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "list.page_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Upper bounds for numeric settings.
const (
	maxPageSize       = 10000
	maxSchedulerLimit = 1000
	maxContextChars   = 1_000_000
	maxParallel       = 32
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateStorage()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateList()...)
	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateExpand()...)

	return errors
}

// validateStorage validates the StorageConfig
func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	if strings.ContainsRune(c.Storage.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "storage.dir",
			Value:   c.Storage.Dir,
			Message: "contains invalid null character",
		})
	}

	name := c.Storage.FileName
	switch {
	case name == "":
		errors = append(errors, ValidationError{
			Field:   "storage.file_name",
			Value:   name,
			Message: "must not be empty",
		})
	case strings.ContainsRune(name, '\x00'):
		errors = append(errors, ValidationError{
			Field:   "storage.file_name",
			Value:   name,
			Message: "contains invalid null character",
		})
	case name != filepath.Base(name) || name == "." || name == "..":
		errors = append(errors, ValidationError{
			Field:   "storage.file_name",
			Value:   name,
			Message: "must be a plain file name without directories",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateList validates the ListConfig
func (c *Config) validateList() []ValidationError {
	var errors []ValidationError

	if c.List.PageSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "list.page_size",
			Value:   c.List.PageSize,
			Message: "must be at least 1",
		})
	}
	if c.List.PageSize > maxPageSize {
		errors = append(errors, ValidationError{
			Field:   "list.page_size",
			Value:   c.List.PageSize,
			Message: fmt.Sprintf("exceeds maximum of %d", maxPageSize),
		})
	}

	return errors
}

// validateScheduler validates the SchedulerConfig
func (c *Config) validateScheduler() []ValidationError {
	var errors []ValidationError

	if c.Scheduler.Limit < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.limit",
			Value:   c.Scheduler.Limit,
			Message: "must be at least 1",
		})
	}
	if c.Scheduler.Limit > maxSchedulerLimit {
		errors = append(errors, ValidationError{
			Field:   "scheduler.limit",
			Value:   c.Scheduler.Limit,
			Message: fmt.Sprintf("exceeds maximum of %d", maxSchedulerLimit),
		})
	}

	return errors
}

// validateExpand validates the ExpandConfig. An out-of-range num_subtasks is
// not an error; SubtaskCount falls back instead.
func (c *Config) validateExpand() []ValidationError {
	var errors []ValidationError

	if c.Expand.ContextChars < 0 {
		errors = append(errors, ValidationError{
			Field:   "expand.context_chars",
			Value:   c.Expand.ContextChars,
			Message: "must be non-negative",
		})
	}
	if c.Expand.ContextChars > maxContextChars {
		errors = append(errors, ValidationError{
			Field:   "expand.context_chars",
			Value:   c.Expand.ContextChars,
			Message: fmt.Sprintf("exceeds maximum of %d", maxContextChars),
		})
	}

	if c.Expand.MaxParallel < 1 {
		errors = append(errors, ValidationError{
			Field:   "expand.max_parallel",
			Value:   c.Expand.MaxParallel,
			Message: "must be at least 1",
		})
	}
	if c.Expand.MaxParallel > maxParallel {
		errors = append(errors, ValidationError{
			Field:   "expand.max_parallel",
			Value:   c.Expand.MaxParallel,
			Message: fmt.Sprintf("exceeds maximum of %d", maxParallel),
		})
	}

	return errors
}
