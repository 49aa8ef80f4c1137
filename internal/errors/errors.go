// Package errors provides centralized error definitions and error handling utilities
// for tasktree. It defines the sentinel errors of the task engine, typed errors
// carrying a stable machine-readable reason code, and classification helpers.
//
// # Error Types
//
// Structural errors describe a request the task graph cannot satisfy:
//   - TaskError: unknown task or dependency, self-dependency, cycle, duplicate id
//
// Semantic errors describe malformed input or external failures:
//   - ValidationError: malformed enum value, malformed id, bad subtask record
//   - AlreadyExistsError: an id that is already taken
//   - PersistenceError: the snapshot could not be written or read
//
// Not-found on lookups is deliberately not an error. Store lookups return
// (nil, false) so callers probing ids do not need to inspect errors.
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewTaskError(errors.ReasonDependencyCycle, "would create a cycle", errors.ErrDependencyCycle).
//		WithTaskID("2").WithDependsOnID("1")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrDependencyCycle) { ... }
//
//	switch errors.ReasonOf(err) {
//	case errors.ReasonSelfDependency:
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Reason is a stable machine-readable code attached to every error the engine
// returns. Callers branch on it instead of parsing messages.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonTaskNotFound       Reason = "task_not_found"
	ReasonDependencyNotFound Reason = "dependency_not_found"
	ReasonSelfDependency     Reason = "self_dependency"
	ReasonDependencyCycle    Reason = "dependency_cycle"
	ReasonDuplicateID        Reason = "duplicate_id"
	ReasonInvalidID          Reason = "invalid_id"
	ReasonInvalidStatus      Reason = "invalid_status"
	ReasonInvalidPriority    Reason = "invalid_priority"
	ReasonInvalidComplexity  Reason = "invalid_complexity"
	ReasonInvalidSubtask     Reason = "invalid_subtask"
	ReasonPersistence        Reason = "persistence_failed"
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonInternal           Reason = "internal_error"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Structural sentinel errors
var (
	// ErrTaskNotFound indicates that a referenced task does not exist.
	ErrTaskNotFound = New("task not found")
	// ErrDependencyNotFound indicates that a dependency target does not exist.
	ErrDependencyNotFound = New("dependency target not found")
	// ErrSelfDependency indicates that a task was asked to depend on itself.
	ErrSelfDependency = New("task cannot depend on itself")
	// ErrDependencyCycle indicates that adding a dependency would close a cycle.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrDuplicateID indicates that a task id is already in use.
	ErrDuplicateID = New("duplicate task id")
)

// Validation sentinel errors
var (
	// ErrInvalidID indicates a malformed hierarchical id.
	ErrInvalidID = New("invalid task id")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = New("invalid status")
	// ErrInvalidPriority indicates an unknown priority value.
	ErrInvalidPriority = New("invalid priority")
	// ErrInvalidComplexity indicates an unknown complexity value.
	ErrInvalidComplexity = New("invalid complexity")
	// ErrInvalidSubtask indicates a subtask record that cannot be attached to its parent.
	ErrInvalidSubtask = New("invalid subtask")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// ErrPersistence indicates that the snapshot could not be written or read.
var ErrPersistence = New("persistence failed")

// reasonBySentinel is consulted in order by ReasonOf.
var reasonBySentinel = []struct {
	err    error
	reason Reason
}{
	{ErrTaskNotFound, ReasonTaskNotFound},
	{ErrDependencyNotFound, ReasonDependencyNotFound},
	{ErrSelfDependency, ReasonSelfDependency},
	{ErrDependencyCycle, ReasonDependencyCycle},
	{ErrDuplicateID, ReasonDuplicateID},
	{ErrInvalidID, ReasonInvalidID},
	{ErrInvalidStatus, ReasonInvalidStatus},
	{ErrInvalidPriority, ReasonInvalidPriority},
	{ErrInvalidComplexity, ReasonInvalidComplexity},
	{ErrInvalidSubtask, ReasonInvalidSubtask},
	{ErrPersistence, ReasonPersistence},
	{ErrInvalidInput, ReasonInvalidInput},
}

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DomainError is the base interface for all tasktree errors.
type DomainError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// Reason returns the stable machine-readable code for this error.
	Reason() Reason

	// IsRetryable returns true if the operation may succeed on retry.
	IsRetryable() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	reason    Reason
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// Reason returns the stable reason code.
func (e *baseError) Reason() Reason {
	return e.reason
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// withContext renders "prefix [k=v, ...]: message: cause".
func (e *baseError) withContext(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Structural Errors
// -----------------------------------------------------------------------------

// TaskError represents a structural failure against the task graph.
//
// Example:
//
//	err := errors.NewTaskError(errors.ReasonSelfDependency, "cannot link", errors.ErrSelfDependency).
//		WithTaskID("3").WithDependsOnID("3")
//	fmt.Println(err) // "task error [task=3, depends_on=3]: cannot link: task cannot depend on itself"
type TaskError struct {
	baseError
	TaskID      string
	DependsOnID string
}

// NewTaskError creates a new TaskError with the given reason.
func NewTaskError(reason Reason, message string, cause error) *TaskError {
	return &TaskError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			reason:   reason,
			severity: SeverityWarning,
		},
	}
}

// WithTaskID adds the subject task id to the error context.
func (e *TaskError) WithTaskID(id string) *TaskError {
	e.TaskID = id
	return e
}

// WithDependsOnID adds the dependency target id to the error context.
func (e *TaskError) WithDependsOnID(id string) *TaskError {
	e.DependsOnID = id
	return e
}

// Error returns the formatted error message.
func (e *TaskError) Error() string {
	var parts []string
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.DependsOnID != "" {
		parts = append(parts, fmt.Sprintf("depends_on=%s", e.DependsOnID))
	}
	return e.withContext("task error", parts)
}

// Is checks if this error matches the target.
func (e *TaskError) Is(target error) bool {
	if _, ok := target.(*TaskError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TaskNotFound builds the structural error for an unknown subject task.
func TaskNotFound(id string) *TaskError {
	return NewTaskError(ReasonTaskNotFound, "task does not exist", ErrTaskNotFound).WithTaskID(id)
}

// DependencyNotFound builds the structural error for an unknown dependency target.
func DependencyNotFound(taskID, dependsOnID string) *TaskError {
	return NewTaskError(ReasonDependencyNotFound, "dependency target does not exist", ErrDependencyNotFound).
		WithTaskID(taskID).
		WithDependsOnID(dependsOnID)
}

// SelfDependency builds the structural error for a task depending on itself.
func SelfDependency(id string) *TaskError {
	return NewTaskError(ReasonSelfDependency, "rejected dependency", ErrSelfDependency).
		WithTaskID(id).
		WithDependsOnID(id)
}

// DependencyCycle builds the structural error for a dependency that would close a cycle.
func DependencyCycle(taskID, dependsOnID string) *TaskError {
	return NewTaskError(ReasonDependencyCycle, "rejected dependency", ErrDependencyCycle).
		WithTaskID(taskID).
		WithDependsOnID(dependsOnID)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("task", "1")
//	fmt.Println(err) // "task '1' already exists: duplicate task id"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError wrapping ErrDuplicateID.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:  fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			cause:    ErrDuplicateID,
			reason:   ReasonDuplicateID,
			severity: SeverityWarning,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input rejected before any mutation.
//
// Example:
//
//	err := errors.NewValidationError("unknown status").
//		WithField("status").WithValue("finished").WithCause(errors.ErrInvalidStatus)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			reason:   ReasonInvalidInput,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error. A sentinel cause also fixes the reason code.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	if r := sentinelReason(cause); r != ReasonNone {
		e.reason = r
	}
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.withContext("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// PersistenceError represents a failed snapshot read or write. The in-memory
// mutation that preceded a failed write is not rolled back.
type PersistenceError struct {
	baseError
	Path string
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(path string, cause error) *PersistenceError {
	return &PersistenceError{
		baseError: baseError{
			message:   "snapshot write failed",
			cause:     cause,
			reason:    ReasonPersistence,
			severity:  SeverityError,
			retryable: true,
		},
		Path: path,
	}
}

// WithMessage replaces the default message.
func (e *PersistenceError) WithMessage(message string) *PersistenceError {
	e.message = message
	return e
}

// Error returns the formatted error message.
func (e *PersistenceError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.withContext("persistence error", parts)
}

// Is checks if this error matches the target.
func (e *PersistenceError) Is(target error) bool {
	if _, ok := target.(*PersistenceError); ok {
		return true
	}
	if target == ErrPersistence {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// ReasonOf returns the stable reason code for err. Errors implementing
// DomainError report their own code; bare sentinels are mapped by identity;
// anything else is ReasonInternal. A nil error has ReasonNone.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	var domainErr DomainError
	if As(err, &domainErr) && domainErr.Reason() != ReasonNone {
		return domainErr.Reason()
	}
	if r := sentinelReason(err); r != ReasonNone {
		return r
	}
	return ReasonInternal
}

func sentinelReason(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	for _, entry := range reasonBySentinel {
		if Is(err, entry.err) {
			return entry.reason
		}
	}
	return ReasonNone
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. Only persistence failures qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var domainErr DomainError
	if As(err, &domainErr) {
		return domainErr.IsRetryable()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement DomainError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var domainErr DomainError
	if As(err, &domainErr) {
		return domainErr.Severity()
	}
	return SeverityError
}

// IsValidation returns true for errors raised before any mutation because the
// input itself was malformed.
func IsValidation(err error) bool {
	var validation *ValidationError
	return As(err, &validation)
}

// IsPersistence returns true when err carries a snapshot failure.
func IsPersistence(err error) bool {
	return Is(err, ErrPersistence)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike a plain string concatenation, this preserves the error chain.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to link task")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load snapshot %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
