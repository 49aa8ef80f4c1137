package task

import (
	"strings"

	"github.com/Iron-Ham/tasktree/internal/errors"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusTodo is the initial state of every task.
	StatusTodo Status = "todo"

	// StatusInProgress indicates work has started.
	StatusInProgress Status = "in_progress"

	// StatusDone is terminal. Entering it sets CompletedAt and unblocks dependents.
	StatusDone Status = "done"

	// StatusBlocked marks a task as explicitly blocked.
	StatusBlocked Status = "blocked"

	// StatusCancelled is terminal and never propagates readiness.
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusBlocked, StatusCancelled}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for statuses that are never scheduled.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Rank orders statuses for scheduling: in-progress work before untouched work.
func (s Status) Rank() int {
	switch s {
	case StatusInProgress:
		return 0
	case StatusTodo:
		return 1
	default:
		return 2
	}
}

// ParseStatus converts s to a Status. Unknown values are rejected with a
// validation error, never coerced.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", errors.NewValidationError("unknown status").
			WithField("status").
			WithValue(s).
			WithCause(errors.ErrInvalidStatus)
	}
	return st, nil
}

// Priority is a pure sort key.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank returns 0 for critical through 3 for low. Unknown values rank last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// ParsePriority converts s to a Priority or returns a validation error.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.TrimSpace(s))
	if !p.Valid() {
		return "", errors.NewValidationError("unknown priority").
			WithField("priority").
			WithValue(s).
			WithCause(errors.ErrInvalidPriority)
	}
	return p, nil
}

// Complexity is an estimate of effort, informational only.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// String returns the string representation of the complexity.
func (c Complexity) String() string {
	return string(c)
}

// Valid reports whether c is one of the known complexities.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	}
	return false
}

// ParseComplexity converts s to a Complexity or returns a validation error.
func ParseComplexity(s string) (Complexity, error) {
	c := Complexity(strings.TrimSpace(s))
	if !c.Valid() {
		return "", errors.NewValidationError("unknown complexity").
			WithField("complexity").
			WithValue(s).
			WithCause(errors.ErrInvalidComplexity)
	}
	return c, nil
}
