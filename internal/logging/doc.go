// Package logging provides structured logging for tasktree.
//
// It wraps Go's log/slog with a JSON handler. Every store mutation is
// logged at DEBUG, soft fallbacks at WARN, and snapshot write failures at
// ERROR so that drift between memory and disk is visible to operators.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(".tasktree", "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithOperation("create").WithTask("1.2").Debug("task created")
//
// Tests use [NopLogger], or [NewWriterLogger] with a buffer to assert on
// output.
package logging
