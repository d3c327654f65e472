// Package ioruntime uses wrapped sentinel errors with cause chains, matching
// the errors.Is/errors.As conventions of the standard library.
package ioruntime

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel error kinds surfaced by the runtime core. Callers should compare
// against these with errors.Is, since IoError and the poller's internal
// wrapping always attach a cause chain.
var (
	// ErrSubmissionFull is returned when a Poller's submission ring is full
	// and could not be flushed; the operation never reaches the kernel.
	ErrSubmissionFull = errors.New("ioruntime: submission ring full")

	// ErrCancelled is the terminal result of a Task cancelled before
	// completion.
	ErrCancelled = errors.New("ioruntime: task cancelled")

	// ErrRuntimeShutdown is returned by Spawn after Shutdown has been
	// called.
	ErrRuntimeShutdown = errors.New("ioruntime: runtime is shutting down")

	// ErrPollerClosed is returned when an operation is submitted to a
	// Poller whose ring has already been torn down.
	ErrPollerClosed = errors.New("ioruntime: poller closed")
)

// IoError wraps a raw negative kernel return from a completed
// OperationDescriptor. Code is the negated kernel return value, i.e. the
// system errno.
type IoError struct {
	Code int
	Op   string
}

// Error implements the error interface.
func (e *IoError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("ioruntime: io error, code %d", e.Code)
	}
	return fmt.Sprintf("ioruntime: %s: io error, code %d", e.Op, e.Code)
}

// Unwrap exposes the underlying syscall.Errno so errors.Is against
// standard syscall sentinels (syscall.ENOENT, etc.) still works.
func (e *IoError) Unwrap() error {
	return syscall.Errno(e.Code)
}

// PanicError wraps a value recovered from a panicking Task. The Worker's
// panic-isolation boundary attaches this to the Task's JoinHandle result
// instead of propagating the panic to the OS thread.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("ioruntime: task panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is itself an
// error, enabling errors.Is/errors.As through the panic value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// WrapError wraps an error with a message and a cause, in the style used
// throughout this module: fmt.Errorf("%s: %w", message, cause), so
// errors.Is(result, cause) remains true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
