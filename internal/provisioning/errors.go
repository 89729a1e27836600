package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures for reporting and exit codes.
type ErrorKind int

const (
	// KindUnknown is any error that was not classified.
	KindUnknown ErrorKind = iota
	// KindValidationFailed means user input could not be accepted.
	KindValidationFailed
	// KindEnvironmentQueryFailed means the host could not be inspected.
	KindEnvironmentQueryFailed
	// KindPreconditionNotMet means an action's precondition did not hold.
	KindPreconditionNotMet
	// KindActionExecutionFailed means a command failed after retries.
	KindActionExecutionFailed
	// KindUserAborted means the user declined or interrupted the run.
	KindUserAborted
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindValidationFailed:
		return "ValidationFailed"
	case KindEnvironmentQueryFailed:
		return "EnvironmentQueryFailed"
	case KindPreconditionNotMet:
		return "PreconditionNotMet"
	case KindActionExecutionFailed:
		return "ActionExecutionFailed"
	case KindUserAborted:
		return "UserAborted"
	default:
		return "Unknown"
	}
}

// Error is a classified failure. Stdout and Stderr are the verbatim output of
// the failing command when there was one.
type Error struct {
	Kind     ErrorKind
	Op       string
	Action   string
	Err      error
	Stdout   string
	Stderr   string
	ExitCode int

	// Checkpoint is the location of the checkpoint file, if one was written.
	Checkpoint string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Action != "" {
		fmt.Fprintf(&b, " %s", e.Action)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Report renders the error with captured command output for the terminal.
func (e *Error) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", e.Kind, e.Error())
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, "exit status: %d\n", e.ExitCode)
	}
	if out := strings.TrimRight(e.Stdout, "\n"); out != "" {
		fmt.Fprintf(&b, "--- stdout ---\n%s\n", out)
	}
	if out := strings.TrimRight(e.Stderr, "\n"); out != "" {
		fmt.Fprintf(&b, "--- stderr ---\n%s\n", out)
	}
	if e.Checkpoint != "" {
		fmt.Fprintf(&b, "checkpoint: %s\n", e.Checkpoint)
	}
	return b.String()
}

// NewError wraps err with a kind and operation name.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Context cancellation is reported as KindUserAborted.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindUserAborted
	}
	return KindUnknown
}

// Exit codes returned by the CLI.
const (
	ExitSuccess      = 0
	ExitInputAborted = 1
	ExitExecution    = 2
	ExitEnvironment  = 3
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch KindOf(err) {
	case KindValidationFailed, KindUserAborted:
		return ExitInputAborted
	case KindPreconditionNotMet, KindEnvironmentQueryFailed:
		return ExitEnvironment
	default:
		return ExitExecution
	}
}
