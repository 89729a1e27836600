// Package system is the only place archer touches the operating environment.
//
// Actions never invoke tools directly. They describe Commands, and a Runner
// executes them. Read-only inspection of the host (block devices, mounts,
// timezone database, CPU and PCI information) goes through Host.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Command is a single external program invocation.
type Command struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`

	// Stdin is fed to the process. It is never printed when Sensitive is set.
	Stdin     string `json:"-"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// String renders the command the way an operator would type it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	s := strings.Join(parts, " ")

	switch {
	case c.Stdin == "":
	case c.Sensitive:
		s += " <<< [redacted]"
	default:
		s += " <<< " + strconv.Quote(c.Stdin)
	}
	return s
}

func quoteArg(a string) string {
	if a == "" {
		return `""`
	}
	if strings.ContainsAny(a, " \t\n'\"\\$`|&;<>()*?[]{}!#~") {
		return strconv.Quote(a)
	}
	return a
}

// Result is the captured outcome of a Command.
type Result struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes commands.
//
// A non-zero exit is reported through Result.ExitCode with a nil error. The
// error return is reserved for commands that could not be started or were
// interrupted by ctx.
type Runner interface {
	Exec(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Env is appended to the inherited environment.
	Env []string
}

// NewExecRunner returns a Runner backed by real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Env: []string{"LC_ALL=C"}}
}

// Exec implements Runner.
func (r *ExecRunner) Exec(ctx context.Context, cmd Command) (Result, error) {
	// #nosec G204 - commands are built from validated session values
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(r.Env) > 0 {
		c.Env = append(c.Environ(), r.Env...)
	}
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s interrupted: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}
}
