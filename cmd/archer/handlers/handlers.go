// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/imamik/archer/internal/checkpoint"
	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/logging"
	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/ui/tui"
	"github.com/imamik/archer/internal/util/prerequisites"
	"github.com/imamik/archer/internal/validate"
	"github.com/imamik/archer/internal/wizard"
)

// Host is what handlers need to know about the machine: the inspector used
// by preconditions and the environment used by validation.
type Host interface {
	provisioning.Host
	validate.Environment
}

// checkpointStore is the executor's store plus Clear.
type checkpointStore interface {
	Load() (*provisioning.Checkpoint, error)
	Save(provisioning.Checkpoint) error
	Clear() error
	Location() string
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// newHost inspects the live system.
	newHost = func() Host { return system.NewHost() }

	// newRunner executes distribution commands.
	newRunner = func() system.Runner { return system.NewExecRunner() }

	// newStore opens the checkpoint in stateDir.
	newStore = func(stateDir string) checkpointStore { return checkpoint.NewFileStore(stateDir) }

	// newPrompter asks the install questions interactively.
	newPrompter = func() session.Prompter { return wizard.New() }

	// newSavePrompter asks the questions for an answers file.
	newSavePrompter = func() session.Prompter { return wizard.SaveOnly() }

	// newLogger builds the process logger.
	newLogger = logging.New

	// checkPrereqs runs prerequisite tool checks.
	checkPrereqs = prerequisites.CheckDefault

	// checkAllPrereqs includes optional tools, for doctor.
	checkAllPrereqs = prerequisites.CheckAll

	// checkPrivileges fails unless running as root.
	checkPrivileges = prerequisites.CheckPrivileges

	// isTerminal reports whether f is an interactive terminal.
	isTerminal = func(f *os.File) bool {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	// runTUI shows the progress dashboard around a run.
	runTUI = tui.RunInstallTUI

	// loadAnswers layers the answers file, environment and overrides.
	loadAnswers = config.LoadAnswers

	// writeAnswers stores answers for --resume and init.
	writeAnswers = config.WriteAnswers

	// stdout receives command output.
	stdout io.Writer = os.Stdout

	// stderr receives console logs when no TUI is shown.
	stderr io.Writer = os.Stderr
)

// Output formats for plan and status.
const (
	OutputText = "text"
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// errUnfinishedRun is returned when a fresh install would overwrite progress.
var errUnfinishedRun = errors.New("a previous install did not finish; use --resume to continue or --force-fresh to start over")

// fileExists checks if a file exists.
var fileExists = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
