// Package main is the entry point for the archer CLI.
//
// archer installs an Arch-style Linux system onto a single block device. It
// gathers and validates answers, builds a deterministic plan of stages and
// actions, and executes it with a checkpoint after every action so a failed
// run resumes instead of starting over.
//
// Commands: install, plan, status, reset, doctor, init.
//
// For detailed usage information, run:
//
//	archer --help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/archer/cmd/archer/commands"
	"github.com/imamik/archer/internal/provisioning"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx, os.Args[1:])
	stop()

	if err != nil {
		var pe *provisioning.Error
		if errors.As(err, &pe) {
			fmt.Fprint(os.Stderr, pe.Report())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(provisioning.ExitCode(err))
	}
}
