// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/provisioning"
)

// Root returns the root command for the archer CLI.
//
// The root command serves as the entry point and parent for all subcommands.
// Errors are printed by main, which also maps them to exit codes, so cobra's
// own error and usage output is silenced.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "archer",
		Short:         "Install Arch Linux with a resumable, checkpointed plan",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().String("state-dir", config.DefaultStateDir(), "Directory for answers, checkpoint and logs")

	// Core commands
	cmd.AddCommand(Install())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Status())
	cmd.AddCommand(Reset())

	// Utility commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// Execute runs the CLI with args. Errors cobra raises before a command
// starts, such as unknown commands, bad flags and bad arguments, are
// reported as validation failures so they exit 1.
func Execute(ctx context.Context, args []string) error {
	root := Root()
	root.SetArgs(args)

	started := false
	markStarted(root, &started)

	err := root.ExecuteContext(ctx)
	if err == nil || started {
		return err
	}
	var pe *provisioning.Error
	if errors.As(err, &pe) {
		return err
	}
	return provisioning.NewError(provisioning.KindValidationFailed, "parse command line", err)
}

// markStarted sets *started when any command's RunE is entered.
func markStarted(cmd *cobra.Command, started *bool) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			*started = true
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		markStarted(sub, started)
	}
}

// stateDir reads the persistent --state-dir flag.
func stateDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("state-dir")
	if err != nil || dir == "" {
		return config.DefaultStateDir()
	}
	return dir
}
