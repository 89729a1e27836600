package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/archer/cmd/archer/handlers"
)

// Install returns the command that runs the install plan.
//
// Optional flags:
//
//	--answers, -f: Answers file (YAML); ARCHER_* environment variables and --set override it
//	--non-interactive: Never prompt; every answer comes from the file, environment or --set
//	--yes: Accept the confirmation without typing it
//	--resume: Continue from the last checkpoint
//	--dry-run: Print the plan instead of running it
//	--only: Restrict the run to the named stages
//	--force-fresh: Discard an unfinished checkpoint and start over
//	--metrics-file: Write Prometheus metrics for the run to this file
//	--verbose, -v: Log every action to the console
func Install() *cobra.Command {
	var opts handlers.InstallOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the system onto the target device",
		Long: `Install Arch Linux onto a single block device.

archer asks for the hostname, user, password, timezone, locale, target device,
swap size and desktop profile, validates every answer, shows a summary and
starts only after you type YES. ALL DATA ON THE TARGET DEVICE IS ERASED.

Progress is checkpointed after every action. If a step fails, fix the cause
and run 'archer install --resume' to continue where it stopped.

Examples:
  # Interactive install
  archer install

  # Unattended install from an answers file
  archer install -f answers.yaml --non-interactive --yes

  # Continue after a failure
  archer install --resume

  # Show what would run
  archer install -f answers.yaml --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.StateDir = stateDir(cmd)
			return handlers.Install(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.AnswersPath, "answers", "f", "", "Path to answers file")
	cmd.Flags().StringToStringVar(&opts.Overrides, "set", nil, "Override answers (e.g. --set hostname=arch-box)")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "Never prompt; take every answer from the file, environment or --set")
	cmd.Flags().BoolVarP(&opts.AssumeYes, "yes", "y", false, "Accept the confirmation without typing it")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "Continue from the last checkpoint")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan instead of running it")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Run only these stages (comma-separated)")
	cmd.Flags().BoolVar(&opts.ForceFresh, "force-fresh", false, "Discard an unfinished checkpoint and start over")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every action to the console")

	cmd.MarkFlagsMutuallyExclusive("resume", "force-fresh")
	cmd.MarkFlagsMutuallyExclusive("resume", "dry-run")

	return cmd
}
