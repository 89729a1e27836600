package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/archer/cmd/archer/handlers"
)

// Doctor returns the command that checks whether this machine can run an install.
func Doctor() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools and privileges needed for an install",
		Long: `Check that this machine can run an install.

Reports whether archer runs as root, which required tools are on PATH and
whether an unfinished checkpoint is waiting to be resumed. Exits with status 3
when something required is missing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(stateDir(cmd))
		},
	}
}
