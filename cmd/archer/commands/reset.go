package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/archer/cmd/archer/handlers"
)

// Reset returns the command that discards the saved checkpoint.
func Reset() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved checkpoint",
		Long: `Discard the saved checkpoint so the next install starts from the beginning.

Use --all to also remove the answers saved by the last confirmed install.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Reset(stateDir(cmd), all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also remove the saved answers")

	return cmd
}
