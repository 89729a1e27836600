package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/archer/cmd/archer/handlers"
)

// Status returns the command that shows the saved checkpoint.
func Status() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the last install stopped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(stateDir(cmd), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputText, "Output format: text, yaml or json")

	return cmd
}
