package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/archer/cmd/archer/handlers"
)

// Init returns the command for interactively creating an answers file.
//
// Flags:
//
//	--output, -o: Path to output file (default "answers.yaml")
//	--force: Overwrite an existing file without asking
func Init() *cobra.Command {
	var (
		outputPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create an answers file",
		Long: `Interactively create an answers file for unattended installs.

This command asks the same questions as 'archer install' and validates the
answers against this machine, but writes them to a file instead of
installing. The password is stored only as a bcrypt hash.

Use the file with:
  archer install -f answers.yaml --non-interactive --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, force)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "answers.yaml", "Output file path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
