package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/archer/cmd/archer/handlers"
)

// Plan returns the command that prints the install plan without running it.
//
// Flags:
//
//	--answers, -f: Answers file (YAML)
//	--output, -o: text, yaml or json
//	--only: Restrict the plan to the named stages
func Plan() *cobra.Command {
	var opts handlers.PlanOptions

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the install plan",
		Long: `Print every stage, action and command the install would run.

Answers come from the answers file, ARCHER_* environment variables and --set,
and are validated against this machine. Passwords are never printed.

Examples:
  archer plan -f answers.yaml
  archer plan -f answers.yaml -o yaml --only base,configure`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.AnswersPath, "answers", "f", "", "Path to answers file")
	cmd.Flags().StringToStringVar(&opts.Overrides, "set", nil, "Override answers (e.g. --set device=nvme0n1)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", handlers.OutputText, "Output format: text, yaml or json")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Show only these stages (comma-separated)")

	return cmd
}
