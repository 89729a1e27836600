package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// Init asks the install questions and saves the answers to outputPath for a
// later unattended "archer install --answers".
func Init(ctx context.Context, outputPath string, force bool) error {
	if fileExists(outputPath) && !force {
		return provisioning.NewError(provisioning.KindPreconditionNotMet, "init",
			fmt.Errorf("%s already exists; use --force to overwrite", outputPath))
	}

	s, err := session.Gather(ctx, newSavePrompter(), validate.New(newHost()))
	if err != nil {
		return err
	}

	answers := s.Answers()
	if err := writeAnswers(outputPath, &answers); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Saved answers to %s\n", outputPath)
	fmt.Fprintf(stdout, "Install with: archer install --answers %s\n", outputPath)
	return nil
}
