package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/archer/internal/logging"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/provisioning/stages"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// PlanOptions holds the flags of the plan command.
type PlanOptions struct {
	AnswersPath string
	Overrides   map[string]string
	Output      string
	Only        []string
}

// Plan validates answers and prints the plan an install would execute.
// Nothing is run and nothing is written to the state directory.
func Plan(ctx context.Context, opts PlanOptions) error {
	if err := checkFormat(opts.Output); err != nil {
		return err
	}

	log, closeLog, err := newLogger(logging.Options{Console: stderr})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	host := newHost()
	src := answersSource{path: opts.AnswersPath, overrides: opts.Overrides, assumeYes: true}
	s, err := buildSession(ctx, src, validate.New(host), log)
	if err != nil {
		return err
	}

	plan, err := selectPlan(s, opts.Only)
	if err != nil {
		return err
	}
	return renderPlan(stdout, plan, opts.Output)
}

// selectPlan builds the plan for s restricted to the named stages.
func selectPlan(s *session.Session, only []string) (*provisioning.Plan, error) {
	plan, err := stages.BuildPlan(s).Filter(only)
	if err != nil {
		return nil, provisioning.NewError(provisioning.KindValidationFailed, "select stages", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return plan, nil
}
