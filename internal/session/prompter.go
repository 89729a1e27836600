package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/validate"
)

// Prompter asks the user for answers.
type Prompter interface {
	// Ask returns the raw answer to q. An empty answer selects q.Default.
	Ask(ctx context.Context, q Question) (string, error)
	// AskSecret is Ask without echo.
	AskSecret(ctx context.Context, q Question) (string, error)
	// Confirm shows the summary and returns what the user typed. The run
	// proceeds only when the reply equals token exactly.
	Confirm(ctx context.Context, summary, token string) (string, error)
}

// AnswersPrompter answers questions from an answers document. It never asks
// twice: a rejected answer becomes a ValidationFailed error.
type AnswersPrompter struct {
	values    map[validate.Kind]string
	assumeYes bool
}

// NewAnswersPrompter returns a Prompter for non-interactive runs. Without
// assumeYes, Confirm refuses and the run aborts.
func NewAnswersPrompter(a config.Answers, assumeYes bool) *AnswersPrompter {
	return &AnswersPrompter{
		values: map[validate.Kind]string{
			validate.KindHostname: a.Hostname,
			validate.KindUsername: a.Username,
			validate.KindPassword: a.Password,
			validate.KindTimezone: a.Timezone,
			validate.KindLocale:   a.Locale,
			validate.KindDevice:   a.Device,
			validate.KindSwap:     a.Swap,
			validate.KindDesktop:  a.Desktop,
		},
		assumeYes: assumeYes,
	}
}

// Ask implements Prompter.
func (p *AnswersPrompter) Ask(_ context.Context, q Question) (string, error) {
	if q.Problem != "" {
		return "", provisioning.NewError(provisioning.KindValidationFailed, "answers",
			fmt.Errorf("%s: %s", q.Kind, q.Problem))
	}
	v := p.values[q.Kind]
	if v == "" && q.Default == "" {
		return "", provisioning.NewError(provisioning.KindValidationFailed, "answers",
			fmt.Errorf("%s is required", q.Kind))
	}
	return v, nil
}

// AskSecret implements Prompter.
func (p *AnswersPrompter) AskSecret(ctx context.Context, q Question) (string, error) {
	return p.Ask(ctx, q)
}

// ErrConfirmationRequired is returned by AnswersPrompter.Confirm without --yes.
var ErrConfirmationRequired = errors.New("non-interactive install requires --yes")

// Confirm implements Prompter.
func (p *AnswersPrompter) Confirm(_ context.Context, _ string, token string) (string, error) {
	if !p.assumeYes {
		return "", ErrConfirmationRequired
	}
	return token, nil
}
