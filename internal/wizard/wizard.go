package wizard

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/imamik/archer/internal/session"
)

// Prompter implements session.Prompter with huh forms.
type Prompter struct {
	saveOnly bool

	// run executes a form; replaced in tests.
	run func(ctx context.Context, f *huh.Form) error
}

var _ session.Prompter = (*Prompter)(nil)

// New returns the Prompter for the install flow.
func New() *Prompter {
	return &Prompter{run: runForm}
}

// SaveOnly returns a Prompter whose Confirm is a yes/no question. It is used
// when the answers are stored rather than installed.
func SaveOnly() *Prompter {
	return &Prompter{saveOnly: true, run: runForm}
}

func runForm(ctx context.Context, f *huh.Form) error {
	return f.RunWithContext(ctx)
}

// Ask implements session.Prompter.
func (p *Prompter) Ask(ctx context.Context, q session.Question) (string, error) {
	var value string
	if err := p.run(ctx, questionForm(q, &value)); err != nil {
		return "", mapErr(err)
	}
	return value, nil
}

// AskSecret implements session.Prompter.
func (p *Prompter) AskSecret(ctx context.Context, q session.Question) (string, error) {
	var value, repeat string
	if err := p.run(ctx, secretForm(q, &value, &repeat)); err != nil {
		return "", mapErr(err)
	}
	return value, nil
}

// Confirm implements session.Prompter.
func (p *Prompter) Confirm(ctx context.Context, summary, token string) (string, error) {
	if p.saveOnly {
		save := true
		if err := p.run(ctx, saveForm(summary, &save)); err != nil {
			return "", mapErr(err)
		}
		if !save {
			return "", nil
		}
		return token, nil
	}

	var reply string
	if err := p.run(ctx, confirmForm(summary, token, &reply)); err != nil {
		return "", mapErr(err)
	}
	return reply, nil
}

// mapErr turns huh's abort (ctrl+c, esc) into session.ErrUserAborted.
func mapErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return session.ErrUserAborted
	}
	return err
}
