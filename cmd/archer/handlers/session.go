package handlers

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// answersSource says where a session's answers come from.
type answersSource struct {
	path        string
	overrides   map[string]string
	interactive bool
	assumeYes   bool
}

// hasAnswers reports whether any answer was supplied up front.
func (s answersSource) hasAnswers() bool {
	return s.path != "" || len(s.overrides) > 0
}

// confirmVia answers questions from one Prompter and asks for the
// confirmation through another.
type confirmVia struct {
	session.Prompter
	confirm session.Prompter
}

// Confirm implements session.Prompter.
func (c confirmVia) Confirm(ctx context.Context, summary, token string) (string, error) {
	return c.confirm.Confirm(ctx, summary, token)
}

// buildSession validates answers into a confirmed session.
//
// Interactive sessions without supplied answers ask every question. With an
// answers file or overrides, the answers are taken as given and only the
// confirmation is asked unless assumeYes is set. Non-interactive sessions
// never prompt and need assumeYes to confirm.
func buildSession(ctx context.Context, src answersSource, v *validate.Validator, log logr.Logger) (*session.Session, error) {
	opts := []session.Option{session.WithLogger(log)}

	if src.interactive && !src.hasAnswers() {
		return session.Gather(ctx, newPrompter(), v, opts...)
	}

	a, err := loadAnswers(src.path, src.overrides)
	if err != nil {
		return nil, provisioning.NewError(provisioning.KindValidationFailed, "load answers", err)
	}
	if a.PasswordHash != "" {
		opts = append(opts, session.WithPasswordHash(a.PasswordHash))
	}

	if !src.interactive || src.assumeYes {
		return session.Gather(ctx, session.NewAnswersPrompter(*a, src.assumeYes), v, opts...)
	}
	p := confirmVia{Prompter: session.NewAnswersPrompter(*a, true), confirm: newPrompter()}
	return session.Gather(ctx, p, v, opts...)
}

// savedAnswers is the answers file a resumed run rebuilds its plan from.
func savedAnswers(path, stateDir string) string {
	if path != "" {
		return path
	}
	return config.AnswersPath(stateDir)
}
