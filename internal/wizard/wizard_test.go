package wizard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/huh"

	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// stubbed returns a Prompter whose forms are never shown; err is returned
// from every run.
func stubbed(saveOnly bool, err error) (*Prompter, *int) {
	runs := 0
	p := &Prompter{saveOnly: saveOnly, run: func(context.Context, *huh.Form) error {
		runs++
		return err
	}}
	return p, &runs
}

func question(kind validate.Kind) session.Question {
	for _, q := range session.Questions() {
		if q.Kind == kind {
			return q
		}
	}
	panic("no question for " + string(kind))
}

func TestAsk_DefaultWhenUntouched(t *testing.T) {
	p, runs := stubbed(false, nil)

	got, err := p.Ask(context.Background(), question(validate.KindTimezone))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "UTC" {
		t.Errorf("Ask() = %q, want %q", got, "UTC")
	}
	if *runs != 1 {
		t.Errorf("expected 1 form run, got %d", *runs)
	}
}

func TestAsk_AbortMapsToSession(t *testing.T) {
	p, _ := stubbed(false, huh.ErrUserAborted)

	_, err := p.Ask(context.Background(), question(validate.KindHostname))
	if !errors.Is(err, session.ErrUserAborted) {
		t.Errorf("expected session.ErrUserAborted, got %v", err)
	}

	_, err = p.AskSecret(context.Background(), question(validate.KindPassword))
	if !errors.Is(err, session.ErrUserAborted) {
		t.Errorf("expected session.ErrUserAborted from AskSecret, got %v", err)
	}
}

func TestAsk_OtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("tty gone")
	p, _ := stubbed(false, boom)

	_, err := p.Ask(context.Background(), question(validate.KindHostname))
	if !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}

func TestConfirm_InstallNeedsTypedToken(t *testing.T) {
	p, _ := stubbed(false, nil)

	reply, err := p.Confirm(context.Background(), "summary", session.AcceptToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "" {
		t.Errorf("expected no reply without typing, got %q", reply)
	}
}

func TestConfirm_SaveOnlyDefaultsToSave(t *testing.T) {
	p, _ := stubbed(true, nil)

	reply, err := p.Confirm(context.Background(), "summary", session.AcceptToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != session.AcceptToken {
		t.Errorf("Confirm() = %q, want %q", reply, session.AcceptToken)
	}
}

func TestDescription(t *testing.T) {
	q := session.Question{Help: "Primary user"}
	if got := description(q); got != "Primary user" {
		t.Errorf("description() = %q", got)
	}

	q.Problem = "must start with a lowercase letter"
	got := description(q)
	if !strings.Contains(got, "Primary user") || !strings.Contains(got, "Rejected: must start") {
		t.Errorf("description() = %q, want help and problem", got)
	}

	if got := description(session.Question{Problem: "too long"}); got != "Rejected: too long" {
		t.Errorf("description() = %q", got)
	}
}

func TestRequireAnswer(t *testing.T) {
	if err := requireAnswer("  "); !errors.Is(err, errAnswerRequired) {
		t.Errorf("expected errAnswerRequired, got %v", err)
	}
	if err := requireAnswer("arch-box"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMatches(t *testing.T) {
	first := "hunter2"
	check := matches(&first)

	if err := check("hunter2"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := check("hunter3"); !errors.Is(err, errPasswordMismatch) {
		t.Errorf("expected errPasswordMismatch, got %v", err)
	}

	// the repeat is checked against the current first value
	first = "hunter3"
	if err := check("hunter3"); err != nil {
		t.Errorf("unexpected error after change: %v", err)
	}
}
