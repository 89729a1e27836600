package wizard

import (
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/archer/internal/session"
)

// description joins the question help with the reason the previous answer
// was rejected.
func description(q session.Question) string {
	if q.Problem == "" {
		return q.Help
	}
	if q.Help == "" {
		return "Rejected: " + q.Problem
	}
	return q.Help + "\nRejected: " + q.Problem
}

// questionForm builds the form for q, binding the answer to value.
func questionForm(q session.Question, value *string) *huh.Form {
	if *value == "" {
		*value = q.Default
	}

	var field huh.Field
	if len(q.Options) > 0 {
		field = huh.NewSelect[string]().
			Title(q.Title).
			Description(description(q)).
			Options(ChoicesToOptions(choicesFor(q.Options))...).
			Value(value)
	} else {
		input := huh.NewInput().
			Title(q.Title).
			Description(description(q)).
			Value(value)
		if q.Default != "" {
			input = input.Placeholder(q.Default)
		} else {
			input = input.Validate(requireAnswer)
		}
		field = input
	}

	return huh.NewForm(huh.NewGroup(field))
}

// secretForm builds a masked input for q with a repeat field that must match.
func secretForm(q session.Question, value, repeat *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(q.Title).
				Description(description(q)).
				EchoMode(huh.EchoModePassword).
				Value(value).
				Validate(requireAnswer),
			huh.NewInput().
				Title("Repeat "+strings.ToLower(q.Title)).
				EchoMode(huh.EchoModePassword).
				Value(repeat).
				Validate(matches(value)),
		),
	)
}

// confirmForm shows summary and asks for the accept token.
func confirmForm(summary, token string, reply *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Review").
				Description(summary),
			huh.NewInput().
				Title("Type "+token+" to start the install").
				Value(reply),
		),
	)
}

// saveForm shows summary and asks whether to keep it.
func saveForm(summary string, save *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Review").
				Description(summary),
			huh.NewConfirm().
				Title("Save these answers?").
				Affirmative("Save").
				Negative("Discard").
				Value(save),
		),
	)
}

func requireAnswer(s string) error {
	if strings.TrimSpace(s) == "" {
		return errAnswerRequired
	}
	return nil
}

func matches(first *string) func(string) error {
	return func(s string) error {
		if s != *first {
			return errPasswordMismatch
		}
		return nil
	}
}
