package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// ScriptedPrompter replays queued answers per field.
type ScriptedPrompter struct {
	mu sync.Mutex

	Answers    map[validate.Kind][]string
	Reply      string
	AskErr     map[validate.Kind]error
	ConfirmErr error

	asked    []session.Question
	summary  string
	confirms int
}

// NewScriptedPrompter returns a prompter that confirms with the accept token
// and answers every field from answers.
func NewScriptedPrompter(answers map[validate.Kind][]string) *ScriptedPrompter {
	return &ScriptedPrompter{
		Answers: answers,
		Reply:   session.AcceptToken,
		AskErr:  map[validate.Kind]error{},
	}
}

// DefaultAnswers are valid answers for the arch-box scenario.
func DefaultAnswers() map[validate.Kind][]string {
	return map[validate.Kind][]string{
		validate.KindHostname: {"arch-box"},
		validate.KindUsername: {"sam"},
		validate.KindPassword: {"correct horse"},
		validate.KindTimezone: {"America/New_York"},
		validate.KindLocale:   {""},
		validate.KindDevice:   {"sda"},
		validate.KindSwap:     {"4"},
		validate.KindDesktop:  {""},
	}
}

// Ask implements session.Prompter.
func (p *ScriptedPrompter) Ask(ctx context.Context, q session.Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, q)
	if err := p.AskErr[q.Kind]; err != nil {
		return "", err
	}
	queue := p.Answers[q.Kind]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted answer left for %s", q.Kind)
	}
	p.Answers[q.Kind] = queue[1:]
	return queue[0], nil
}

// AskSecret implements session.Prompter.
func (p *ScriptedPrompter) AskSecret(ctx context.Context, q session.Question) (string, error) {
	return p.Ask(ctx, q)
}

// Confirm implements session.Prompter.
func (p *ScriptedPrompter) Confirm(_ context.Context, summary, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary = summary
	p.confirms++
	return p.Reply, p.ConfirmErr
}

// Asked returns every question asked, including re-asks.
func (p *ScriptedPrompter) Asked() []session.Question {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.Question(nil), p.asked...)
}

// Summary returns the summary shown at confirmation.
func (p *ScriptedPrompter) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// Confirms returns how often Confirm was called.
func (p *ScriptedPrompter) Confirms() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirms
}
