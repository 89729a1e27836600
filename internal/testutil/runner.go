package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/imamik/archer/internal/platform/system"
)

type failRule struct {
	match  string
	times  int // negative means always
	result system.Result
	err    error
}

// FakeRunner records every command and succeeds unless a rule says otherwise.
// It is safe for concurrent use.
type FakeRunner struct {
	mu         sync.Mutex
	calls      []system.Command
	rules      []*failRule
	running    int
	maxRunning int

	// Delay is how long each command "runs". Cancellation cuts it short.
	Delay time.Duration

	// Hook, when set, is called with every command before it completes.
	Hook func(ctx context.Context, cmd system.Command)
}

// NewFakeRunner returns a runner where everything succeeds.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// FailOn makes the next times commands whose rendered form contains match
// exit with status 1. A negative times fails forever.
func (r *FakeRunner) FailOn(match string, times int) *FakeRunner {
	return r.FailWith(match, times, system.Result{ExitCode: 1, Stderr: "injected failure: " + match + "\n"}, nil)
}

// FailWith is FailOn with an explicit result and error.
func (r *FakeRunner) FailWith(match string, times int, res system.Result, err error) *FakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, &failRule{match: match, times: times, result: res, err: err})
	return r
}

// Exec implements system.Runner.
func (r *FakeRunner) Exec(ctx context.Context, cmd system.Command) (system.Result, error) {
	if err := ctx.Err(); err != nil {
		return system.Result{ExitCode: -1}, err
	}

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()

	if r.Hook != nil {
		r.Hook(ctx, cmd)
	}

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return system.Result{ExitCode: -1}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return system.Result{ExitCode: -1}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rendered := cmd.String()
	for _, rule := range r.rules {
		if rule.times == 0 || !strings.Contains(rendered, rule.match) {
			continue
		}
		if rule.times > 0 {
			rule.times--
		}
		return rule.result, rule.err
	}
	return system.Result{}, nil
}

// Commands returns the executed commands in call order.
func (r *FakeRunner) Commands() []system.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]system.Command(nil), r.calls...)
}

// Rendered returns the executed commands as strings.
func (r *FakeRunner) Rendered() []string {
	cmds := r.Commands()
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

// Count returns how many executed commands contain match.
func (r *FakeRunner) Count(match string) int {
	n := 0
	for _, s := range r.Rendered() {
		if strings.Contains(s, match) {
			n++
		}
	}
	return n
}

// MaxConcurrent is the highest number of commands seen running at once.
func (r *FakeRunner) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxRunning
}
