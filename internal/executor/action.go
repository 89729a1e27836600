package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/util/retry"
)

// outcome is what happened to one action.
type outcome struct {
	pos         provisioning.Position
	key         string
	state       provisioning.ActionState
	attempts    int
	duration    time.Duration
	err         error
	compensable bool
}

func (o *outcome) step() Step {
	return Step{
		Position: o.pos,
		Key:      o.key,
		State:    o.state,
		Attempts: o.attempts,
		Duration: o.duration,
		Err:      o.err,
	}
}

// rollback reports whether the failure takes the stage compensation path
// rather than halting.
func (o *outcome) rollback() bool {
	if o.compensable {
		return true
	}
	switch provisioning.KindOf(o.err) {
	case provisioning.KindPreconditionNotMet, provisioning.KindEnvironmentQueryFailed, provisioning.KindUserAborted:
		return true
	}
	return false
}

// commandError is a command that ran and exited non-zero.
type commandError struct {
	cmd    system.Command
	result system.Result
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.cmd.Name, e.result.ExitCode)
}

func (r *run) runAction(ctx context.Context, pos provisioning.Position) *outcome {
	a, _ := r.plan.Action(pos)
	o := &outcome{pos: pos, key: a.Key(), compensable: a.Compensable()}
	started := r.e.now()
	defer func() { o.duration = r.since(started) }()

	ev := provisioning.Event{Stage: a.Stage, Action: a.ID, Index: r.index(pos), Total: r.plan.Len()}
	fail := func(err error) *outcome {
		o.state = provisioning.StateFailed
		o.err = err
		e := ev
		e.Type = provisioning.EventActionFailed
		e.Message = err.Error()
		e.Attempt = o.attempts
		e.Duration = r.since(started)
		e.Fields = map[string]string{"kind": provisioning.KindOf(err).String()}
		r.e.emit(e)
		return o
	}

	if a.Applies != nil {
		ok, err := a.Applies(ctx, r.e.host)
		if err != nil {
			return fail(&provisioning.Error{Kind: provisioning.KindEnvironmentQueryFailed, Op: "detect", Action: a.Key(), Err: err})
		}
		if !ok {
			o.state = provisioning.StateSkipped
			e := ev
			e.Type = provisioning.EventActionSkipped
			e.Message = "not applicable on this host"
			r.e.emit(e)
			return o
		}
	}

	if a.TouchesPackageDB {
		r.e.pkgMu.Lock()
		defer r.e.pkgMu.Unlock()
	}

	// checked after taking the lock so it reflects the host as the action
	// will see it
	if a.Precondition != nil {
		if err := a.Precondition(ctx, r.e.host); err != nil {
			return fail(&provisioning.Error{Kind: provisioning.KindPreconditionNotMet, Op: "check precondition", Action: a.Key(), Err: err})
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(&provisioning.Error{Kind: provisioning.KindUserAborted, Op: "execute", Action: a.Key(), Err: err})
	}

	e := ev
	e.Type = provisioning.EventActionStarted
	e.Message = a.Description
	r.e.emit(e)

	attempt := func(n int) error {
		o.attempts = n
		return r.exec(ctx, a)
	}

	var err error
	if a.Idempotent {
		err = retry.Do(ctx, attempt,
			retry.WithMaxRetries(r.e.cfg.MaxRetries),
			retry.WithInitialDelay(r.e.cfg.RetryInitialDelay),
			retry.WithMaxDelay(r.e.cfg.RetryMaxDelay),
			retry.WithOnRetry(func(n int, err error, delay time.Duration) {
				e := ev
				e.Type = provisioning.EventActionRetrying
				e.Attempt = n
				e.Message = err.Error()
				e.Fields = map[string]string{"delay": delay.String()}
				r.e.emit(e)
			}),
		)
	} else {
		err = attempt(1)
	}

	if err != nil {
		return fail(r.classify(ctx, a, err))
	}

	o.state = provisioning.StateSucceeded
	e = ev
	e.Type = provisioning.EventActionSucceeded
	e.Attempt = o.attempts
	e.Duration = r.since(started)
	r.e.emit(e)
	return o
}

// exec runs the commands of a once, stopping at the first failure.
func (r *run) exec(ctx context.Context, a provisioning.Action) error {
	timeout := a.Timeout
	if timeout == 0 {
		timeout = r.e.cfg.ActionTimeout
	}

	for _, c := range a.Commands {
		cctx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			cctx, cancel = context.WithTimeout(ctx, timeout)
		}
		res, err := r.e.runner.Exec(cctx, c)
		cancel()

		if ctx.Err() != nil {
			return retry.Fatal(ctx.Err())
		}
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		if !res.Success() {
			return &commandError{cmd: c, result: res}
		}
	}
	return nil
}

func (r *run) classify(ctx context.Context, a provisioning.Action, err error) error {
	if ctx.Err() != nil {
		return &provisioning.Error{Kind: provisioning.KindUserAborted, Op: "execute", Action: a.Key(), Err: ctx.Err()}
	}

	pe := &provisioning.Error{Kind: provisioning.KindActionExecutionFailed, Op: "execute", Action: a.Key(), Err: err}
	var ce *commandError
	if errors.As(err, &ce) {
		pe.Stdout = ce.result.Stdout
		pe.Stderr = ce.result.Stderr
		pe.ExitCode = ce.result.ExitCode
	}
	return pe
}

// compensate runs the compensation of each action in order, on a context
// detached from ctx and bounded by the compensation timeout. Actions without
// a compensation are passed over. A failing compensation is reported and the
// rest still run.
func (r *run) compensate(ctx context.Context, si int, order []int) error {
	stage := r.plan.Stages[si]
	cctx := context.WithoutCancel(ctx)
	if r.e.cfg.CompensationTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, r.e.cfg.CompensationTimeout)
		defer cancel()
	}

	var errs []error
	for _, i := range order {
		a := stage.Actions[i]
		if !a.Compensable() {
			continue
		}

		ev := provisioning.Event{
			Stage:  a.Stage,
			Action: a.ID,
			Index:  r.index(provisioning.Position{Stage: si, Action: i}),
			Total:  r.plan.Len(),
		}
		e := ev
		e.Type = provisioning.EventCompensating
		e.Message = "rolling back " + a.Description
		r.e.emit(e)

		if err := r.undo(cctx, a); err != nil {
			r.e.logger.Error(err, "compensation failed", "action", a.Key())
			errs = append(errs, fmt.Errorf("compensate %s: %w", a.Key(), err))
			e = ev
			e.Type = provisioning.EventActionFailed
			e.Message = "compensation failed: " + err.Error()
			e.Fields = map[string]string{"phase": "compensation"}
			r.e.emit(e)
			continue
		}

		r.result.Compensated = append(r.result.Compensated, a.Key())
		r.markCompensated(a.Key())
		e = ev
		e.Type = provisioning.EventCompensated
		e.Fields = map[string]string{"order": strconv.Itoa(len(r.result.Compensated))}
		r.e.emit(e)
	}
	return errors.Join(errs...)
}

func (r *run) undo(ctx context.Context, a provisioning.Action) error {
	for _, c := range a.Compensation {
		res, err := r.e.runner.Exec(ctx, c)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		if !res.Success() {
			return &commandError{cmd: c, result: res}
		}
	}
	return nil
}

// markCompensated updates the trace entry of key, if this run visited it.
func (r *run) markCompensated(key string) {
	for i := range r.result.Trace {
		if r.result.Trace[i].Key == key {
			r.result.Trace[i].State = provisioning.StateCompensated
		}
	}
}
