package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/util/async"
)

// run is the state of one Run or Resume call. Only the goroutine that calls
// execute touches it; parallel workers report through outcome values.
type run struct {
	e      *Executor
	plan   *provisioning.Plan
	digest string
	result RunResult

	// offsets[si] is the flat index of stage si's first action.
	offsets []int
}

func (r *run) execute(ctx context.Context, start provisioning.Position) RunResult {
	r.offsets = make([]int, len(r.plan.Stages))
	n := 0
	for i, s := range r.plan.Stages {
		r.offsets[i] = n
		n += len(s.Actions)
	}

	began := r.e.now()
	r.e.emit(provisioning.Event{
		Type:    provisioning.EventRunStarted,
		Message: fmt.Sprintf("run %s: %d actions from %s", r.result.RunID, r.plan.Len()-r.index(start)+1, start),
		Total:   r.plan.Len(),
		Fields:  map[string]string{"runID": r.result.RunID},
	})

	for si := start.Stage; si < len(r.plan.Stages); si++ {
		first := 0
		if si == start.Stage {
			first = start.Action
		}
		if !r.runStage(ctx, si, first) {
			return r.result
		}
	}

	last := len(r.plan.Stages) - 1
	for last > 0 && len(r.plan.Stages[last].Actions) == 0 {
		last--
	}
	r.complete(provisioning.Position{Stage: last, Action: len(r.plan.Stages[last].Actions) - 1})
	if r.result.Err == nil {
		r.e.emit(provisioning.Event{
			Type:     provisioning.EventRunCompleted,
			Message:  "run " + r.result.RunID + " completed",
			Duration: r.since(began),
		})
	}
	return r.result
}

// runStage runs stage si from action first. It returns false when the run
// stopped inside the stage.
func (r *run) runStage(ctx context.Context, si, first int) bool {
	stage := r.plan.Stages[si]
	if len(stage.Actions) == 0 {
		return true
	}

	stageStart := r.e.now()
	r.e.emit(provisioning.Event{Type: provisioning.EventStageStarted, Stage: stage.Name, Message: stage.Description})

	// actions of this stage that completed before the resume point count as
	// succeeded for rollback purposes
	var done []int
	for i := 0; i < first; i++ {
		done = append(done, i)
	}

	for _, b := range stage.Batches() {
		if b.End <= first {
			continue
		}
		from := max(b.Start, first)

		if err := ctx.Err(); err != nil {
			r.abort(ctx, si, done, nil, provisioning.NewError(provisioning.KindUserAborted, "run", err))
			return false
		}

		outcomes := r.runBatch(ctx, si, from, b.End)

		var failed []*outcome
		for _, o := range outcomes {
			r.result.Trace = append(r.result.Trace, o.step())
			if o.state == provisioning.StateFailed {
				failed = append(failed, o)
			}
		}

		if len(failed) == 0 {
			for _, o := range outcomes {
				if o.state == provisioning.StateSucceeded {
					done = append(done, o.pos.Action)
				}
			}
			if err := r.save(provisioning.Position{Stage: si, Action: b.End - 1}, provisioning.OutcomeSucceeded); err != nil {
				r.halt(err)
				return false
			}
			continue
		}

		// group siblings that succeeded are part of the stage's progress
		for _, o := range outcomes {
			if o.state == provisioning.StateSucceeded {
				done = append(done, o.pos.Action)
			}
		}

		rollback := ctx.Err() != nil
		for _, o := range failed {
			rollback = rollback || o.rollback()
		}
		if rollback {
			r.abort(ctx, si, done, failed, failed[0].err)
		} else {
			r.halt(failed[0].err)
		}
		return false
	}

	r.e.emit(provisioning.Event{
		Type:     provisioning.EventStageCompleted,
		Stage:    stage.Name,
		Duration: r.since(stageStart),
	})
	return true
}

// runBatch runs actions [from, end) of stage si. A single action runs on the
// calling goroutine, a parallel group on the worker pool.
func (r *run) runBatch(ctx context.Context, si, from, end int) []*outcome {
	outcomes := make([]*outcome, end-from)
	if end-from == 1 {
		outcomes[0] = r.runAction(ctx, provisioning.Position{Stage: si, Action: from})
		return outcomes
	}

	tasks := make([]async.Task, end-from)
	for i := range tasks {
		pos := provisioning.Position{Stage: si, Action: from + i}
		tasks[i] = async.Task{
			Name: r.plan.Stages[si].Actions[pos.Action].Key(),
			Func: func(ctx context.Context) error {
				outcomes[i] = r.runAction(ctx, pos)
				return nil
			},
		}
	}
	errs := async.Run(ctx, r.e.cfg.Workers, tasks)

	// tasks the pool never started because ctx was already done
	for i, o := range outcomes {
		if o != nil {
			continue
		}
		err := ctx.Err()
		if i < len(errs) && errs[i] != nil {
			err = errs[i]
		}
		a := r.plan.Stages[si].Actions[from+i]
		outcomes[i] = &outcome{
			pos:   provisioning.Position{Stage: si, Action: from + i},
			key:   a.Key(),
			state: provisioning.StateFailed,
			err:   &provisioning.Error{Kind: provisioning.KindUserAborted, Op: "execute", Action: a.Key(), Err: err},
		}
	}
	return outcomes
}

// save writes a checkpoint at pos and records it on the result.
func (r *run) save(pos provisioning.Position, oc provisioning.Outcome) error {
	cp := provisioning.Checkpoint{
		RunID:      r.result.RunID,
		PlanDigest: r.digest,
		Stage:      pos.Stage,
		Action:     pos.Action,
		StageName:  r.plan.Stages[pos.Stage].Name,
		Outcome:    oc,
		Timestamp:  r.e.now().UTC(),
	}
	if a, ok := r.plan.Action(pos); ok {
		cp.ActionID = a.ID
	}

	if err := r.e.store.Save(cp); err != nil {
		return &provisioning.Error{
			Kind:       provisioning.KindUnknown,
			Op:         "save checkpoint",
			Err:        err,
			Checkpoint: r.e.store.Location(),
		}
	}
	r.result.Checkpoint = &cp
	r.e.emit(provisioning.Event{
		Type:    provisioning.EventCheckpointSaved,
		Stage:   cp.StageName,
		Action:  cp.ActionID,
		Message: string(oc) + " at " + pos.String(),
	})
	return nil
}

func (r *run) complete(last provisioning.Position) {
	if err := r.save(last, provisioning.OutcomeCompleted); err != nil {
		r.halt(err)
		return
	}
	r.result.Status = StatusCompleted
}

// halt stops the run without touching the checkpoint.
func (r *run) halt(err error) {
	r.result.Status = StatusHalted
	r.result.Err = r.withLocation(err)
	r.e.emit(provisioning.Event{Type: provisioning.EventRunHalted, Message: err.Error()})
}

// abort rolls back stage si and moves the checkpoint to its start.
func (r *run) abort(ctx context.Context, si int, done []int, failed []*outcome, cause error) {
	stage := r.plan.Stages[si]

	// the failed actions come first, then what succeeded, newest first
	var order []int
	seen := make(map[int]bool)
	for _, o := range failed {
		if o.attempts > 0 && !seen[o.pos.Action] {
			seen[o.pos.Action] = true
			order = append(order, o.pos.Action)
		}
	}
	for i := len(done) - 1; i >= 0; i-- {
		if !seen[done[i]] {
			seen[done[i]] = true
			order = append(order, done[i])
		}
	}

	compErr := r.compensate(ctx, si, order)

	var errs []error
	if err := r.save(provisioning.Position{Stage: si, Action: -1}, provisioning.OutcomeCompensated); err != nil {
		errs = append(errs, err)
	}
	if compErr != nil {
		errs = append(errs, compErr)
	}

	r.result.Status = StatusAborted
	r.result.Err = r.withLocation(joinCause(cause, errs))
	r.e.emit(provisioning.Event{
		Type:    provisioning.EventRunAborted,
		Stage:   stage.Name,
		Message: cause.Error(),
		Fields:  map[string]string{"compensated": strconv.Itoa(len(r.result.Compensated))},
	})
}

// withLocation points the error at the checkpoint file.
func (r *run) withLocation(err error) error {
	var pe *provisioning.Error
	if errors.As(err, &pe) && pe.Checkpoint == "" && r.result.Checkpoint != nil {
		pe.Checkpoint = r.e.store.Location()
	}
	return err
}

// joinCause keeps cause first in the chain so its kind decides the exit code.
func joinCause(cause error, extra []error) error {
	if len(extra) == 0 {
		return cause
	}
	var pe *provisioning.Error
	if errors.As(cause, &pe) {
		pe.Err = errors.Join(append([]error{pe.Err}, extra...)...)
		return cause
	}
	return errors.Join(append([]error{cause}, extra...)...)
}

// index returns the 1-based flat index of pos.
func (r *run) index(pos provisioning.Position) int {
	if pos.Stage < 0 || pos.Stage >= len(r.offsets) {
		return 0
	}
	return r.offsets[pos.Stage] + pos.Action + 1
}

func (r *run) since(t time.Time) time.Duration {
	return r.e.now().Sub(t)
}
