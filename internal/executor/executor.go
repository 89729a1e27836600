// Package executor runs a provisioning Plan against the host.
//
// Actions run in plan order. Consecutive actions that share a parallel group
// run on a bounded worker pool, and the group is checkpointed once it has
// completed as a whole. After every successful action or group the
// checkpoint is saved before the executor moves on, so Resume can continue
// from the first action that has not completed.
//
// A failed action is retried when it is idempotent. If it still fails and
// declares a compensation, the executor rolls back the current stage: the
// failed action first, then every action of the stage that had succeeded, in
// reverse order. The checkpoint is moved to the start of the stage and the
// run is Aborted. A failed action without a compensation halts the run and
// leaves the checkpoint where it was.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/archer/internal/checkpoint"
	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/util/async"
)

// Store persists checkpoints. Save must be durable when it returns.
type Store interface {
	Load() (*provisioning.Checkpoint, error)
	Save(cp provisioning.Checkpoint) error
	Location() string
}

// Config tunes retries, timeouts and parallelism.
type Config struct {
	// MaxRetries is the number of retries of a failed idempotent action.
	MaxRetries        int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	// ActionTimeout bounds every command of actions that do not set their
	// own Timeout. Zero means unbounded.
	ActionTimeout time.Duration

	// CompensationTimeout bounds the whole rollback of a stage.
	CompensationTimeout time.Duration

	// Workers is the size of the parallel group pool. Zero means
	// min(NumCPU, 4).
	Workers int
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          1,
		RetryInitialDelay:   2 * time.Second,
		RetryMaxDelay:       30 * time.Second,
		CompensationTimeout: 5 * time.Minute,
	}
}

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusHalted    Status = "halted"
)

// Step is one action's entry in the run trace.
type Step struct {
	Position provisioning.Position
	Key      string
	State    provisioning.ActionState
	Attempts int
	Duration time.Duration
	Err      error
}

// RunResult describes what a run did.
type RunResult struct {
	RunID  string
	Status Status

	// Trace lists every action visited in this run, in plan order.
	Trace []Step

	// Compensated lists the keys of rolled back actions in rollback order.
	Compensated []string

	// Checkpoint is the last checkpoint saved, or the one loaded when
	// nothing new was saved.
	Checkpoint *provisioning.Checkpoint

	Err error
}

// Succeeded reports whether the run completed.
func (r RunResult) Succeeded() bool {
	return r.Status == StatusCompleted && r.Err == nil
}

// Executed returns the keys of actions that ran to success.
func (r RunResult) Executed() []string {
	var keys []string
	for _, s := range r.Trace {
		if s.State == provisioning.StateSucceeded {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

// Executor runs plans. An Executor may run one plan at a time.
type Executor struct {
	runner   system.Runner
	host     provisioning.Host
	store    Store
	observer provisioning.Observer
	logger   logr.Logger
	cfg      Config
	newRunID func() string
	now      func() time.Time

	// pkgMu serializes actions that modify the package database.
	pkgMu sync.Mutex
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver sets the event observer.
func WithObserver(o provisioning.Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Executor) {
		e.cfg = cfg
	}
}

// WithRunIDGenerator overrides how fresh runs are identified.
func WithRunIDGenerator(fn func() string) Option {
	return func(e *Executor) {
		e.newRunID = fn
	}
}

// WithClock overrides the time source for checkpoints and events.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// New returns an Executor that runs commands with runner, evaluates
// predicates against host and saves progress to store.
func New(runner system.Runner, host provisioning.Host, store Store, opts ...Option) *Executor {
	e := &Executor{
		runner:   runner,
		host:     host,
		store:    store,
		observer: provisioning.ObserverFunc(func(provisioning.Event) {}),
		logger:   logr.Discard(),
		cfg:      DefaultConfig(),
		newRunID: checkpoint.NewRunID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.Workers < 1 {
		e.cfg.Workers = async.DefaultLimit()
	}
	return e
}

// Run executes plan from its first action under a new run ID, replacing any
// saved checkpoint as it progresses.
func (e *Executor) Run(ctx context.Context, plan *provisioning.Plan) RunResult {
	start, ok := plan.Start()
	r := &run{
		e:      e,
		plan:   plan,
		digest: plan.Digest(),
		result: RunResult{RunID: e.newRunID()},
	}
	if !ok {
		r.result.Status = StatusCompleted
		return r.result
	}
	return r.execute(ctx, start)
}

// Resume continues plan after the saved checkpoint. Without a checkpoint it
// behaves like Run. A checkpoint written for a different plan is refused,
// and resuming a completed run does nothing.
func (e *Executor) Resume(ctx context.Context, plan *provisioning.Plan) RunResult {
	cp, err := e.store.Load()
	if err != nil {
		return RunResult{
			Status: StatusHalted,
			Err:    provisioning.NewError(provisioning.KindEnvironmentQueryFailed, "load checkpoint", err),
		}
	}
	if cp == nil {
		return e.Run(ctx, plan)
	}

	result := RunResult{RunID: cp.RunID, Checkpoint: cp}
	digest := plan.Digest()
	if cp.PlanDigest != digest {
		result.Status = StatusHalted
		result.Err = &provisioning.Error{
			Kind:       provisioning.KindPreconditionNotMet,
			Op:         "resume",
			Err:        fmt.Errorf("checkpoint was written for a different plan (%s, plan is %s); answers or stage selection changed", short(cp.PlanDigest), short(digest)),
			Checkpoint: e.store.Location(),
		}
		return result
	}
	if cp.Completed() {
		result.Status = StatusCompleted
		e.emit(provisioning.Event{Type: provisioning.EventRunCompleted, Message: "nothing to resume, run " + cp.RunID + " already completed"})
		return result
	}
	if cp.Stage < 0 || cp.Stage >= len(plan.Stages) || cp.Action >= len(plan.Stages[cp.Stage].Actions) {
		result.Status = StatusHalted
		result.Err = &provisioning.Error{
			Kind:       provisioning.KindPreconditionNotMet,
			Op:         "resume",
			Err:        fmt.Errorf("checkpoint position %s is outside the plan", cp.Position()),
			Checkpoint: e.store.Location(),
		}
		return result
	}

	r := &run{e: e, plan: plan, digest: digest, result: result}
	next, ok := plan.Next(cp.Position())
	if !ok {
		r.complete(cp.Position())
		return r.result
	}
	e.logger.Info("resuming run", "runID", cp.RunID, "from", next.String(), "checkpoint", cp.Position().String())
	return r.execute(ctx, next)
}

func (e *Executor) emit(ev provisioning.Event) {
	ev.Timestamp = e.now()
	e.observer.Event(ev)
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
