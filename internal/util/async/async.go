package async

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MaxWorkers bounds DefaultLimit.
const MaxWorkers = 4

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// DefaultLimit is min(NumCPU, MaxWorkers).
func DefaultLimit() int {
	return min(runtime.NumCPU(), MaxWorkers)
}

// Run executes tasks with at most limit running at once and waits for all of
// them. A failing task does not stop its siblings. The returned slice holds
// one entry per task, in task order; it is nil when every task succeeded.
// A limit below 1 means DefaultLimit.
func Run(ctx context.Context, limit int, tasks []Task) []error {
	if len(tasks) == 0 {
		return nil
	}
	if limit < 1 {
		limit = DefaultLimit()
	}

	errs := make([]error, len(tasks))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = task.Func(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return errs
		}
	}
	return nil
}
