package provisioning

import (
	"context"
	"time"

	"github.com/imamik/archer/internal/platform/system"
)

// Host is the read-only view of the machine that preconditions and
// applicability checks consult.
type Host interface {
	Mounts() ([]system.Mount, error)
	BlockDevice(path string) (system.BlockDevice, error)
	CPUInfo() (string, error)
	PCIDevices() ([]system.PCIDevice, error)
}

// Action is one unit of work in a Plan. Actions are built once by the plan
// builder and never mutated afterwards.
type Action struct {
	ID          string
	Stage       string
	Ordinal     int
	Description string

	Commands     []system.Command
	Compensation []system.Command

	// Idempotent actions may be retried after a failure.
	Idempotent bool

	// Consecutive actions of a stage sharing a non-empty ParallelGroup run
	// concurrently.
	ParallelGroup string

	// TouchesPackageDB serializes the action against every other action
	// that also modifies the package database.
	TouchesPackageDB bool

	// Timeout bounds each command. Zero means no bound.
	Timeout time.Duration

	// Precondition must return nil for the action to run.
	Precondition func(ctx context.Context, h Host) error

	// Applies reports whether the action is relevant on this host. A nil
	// Applies means always.
	Applies func(ctx context.Context, h Host) (bool, error)
}

// Key returns the plan-unique identifier "stage/id".
func (a Action) Key() string {
	return a.Stage + "/" + a.ID
}

// Compensable reports whether the action declares a compensation.
func (a Action) Compensable() bool {
	return len(a.Compensation) > 0
}

// ActionState is the lifecycle state of an action during a run.
type ActionState int

const (
	StatePending ActionState = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateSkipped
	StateCompensated
)

func (s ActionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	case StateCompensated:
		return "compensated"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ActionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
