package provisioning

import "time"

// Outcome records what happened at a checkpoint's position.
type Outcome string

const (
	// OutcomeSucceeded means every action up to and including the position succeeded.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeCompensated means the stage at the position was rolled back and
	// resuming restarts it from its first action.
	OutcomeCompensated Outcome = "compensated"
	// OutcomeCompleted means the whole plan finished.
	OutcomeCompleted Outcome = "completed"
)

// Checkpoint is the durable progress marker of a run.
type Checkpoint struct {
	RunID      string    `json:"runId"`
	PlanDigest string    `json:"planDigest"`
	Stage      int       `json:"stage"`
	Action     int       `json:"action"`
	StageName  string    `json:"stageName,omitempty"`
	ActionID   string    `json:"actionId,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Timestamp  time.Time `json:"timestamp"`
}

// Position returns the checkpoint's position in the plan.
func (c Checkpoint) Position() Position {
	return Position{Stage: c.Stage, Action: c.Action}
}

// Completed reports whether the checkpoint marks a finished run.
func (c Checkpoint) Completed() bool {
	return c.Outcome == OutcomeCompleted
}
