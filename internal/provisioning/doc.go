// Package provisioning holds the model shared by every part of an install run.
//
// # Core Types
//
// Action is one step of the install, described as a list of system.Commands
// with an optional compensation list, an idempotency flag and an optional
// parallel group. Stage is an ordered list of Actions. Plan is the ordered
// list of Stages built from a confirmed session.
//
// Checkpoint records the last completed position in a Plan so an
// interrupted run can resume where it stopped.
//
// Error carries a Kind that the CLI maps to an exit code.
//
// Observer receives Events as the executor moves through a Plan.
//
// # Subpackages
//
//   - stages/ builds the Plan from a session and detects hardware.
package provisioning
