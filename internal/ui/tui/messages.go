// Package tui provides a Bubble Tea-based terminal UI for install runs.
package tui

import "github.com/imamik/archer/internal/provisioning"

// EventMsg carries one executor event into the program.
type EventMsg struct {
	Event provisioning.Event
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries the error that ended the run.
type ErrMsg struct{ Err error }

// DoneMsg signals that the run finished without error.
type DoneMsg struct{}
