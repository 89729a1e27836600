package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/archer/internal/provisioning"
)

// sender is the part of *tea.Program observers need.
type sender interface {
	Send(msg tea.Msg)
}

// TeaObserver forwards executor events to a running Bubble Tea program.
type TeaObserver struct {
	p sender
}

// NewTeaObserver returns an Observer that sends each event to p.
func NewTeaObserver(p sender) *TeaObserver {
	return &TeaObserver{p: p}
}

// Event implements provisioning.Observer.
func (o *TeaObserver) Event(e provisioning.Event) {
	o.p.Send(EventMsg{Event: e})
}

// RunInstallTUI shows plan progress while runFn executes it. runFn receives
// the observer to register with the executor. cancel is called when the user
// presses ctrl+c; the dashboard stays up until runFn returns so the rollback
// remains visible.
func RunInstallTUI(
	ctx context.Context,
	title string,
	plan *provisioning.Plan,
	cancel context.CancelFunc,
	runFn func(ctx context.Context, obs provisioning.Observer) error,
) error {
	m := NewInstallModel(title, plan, cancel)

	p := tea.NewProgram(m, tea.WithAltScreen())

	runErr := make(chan error, 1)
	go func() {
		err := runFn(ctx, NewTeaObserver(p))
		runErr <- err
		if err != nil {
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-runErr
		return fmt.Errorf("TUI error: %w", err)
	}

	return <-runErr
}
