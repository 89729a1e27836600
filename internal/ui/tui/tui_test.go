package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/util/prerequisites"
)

func testPlan() *provisioning.Plan {
	return &provisioning.Plan{Stages: []provisioning.Stage{
		{Name: "partition", Description: "Partition the disk", Actions: []provisioning.Action{
			{Stage: "partition", ID: "createLabel", Description: "Create GPT label"},
			{Stage: "partition", ID: "createESP", Description: "Create EFI partition"},
		}},
		{Name: "base", Description: "Install the base system", Actions: []provisioning.Action{
			{Stage: "base", ID: "installBaseSystem", Description: "Install base packages"},
		}},
	}}
}

func newTestModel() Model {
	m := NewInstallModel("archbox on /dev/sda", testPlan(), nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.StartTime = now
	m.now = func() time.Time { return now }
	return m
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3661 * time.Second, "1h1m"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNewInstallModel(t *testing.T) {
	m := newTestModel()
	if m.Total != 3 {
		t.Errorf("expected 3 actions, got %d", m.Total)
	}
	if len(m.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(m.Stages))
	}
	if len(m.Stages[0].Actions) != 2 {
		t.Errorf("expected 2 partition actions, got %d", len(m.Stages[0].Actions))
	}
}

func TestCalculateProgress(t *testing.T) {
	m := newTestModel()
	if p := calculateProgress(m); p != 0 {
		t.Errorf("expected 0, got %v", p)
	}

	m.apply(provisioning.Event{Type: provisioning.EventActionSucceeded, Stage: "partition", Action: "createLabel"})
	p := calculateProgress(m)
	if p < 0.33 || p > 0.34 {
		t.Errorf("expected ~1/3, got %v", p)
	}

	m.Done = true
	if p := calculateProgress(m); p != 1.0 {
		t.Errorf("expected 1.0 when done, got %v", p)
	}
}

func TestApply_StageLifecycle(t *testing.T) {
	m := newTestModel()

	m.apply(provisioning.Event{Type: provisioning.EventStageStarted, Stage: "partition"})
	if !m.Stages[0].Active {
		t.Error("expected partition to be active")
	}

	m.apply(provisioning.Event{Type: provisioning.EventActionStarted, Stage: "partition", Action: "createLabel", Attempt: 1})
	if m.Stages[0].Actions[0].State != provisioning.StateRunning {
		t.Errorf("expected running, got %v", m.Stages[0].Actions[0].State)
	}

	m.apply(provisioning.Event{Type: provisioning.EventActionRetrying, Stage: "partition", Action: "createLabel", Attempt: 1})
	if m.Stages[0].Actions[0].Attempt != 2 {
		t.Errorf("expected attempt 2 after a retry, got %d", m.Stages[0].Actions[0].Attempt)
	}

	m.apply(provisioning.Event{Type: provisioning.EventStageCompleted, Stage: "partition", Duration: 4 * time.Second})
	if m.Stages[0].Active || !m.Stages[0].Done {
		t.Error("expected partition to be done and inactive")
	}
	if len(m.History) != 1 || m.History[0].Duration != 4*time.Second {
		t.Errorf("expected partition in history, got %+v", m.History)
	}
}

func TestApply_FailureAndCompensation(t *testing.T) {
	m := newTestModel()
	m.apply(provisioning.Event{Type: provisioning.EventStageStarted, Stage: "partition"})
	m.apply(provisioning.Event{Type: provisioning.EventActionSucceeded, Stage: "partition", Action: "createLabel"})
	m.apply(provisioning.Event{Type: provisioning.EventActionFailed, Stage: "partition", Action: "createESP", Message: "parted exited with status 1"})
	m.apply(provisioning.Event{Type: provisioning.EventCompensated, Stage: "partition", Action: "createLabel"})

	if !m.Stages[0].Failed {
		t.Error("expected partition to be marked failed")
	}
	if m.Stages[0].Actions[1].State != provisioning.StateFailed {
		t.Errorf("expected createESP failed, got %v", m.Stages[0].Actions[1].State)
	}
	if m.Stages[0].Actions[0].State != provisioning.StateCompensated {
		t.Errorf("expected createLabel compensated, got %v", m.Stages[0].Actions[0].State)
	}
	if len(m.Finished) != 0 {
		t.Errorf("expected compensated actions to leave progress, got %d", len(m.Finished))
	}
	if len(m.Errors) != 1 || !strings.Contains(m.Errors[0], "partition/createESP") {
		t.Errorf("unexpected errors: %v", m.Errors)
	}
}

func TestUpdate_CtrlCInterruptsOnce(t *testing.T) {
	calls := 0
	m := newTestModel()
	m.Interrupt = func() { calls++ }

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	if cmd != nil {
		t.Error("expected the program to keep running while rolling back")
	}
	if !m.Interrupted || calls != 1 {
		t.Errorf("expected one interrupt, got %d", calls)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	if calls != 1 {
		t.Errorf("expected interrupt to fire once, got %d", calls)
	}
}

func TestUpdate_DoneAndErr(t *testing.T) {
	m := newTestModel()
	next, cmd := m.Update(DoneMsg{})
	if !next.(Model).Done || cmd == nil {
		t.Error("expected done model to quit")
	}

	m = newTestModel()
	boom := errors.New("boom")
	next, cmd = m.Update(ErrMsg{Err: boom})
	if !errors.Is(next.(Model).Err, boom) || cmd == nil {
		t.Error("expected error model to quit")
	}
}

func TestUpdateETA(t *testing.T) {
	m := newTestModel()
	m.apply(provisioning.Event{Type: provisioning.EventStageStarted, Stage: "partition"})
	m.updateETA()

	// partition 5s + base 300s with nothing elapsed
	if m.EstimatedRemaining != 305*time.Second {
		t.Errorf("expected 305s, got %v", m.EstimatedRemaining)
	}
}

func TestRenderView(t *testing.T) {
	m := newTestModel()
	m.apply(provisioning.Event{Type: provisioning.EventStageStarted, Stage: "partition"})
	m.apply(provisioning.Event{Type: provisioning.EventActionFailed, Stage: "partition", Action: "createESP", Message: "timeout waiting"})

	output := renderView(m)

	for _, want := range []string{"archbox on /dev/sda", "partition", "base", "Create EFI partition", "Recent Errors", "timeout waiting", "0/3"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if !strings.Contains(output, "░") {
		t.Error("expected progress bar in output")
	}
}

func TestStatusIcon(t *testing.T) {
	icon, _ := statusIcon(true)
	if icon != checkMark {
		t.Errorf("expected checkMark, got %q", icon)
	}
	icon, _ = statusIcon(false)
	if icon != crossMark {
		t.Errorf("expected crossMark, got %q", icon)
	}
}

func TestActionIcon(t *testing.T) {
	tests := []struct {
		state provisioning.ActionState
		icon  string
	}{
		{provisioning.StateSucceeded, checkMark},
		{provisioning.StateFailed, crossMark},
		{provisioning.StateSkipped, skipMark},
		{provisioning.StateCompensated, undoMark},
		{provisioning.StatePending, pending},
		{provisioning.StateRunning, spinnerFrames[0]},
	}
	for _, tt := range tests {
		icon, _ := actionIcon(tt.state, 0)
		if icon != tt.icon {
			t.Errorf("actionIcon(%v) = %q, want %q", tt.state, icon, tt.icon)
		}
	}
}

type captureSender struct{ msgs []tea.Msg }

func (c *captureSender) Send(msg tea.Msg) { c.msgs = append(c.msgs, msg) }

func TestTeaObserver(t *testing.T) {
	c := &captureSender{}
	NewTeaObserver(c).Event(provisioning.Event{Type: provisioning.EventRunStarted})

	if len(c.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(c.msgs))
	}
	if msg, ok := c.msgs[0].(EventMsg); !ok || msg.Event.Type != provisioning.EventRunStarted {
		t.Errorf("unexpected message %#v", c.msgs[0])
	}
}

func TestRenderDoctorOnce(t *testing.T) {
	out := RenderDoctorOnce(DoctorReport{
		Tools: &prerequisites.CheckResults{Results: []prerequisites.CheckResult{
			{Tool: prerequisites.Tool{Name: "pacstrap", Required: true, Package: "arch-install-scripts"}},
			{Tool: prerequisites.Tool{Name: "parted", Required: true}, Found: true, Path: "/usr/bin/parted"},
		}},
		StateDir:   "/var/lib/archer",
		Checkpoint: "/var/lib/archer/checkpoint.json",
	})

	for _, want := range []string{"running as root", "install arch-install-scripts", "/usr/bin/parted", "checkpoint.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}
