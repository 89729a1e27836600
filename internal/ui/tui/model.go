package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/ui/benchmarks"
)

// ActionRow is one action of a stage as shown on screen.
type ActionRow struct {
	ID          string
	Description string
	State       provisioning.ActionState
	Attempt     int
}

// StageRow represents a plan stage for display.
type StageRow struct {
	Name        string
	Description string
	Actions     []ActionRow
	Active      bool
	Done        bool
	Failed      bool
	StartedAt   time.Time
	Duration    time.Duration
}

// Model is the Bubble Tea model for the install dashboard.
type Model struct {
	Title  string
	Stages []StageRow

	// Progress
	Total    int
	Finished map[string]bool
	History  []benchmarks.StageRecord

	// ETA
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// Errors reported by the run, newest last.
	Errors []string

	// Interrupt is called on the first ctrl+c; the run then rolls back and
	// the program exits once it reports back.
	Interrupt   func()
	Interrupted bool

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool

	now func() time.Time
}

// NewInstallModel creates a model showing every stage and action of plan.
func NewInstallModel(title string, plan *provisioning.Plan, interrupt func()) Model {
	m := Model{
		Title:            title,
		Total:            plan.Len(),
		Finished:         make(map[string]bool),
		StartTime:        time.Now(),
		PerformanceScale: 1.0,
		Interrupt:        interrupt,
		now:              time.Now,
	}
	for _, s := range plan.Stages {
		row := StageRow{Name: s.Name, Description: s.Description}
		for _, a := range s.Actions {
			row.Actions = append(row.Actions, ActionRow{ID: a.ID, Description: a.Description})
		}
		m.Stages = append(m.Stages, row)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			if m.Done || m.Err != nil {
				return m, tea.Quit
			}
		case "ctrl+c":
			if m.Done || m.Err != nil {
				return m, tea.Quit
			}
			if !m.Interrupted && m.Interrupt != nil {
				m.Interrupted = true
				m.Interrupt()
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.apply(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.EstimatedRemaining = 0
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one executor event into the model.
func (m *Model) apply(e provisioning.Event) {
	si := m.stageIndex(e.Stage)

	switch e.Type {
	case provisioning.EventStageStarted:
		if si < 0 {
			return
		}
		for i := 0; i < si; i++ {
			m.Stages[i].Active = false
		}
		m.Stages[si].Active = true
		m.Stages[si].Failed = false
		m.Stages[si].StartedAt = m.clock()

	case provisioning.EventStageCompleted:
		if si < 0 {
			return
		}
		m.Stages[si].Active = false
		m.Stages[si].Done = true
		m.Stages[si].Duration = e.Duration
		m.History = append(m.History, benchmarks.StageRecord{Stage: e.Stage, Duration: e.Duration})

	case provisioning.EventActionStarted:
		m.setAction(si, e.Action, provisioning.StateRunning, e.Attempt)

	case provisioning.EventActionRetrying:
		m.setAction(si, e.Action, provisioning.StateRunning, e.Attempt+1)

	case provisioning.EventActionSucceeded:
		m.setAction(si, e.Action, provisioning.StateSucceeded, e.Attempt)
		m.Finished[e.Stage+"/"+e.Action] = true

	case provisioning.EventActionSkipped:
		m.setAction(si, e.Action, provisioning.StateSkipped, 0)
		m.Finished[e.Stage+"/"+e.Action] = true

	case provisioning.EventActionFailed:
		if e.Fields["phase"] != "compensation" {
			m.setAction(si, e.Action, provisioning.StateFailed, e.Attempt)
		}
		if si >= 0 {
			m.Stages[si].Failed = true
		}
		m.addError(e)

	case provisioning.EventCompensated:
		m.setAction(si, e.Action, provisioning.StateCompensated, 0)
		delete(m.Finished, e.Stage+"/"+e.Action)

	case provisioning.EventRunAborted, provisioning.EventRunHalted:
		for i := range m.Stages {
			m.Stages[i].Active = false
		}
		m.addError(e)
	}
}

func (m *Model) setAction(si int, id string, state provisioning.ActionState, attempt int) {
	if si < 0 {
		return
	}
	for i := range m.Stages[si].Actions {
		a := &m.Stages[si].Actions[i]
		if a.ID == id {
			a.State = state
			if attempt > 0 {
				a.Attempt = attempt
			}
			return
		}
	}
}

func (m *Model) addError(e provisioning.Event) {
	if e.Message == "" {
		return
	}
	where := e.Stage
	if e.Action != "" {
		where += "/" + e.Action
	}
	if where != "" {
		where = "[" + where + "] "
	}
	m.Errors = append(m.Errors, where+e.Message)
}

func (m *Model) stageIndex(name string) int {
	for i, s := range m.Stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) activeStage() (StageRow, bool) {
	for _, s := range m.Stages {
		if s.Active {
			return s, true
		}
	}
	return StageRow{}, false
}

func (m *Model) updateETA() {
	current, ok := m.activeStage()
	if !ok || m.Done {
		m.EstimatedRemaining = 0
		return
	}

	order := make([]string, len(m.Stages))
	for i, s := range m.Stages {
		order[i] = s.Name
	}
	elapsed := m.clock().Sub(current.StartedAt)

	m.PerformanceScale = benchmarks.PerformanceScale(current.Name, elapsed, m.History)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(order, current.Name, elapsed, m.History, m.PerformanceScale)
}

func (m *Model) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
