package provisioning

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured events while a plan runs. Implementations must
// be safe for concurrent use; parallel groups emit from several goroutines.
type Observer interface {
	Event(event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Event implements Observer.
func (f ObserverFunc) Event(e Event) { f(e) }

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Stage     string            // Stage name (e.g., "partition", "users")
	Action    string            // Action ID if applicable
	Message   string            // Human-readable message
	Attempt   int               // 1-based attempt number for action events
	Duration  time.Duration     // Elapsed time for completion events
	Index     int               // 1-based action number in the plan
	Total     int               // Number of actions in the plan
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunAborted   EventType = "run.aborted"
	EventRunHalted    EventType = "run.halted"

	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"

	EventActionStarted   EventType = "action.started"
	EventActionSucceeded EventType = "action.succeeded"
	EventActionFailed    EventType = "action.failed"
	EventActionRetrying  EventType = "action.retrying"
	EventActionSkipped   EventType = "action.skipped"

	EventCompensating EventType = "action.compensating"
	EventCompensated  EventType = "action.compensated"

	EventCheckpointSaved EventType = "checkpoint.saved"
)

// Failed reports whether the event signals a failure.
func (t EventType) Failed() bool {
	switch t {
	case EventActionFailed, EventRunAborted, EventRunHalted:
		return true
	}
	return false
}

// String formats the event as a single console line.
func (e Event) String() string {
	var parts []string

	parts = append(parts, string(e.Type))

	switch {
	case e.Stage != "" && e.Action != "":
		parts = append(parts, fmt.Sprintf("[%s/%s]", e.Stage, e.Action))
	case e.Stage != "":
		parts = append(parts, fmt.Sprintf("[%s]", e.Stage))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Duration > 0 {
		parts = append(parts, fmt.Sprintf("in %v", e.Duration.Round(time.Millisecond)))
	}

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, e.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// LogObserver writes events to a logr.Logger. Failures are logged as errors,
// per-action progress at V(1).
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver returns an Observer backed by log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Event implements Observer.
func (o *LogObserver) Event(e Event) {
	kv := []any{"event", string(e.Type)}
	if e.Stage != "" {
		kv = append(kv, "stage", e.Stage)
	}
	if e.Action != "" {
		kv = append(kv, "action", e.Action)
	}
	if e.Attempt > 0 {
		kv = append(kv, "attempt", e.Attempt)
	}
	if e.Duration > 0 {
		kv = append(kv, "duration", e.Duration.Round(time.Millisecond).String())
	}
	if e.Total > 0 {
		kv = append(kv, "progress", fmt.Sprintf("%d/%d", e.Index, e.Total))
	}
	for k, v := range e.Fields {
		kv = append(kv, k, v)
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}

	switch e.Type {
	case EventActionFailed, EventRunAborted, EventRunHalted:
		o.log.Error(nil, msg, kv...)
	case EventActionStarted, EventActionSucceeded, EventCheckpointSaved:
		o.log.V(1).Info(msg, kv...)
	default:
		o.log.Info(msg, kv...)
	}
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

// Event implements Observer.
func (m MultiObserver) Event(e Event) {
	for _, o := range m {
		if o != nil {
			o.Event(e)
		}
	}
}

// RecordingObserver keeps every event. It is safe for concurrent use.
type RecordingObserver struct {
	mu     sync.Mutex
	events []Event
}

// Event implements Observer.
func (r *RecordingObserver) Event(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *RecordingObserver) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *RecordingObserver) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
