package provisioning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Stage is a named, ordered list of actions.
type Stage struct {
	Name        string
	Description string
	Actions     []Action
}

// Batch is a run of consecutive actions executed together. A batch with an
// empty Group holds exactly one action.
type Batch struct {
	Group string
	Start int
	End   int // exclusive
}

// Batches splits the stage into execution units. Maximal runs of consecutive
// actions with the same non-empty ParallelGroup form one batch.
func (s Stage) Batches() []Batch {
	var batches []Batch
	for i := 0; i < len(s.Actions); {
		g := s.Actions[i].ParallelGroup
		j := i + 1
		if g != "" {
			for j < len(s.Actions) && s.Actions[j].ParallelGroup == g {
				j++
			}
		}
		batches = append(batches, Batch{Group: g, Start: i, End: j})
		i = j
	}
	return batches
}

// Position addresses an action within a Plan. Action -1 means "before the
// first action of Stage".
type Position struct {
	Stage  int `json:"stage"`
	Action int `json:"action"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.Stage, p.Action)
}

// Plan is the ordered list of stages for one install.
type Plan struct {
	Stages []Stage
}

// Start returns the position of the first action.
func (p *Plan) Start() (Position, bool) {
	return p.Next(Position{Stage: 0, Action: -1})
}

// Next returns the position following pos, skipping empty stages. ok is
// false when pos is at or past the last action.
func (p *Plan) Next(pos Position) (Position, bool) {
	si, ai := pos.Stage, pos.Action+1
	for si >= 0 && si < len(p.Stages) {
		if ai < len(p.Stages[si].Actions) {
			return Position{Stage: si, Action: ai}, true
		}
		si, ai = si+1, 0
	}
	return Position{}, false
}

// Action returns the action at pos.
func (p *Plan) Action(pos Position) (Action, bool) {
	if pos.Stage < 0 || pos.Stage >= len(p.Stages) {
		return Action{}, false
	}
	actions := p.Stages[pos.Stage].Actions
	if pos.Action < 0 || pos.Action >= len(actions) {
		return Action{}, false
	}
	return actions[pos.Action], true
}

// Len returns the number of actions in the plan.
func (p *Plan) Len() int {
	n := 0
	for _, s := range p.Stages {
		n += len(s.Actions)
	}
	return n
}

// StageNames returns stage names in order.
func (p *Plan) StageNames() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name
	}
	return names
}

// Digest fingerprints the plan's structure and commands. Sensitive stdin is
// excluded, so the digest is safe to persist.
func (p *Plan) Digest() string {
	h := sha256.New()
	for _, s := range p.Stages {
		fmt.Fprintf(h, "stage %s\n", s.Name)
		for _, a := range s.Actions {
			fmt.Fprintf(h, "action %s group=%q idempotent=%t\n", a.ID, a.ParallelGroup, a.Idempotent)
			for _, c := range a.Commands {
				fmt.Fprintf(h, "  run %s\n", c.String())
			}
			for _, c := range a.Compensation {
				fmt.Fprintf(h, "  undo %s\n", c.String())
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Filter returns a plan restricted to the named stages, in plan order.
func (p *Plan) Filter(names []string) (*Plan, error) {
	if len(names) == 0 {
		return p, nil
	}
	known := p.StageNames()
	for _, n := range names {
		if !slices.Contains(known, n) {
			return nil, fmt.Errorf("unknown stage %q (stages: %s)", n, strings.Join(known, ", "))
		}
	}
	out := &Plan{}
	for _, s := range p.Stages {
		if slices.Contains(names, s.Name) {
			out.Stages = append(out.Stages, s)
		}
	}
	return out, nil
}

// Validate checks structural invariants of the plan.
func (p *Plan) Validate() error {
	seen := make(map[string]bool)
	stages := make(map[string]bool)
	for _, s := range p.Stages {
		if s.Name == "" {
			return fmt.Errorf("stage without a name")
		}
		if stages[s.Name] {
			return fmt.Errorf("duplicate stage %q", s.Name)
		}
		stages[s.Name] = true

		for i, a := range s.Actions {
			if a.ID == "" {
				return fmt.Errorf("stage %s: action %d has no id", s.Name, i)
			}
			if a.Stage != s.Name {
				return fmt.Errorf("action %s belongs to stage %q but is listed in %q", a.ID, a.Stage, s.Name)
			}
			if a.Ordinal != i {
				return fmt.Errorf("action %s has ordinal %d at index %d", a.Key(), a.Ordinal, i)
			}
			if len(a.Commands) == 0 {
				return fmt.Errorf("action %s has no commands", a.Key())
			}
			if seen[a.Key()] {
				return fmt.Errorf("duplicate action %s", a.Key())
			}
			seen[a.Key()] = true
		}
	}
	return nil
}
