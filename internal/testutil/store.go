package testutil

import (
	"sync"

	"github.com/imamik/archer/internal/provisioning"
)

// MemoryStore is a checkpoint store that keeps every save in memory.
type MemoryStore struct {
	mu      sync.Mutex
	current *provisioning.Checkpoint
	saves   []provisioning.Checkpoint

	LoadErr error
	SaveErr error
}

// NewMemoryStore returns an empty store, or one holding cp.
func NewMemoryStore(cp *provisioning.Checkpoint) *MemoryStore {
	s := &MemoryStore{}
	if cp != nil {
		c := *cp
		s.current = &c
	}
	return s
}

// Load returns the last saved checkpoint, or nil.
func (s *MemoryStore) Load() (*provisioning.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.current == nil {
		return nil, nil
	}
	c := *s.current
	return &c, nil
}

// Save records cp.
func (s *MemoryStore) Save(cp provisioning.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.current = &cp
	s.saves = append(s.saves, cp)
	return nil
}

// Clear forgets the current checkpoint.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return nil
}

// Location implements the store interface.
func (s *MemoryStore) Location() string {
	return "memory://checkpoint"
}

// Saves returns every checkpoint saved so far.
func (s *MemoryStore) Saves() []provisioning.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provisioning.Checkpoint(nil), s.saves...)
}

// StageIDs returns the action IDs of the named stage in execution order.
func StageIDs(p *provisioning.Plan, stage string) []string {
	for _, s := range p.Stages {
		if s.Name != stage {
			continue
		}
		ids := make([]string, len(s.Actions))
		for i, a := range s.Actions {
			ids[i] = a.ID
		}
		return ids
	}
	return nil
}

// PlanKeys returns every action key of p in execution order.
func PlanKeys(p *provisioning.Plan) []string {
	var keys []string
	for _, s := range p.Stages {
		for _, a := range s.Actions {
			keys = append(keys, a.Key())
		}
	}
	return keys
}
