package deploy

import (
	"context"
	"sync"
)

// State holds the revision pointers of one environment.
type State struct {
	Current  string
	Previous string
	// Inconsistent is set when a rollback failed and the working tree may be anywhere
	// between Previous and Current.
	Inconsistent bool
}

// HasPrevious reports whether a rollback target is recorded.
func (s State) HasPrevious() bool {
	return s.Previous != ""
}

// StateStore persists State per environment. Load reports found=false for an environment
// that has never been deployed.
type StateStore interface {
	Load(ctx context.Context, env string) (state State, found bool, err error)
	Save(ctx context.Context, env string, state State) error
}

// MemoryStore is a process-local StateStore.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Load(_ context.Context, env string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[env]
	return state, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, env string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[env] = state
	return nil
}
