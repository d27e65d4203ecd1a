package flow

import "sync"

// Store keeps per-user conversation state in memory. Each state is keyed by
// user id and mutated only by that user's own turns, so a single mutex is
// enough. Get returns a copy: the engine works on the copy and writes it
// back only when an input is accepted, which keeps rejected inputs from
// leaking partial mutations.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

func (s *Store) Get(userID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	return st, ok
}

func (s *Store) Set(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.UserID = userID
	s.states[userID] = st
}

func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}
