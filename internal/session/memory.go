package session

import (
	"context"
	"sync"
	"time"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// MemoryStore keeps sessions in process memory. State lives as long as the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionState
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.SessionState),
		now:      time.Now,
	}
}

// GetOrCreate implements Store
func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID string, initial models.Document) (*models.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	state, ok := s.sessions[sessionID]
	if !ok {
		state = models.NewSessionState(sessionID, initial, now)
		s.sessions[sessionID] = state
	} else {
		state.LastActiveAt = now
	}
	return state.Clone(), nil
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*models.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Put implements Store
func (s *MemoryStore) Put(ctx context.Context, state *models.SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := state.Clone()
	stored.LastActiveAt = s.now()

	s.mu.Lock()
	s.sessions[state.SessionID] = stored
	s.mu.Unlock()
	return nil
}

// Evict implements Store
func (s *MemoryStore) Evict(ctx context.Context, idleBefore time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, state := range s.sessions {
		if state.LastActiveAt.Before(idleBefore) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted, nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
