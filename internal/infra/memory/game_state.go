package memory

import (
	"context"
	"sync"
)

// GameStateStore is an in-memory implementation of app.GameStateStore.
type GameStateStore struct {
	mu      sync.RWMutex
	current map[string]string
}

func NewGameStateStore() *GameStateStore {
	return &GameStateStore{current: make(map[string]string)}
}

func (s *GameStateStore) SetCurrentTheme(_ context.Context, playerID, themeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[playerID] = themeID
	return nil
}

func (s *GameStateStore) CurrentTheme(_ context.Context, playerID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	themeID, ok := s.current[playerID]
	return themeID, ok, nil
}

func (s *GameStateStore) ClearCurrentTheme(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.current, playerID)
	return nil
}
