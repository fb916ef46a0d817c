package memory

import (
	"context"
	"sort"
	"sync"

	"ecoloquiz-service/internal/domain"
)

// PlayerRepository is an in-memory implementation of app.PlayerRepository.
// All point and watermark updates happen under one lock, giving the same
// atomicity the Postgres implementation gets from guarded UPDATEs.
type PlayerRepository struct {
	mu      sync.RWMutex
	players map[string]*domain.Player
	byUser  map[string]string
}

func NewPlayerRepository() *PlayerRepository {
	return &PlayerRepository{
		players: make(map[string]*domain.Player),
		byUser:  make(map[string]string),
	}
}

func (r *PlayerRepository) GetPlayer(_ context.Context, playerID string) (domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[playerID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return *p, nil
}

func (r *PlayerRepository) GetPlayerByUser(_ context.Context, userID string) (domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[userID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return *r.players[id], nil
}

func (r *PlayerRepository) CreatePlayer(_ context.Context, p domain.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := p
	r.players[p.ID] = &cp
	if p.UserID != "" {
		r.byUser[p.UserID] = p.ID
	}
	return nil
}

func (r *PlayerRepository) AddPoints(_ context.Context, playerID string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return 0, domain.ErrPlayerNotFound
	}
	p.Points += delta
	return p.Points, nil
}

func (r *PlayerRepository) ClaimMilestone(_ context.Context, playerID string, milestone int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return false, domain.ErrPlayerNotFound
	}
	if p.LastMilestone >= milestone {
		return false, nil
	}
	p.LastMilestone = milestone
	return true, nil
}

func (r *PlayerRepository) TopPlayers(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]domain.LeaderboardEntry, 0, len(r.players))
	for _, p := range r.players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Points:      p.Points,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *PlayerRepository) CountPlayers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players), nil
}
