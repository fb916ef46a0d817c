package app

import (
	"context"
	"sync"
	"time"

	"ecoloquiz-service/internal/domain"
)

// LeaderboardHub fans out top-player snapshots to websocket subscribers
// whenever a player's points change.
type LeaderboardHub struct {
	players PlayerRepository
	size    int
	now     func() time.Time

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub(players PlayerRepository, size int) *LeaderboardHub {
	if size <= 0 {
		size = 10
	}
	return &LeaderboardHub{
		players:     players,
		size:        size,
		now:         time.Now,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe returns a channel receiving leaderboard updates, primed with
// the current snapshot. The caller must invoke cancel to avoid leaks.
func (h *LeaderboardHub) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := h.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Leaderboard, 8)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	ch <- initial

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel, nil
}

// Publish broadcasts a fresh snapshot to all subscribers. Slow consumers
// have their stale update dropped rather than blocking the broadcast.
func (h *LeaderboardHub) Publish(ctx context.Context) {
	lb, err := h.snapshot(ctx)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (h *LeaderboardHub) snapshot(ctx context.Context) (domain.Leaderboard, error) {
	entries, err := h.players.TopPlayers(ctx, h.size)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: h.now()}, nil
}
