package memory

import (
	"context"
	"sync"
	"time"

	"ecoloquiz-service/internal/domain"
)

// GiftRepository is an in-memory implementation of app.GiftRepository.
// Allocate performs the stock check, decrement and allocation insert
// under one lock, mirroring the transactional guarantee of the Postgres
// implementation.
type GiftRepository struct {
	mu          sync.RWMutex
	gifts       map[string]*domain.Gift
	allocations []domain.Allocation
}

func NewGiftRepository(gifts ...domain.Gift) *GiftRepository {
	r := &GiftRepository{gifts: make(map[string]*domain.Gift)}
	for _, g := range gifts {
		cp := g
		r.gifts[g.ID] = &cp
	}
	return r
}

func (r *GiftRepository) AddGift(g domain.Gift) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := g
	r.gifts[g.ID] = &cp
}

func (r *GiftRepository) ListEligible(_ context.Context, now time.Time, zone, levelID string) ([]domain.Gift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Gift
	for _, g := range r.gifts {
		if g.EligibleFor(now, zone, levelID) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *GiftRepository) Allocate(_ context.Context, alloc domain.Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.allocations {
		if a.PlayerID == alloc.PlayerID && a.Milestone == alloc.Milestone {
			return domain.ErrMilestoneAlreadyClaimed
		}
	}
	g, ok := r.gifts[alloc.GiftID]
	if !ok {
		return domain.ErrGiftNotFound
	}
	if g.RemainingCount <= 0 {
		return domain.ErrGiftExhausted
	}
	g.RemainingCount--
	g.WonCount++
	r.allocations = append(r.allocations, alloc)
	return nil
}

func (r *GiftRepository) ListGifts(_ context.Context) ([]domain.Gift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Gift, 0, len(r.gifts))
	for _, g := range r.gifts {
		out = append(out, *g)
	}
	return out, nil
}

func (r *GiftRepository) CountAllocations(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.allocations), nil
}

// Allocations returns a copy of all allocation rows, used by tests to
// assert exactly-once awards.
func (r *GiftRepository) Allocations() []domain.Allocation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Allocation, len(r.allocations))
	copy(out, r.allocations)
	return out
}
