package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ecoloquiz-service/internal/domain"
	"ecoloquiz-service/internal/metrics"
)

// DrawStrategy picks one gift among the eligible candidates. The draw
// policy is configurable; the default is a uniform random pick.
type DrawStrategy interface {
	Pick(candidates []domain.Gift) int
}

// UniformDraw selects uniformly at random.
type UniformDraw struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewUniformDraw(seed int64) *UniformDraw {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &UniformDraw{rnd: rand.New(rand.NewSource(seed))}
}

func (d *UniformDraw) Pick(candidates []domain.Gift) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rnd.Intn(len(candidates))
}

// GiftAllocator runs the milestone gift draw. Allocation is best effort:
// when no eligible gift exists (or every candidate sells out under race)
// the milestone stays recorded and the player simply wins nothing.
type GiftAllocator struct {
	gifts GiftRepository
	draw  DrawStrategy
	clock func() time.Time
	log   *logrus.Logger
}

func NewGiftAllocator(gifts GiftRepository, draw DrawStrategy, log *logrus.Logger) *GiftAllocator {
	if draw == nil {
		draw = NewUniformDraw(0)
	}
	return &GiftAllocator{gifts: gifts, draw: draw, clock: time.Now, log: log}
}

// Allocate draws a gift for the player at the crossed milestone. A nil
// result with nil error means no gift was granted.
func (a *GiftAllocator) Allocate(ctx context.Context, player domain.Player, milestone int) (*domain.GiftWin, error) {
	now := a.clock()
	candidates, err := a.gifts.ListEligible(ctx, now, player.Zone, player.LevelID)
	if err != nil {
		return nil, err
	}

	// Losing the stock race against another player just removes the
	// candidate and redraws; exhaustion of all candidates is a silent
	// no-win, never an error to the caller.
	for len(candidates) > 0 {
		i := a.draw.Pick(candidates)
		gift := candidates[i]

		alloc := domain.Allocation{
			ID:          uuid.NewString(),
			PlayerID:    player.ID,
			GiftID:      gift.ID,
			Milestone:   milestone,
			Status:      domain.AllocationPending,
			AllocatedAt: now,
		}
		err := a.gifts.Allocate(ctx, alloc)
		if errors.Is(err, domain.ErrGiftExhausted) {
			candidates = append(candidates[:i], candidates[i+1:]...)
			continue
		}
		if err != nil {
			return nil, err
		}

		metrics.GiftsAllocated.Inc()
		a.log.WithFields(logrus.Fields{
			"player":    player.ID,
			"gift":      gift.ID,
			"milestone": milestone,
		}).Info("gift allocated")
		return &domain.GiftWin{
			AllocationID: alloc.ID,
			GiftID:       gift.ID,
			Name:         gift.Name,
			Company:      gift.Company,
			Description:  gift.Description,
			Milestone:    milestone,
		}, nil
	}

	metrics.GiftDrawsEmpty.Inc()
	return nil, nil
}
