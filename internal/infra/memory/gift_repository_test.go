package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ecoloquiz-service/internal/domain"
)

func TestGiftAllocateDecrementsStock(t *testing.T) {
	ctx := context.Background()
	repo := NewGiftRepository(domain.Gift{ID: "g1", TotalQuantity: 2, RemainingCount: 2})

	err := repo.Allocate(ctx, domain.Allocation{ID: "a1", PlayerID: "p1", GiftID: "g1", Milestone: 100})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	gifts, err := repo.ListGifts(ctx)
	if err != nil {
		t.Fatalf("ListGifts: %v", err)
	}
	if gifts[0].RemainingCount != 1 || gifts[0].WonCount != 1 {
		t.Fatalf("expected remaining=1 won=1, got remaining=%d won=%d", gifts[0].RemainingCount, gifts[0].WonCount)
	}
}

func TestGiftAllocateExhausted(t *testing.T) {
	ctx := context.Background()
	repo := NewGiftRepository(domain.Gift{ID: "g1", TotalQuantity: 1, RemainingCount: 0, WonCount: 1})

	err := repo.Allocate(ctx, domain.Allocation{ID: "a1", PlayerID: "p1", GiftID: "g1", Milestone: 100})
	if err != domain.ErrGiftExhausted {
		t.Fatalf("expected ErrGiftExhausted, got %v", err)
	}
}

func TestGiftAllocateMilestoneUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewGiftRepository(domain.Gift{ID: "g1", TotalQuantity: 5, RemainingCount: 5})

	if err := repo.Allocate(ctx, domain.Allocation{ID: "a1", PlayerID: "p1", GiftID: "g1", Milestone: 100}); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	err := repo.Allocate(ctx, domain.Allocation{ID: "a2", PlayerID: "p1", GiftID: "g1", Milestone: 100})
	if err != domain.ErrMilestoneAlreadyClaimed {
		t.Fatalf("expected ErrMilestoneAlreadyClaimed, got %v", err)
	}
	// a different milestone for the same player is fine
	if err := repo.Allocate(ctx, domain.Allocation{ID: "a3", PlayerID: "p1", GiftID: "g1", Milestone: 200}); err != nil {
		t.Fatalf("second milestone Allocate: %v", err)
	}
}

func TestGiftStockNeverOversold(t *testing.T) {
	ctx := context.Background()
	const stock = 3
	const contenders = 20
	repo := NewGiftRepository(domain.Gift{ID: "g1", TotalQuantity: stock, RemainingCount: stock})

	var wg sync.WaitGroup
	wg.Add(contenders)
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Allocate(ctx, domain.Allocation{
				ID:       fmt.Sprintf("a%d", i),
				PlayerID: fmt.Sprintf("p%d", i),
				GiftID:   "g1",
				Milestone: 100,
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch err {
		case nil:
			won++
		case domain.ErrGiftExhausted:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != stock {
		t.Fatalf("expected %d winners, got %d", stock, won)
	}

	gifts, _ := repo.ListGifts(ctx)
	g := gifts[0]
	if g.RemainingCount != 0 {
		t.Fatalf("expected remaining=0, got %d", g.RemainingCount)
	}
	if g.RemainingCount+g.WonCount != g.TotalQuantity {
		t.Fatalf("stock invariant broken: remaining=%d won=%d total=%d", g.RemainingCount, g.WonCount, g.TotalQuantity)
	}
}

func TestListEligibleFilters(t *testing.T) {
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	repo := NewGiftRepository(
		domain.Gift{ID: "g-open", TotalQuantity: 1, RemainingCount: 1},
		domain.Gift{ID: "g-zone", TotalQuantity: 1, RemainingCount: 1, Zone: "nord"},
		domain.Gift{ID: "g-expired", TotalQuantity: 1, RemainingCount: 1, ValidUntil: &past},
	)

	eligible, err := repo.ListEligible(ctx, time.Now(), "sud", "lvl-1")
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "g-open" {
		t.Fatalf("expected only g-open, got %v", eligible)
	}
}
