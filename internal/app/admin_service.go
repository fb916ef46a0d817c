package app

import "context"

// PlatformStats is the backoffice counters snapshot.
type PlatformStats struct {
	Players     int `json:"players"`
	Answers     int `json:"answers"`
	Allocations int `json:"allocations"`
}

// GiftInventoryEntry exposes gift stock counters to the backoffice.
type GiftInventoryEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Company        string `json:"company"`
	TotalQuantity  int    `json:"total_quantity"`
	WonCount       int    `json:"won_count"`
	RemainingCount int    `json:"remaining_count"`
}

// AdminService serves the read-side the backoffice needs: gift inventory
// and platform statistics.
type AdminService struct {
	players  PlayerRepository
	progress ProgressRepository
	gifts    GiftRepository
}

func NewAdminService(players PlayerRepository, progress ProgressRepository, gifts GiftRepository) *AdminService {
	return &AdminService{players: players, progress: progress, gifts: gifts}
}

func (s *AdminService) Stats(ctx context.Context) (PlatformStats, error) {
	players, err := s.players.CountPlayers(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	answers, err := s.progress.CountAnswers(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	allocations, err := s.gifts.CountAllocations(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	return PlatformStats{Players: players, Answers: answers, Allocations: allocations}, nil
}

func (s *AdminService) GiftInventory(ctx context.Context) ([]GiftInventoryEntry, error) {
	gifts, err := s.gifts.ListGifts(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]GiftInventoryEntry, 0, len(gifts))
	for _, g := range gifts {
		entries = append(entries, GiftInventoryEntry{
			ID:             g.ID,
			Name:           g.Name,
			Company:        g.Company,
			TotalQuantity:  g.TotalQuantity,
			WonCount:       g.WonCount,
			RemainingCount: g.RemainingCount,
		})
	}
	return entries, nil
}
