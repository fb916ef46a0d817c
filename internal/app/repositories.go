package app

import (
	"context"
	"time"

	"ecoloquiz-service/internal/domain"
)

// CatalogRepository loads quiz content (from cache/backing store).
type CatalogRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// QuizzesByTheme returns the theme's quizzes ordered by position.
	QuizzesByTheme(ctx context.Context, themeID string) ([]domain.Quiz, error)
	GetTheme(ctx context.Context, themeID string) (domain.Theme, error)
	ListThemes(ctx context.Context) ([]domain.Theme, error)
	// ListLevels returns levels ordered by rank.
	ListLevels(ctx context.Context) ([]domain.Level, error)
}

// PlayerRepository stores per-player game state. Point and watermark
// updates must be atomic: concurrent submissions on the same player must
// not lose deltas or double-claim a milestone.
type PlayerRepository interface {
	GetPlayer(ctx context.Context, playerID string) (domain.Player, error)
	GetPlayerByUser(ctx context.Context, userID string) (domain.Player, error)
	CreatePlayer(ctx context.Context, p domain.Player) error
	// AddPoints applies delta in a single atomic update and returns the
	// resulting total.
	AddPoints(ctx context.Context, playerID string, delta int) (int, error)
	// ClaimMilestone raises the player's watermark to milestone if it is
	// still below it. Returns false when another request already claimed
	// it; exactly one caller observes true per (player, milestone).
	ClaimMilestone(ctx context.Context, playerID string, milestone int) (bool, error)
	TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	CountPlayers(ctx context.Context) (int, error)
}

// ProgressRepository records a player's answer history. One event per
// (player, question); duplicates return domain.ErrAlreadyAnswered.
type ProgressRepository interface {
	RecordAnswer(ctx context.Context, ev domain.AnswerEvent) error
	// History maps question id to answer status for one quiz.
	History(ctx context.Context, playerID, quizID string) (map[string]domain.AnswerStatus, error)
	// VisitedCounts maps quiz id to the number of visited questions.
	VisitedCounts(ctx context.Context, playerID string) (map[string]int, error)
	CountAnswers(ctx context.Context) (int, error)
}

// GiftRepository stores gift stock and allocations. Allocate performs the
// stock decrement and the allocation insert in one atomic step so a gift
// can never be oversold under concurrent claims.
type GiftRepository interface {
	// ListEligible returns gifts drawable now for the given zone/level.
	ListEligible(ctx context.Context, now time.Time, zone, levelID string) ([]domain.Gift, error)
	// Allocate decrements the gift's remaining stock and records the
	// allocation. Returns domain.ErrGiftExhausted when stock ran out.
	Allocate(ctx context.Context, alloc domain.Allocation) error
	ListGifts(ctx context.Context) ([]domain.Gift, error)
	CountAllocations(ctx context.Context) (int, error)
}

// UserRepository stores authentication principals.
type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// GameStateStore remembers which theme a player is currently playing so
// the client can offer to resume. Entries may expire.
type GameStateStore interface {
	SetCurrentTheme(ctx context.Context, playerID, themeID string) error
	CurrentTheme(ctx context.Context, playerID string) (string, bool, error)
	ClearCurrentTheme(ctx context.Context, playerID string) error
}
