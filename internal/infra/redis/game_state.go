package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// GameStateStore keeps the player's resumable theme in Redis with a TTL,
// so an abandoned game stops being offered after a while.
type GameStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGameStateStore(client *redis.Client, ttl time.Duration) *GameStateStore {
	return &GameStateStore{client: client, ttl: ttl}
}

func (s *GameStateStore) SetCurrentTheme(ctx context.Context, playerID, themeID string) error {
	return s.client.Set(ctx, s.key(playerID), themeID, s.ttl).Err()
}

func (s *GameStateStore) CurrentTheme(ctx context.Context, playerID string) (string, bool, error) {
	themeID, err := s.client.Get(ctx, s.key(playerID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return themeID, true, nil
}

func (s *GameStateStore) ClearCurrentTheme(ctx context.Context, playerID string) error {
	return s.client.Del(ctx, s.key(playerID)).Err()
}

func (s *GameStateStore) key(playerID string) string {
	return "player:current-game:" + playerID
}
