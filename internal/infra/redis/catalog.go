package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ecoloquiz-service/internal/domain"
	"ecoloquiz-service/internal/infra/memory"
)

// Catalog caches quiz content in Redis and falls back to a loader on
// cache miss. Quiz bodies are stored as JSON:
//
//	SET quiz:{quizID}:content {json} EX ttl
//
// Theme and level lists are small and always served from the loader.
type Catalog struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalog(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := c.quizKey(quizID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err == nil {
			return quiz, nil
		}
		// corrupt entry: drop it and reload
		_ = c.client.Del(ctx, key).Err()
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var quiz domain.Quiz
			if err := json.Unmarshal(raw, &quiz); err == nil {
				return quiz, nil
			}
		}

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		if raw, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *Catalog) QuizzesByTheme(ctx context.Context, themeID string) ([]domain.Quiz, error) {
	return c.loader.LoadQuizzesByTheme(ctx, themeID)
}

func (c *Catalog) GetTheme(ctx context.Context, themeID string) (domain.Theme, error) {
	return c.loader.LoadTheme(ctx, themeID)
}

func (c *Catalog) ListThemes(ctx context.Context) ([]domain.Theme, error) {
	return c.loader.LoadThemes(ctx)
}

func (c *Catalog) ListLevels(ctx context.Context) ([]domain.Level, error) {
	return c.loader.LoadLevels(ctx)
}

func (c *Catalog) quizKey(quizID string) string {
	return "quiz:" + quizID + ":content"
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
