package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ecoloquiz-service/internal/domain"
)

// CatalogLoader fetches quiz content from a backing store (e.g. Postgres).
type CatalogLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	LoadQuizzesByTheme(ctx context.Context, themeID string) ([]domain.Quiz, error)
	LoadTheme(ctx context.Context, themeID string) (domain.Theme, error)
	LoadThemes(ctx context.Context) ([]domain.Theme, error)
	LoadLevels(ctx context.Context) ([]domain.Level, error)
}

// Catalog caches quiz content with TTL to avoid repeated store hits. Quiz
// bodies are the hot path (read on every answer) and go through
// singleflight; theme and level lists are small and cached wholesale.
type Catalog struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	quizzes map[string]cachedQuiz
	themes  cachedThemes
	levels  cachedLevels
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

type cachedThemes struct {
	themes    []domain.Theme
	expiresAt time.Time
}

type cachedLevels struct {
	levels    []domain.Level
	expiresAt time.Time
}

func NewCatalog(loader CatalogLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		quizzes: make(map[string]cachedQuiz),
	}
}

func (c *Catalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.quizzes[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.quizzes[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.quizzes[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
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
	themes, err := c.ListThemes(ctx)
	if err != nil {
		return domain.Theme{}, err
	}
	for _, theme := range themes {
		if theme.ID == themeID {
			return theme, nil
		}
	}
	return domain.Theme{}, domain.ErrThemeNotFound
}

func (c *Catalog) ListThemes(ctx context.Context) ([]domain.Theme, error) {
	now := c.clock()
	c.mu.RLock()
	if c.themes.themes != nil && c.themes.expiresAt.After(now) {
		themes := c.themes.themes
		c.mu.RUnlock()
		return themes, nil
	}
	c.mu.RUnlock()

	themes, err := c.loader.LoadThemes(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.themes = cachedThemes{themes: themes, expiresAt: now.Add(c.ttlWithJitter())}
	c.mu.Unlock()
	return themes, nil
}

func (c *Catalog) ListLevels(ctx context.Context) ([]domain.Level, error) {
	now := c.clock()
	c.mu.RLock()
	if c.levels.levels != nil && c.levels.expiresAt.After(now) {
		levels := c.levels.levels
		c.mu.RUnlock()
		return levels, nil
	}
	c.mu.RUnlock()

	levels, err := c.loader.LoadLevels(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.levels = cachedLevels{levels: levels, expiresAt: now.Add(c.ttlWithJitter())}
	c.mu.Unlock()
	return levels, nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader is a loader backed by in-memory maps, used for demo
// mode and tests.
type StaticCatalogLoader struct {
	themes  []domain.Theme
	levels  []domain.Level
	quizzes map[string]domain.Quiz
}

func NewStaticCatalogLoader(themes []domain.Theme, levels []domain.Level, quizzes map[string]domain.Quiz) *StaticCatalogLoader {
	return &StaticCatalogLoader{themes: themes, levels: levels, quizzes: quizzes}
}

func (l *StaticCatalogLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (l *StaticCatalogLoader) LoadQuizzesByTheme(_ context.Context, themeID string) ([]domain.Quiz, error) {
	var out []domain.Quiz
	for _, quiz := range l.quizzes {
		if quiz.ThemeID == themeID {
			out = append(out, quiz)
		}
	}
	sortQuizzes(out)
	return out, nil
}

func (l *StaticCatalogLoader) LoadTheme(_ context.Context, themeID string) (domain.Theme, error) {
	for _, theme := range l.themes {
		if theme.ID == themeID {
			return theme, nil
		}
	}
	return domain.Theme{}, domain.ErrThemeNotFound
}

func (l *StaticCatalogLoader) LoadThemes(_ context.Context) ([]domain.Theme, error) {
	return l.themes, nil
}

func (l *StaticCatalogLoader) LoadLevels(_ context.Context) ([]domain.Level, error) {
	return l.levels, nil
}

func sortQuizzes(quizzes []domain.Quiz) {
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].Position < quizzes[j].Position })
}
