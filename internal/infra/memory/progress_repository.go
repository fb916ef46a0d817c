package memory

import (
	"context"
	"sync"

	"ecoloquiz-service/internal/domain"
)

// ProgressRepository is an in-memory implementation of
// app.ProgressRepository. The (player, question) key map is the analogue
// of the unique index the Postgres implementation relies on.
type ProgressRepository struct {
	mu     sync.RWMutex
	events []domain.AnswerEvent
	byKey  map[string]int // playerID+"/"+questionID -> index into events
}

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{byKey: make(map[string]int)}
}

func (r *ProgressRepository) RecordAnswer(_ context.Context, ev domain.AnswerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ev.PlayerID + "/" + ev.QuestionID
	if _, ok := r.byKey[key]; ok {
		return domain.ErrAlreadyAnswered
	}
	r.byKey[key] = len(r.events)
	r.events = append(r.events, ev)
	return nil
}

func (r *ProgressRepository) History(_ context.Context, playerID, quizID string) (map[string]domain.AnswerStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.AnswerStatus)
	for _, ev := range r.events {
		if ev.PlayerID == playerID && ev.QuizID == quizID {
			out[ev.QuestionID] = ev.Status
		}
	}
	return out, nil
}

func (r *ProgressRepository) VisitedCounts(_ context.Context, playerID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, ev := range r.events {
		if ev.PlayerID == playerID {
			out[ev.QuizID]++
		}
	}
	return out, nil
}

func (r *ProgressRepository) CountAnswers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events), nil
}
