package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ecoloquiz-service/internal/domain"
	"ecoloquiz-service/internal/metrics"
)

// ValidationResult is the response shape of the validate-answer operation.
type ValidationResult struct {
	IsCorrect          bool            `json:"is_correct"`
	PointsEarned       int             `json:"points_earned"`
	CorrectAnswerIDs   []string        `json:"correct_answer_ids"`
	CorrectAnswerTexts []string        `json:"correct_answer_texts"`
	Explanation        string          `json:"explanation,omitempty"`
	NewTotalPoints     int             `json:"new_total_points"`
	IsMultipleAnswers  bool            `json:"is_multiple_answers"`
	WonGift            *domain.GiftWin `json:"won_gift,omitempty"`
}

// OptionView is an answer option stripped of its correctness flag.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the client-safe projection of a question.
type QuestionView struct {
	ID                string       `json:"id"`
	Text              string       `json:"text"`
	Type              domain.QuestionType `json:"type"`
	IsMultipleAnswers bool         `json:"is_multiple_answers"`
	Options           []OptionView `json:"options"`
}

// QuizProgress reports how far the player is in the served quiz.
type QuizProgress struct {
	Answered     int `json:"answered"`
	Total        int `json:"total"`
	QuizPosition int `json:"quiz_position"`
	QuizCount    int `json:"quiz_count"`
}

// QuizInfo identifies the quiz a question belongs to.
type QuizInfo struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// NextQuestionResult is the response of the next-question operation.
// Exactly one of Question, ThemeCompleted, NoQuestions is meaningful.
type NextQuestionResult struct {
	Question       *QuestionView  `json:"question,omitempty"`
	Quiz           *QuizInfo      `json:"quiz,omitempty"`
	Theme          *domain.Theme  `json:"theme,omitempty"`
	Level          *domain.Level  `json:"level,omitempty"`
	Progress       *QuizProgress  `json:"progress,omitempty"`
	ThemeCompleted bool           `json:"theme_completed,omitempty"`
	NoQuestions    bool           `json:"no_questions,omitempty"`
	OtherThemes    []domain.Theme `json:"other_themes,omitempty"`
}

// SubmitQuizResult is the response of the batch quiz submission.
type SubmitQuizResult struct {
	Score          int `json:"score"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
}

// CurrentGameResult reports a resumable game, if any.
type CurrentGameResult struct {
	HasGameInProgress bool   `json:"has_game_in_progress"`
	ThemeID           string `json:"theme_id,omitempty"`
	ThemeName         string `json:"theme_name,omitempty"`
}

// LevelProgress is one row of the progression screen.
type LevelProgress struct {
	Level      int    `json:"level"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	Stars      int    `json:"stars"`
}

// ProgressionResult is the response of the progression operation.
type ProgressionResult struct {
	QuizCompleted int             `json:"quizCompleted"`
	TotalPoints   int             `json:"totalPoints"`
	Levels        []LevelProgress `json:"levels"`
}

// PlayerService orchestrates the player-facing quiz use cases: serving
// questions, validating answers, scoring, milestone detection and the
// gift draw.
type PlayerService struct {
	catalog   CatalogRepository
	players   PlayerRepository
	progress  ProgressRepository
	games     GameStateStore
	allocator *GiftAllocator
	notifier  Notifier
	hub       *LeaderboardHub
	log       *logrus.Logger
	clock     func() time.Time
}

func NewPlayerService(
	catalog CatalogRepository,
	players PlayerRepository,
	progress ProgressRepository,
	games GameStateStore,
	allocator *GiftAllocator,
	notifier Notifier,
	hub *LeaderboardHub,
	log *logrus.Logger,
) *PlayerService {
	return &PlayerService{
		catalog:   catalog,
		players:   players,
		progress:  progress,
		games:     games,
		allocator: allocator,
		notifier:  notifier,
		hub:       hub,
		log:       log,
		clock:     time.Now,
	}
}

// ValidateAnswer scores one submission and applies its side effects:
// answer event, point update, milestone watermark, gift draw. The answer
// is recorded before points move so a duplicate submission is rejected
// without double-counting.
func (s *PlayerService) ValidateAnswer(ctx context.Context, playerID, quizID string, sub domain.AnswerSubmission) (ValidationResult, error) {
	player, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return ValidationResult{}, err
	}
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return ValidationResult{}, err
	}
	question, ok := findQuestion(quiz, sub.QuestionID)
	if !ok {
		return ValidationResult{}, domain.ErrQuestionNotFound
	}

	score, err := domain.Score(question, sub.OptionIDs)
	if err != nil {
		return ValidationResult{}, err
	}

	status := domain.AnswerWrong
	outcome := "wrong"
	if score.Correct {
		status = domain.AnswerCorrect
		outcome = "correct"
	}
	now := s.clock()
	if err := s.progress.RecordAnswer(ctx, domain.AnswerEvent{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		QuizID:     quizID,
		QuestionID: question.ID,
		Status:     status,
		OptionIDs:  sub.OptionIDs,
		Points:     score.Points,
		AnsweredAt: now,
	}); err != nil {
		return ValidationResult{}, err
	}

	newTotal, err := s.players.AddPoints(ctx, playerID, score.Points)
	if err != nil {
		return ValidationResult{}, err
	}
	metrics.AnswersValidated.WithLabelValues(outcome).Inc()

	result := ValidationResult{
		IsCorrect:          score.Correct,
		PointsEarned:       score.Points,
		CorrectAnswerIDs:   score.CorrectOptionIDs,
		CorrectAnswerTexts: score.CorrectOptionTexts,
		Explanation:        question.Explanation,
		NewTotalPoints:     newTotal,
		IsMultipleAnswers:  question.Type == domain.QuestionTypeQCM,
	}

	if m := domain.CrossedMilestone(newTotal-score.Points, newTotal); m > 0 {
		claimed, err := s.players.ClaimMilestone(ctx, playerID, m)
		if err != nil {
			return ValidationResult{}, err
		}
		if claimed {
			metrics.MilestonesCrossed.Inc()
			win, err := s.allocator.Allocate(ctx, player, m)
			if err != nil {
				// The milestone stays claimed; a failed draw must not
				// fail the whole submission.
				s.log.WithError(err).Warn("gift draw failed")
			} else if win != nil {
				result.WonGift = win
				if err := s.notifier.GiftWon(ctx, player.Email, *win); err != nil {
					s.log.WithError(err).Warn("gift won notification failed")
				}
			}
		}
	}

	s.trackGame(ctx, playerID, quiz)
	if s.hub != nil {
		s.hub.Publish(ctx)
	}
	return result, nil
}

// SkipQuestion advances the player's cursor past a question without
// scoring it. The skipped marker occupies the (player, question) slot so
// the question is never served again.
func (s *PlayerService) SkipQuestion(ctx context.Context, playerID, quizID, questionID string) error {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	question, ok := findQuestion(quiz, questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if err := s.progress.RecordAnswer(ctx, domain.AnswerEvent{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		QuizID:     quizID,
		QuestionID: question.ID,
		Status:     domain.AnswerSkipped,
		AnsweredAt: s.clock(),
	}); err != nil {
		return err
	}
	s.trackGame(ctx, playerID, quiz)
	return nil
}

// NextQuestion returns the next unanswered question of the player's most
// advanced incomplete quiz in the theme, a theme-completion signal, or a
// no-questions signal. It is read-only: fetching never advances progress.
func (s *PlayerService) NextQuestion(ctx context.Context, playerID, themeID string) (NextQuestionResult, error) {
	theme, err := s.catalog.GetTheme(ctx, themeID)
	if err != nil {
		return NextQuestionResult{}, err
	}
	quizzes, err := s.catalog.QuizzesByTheme(ctx, themeID)
	if err != nil {
		return NextQuestionResult{}, err
	}
	if len(quizzes) == 0 {
		others, err := s.otherThemes(ctx, themeID)
		if err != nil {
			return NextQuestionResult{}, err
		}
		return NextQuestionResult{NoQuestions: true, OtherThemes: others}, nil
	}

	type candidate struct {
		quiz    domain.Quiz
		pos     int
		history map[string]domain.AnswerStatus
		started bool
	}
	var first, advanced *candidate
	for i, quiz := range quizzes {
		history, err := s.progress.History(ctx, playerID, quiz.ID)
		if err != nil {
			return NextQuestionResult{}, err
		}
		if len(history) >= len(quiz.Questions) {
			continue // quiz fully visited
		}
		c := &candidate{quiz: quiz, pos: i, history: history, started: len(history) > 0}
		if first == nil {
			first = c
		}
		if c.started {
			advanced = c
		}
	}

	chosen := advanced
	if chosen == nil {
		chosen = first
	}
	if chosen == nil {
		others, err := s.otherThemes(ctx, themeID)
		if err != nil {
			return NextQuestionResult{}, err
		}
		return NextQuestionResult{ThemeCompleted: true, OtherThemes: others}, nil
	}

	var next *domain.Question
	for i := range chosen.quiz.Questions {
		if _, visited := chosen.history[chosen.quiz.Questions[i].ID]; !visited {
			next = &chosen.quiz.Questions[i]
			break
		}
	}
	if next == nil {
		return NextQuestionResult{}, domain.ErrQuestionNotFound
	}

	level, err := s.findLevel(ctx, chosen.quiz.LevelID)
	if err != nil {
		return NextQuestionResult{}, err
	}
	view := questionView(*next)
	return NextQuestionResult{
		Question: &view,
		Quiz:     &QuizInfo{ID: chosen.quiz.ID, Position: chosen.quiz.Position},
		Theme:    &theme,
		Level:    level,
		Progress: &QuizProgress{
			Answered:     len(chosen.history),
			Total:        len(chosen.quiz.Questions),
			QuizPosition: chosen.pos + 1,
			QuizCount:    len(quizzes),
		},
	}, nil
}

// SubmitQuiz scores a complete answer sheet in one pass. This legacy
// review mode does not touch persistent player state; only the per-answer
// validate flow moves points.
func (s *PlayerService) SubmitQuiz(ctx context.Context, playerID, quizID string, answers map[string]string) (SubmitQuizResult, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return SubmitQuizResult{}, err
	}

	result := SubmitQuizResult{TotalQuestions: len(quiz.Questions)}
	for _, q := range quiz.Questions {
		optionID, answered := answers[q.ID]
		if !answered {
			continue
		}
		score, err := domain.Score(q, []string{optionID})
		if err != nil {
			return SubmitQuizResult{}, err
		}
		if score.Correct {
			result.CorrectAnswers++
			result.Score += score.Points
		}
	}
	return result, nil
}

// CurrentGame reports the theme the player last played, if it is still
// resumable.
func (s *PlayerService) CurrentGame(ctx context.Context, playerID string) (CurrentGameResult, error) {
	themeID, ok, err := s.games.CurrentTheme(ctx, playerID)
	if err != nil || !ok {
		return CurrentGameResult{}, err
	}
	theme, err := s.catalog.GetTheme(ctx, themeID)
	if err != nil {
		// theme removed since; the stale marker is not an error
		return CurrentGameResult{}, nil
	}
	return CurrentGameResult{HasGameInProgress: true, ThemeID: theme.ID, ThemeName: theme.Name}, nil
}

// Progression builds the player's level-by-level progress view.
func (s *PlayerService) Progression(ctx context.Context, playerID string) (ProgressionResult, error) {
	player, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return ProgressionResult{}, err
	}
	visited, err := s.progress.VisitedCounts(ctx, playerID)
	if err != nil {
		return ProgressionResult{}, err
	}

	completed := 0
	themes, err := s.catalog.ListThemes(ctx)
	if err != nil {
		return ProgressionResult{}, err
	}
	for _, theme := range themes {
		quizzes, err := s.catalog.QuizzesByTheme(ctx, theme.ID)
		if err != nil {
			return ProgressionResult{}, err
		}
		for _, quiz := range quizzes {
			if len(quiz.Questions) > 0 && visited[quiz.ID] >= len(quiz.Questions) {
				completed++
			}
		}
	}

	levels, err := s.catalog.ListLevels(ctx)
	if err != nil {
		return ProgressionResult{}, err
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Rank < levels[j].Rank })

	points := player.Points
	if points < 0 {
		points = 0
	}
	rows := make([]LevelProgress, 0, len(levels))
	for i, level := range levels {
		ceiling := level.MinPoints + domain.MilestoneStep
		if i+1 < len(levels) {
			ceiling = levels[i+1].MinPoints
		}
		pct := levelPercentage(points, level.MinPoints, ceiling)
		rows = append(rows, LevelProgress{
			Level:      level.Rank,
			Name:       level.Name,
			Percentage: pct,
			Stars:      starsFor(pct),
		})
	}
	return ProgressionResult{
		QuizCompleted: completed,
		TotalPoints:   player.Points,
		Levels:        rows,
	}, nil
}

// trackGame refreshes the resumable-game marker, clearing it once every
// quiz of the theme has been visited.
func (s *PlayerService) trackGame(ctx context.Context, playerID string, quiz domain.Quiz) {
	done, err := s.themeComplete(ctx, playerID, quiz.ThemeID)
	if err != nil {
		s.log.WithError(err).Warn("theme completion check failed")
		return
	}
	if done {
		if err := s.games.ClearCurrentTheme(ctx, playerID); err != nil {
			s.log.WithError(err).Warn("clear current game failed")
		}
		return
	}
	if err := s.games.SetCurrentTheme(ctx, playerID, quiz.ThemeID); err != nil {
		s.log.WithError(err).Warn("set current game failed")
	}
}

func (s *PlayerService) themeComplete(ctx context.Context, playerID, themeID string) (bool, error) {
	quizzes, err := s.catalog.QuizzesByTheme(ctx, themeID)
	if err != nil {
		return false, err
	}
	visited, err := s.progress.VisitedCounts(ctx, playerID)
	if err != nil {
		return false, err
	}
	for _, quiz := range quizzes {
		if visited[quiz.ID] < len(quiz.Questions) {
			return false, nil
		}
	}
	return true, nil
}

func (s *PlayerService) otherThemes(ctx context.Context, excludeID string) ([]domain.Theme, error) {
	themes, err := s.catalog.ListThemes(ctx)
	if err != nil {
		return nil, err
	}
	others := make([]domain.Theme, 0, len(themes))
	for _, theme := range themes {
		if theme.ID != excludeID {
			others = append(others, theme)
		}
	}
	return others, nil
}

func (s *PlayerService) findLevel(ctx context.Context, levelID string) (*domain.Level, error) {
	levels, err := s.catalog.ListLevels(ctx)
	if err != nil {
		return nil, err
	}
	for i := range levels {
		if levels[i].ID == levelID {
			return &levels[i], nil
		}
	}
	return nil, nil
}

func findQuestion(quiz domain.Quiz, questionID string) (domain.Question, bool) {
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return domain.Question{}, false
}

func questionView(q domain.Question) QuestionView {
	options := make([]OptionView, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, OptionView{ID: opt.ID, Text: opt.Text})
	}
	return QuestionView{
		ID:                q.ID,
		Text:              q.Text,
		Type:              q.Type,
		IsMultipleAnswers: q.Type == domain.QuestionTypeQCM,
		Options:           options,
	}
}

func levelPercentage(points, floor, ceiling int) int {
	if points <= floor {
		return 0
	}
	if points >= ceiling || ceiling <= floor {
		return 100
	}
	return (points - floor) * 100 / (ceiling - floor)
}

func starsFor(pct int) int {
	switch {
	case pct >= 100:
		return 3
	case pct >= 66:
		return 2
	case pct >= 33:
		return 1
	default:
		return 0
	}
}
