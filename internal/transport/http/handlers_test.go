package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ecoloquiz-service/internal/app"
	"ecoloquiz-service/internal/domain"
	"ecoloquiz-service/internal/infra/memory"
)

type testServer struct {
	server *httptest.Server
	auth   *app.AuthService
	users  *memory.UserRepository
	gifts  *memory.GiftRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	loader := memory.NewStaticCatalogLoader(
		[]domain.Theme{{ID: "theme-1", Name: "Recyclage"}},
		[]domain.Level{{ID: "lvl-1", Name: "Débutant", Rank: 1, MinPoints: 0}},
		map[string]domain.Quiz{
			"quiz-1": {
				ID:      "quiz-1",
				ThemeID: "theme-1",
				LevelID: "lvl-1",
				Questions: []domain.Question{
					{
						ID:   "q1",
						Text: "Le verre se recycle indéfiniment.",
						Type: domain.QuestionTypeTrueFalse,
						Options: []domain.Option{
							{ID: "q1-vrai", Text: "Vrai", Correct: true},
							{ID: "q1-faux", Text: "Faux"},
						},
					},
					{
						ID:   "q2",
						Text: "Que va dans le bac jaune ?",
						Type: domain.QuestionTypeQCM,
						Options: []domain.Option{
							{ID: "q2-carton", Text: "Cartons", Correct: true},
							{ID: "q2-pile", Text: "Piles"},
						},
					},
				},
			},
		},
	)
	catalog := memory.NewCatalog(loader, time.Minute)
	users := memory.NewUserRepository()
	players := memory.NewPlayerRepository()
	progress := memory.NewProgressRepository()
	gifts := memory.NewGiftRepository()
	games := memory.NewGameStateStore()

	auth := app.NewAuthService(users, players, catalog, []byte("test-secret"), time.Hour, log)
	allocator := app.NewGiftAllocator(gifts, app.NewUniformDraw(1), log)
	hub := app.NewLeaderboardHub(players, 10)
	playerSvc := app.NewPlayerService(catalog, players, progress, games, allocator, app.NewLogNotifier(log), hub, log)
	adminSvc := app.NewAdminService(players, progress, gifts)

	handler := NewHandler(auth, playerSvc, adminSvc, hub, log)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)

	return &testServer{server: srv, auth: auth, users: users, gifts: gifts}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (ts *testServer) registerPlayer(t *testing.T) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"password":     "secret-pass",
		"display_name": "Alice",
		"zone":         "sud",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var res app.AuthResult
	decodeBody(t, resp, &res)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, ts.users.CreateUser(context.Background(), domain.User{
		ID:           uuid.NewString(),
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Capabilities: []string{"gifts.read", "stats.read"},
	}))
	res, err := ts.auth.Login(context.Background(), "admin@example.com", "admin-pass")
	require.NoError(t, err)
	return res.Token
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        "not-an-email",
		"password":     "secret-pass",
		"display_name": "Alice",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"password":     "short",
		"display_name": "Alice",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	ts := newTestServer(t)
	ts.registerPlayer(t)

	resp := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"password":     "secret-pass",
		"display_name": "Alice Two",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.registerPlayer(t)

	resp := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlayerRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/player/theme/theme-1/next-question", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/player/theme/theme-1/next-question", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesRequireCapability(t *testing.T) {
	ts := newTestServer(t)
	playerToken := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodGet, "/admin/gifts", playerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken := ts.adminToken(t)
	resp = ts.do(t, http.MethodGet, "/admin/gifts", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/admin/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats app.PlatformStats
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.Players, "only the registered player has a game profile")
}

func TestNextQuestionFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodGet, "/player/theme/theme-1/next-question", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res app.NextQuestionResult
	decodeBody(t, resp, &res)
	require.NotNil(t, res.Question)
	assert.Equal(t, "q1", res.Question.ID)
	assert.Equal(t, "quiz-1", res.Quiz.ID)

	resp = ts.do(t, http.MethodGet, "/player/theme/unknown/next-question", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateAnswerFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodPost, "/player/quiz/quiz-1/validate-answer", token, map[string]interface{}{
		"question_id":        "q1",
		"selected_option_id": "q1-vrai",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res app.ValidationResult
	decodeBody(t, resp, &res)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 5, res.PointsEarned)
	assert.Equal(t, 5, res.NewTotalPoints)

	// resubmitting the same question is a conflict
	resp = ts.do(t, http.MethodPost, "/player/quiz/quiz-1/validate-answer", token, map[string]interface{}{
		"question_id":        "q1",
		"selected_option_id": "q1-faux",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestValidateAnswerRejectsDoubleTrueFalse(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodPost, "/player/quiz/quiz-1/validate-answer", token, map[string]interface{}{
		"question_id":         "q1",
		"selected_option_ids": []string{"q1-vrai", "q1-faux"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestValidateAnswerBadTargets(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodPost, "/player/quiz/unknown/validate-answer", token, map[string]interface{}{
		"question_id":        "q1",
		"selected_option_id": "q1-vrai",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// missing question_id fails request validation
	resp = ts.do(t, http.MethodPost, "/player/quiz/quiz-1/validate-answer", token, map[string]interface{}{
		"selected_option_id": "q1-vrai",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSkipAndCurrentGame(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodPost, "/player/quiz/quiz-1/skip-question", token, map[string]string{
		"question_id": "q1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/player/current-game", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var game app.CurrentGameResult
	decodeBody(t, resp, &game)
	assert.True(t, game.HasGameInProgress)
	assert.Equal(t, "theme-1", game.ThemeID)
}

func TestSubmitQuiz(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodPost, "/player/quiz/quiz-1/submit", token, map[string]interface{}{
		"answers": map[string]string{"q1": "q1-vrai", "q2": "q2-pile"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res app.SubmitQuizResult
	decodeBody(t, resp, &res)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.Equal(t, 1, res.CorrectAnswers)
	assert.Equal(t, 5, res.Score)
}

func TestProgression(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	resp := ts.do(t, http.MethodGet, "/player/progression", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res app.ProgressionResult
	decodeBody(t, resp, &res)
	assert.Equal(t, 0, res.QuizCompleted)
	require.Len(t, res.Levels, 1)
	assert.Equal(t, "Débutant", res.Levels[0].Name)
}

func TestInvalidJSONBody(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerPlayer(t)

	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/player/quiz/quiz-1/validate-answer", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
