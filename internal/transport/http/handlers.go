package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ecoloquiz-service/internal/app"
	"ecoloquiz-service/internal/domain"
)

// Handler bundles the HTTP surface: auth, player endpoints, backoffice
// read endpoints and the live leaderboard.
type Handler struct {
	auth     *app.AuthService
	players  *app.PlayerService
	admin    *app.AdminService
	hub      *app.LeaderboardHub
	validate *validator.Validate
	log      *logrus.Logger
}

func NewHandler(auth *app.AuthService, players *app.PlayerService, admin *app.AdminService, hub *app.LeaderboardHub, log *logrus.Logger) *Handler {
	return &Handler{
		auth:     auth,
		players:  players,
		admin:    admin,
		hub:      hub,
		validate: validator.New(),
		log:      log,
	}
}

// Router assembles the route table with the middleware chain.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)

	authn := Authenticate(h.auth)
	player := func(fn http.HandlerFunc) http.Handler {
		return chain(fn, authn, Requires(app.CapabilityPlayer))
	}
	mux.Handle("GET /player/theme/{themeId}/next-question", player(h.nextQuestion))
	mux.Handle("POST /player/quiz/{quizId}/validate-answer", player(h.validateAnswer))
	mux.Handle("POST /player/quiz/{quizId}/skip-question", player(h.skipQuestion))
	mux.Handle("POST /player/quiz/{quizId}/submit", player(h.submitQuiz))
	mux.Handle("GET /player/current-game", player(h.currentGame))
	mux.Handle("GET /player/progression", player(h.progression))

	mux.Handle("GET /admin/gifts", chain(http.HandlerFunc(h.adminGifts), authn, Requires("gifts.read")))
	mux.Handle("GET /admin/stats", chain(http.HandlerFunc(h.adminStats), authn, Requires("stats.read")))

	mux.HandleFunc("GET /ws/leaderboard", h.serveLeaderboardWS)

	return RequestLogger(h.log)(mux)
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required"`
	Zone        string `json:"zone"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Register(r.Context(), app.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Zone:        req.Zone,
	})
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	res, err := h.players.NextQuestion(r.Context(), principal.PlayerID, r.PathValue("themeId"))
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type validateAnswerRequest struct {
	QuestionID        string   `json:"question_id" validate:"required"`
	SelectedOptionID  string   `json:"selected_option_id"`
	SelectedOptionIDs []string `json:"selected_option_ids"`
}

func (req validateAnswerRequest) optionIDs() []string {
	if len(req.SelectedOptionIDs) > 0 {
		return req.SelectedOptionIDs
	}
	if req.SelectedOptionID != "" {
		return []string{req.SelectedOptionID}
	}
	return nil
}

func (h *Handler) validateAnswer(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	var req validateAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.players.ValidateAnswer(r.Context(), principal.PlayerID, r.PathValue("quizId"), domain.AnswerSubmission{
		QuestionID: req.QuestionID,
		OptionIDs:  req.optionIDs(),
	})
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type skipQuestionRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
}

func (h *Handler) skipQuestion(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	var req skipQuestionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.players.SkipQuestion(r.Context(), principal.PlayerID, r.PathValue("quizId"), req.QuestionID); err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"skipped": true})
}

type submitQuizRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	var req submitQuizRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.players.SubmitQuiz(r.Context(), principal.PlayerID, r.PathValue("quizId"), req.Answers)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) currentGame(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	res, err := h.players.CurrentGame(r.Context(), principal.PlayerID)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) progression(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	res, err := h.players.Progression(r.Context(), principal.PlayerID)
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) adminGifts(w http.ResponseWriter, r *http.Request) {
	res, err := h.admin.GiftInventory(r.Context())
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.admin.Stats(r.Context())
	if err != nil {
		writeError(w, err, h.log)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode unmarshals and validates a JSON body, writing the error response
// itself when the payload is malformed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid json body"})
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, err, h.log)
		return false
	}
	return true
}
