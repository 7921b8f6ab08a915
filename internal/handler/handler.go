package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SamVia/quizzz/internal/explain"
	"github.com/SamVia/quizzz/internal/handler/views"
	"github.com/SamVia/quizzz/internal/model"
	"github.com/SamVia/quizzz/internal/quiz"
	"github.com/SamVia/quizzz/internal/store"
)

// Explainer produces a short explanation for an answered question.
type Explainer interface {
	Explain(ctx context.Context, req explain.Request) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	explainer Explainer
	config    model.AppConfig

	// mu serializes every event on the quiz controller.
	mu         sync.Mutex
	quiz       *quiz.Controller
	topicID    int64
	topicError string
	flash      string
}

// New creates a new Handler. A nil explainer disables POST /explain.
func New(s *store.Store, e Explainer, cfg model.AppConfig, ctrl *quiz.Controller) (*Handler, error) {
	if s == nil || ctrl == nil {
		return nil, errors.New("handler: store and controller are required")
	}
	return &Handler{store: s, explainer: e, config: cfg, quiz: ctrl}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Get("/api/state", h.handleState)

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/", h.handleIndex)
		r.Post("/topic", h.handleTopic)
		r.Post("/answer", h.handleAnswer)
		r.Post("/next", h.handleNext)
		r.Post("/skip", h.handleSkip)
		r.Post("/mode", h.handleMode)
		r.Post("/exam/restart", h.handleExamRestart)
		r.Post("/round/restart", h.handleRoundRestart)
		r.Post("/wrong/clear", h.handleWrongClear)
		r.Post("/explain", h.handleExplain)
		r.Post("/topics/rescan", h.handleRescan)
		r.Post("/topics/upload", h.handleUpload)
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListTopics()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.ensureQuestion()
	page := views.Page{
		View:        h.quiz.View(),
		Topics:      topics,
		TopicID:     h.topicID,
		TopicError:  h.topicError,
		ExplainerOn: h.explainer != nil,
		Flash:       h.flash,
	}
	h.flash = ""
	h.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.IndexPage(page).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

type stateResponse struct {
	State      quiz.View     `json:"state"`
	Topics     []model.Topic `json:"topics"`
	Bank       bankInfo      `json:"bank"`
	TopicID    int64         `json:"topic_id"`
	TopicError string        `json:"topic_error,omitempty"`
	Explainer  bool          `json:"explainer"`
}

type bankInfo struct {
	Questions int       `json:"questions"`
	LastSync  time.Time `json:"last_sync"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListTopics()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if topics == nil {
		topics = []model.Topic{}
	}
	var bank bankInfo
	if bank.Questions, err = h.store.QuestionCount(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if bank.LastSync, err = h.store.LastSync(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.ensureQuestion()
	resp := stateResponse{
		State:      h.quiz.View(),
		Topics:     topics,
		Bank:       bank,
		TopicID:    h.topicID,
		TopicError: h.topicError,
		Explainer:  h.explainer != nil,
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encode state", "error", err)
	}
}

func (h *Handler) handleTopic(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("topic"), 10, 64)
	if err != nil {
		http.Error(w, "invalid topic ID", http.StatusBadRequest)
		return
	}
	t, err := h.store.GetTopic(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "topic not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var recs []model.QuestionRecord
	if t.Usable() {
		if recs, err = h.store.Questions(id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !t.Usable() {
		h.quiz.Unload()
		h.topicID = id
		h.topicError = t.LoadError
		if h.topicError == "" {
			h.topicError = "no questions"
		}
		slog.Warn("selected topic cannot be loaded", "topic", t.Title, "error", h.topicError)
		h.redirectHome(w, r)
		return
	}
	if err := h.quiz.LoadTopic(t.Title, recs); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	h.topicID = id
	h.topicError = ""
	h.ensureQuestion()
	slog.Info("topic loaded", "topic", t.Title, "questions", len(recs), "session", h.quiz.ID())
	h.redirectHome(w, r)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	serial, err := formInt(r, "serial")
	if err != nil {
		http.Error(w, "invalid serial", http.StatusBadRequest)
		return
	}
	choice, err := formInt(r, "choice")
	if err != nil {
		http.Error(w, "invalid choice", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	out, err := h.quiz.SubmitIndex(serial, choice)
	if errors.Is(err, quiz.ErrInvalidChoice) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if out.Fresh {
		slog.Debug("answer recorded", "serial", serial, "correct", out.Correct, "session", h.quiz.ID())
	}
	h.redirectHome(w, r)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.serialEvent(w, r, h.quiz.Next)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	h.serialEvent(w, r, h.quiz.Skip)
}

// serialEvent runs a draw-advancing event tagged with the form's serial.
// Halting errors are shown through the view's notice, so they still redirect.
func (h *Handler) serialEvent(w http.ResponseWriter, r *http.Request, fn func(int) error) {
	serial, err := formInt(r, "serial")
	if err != nil {
		http.Error(w, "invalid serial", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := fn(serial); err != nil {
		slog.Debug("quiz event halted", "path", r.URL.Path, "error", err)
	}
	h.redirectHome(w, r)
}

func (h *Handler) handleMode(w http.ResponseWriter, r *http.Request) {
	m, err := quiz.ParseMode(r.FormValue("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.quiz.SetMode(m); err != nil {
		slog.Info("mode change refused", "mode", m, "error", err)
	}
	h.ensureQuestion()
	h.redirectHome(w, r)
}

func (h *Handler) handleExamRestart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quiz.RestartExam()
	h.ensureQuestion()
	h.redirectHome(w, r)
}

func (h *Handler) handleRoundRestart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.quiz.RestartRound(); err != nil {
		slog.Debug("round restart refused", "error", err)
	}
	h.ensureQuestion()
	h.redirectHome(w, r)
}

func (h *Handler) handleWrongClear(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quiz.ClearWrongAnswers()
	h.redirectHome(w, r)
}

// ensureQuestion draws a question when none is shown. Callers hold h.mu.
func (h *Handler) ensureQuestion() {
	err := h.quiz.EnsureQuestion()
	switch {
	case err == nil, errors.Is(err, quiz.ErrNoTopic),
		errors.Is(err, quiz.ErrExhausted), errors.Is(err, quiz.ErrExamFinished):
	default:
		slog.Error("draw question", "error", err, "session", h.quiz.ID())
	}
}

func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	target := h.path("/")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func formInt(r *http.Request, key string) (int, error) {
	return strconv.Atoi(r.FormValue(key))
}
