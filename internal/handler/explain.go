package handler

import (
	"log/slog"
	"net/http"

	"github.com/SamVia/quizzz/internal/explain"
	appI18n "github.com/SamVia/quizzz/internal/i18n"
	"github.com/SamVia/quizzz/internal/quiz"
)

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	if h.explainer == nil {
		http.NotFound(w, r)
		return
	}
	serial, err := formInt(r, "serial")
	if err != nil {
		http.Error(w, "invalid serial", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	v := h.quiz.View()
	h.mu.Unlock()
	if !v.HasQuestion || !v.Answered() || v.Serial != serial || v.Explanation != "" {
		h.redirectHome(w, r)
		return
	}

	// The model call runs without the lock; the serial check in
	// SetExplanation drops the result if the question moved on meanwhile.
	text, err := h.explainer.Explain(r.Context(), explainRequest(v, appI18n.LangFromContext(r.Context())))

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		slog.Error("explanation failed", "error", err, "session", h.quiz.ID())
		h.flash = "ExplainerFailed"
		h.redirectHome(w, r)
		return
	}
	if !h.quiz.SetExplanation(serial, text) {
		slog.Debug("discarding explanation for a stale question", "serial", serial)
	}
	h.redirectHome(w, r)
}

func explainRequest(v quiz.View, lang string) explain.Request {
	req := explain.Request{
		Topic:         v.Topic,
		Prompt:        v.Prompt,
		CorrectAnswer: v.CorrectAnswer,
		Rationale:     v.Rationale,
		Lang:          lang,
	}
	for _, o := range v.Options {
		req.Options = append(req.Options, o.Text)
		if o.Class == quiz.ClassSelectedWrong {
			req.Selected = o.Text
		}
	}
	if v.AnsweredCorrectly {
		req.Selected = v.CorrectAnswer
	}
	return req
}
