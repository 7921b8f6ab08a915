package model

import (
	"context"
	"strings"
	"time"
)

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// OptionLetters are the slot keys a solution may reference, in slot order.
var OptionLetters = []string{"A", "B", "C", "D"}

// QuestionRecord is one validated multiple-choice question.
type QuestionRecord struct {
	Position  int      `json:"position"` // zero-based row in the source file
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"` // slots A, B, C and optionally D
	Solution  string   `json:"solution"`
	Rationale string   `json:"rationale,omitempty"`
}

// LetterSlot returns the slot index a letter solution refers to, or -1 when
// s is not a letter key. The result may be out of range for the record.
func LetterSlot(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, l := range OptionLetters {
		if s == l {
			return i
		}
	}
	return -1
}

// CorrectAnswer resolves the solution to the text of the correct option.
// Letter keys valid for the record's arity select a slot; anything else is
// taken literally.
func (q QuestionRecord) CorrectAnswer() string {
	if i := LetterSlot(q.Solution); i >= 0 && i < len(q.Options) {
		return strings.TrimSpace(q.Options[i])
	}
	return strings.TrimSpace(q.Solution)
}

// Topic is one question file known to the question bank.
type Topic struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	Hash       string    `json:"-"`
	Arity      int       `json:"arity"`
	Count      int       `json:"count"`
	LoadError  string    `json:"load_error,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

// Usable reports whether the topic loaded cleanly and has questions.
func (t Topic) Usable() bool {
	return t.LoadError == "" && t.Count > 0
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	Dir           string // directory scanned for topic files
	BasePath      string // URL prefix for sub-path deployments (e.g. "/quiz")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}
