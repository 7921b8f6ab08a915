package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SamVia/quizzz/internal/model"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
)

var (
	errCSRFMissing  = errors.New("csrf token missing")
	errCSRFMismatch = errors.New("invalid csrf token")
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// submittedCSRFToken returns the token sent with a form post or, for
// scripted requests, in the X-CSRF-Token header.
func submittedCSRFToken(r *http.Request) string {
	if t := r.FormValue(csrfFormField); t != "" {
		return t
	}
	return r.Header.Get(csrfHeader)
}

// verifyCSRF checks the submitted token against the cookie and returns the
// accepted token.
func verifyCSRF(r *http.Request) (string, error) {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return "", errCSRFMissing
	}
	sent := submittedCSRFToken(r)
	if sent == "" {
		return "", errCSRFMissing
	}
	if subtle.ConstantTimeCompare([]byte(sent), []byte(cookie.Value)) != 1 {
		return "", errCSRFMismatch
	}
	return cookie.Value, nil
}

// path prefixes p with the configured base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

// BasePathMiddleware makes the base path available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// csrfMiddleware issues a fresh token cookie on safe requests and checks
// the double-submitted token on everything else. Tokens are not rotated on
// posts, so a page stays usable for every form it holds.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			token string
			err   error
		)
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			if token, err = generateCSRFToken(); err != nil {
				slog.Error("failed to generate CSRF token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			h.setCSRFCookie(w, token)
		default:
			if token, err = verifyCSRF(r); err != nil {
				slog.Warn("CSRF check failed", "path", r.URL.Path, "error", err)
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithCSRFToken(r.Context(), token)))
	})
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, token string) {
	cookiePath := "/"
	if h.config.BasePath != "" {
		cookiePath = h.config.BasePath + "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     cookiePath,
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
