package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// LangCookie remembers a language picked with the ?lang= query parameter.
const LangCookie = "quizzz_lang"

var matcher = language.NewMatcher([]language.Tag{language.English, language.Italian})

// Middleware resolves the UI language of every request and injects the
// matching localizer into its context. The order is the ?lang= parameter,
// the language cookie, Accept-Language, then def.
func Middleware(def string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := def
			if q := r.URL.Query().Get("lang"); Supported(q) {
				lang = q
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    q,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			} else if c, err := r.Cookie(LangCookie); err == nil && Supported(c.Value) {
				lang = c.Value
			} else if accept := r.Header.Get("Accept-Language"); accept != "" {
				tags, _, err := language.ParseAcceptLanguage(accept)
				if err == nil && len(tags) > 0 {
					_, idx, conf := matcher.Match(tags...)
					if conf != language.No {
						lang = Languages[idx]
					}
				}
			}
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang, def))
			ctx = WithLang(ctx, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
