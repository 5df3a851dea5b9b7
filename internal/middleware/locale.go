package middleware

import (
	"context"
	"net/http"

	"github.com/windfall/lingo_service/internal/i18n"
)

// Locale resolves the response language from the lang query parameter,
// then Accept-Language, then fallback.
func Locale(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := r.URL.Query().Get("lang")
			if lang == "" || !i18n.Supported(lang) {
				lang = i18n.Match(r.Header.Get("Accept-Language"), fallback)
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), lang)))
		})
	}
}

// WithLanguage stores the response language in ctx.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey, lang)
}

// GetLanguage returns the response language, or the default language when
// Locale did not run.
func GetLanguage(ctx context.Context) string {
	if lang, ok := ctx.Value(languageKey).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}
