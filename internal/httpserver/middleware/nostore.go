package middleware

import "net/http"

// NoStore marks responses as uncacheable so a page rendered for one identity
// is never replayed from cache after login or logout.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Cache-Control", "no-store, max-age=0")
			h.Set("Pragma", "no-cache")
			h.Add("Vary", "Cookie")
			next.ServeHTTP(w, r)
		})
	}
}
