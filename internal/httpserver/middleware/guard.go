package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/drichardson-tmp/workout-tracker/internal/guard"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/metrics"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/requestctx"
)

// Guard runs the navigation check for every request against the session
// store in context. Anonymous navigation to anything but loginPath is
// redirected there with 302; htmx requests get 401 with HX-Redirect.
func Guard(loginPath string, m *metrics.Metrics) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = guard.DefaultLoginPath
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, _ := StoreFromContext(r.Context())
			decision := guard.BeforeNavigate(store, loginPath)(r.URL.Path)
			if m != nil {
				m.GuardDecisionsTotal.WithLabelValues(decision.Label()).Inc()
			}
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}

			requestctx.Logger(r.Context()).Debug("navigation redirected",
				zap.String("path", r.URL.Path),
				zap.String("redirect", decision.Redirect),
			)
			Navigate(w, r, decision.Redirect, http.StatusUnauthorized, http.StatusFound)
		})
	}
}
