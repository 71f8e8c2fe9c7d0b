package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/drichardson-tmp/workout-tracker/internal/kv"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/metrics"
	"github.com/drichardson-tmp/workout-tracker/internal/session"
)

func newCookieProvider(t *testing.T) kv.Provider {
	t.Helper()
	p, err := kv.NewCookieProvider(kv.CookieConfig{
		HashKey:  []byte("12345678901234567890123456789012"),
		BlockKey: []byte("abcdefghijklmnop"),
	})
	require.NoError(t, err)
	return p
}

// seed writes values into the browser storage and returns the cookies carrying them.
func seed(t *testing.T, p kv.Provider, values map[string]string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	storage, err := p.Open(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, storage.Set(context.Background(), k, v))
	}
	return rec.Result().Cookies()
}

func guarded(p kv.Provider, m *metrics.Metrics) http.Handler {
	return HTMX()(Session(p, m)(Guard("/login", m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, ok := StoreFromContext(r.Context())
		if !ok {
			http.Error(w, "no store", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(store.Read().Name()))
	}))))
}

func TestGuardRedirectsAnonymousNavigation(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	handler := guarded(newCookieProvider(t), m)

	for _, path := range []string{"/", "/workouts", "/unknown"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusFound, rec.Code, path)
		require.Equal(t, "/login", rec.Header().Get("Location"), path)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 3.0, testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("redirect")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("allow")))
}

func TestGuardHTMXGetsUnauthorized(t *testing.T) {
	handler := guarded(newCookieProvider(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/workouts", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
}

func TestSessionRestoresPersistedIdentity(t *testing.T) {
	p := newCookieProvider(t)
	cookies := seed(t, p, map[string]string{session.KeyUserID: "7", session.KeyUserName: "Alex"})
	handler := guarded(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/workouts", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Alex", rec.Body.String())
}

func TestSessionMalformedRecordIsAnonymous(t *testing.T) {
	p := newCookieProvider(t)
	cookies := seed(t, p, map[string]string{session.KeyUserID: "seven", session.KeyUserName: "Alex"})
	handler := guarded(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
}

type brokenProvider struct{}

func (brokenProvider) Open(http.ResponseWriter, *http.Request) (kv.Storage, error) {
	return nil, errors.New("redis: connection refused")
}

func (brokenProvider) Close() error { return nil }

func TestSessionFallbackReportsStorageUnavailable(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	var seen *session.Store
	handler := Session(brokenProvider{}, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = StoreFromContext(r.Context())
		require.False(t, seen.Read().IsAuthenticated())
		err := seen.Login(r.Context(), 1, "Ann")
		require.ErrorContains(t, err, "storage unavailable")
		require.ErrorContains(t, err, "connection refused")
		require.Error(t, seen.Logout(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	require.Empty(t, rec.Result().Cookies())
	require.Equal(t, 1.0, testutil.ToFloat64(m.StorageErrorsTotal.WithLabelValues("open")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionEventsTotal.WithLabelValues("login")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionEventsTotal.WithLabelValues("logout")))
}

func TestSessionStoreSharedWithinRequest(t *testing.T) {
	p := newCookieProvider(t)
	handler := Session(p, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, _ := StoreFromContext(r.Context())
		b, _ := StoreFromContext(r.Context())
		require.Same(t, a, b)
		require.NoError(t, a.Login(r.Context(), 3, "Sam"))
		require.True(t, b.Read().IsAuthenticated())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestNoStoreMiddleware(t *testing.T) {
	handler := NoStore()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "no-store, max-age=0", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

func TestNavigate(t *testing.T) {
	handler := HTMX()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Navigate(w, r, "/", http.StatusNoContent, http.StatusSeeOther)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "/", rec.Header().Get("HX-Redirect"))
}
