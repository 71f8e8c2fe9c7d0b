package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drichardson-tmp/workout-tracker/internal/devproxy"
	"github.com/drichardson-tmp/workout-tracker/internal/httpserver"
	"github.com/drichardson-tmp/workout-tracker/internal/httpserver/ui"
	"github.com/drichardson-tmp/workout-tracker/internal/kv"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/metrics"
)

// Test keys for the signed storage cookies.
var (
	HashKey  = []byte("12345678901234567890123456789012")
	BlockKey = []byte("abcdefghijklmnopqrstuvwxyzABCDEF")
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithStorage overrides the persisted storage provider.
func WithStorage(p kv.Provider) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Storage = p
	}
}

// WithBackend wires an API client.
func WithBackend(b ui.Backend) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Backend = b
	}
}

// WithProxy mounts a development proxy.
func WithProxy(p *devproxy.Proxy) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Proxy = p
	}
}

// WithMetrics records into m instead of a throwaway registry.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Metrics = m
	}
}

// NewServer constructs an httptest server running the web HTTP stack with
// cookie-backed storage and no backend.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	storage, err := kv.NewCookieProvider(kv.CookieConfig{HashKey: HashKey, BlockKey: BlockKey})
	if err != nil {
		t.Fatalf("cookie provider: %v", err)
	}

	cfg := httpserver.Config{
		Address:   ":0",
		LoginPath: "/login",
		Storage:   storage,
		Metrics:   metrics.New(prometheus.NewRegistry()),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handler, err := httpserver.NewHandler(cfg)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewBrowser returns a client that keeps cookies like a browser tab and does
// not follow redirects.
func NewBrowser(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
