package httpserver

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/drichardson-tmp/workout-tracker/internal/devproxy"
	custommw "github.com/drichardson-tmp/workout-tracker/internal/httpserver/middleware"
	"github.com/drichardson-tmp/workout-tracker/internal/httpserver/ui"
	"github.com/drichardson-tmp/workout-tracker/internal/kv"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/metrics"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/observability"
	"github.com/drichardson-tmp/workout-tracker/public"
)

// Config holds runtime options for the web HTTP server.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	LoginPath    string
	AssetsDir    string
	Logger       *zap.Logger
	Storage      kv.Provider
	Backend      ui.Backend
	Proxy        *devproxy.Proxy
	Metrics      *metrics.Metrics
}

// New constructs the HTTP server with its middleware stack and routes.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

// NewHandler builds the router. Ops endpoints, assets and the dev proxy are
// public; every other path, unknown ones included, passes the route guard.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("httpserver: storage provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	loginPath := resolveLoginPath(cfg.LoginPath)

	assets, err := assetsFS(cfg.AssetsDir)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.GetHead)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware())

	router.Get("/healthz", healthHandler)
	router.Method(http.MethodGet, "/metrics", m.Handler())
	router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))
	cfg.Proxy.Mount(router)

	pages := ui.NewHandlers(cfg.Backend, loginPath)
	app := chi.Chain(
		custommw.HTMX(),
		custommw.NoStore(),
		custommw.Session(cfg.Storage, m),
		custommw.Guard(loginPath, m),
	)

	router.Group(func(r chi.Router) {
		r.Use(app...)

		r.Get("/", pages.Home)
		r.Get(loginPath, pages.LoginForm)
		r.Post(loginPath, pages.LoginSubmit)
		r.Get("/workouts", pages.Workouts)
		r.Post("/logout", pages.Logout)
	})
	router.NotFound(app.HandlerFunc(pages.NotFound).ServeHTTP)
	router.MethodNotAllowed(app.HandlerFunc(pages.MethodNotAllowed).ServeHTTP)

	return router, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func assetsFS(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) != "" {
		return os.DirFS(dir), nil
	}
	return public.AssetsFS()
}

func resolveLoginPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/login"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
