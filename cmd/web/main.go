package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/drichardson-tmp/workout-tracker/internal/backend"
	"github.com/drichardson-tmp/workout-tracker/internal/devproxy"
	"github.com/drichardson-tmp/workout-tracker/internal/httpserver"
	"github.com/drichardson-tmp/workout-tracker/internal/kv"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/config"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/metrics"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := kv.NewProvider(ctx, kv.Options{
		Driver:     cfg.Storage.Driver,
		Cookie:     cookieConfig(logger, cfg.Storage),
		Redis:      kv.RedisConfig{URL: cfg.Storage.RedisURL, TTL: cfg.Storage.RedisTTL},
		SQLitePath: cfg.Storage.SQLitePath,
	})
	if err != nil {
		logger.Fatal("failed to initialise session storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Warn("session storage close error", zap.Error(err))
		}
	}()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown error", zap.Error(err))
		}
	}()

	m := metrics.New(nil)
	api := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	checkBackend(ctx, logger, api)

	var proxy *devproxy.Proxy
	if len(cfg.Proxy.Routes) > 0 {
		proxy, err = devproxy.New(cfg.Proxy.Routes, devproxy.WithMetrics(m))
		if err != nil {
			logger.Fatal("failed to initialise dev proxy", zap.Error(err))
		}
		logger.Info("dev proxy enabled", zap.Strings("prefixes", proxy.Prefixes()))
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:      cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		LoginPath:    cfg.Routes.LoginPath,
		AssetsDir:    cfg.Server.AssetsDir,
		Logger:       logger,
		Storage:      storage,
		Backend:      api,
		Proxy:        proxy,
		Metrics:      m,
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("web server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("env", cfg.Environment),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// checkBackend logs whether the API answers its health endpoint. The shell
// starts either way.
func checkBackend(ctx context.Context, logger *zap.Logger, api *backend.Client) {
	if !api.Configured() {
		logger.Warn("no backend configured; workouts and email login are unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	status, err := api.Health(ctx)
	if err != nil {
		logger.Warn("backend health check failed", zap.Error(err))
		return
	}
	logger.Info("backend reachable", zap.String("status", status))
}

func cookieConfig(logger *zap.Logger, cfg config.StorageConfig) kv.CookieConfig {
	hashKey := cfg.HashKey
	blockKey := cfg.BlockKey
	if len(hashKey) == 0 {
		// Sessions do not survive a restart without configured keys.
		logger.Warn("WEB_STORAGE_HASH_KEY not set; using ephemeral storage keys")
		hashKey = securecookie.GenerateRandomKey(32)
		if len(blockKey) == 0 {
			blockKey = securecookie.GenerateRandomKey(32)
		}
	}
	return kv.CookieConfig{
		HashKey:  hashKey,
		BlockKey: blockKey,
		Secure:   cfg.CookieSecure,
	}
}
