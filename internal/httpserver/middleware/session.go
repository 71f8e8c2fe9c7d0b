package middleware

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/drichardson-tmp/workout-tracker/internal/kv"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/metrics"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/requestctx"
	"github.com/drichardson-tmp/workout-tracker/internal/session"
)

type sessionContextKey string

const requestStoreKey sessionContextKey = "workout.session"

// Session opens the browser's storage partition, restores the session store
// from it and attaches the store to the request context. Every consumer of
// the request shares that one store.
//
// When the partition cannot be opened or read, the request continues with an
// anonymous store whose Login and Logout report the storage error.
func Session(provider kv.Provider, m *metrics.Metrics) func(http.Handler) http.Handler {
	if provider == nil {
		panic("session storage provider is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := requestctx.Logger(ctx)

			var store *session.Store
			storage, err := provider.Open(w, r)
			if err == nil {
				store, err = session.Open(ctx, storage)
			}
			if err != nil {
				logger.Error("session storage unavailable", zap.Error(err))
				if m != nil {
					m.StorageErrorsTotal.WithLabelValues("open").Inc()
				}
				store = session.NewStore(session.Anonymous(), unavailable(err))
			}
			store.Observe(countEvents(m))

			ctx = context.WithValue(ctx, requestStoreKey, store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StoreFromContext retrieves the session store attached to this request.
func StoreFromContext(ctx context.Context) (*session.Store, bool) {
	if ctx == nil {
		return nil, false
	}
	store, ok := ctx.Value(requestStoreKey).(*session.Store)
	return store, ok && store != nil
}

func unavailable(cause error) session.Observer {
	return session.ObserverFunc(func(context.Context, session.Event, session.Identity) error {
		return fmt.Errorf("session: storage unavailable: %w", cause)
	})
}

func countEvents(m *metrics.Metrics) session.Observer {
	return session.ObserverFunc(func(_ context.Context, ev session.Event, _ session.Identity) error {
		if m != nil {
			m.SessionEventsTotal.WithLabelValues(session.EventName(ev)).Inc()
		}
		return nil
	})
}
