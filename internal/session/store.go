package session

import (
	"context"
	"errors"
)

// Observer is notified after every transition of a Store. Observers run in
// registration order; the in-memory identity is already updated when they run.
type Observer interface {
	Observe(ctx context.Context, ev Event, next Identity) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event, next Identity) error

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, ev Event, next Identity) error {
	return f(ctx, ev, next)
}

// Store holds the identity of one page lifetime. Read hands out the same
// *Identity to every caller, so mutations are visible through every handle.
//
// A Store is not safe for concurrent use.
type Store struct {
	identity  *Identity
	observers []Observer
}

// NewStore creates a store starting at initial.
func NewStore(initial Identity, observers ...Observer) *Store {
	id := clone(initial)
	return &Store{identity: &id, observers: observers}
}

// Read returns the shared identity handle. It has no side effects.
func (s *Store) Read() *Identity {
	return s.identity
}

// Login sets the identity to (id, name). Validating id and name is the
// caller's responsibility. Observer errors are returned joined; the in-memory
// identity is updated regardless.
func (s *Store) Login(ctx context.Context, id int64, name string) error {
	return s.dispatch(ctx, LoginEvent{ID: id, Name: name})
}

// Logout clears the identity. Calling it while anonymous is a no-op apart
// from re-notifying observers.
func (s *Store) Logout(ctx context.Context) error {
	return s.dispatch(ctx, LogoutEvent{})
}

// Observe registers an additional observer.
func (s *Store) Observe(o Observer) {
	if o != nil {
		s.observers = append(s.observers, o)
	}
}

func (s *Store) dispatch(ctx context.Context, ev Event) error {
	*s.identity = Apply(*s.identity, ev)
	next := clone(*s.identity)

	var errs []error
	for _, o := range s.observers {
		if err := o.Observe(ctx, ev, next); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
