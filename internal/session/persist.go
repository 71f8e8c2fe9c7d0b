package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/drichardson-tmp/workout-tracker/internal/kv"
)

// Persister mirrors store transitions into persisted storage: login writes
// both keys, logout deletes both.
type Persister struct {
	storage kv.Storage
}

// NewPersister returns an observer writing to storage.
func NewPersister(storage kv.Storage) *Persister {
	return &Persister{storage: storage}
}

// Observe implements Observer.
func (p *Persister) Observe(ctx context.Context, ev Event, next Identity) error {
	switch ev.(type) {
	case LoginEvent, *LoginEvent:
		return p.write(ctx, next)
	case LogoutEvent, *LogoutEvent:
		return p.clear(ctx)
	}
	return nil
}

func (p *Persister) write(ctx context.Context, id Identity) error {
	rec := EncodeRecord(id)
	if rec.UserID == nil || rec.UserName == nil {
		return p.clear(ctx)
	}
	if err := p.storage.Set(ctx, KeyUserID, *rec.UserID); err != nil {
		return fmt.Errorf("session: write %s: %w", KeyUserID, err)
	}
	if err := p.storage.Set(ctx, KeyUserName, *rec.UserName); err != nil {
		return fmt.Errorf("session: write %s: %w", KeyUserName, err)
	}
	return nil
}

func (p *Persister) clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyUserID, KeyUserName} {
		if err := p.storage.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("session: delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Open restores the identity held in storage and returns a store persisting
// every transition back into it. Extra observers run after persistence.
func Open(ctx context.Context, storage kv.Storage, observers ...Observer) (*Store, error) {
	initial, err := Restore(ctx, storage)
	if err != nil {
		return nil, err
	}
	all := append([]Observer{NewPersister(storage)}, observers...)
	return NewStore(initial, all...), nil
}
