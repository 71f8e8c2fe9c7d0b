// Package kv provides the persisted key-value storage a browser keeps across
// page loads. A Provider opens the partition that belongs to the browser
// behind a request; the returned Storage reads and writes plain string values.
package kv

import (
	"context"
	"errors"
	"net/http"
)

// ErrClosed is returned when a backend is used after Close.
var ErrClosed = errors.New("kv: storage closed")

// Storage is a string key-value partition scoped to one browser.
type Storage interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Provider opens the storage partition for the browser issuing r. Writes may
// emit cookies on w, so Set and Delete must run before the response body is written.
type Provider interface {
	Open(w http.ResponseWriter, r *http.Request) (Storage, error)
	Close() error
}

// Backend is a shared store holding many partitions, addressed by partition id.
type Backend interface {
	Get(ctx context.Context, partition, key string) (string, bool, error)
	Set(ctx context.Context, partition, key, value string) error
	Delete(ctx context.Context, partition, key string) error
	Close() error
}
