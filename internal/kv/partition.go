package kv

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// PartitionedProvider maps each browser to a partition of a shared Backend.
// The partition id travels in a signed cookie that is issued on first write.
type PartitionedProvider struct {
	backend Backend
	cfg     CookieConfig
	codec   *securecookie.SecureCookie
}

// NewPartitionedProvider wraps backend with cookie-based partition assignment.
func NewPartitionedProvider(backend Backend, cfg CookieConfig) (*PartitionedProvider, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrInvalidConfig)
	}
	cfg, err := cfg.withDefaults(defaultPartitionCookie)
	if err != nil {
		return nil, err
	}
	return &PartitionedProvider{backend: backend, cfg: cfg, codec: cfg.codec()}, nil
}

// Open resolves the partition id from the request cookie, if any.
func (p *PartitionedProvider) Open(w http.ResponseWriter, r *http.Request) (Storage, error) {
	return &partitionStorage{provider: p, w: w, partition: p.partitionID(r)}, nil
}

// Close releases the backend.
func (p *PartitionedProvider) Close() error {
	return p.backend.Close()
}

func (p *PartitionedProvider) partitionID(r *http.Request) string {
	c, err := r.Cookie(p.cfg.Name)
	if err != nil || c.Value == "" {
		return ""
	}
	var id string
	if err := p.codec.Decode(p.cfg.Name, c.Value, &id); err != nil {
		return ""
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

func (p *PartitionedProvider) assign(w http.ResponseWriter) (string, error) {
	id := uuid.NewString()
	encoded, err := p.codec.Encode(p.cfg.Name, id)
	if err != nil {
		return "", fmt.Errorf("kv: encode partition cookie: %w", err)
	}
	replaceCookie(w, p.cfg.cookie(encoded))
	return id, nil
}

type partitionStorage struct {
	provider  *PartitionedProvider
	w         http.ResponseWriter
	partition string
}

func (s *partitionStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s.partition == "" {
		return "", false, nil
	}
	return s.provider.backend.Get(ctx, s.partition, key)
}

func (s *partitionStorage) Set(ctx context.Context, key, value string) error {
	if s.partition == "" {
		id, err := s.provider.assign(s.w)
		if err != nil {
			return err
		}
		s.partition = id
	}
	return s.provider.backend.Set(ctx, s.partition, key, value)
}

func (s *partitionStorage) Delete(ctx context.Context, key string) error {
	if s.partition == "" {
		return nil
	}
	return s.provider.backend.Delete(ctx, s.partition, key)
}
