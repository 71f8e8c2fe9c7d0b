package kv

import (
	"context"
	"sync"
)

// MemoryBackend keeps partitions in process memory. Data is lost on restart.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   map[string]map[string]string
	closed bool
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, partition, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.data[partition][key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, partition, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	p, ok := m.data[partition]
	if !ok {
		p = make(map[string]string)
		m.data[partition] = p
	}
	p[key] = value
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, partition, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	p, ok := m.data[partition]
	if !ok {
		return nil
	}
	delete(p, key)
	if len(p) == 0 {
		delete(m.data, partition)
	}
	return nil
}

// Close marks the backend closed; later calls return ErrClosed.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
