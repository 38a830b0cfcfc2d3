package kv

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in a map. Used for tests and GYMDESK_STORE=memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]string
	// WriteErr, when set, is returned by every Write and Delete.
	WriteErr error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

// Read returns the stored value for key.
func (b *MemoryBackend) Read(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

// Write replaces the value for key.
func (b *MemoryBackend) Write(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteErr != nil {
		return b.WriteErr
	}
	b.data[key] = value
	return nil
}

// Delete removes key.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteErr != nil {
		return b.WriteErr
	}
	delete(b.data, key)
	return nil
}

// Raw returns the stored string, bypassing decoding. Test helper.
func (b *MemoryBackend) Raw(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok
}
