package kv

import (
	"context"
	"encoding/json"
	"log/slog"

	"gymdesk/internal/adapters/metrics"
)

// Store wraps a Backend with JSON encoding. Failures are logged and counted,
// never returned: the in-memory state stays authoritative for the session.
type Store struct {
	backend Backend
}

// NewStore creates a Store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Get decodes the JSON value stored under key into dst.
// PRE: dst is a non-nil pointer
// POST: returns false when the key is absent, unreadable or malformed; dst is untouched then
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	raw, ok := s.GetString(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		slog.Warn("kv_decode_failed", "key", key, "error", err)
		metrics.RecordKVFailure(key, "decode")
		return false
	}
	return true
}

// Set JSON-encodes v and overwrites key.
func (s *Store) Set(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("kv_encode_failed", "key", key, "error", err)
		metrics.RecordKVFailure(key, "encode")
		return
	}
	s.SetString(ctx, key, string(b))
}

// GetString returns the raw value under key.
func (s *Store) GetString(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.backend.Read(ctx, key)
	if err != nil {
		slog.Warn("kv_read_failed", "key", key, "error", err)
		metrics.RecordKVFailure(key, "read")
		return "", false
	}
	return v, ok
}

// SetString overwrites key with a raw value.
func (s *Store) SetString(ctx context.Context, key, value string) {
	if err := s.backend.Write(ctx, key, value); err != nil {
		slog.Error("kv_write_failed", "key", key, "error", err)
		metrics.RecordKVFailure(key, "write")
	}
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		slog.Error("kv_delete_failed", "key", key, "error", err)
		metrics.RecordKVFailure(key, "delete")
	}
}
