// Package state holds the client's in-memory application state: the entity
// collections, the activity log and the session, each mirrored into the
// durable store on every mutation.
package state

import "context"

// Store is the durable key-value store the state writes through to.
// Implementations contain their own failures; see kv.Store.
type Store interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, v any)
	GetString(ctx context.Context, key string) (string, bool)
	SetString(ctx context.Context, key, value string)
	Remove(ctx context.Context, key string)
}
