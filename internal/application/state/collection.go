package state

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gymdesk/internal/domain/entity"
)

// Collection errors
var (
	ErrDuplicateID = errors.New("an entry with this id already exists")
	ErrNotFound    = errors.New("no entry with this id")
)

// Keyed is implemented by every entity kept in a Collection.
type Keyed interface {
	Key() entity.ID
}

// CollectionOption configures a Collection.
type CollectionOption[T Keyed] func(*Collection[T])

// WithSeed supplies entries used when the key is absent or unreadable.
func WithSeed[T Keyed](seed func() []T) CollectionOption[T] {
	return func(c *Collection[T]) { c.seed = seed }
}

// Collection is an ordered, persisted list of one entity type.
// INVARIANT: ids are unique; the stored value equals items after every mutation
type Collection[T Keyed] struct {
	mu    sync.Mutex
	items []T
	store Store
	key   string
	seed  func() []T
}

// NewCollection loads the collection stored under key.
// PRE: store is non-nil
// POST: absent or malformed data yields an empty collection, or the seed when one is set;
// a stored empty list stays empty
func NewCollection[T Keyed](ctx context.Context, store Store, key string, opts ...CollectionOption[T]) *Collection[T] {
	c := &Collection[T]{store: store, key: key}
	for _, opt := range opts {
		opt(c)
	}

	var stored []T
	found := store.Get(ctx, key, &stored)
	if found {
		c.items = dedupe(stored)
		if len(c.items) != len(stored) {
			slog.Warn("collection_event", "event", "duplicate_ids_dropped", "key", key, "dropped", len(stored)-len(c.items))
		}
	}
	// a stored empty list is a user choice and is not reseeded
	if !found && c.seed != nil {
		c.items = dedupe(c.seed())
		c.persist(ctx)
		slog.Info("collection_event", "event", "seeded", "key", key, "count", len(c.items))
	}
	return c
}

// All returns a copy of the entries in insertion order.
func (c *Collection[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of entries.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Get returns the entry with id.
func (c *Collection[T]) Get(id entity.ID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Add appends v.
// PRE: v.Key() is non-empty and unused
// POST: v is the last entry and the collection is persisted
func (c *Collection[T]) Add(ctx context.Context, v T) error {
	if v.Key() == "" {
		return entity.ErrEmptyID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(v.Key()) >= 0 {
		return ErrDuplicateID
	}
	c.items = append(c.items, v)
	c.persist(ctx)
	return nil
}

// Update applies fn to the entry with id and returns the result.
// A missing id is a no-op. fn must not change the id; such an update is discarded.
// POST: on success the collection is persisted
func (c *Collection[T]) Update(ctx context.Context, id entity.ID, fn func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	i := c.indexOf(id)
	if i < 0 {
		return zero, false
	}
	updated := c.items[i]
	fn(&updated)
	if updated.Key() != id {
		slog.Warn("collection_event", "event", "id_change_rejected", "key", c.key, "id", id)
		return zero, false
	}
	c.items[i] = updated
	c.persist(ctx)
	return updated, true
}

// Remove deletes the entry with id and returns it. A missing id is a no-op.
func (c *Collection[T]) Remove(ctx context.Context, id entity.ID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	i := c.indexOf(id)
	if i < 0 {
		return zero, false
	}
	removed := c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.persist(ctx)
	return removed, true
}

// ReplaceAll swaps the whole list, e.g. after a refresh from the backend.
// PRE: ids in vs are unique and non-empty
func (c *Collection[T]) ReplaceAll(ctx context.Context, vs []T) error {
	if len(dedupe(vs)) != len(vs) {
		return ErrDuplicateID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), vs...)
	c.persist(ctx)
	return nil
}

// Save writes the current list to the store.
func (c *Collection[T]) Save(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persist(ctx)
}

// persist writes the full list. Caller holds mu.
func (c *Collection[T]) persist(ctx context.Context) {
	items := c.items
	if items == nil {
		items = []T{}
	}
	c.store.Set(ctx, c.key, items)
}

func (c *Collection[T]) indexOf(id entity.ID) int {
	for i := range c.items {
		if c.items[i].Key() == id {
			return i
		}
	}
	return -1
}

// dedupe keeps the first entry for each id and drops entries without one.
func dedupe[T Keyed](vs []T) []T {
	seen := make(map[entity.ID]bool, len(vs))
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		if v.Key() == "" || seen[v.Key()] {
			continue
		}
		seen[v.Key()] = true
		out = append(out, v)
	}
	return out
}
