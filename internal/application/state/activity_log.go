package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymdesk/internal/adapters/metrics"
	"gymdesk/internal/adapters/storage/kv"
	"gymdesk/internal/domain/activity"
)

// ActivityLog is the newest-first feed of notable mutations.
// INVARIANT: no entry older than activity.Retention survives a load
type ActivityLog struct {
	mu    sync.Mutex
	items []activity.Activity
	store Store
	now   func() time.Time
}

// NewActivityLog loads the feed, drops expired entries and persists the result.
// PRE: store is non-nil; now may be nil (time.Now)
// POST: pruning is sticky; loading twice yields the same list
func NewActivityLog(ctx context.Context, store Store, now func() time.Time) *ActivityLog {
	if now == nil {
		now = time.Now
	}
	l := &ActivityLog{store: store, now: now}

	var stored []activity.Activity
	store.Get(ctx, kv.KeyActivities, &stored)
	l.items = activity.Prune(stored, now())
	if dropped := len(stored) - len(l.items); dropped > 0 {
		slog.Info("activity_event", "event", "pruned", "dropped", dropped)
	}
	l.persist(ctx)
	return l
}

// Append records a new activity at the head of the feed.
// PRE: action is a known action; snapshot is only set for deletions
// POST: the activity is first in All() and persisted
func (l *ActivityLog) Append(ctx context.Context, action activity.Action, description, details string, snapshot *activity.Snapshot) (activity.Activity, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return activity.Activity{}, fmt.Errorf("activity id: %w", err)
	}
	a := activity.Activity{
		ID:          id.String(),
		Action:      action,
		Description: description,
		Timestamp:   l.now(),
		Details:     details,
		DeletedData: snapshot,
		State:       activity.StateActive,
	}
	if err := a.Validate(); err != nil {
		return activity.Activity{}, err
	}

	l.mu.Lock()
	l.items = append([]activity.Activity{a}, l.items...)
	l.persist(ctx)
	l.mu.Unlock()

	metrics.RecordActivity(string(action))
	return a, nil
}

// All returns every activity, newest first.
func (l *ActivityLog) All() []activity.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]activity.Activity(nil), l.items...)
}

// Recent returns at most n activities, newest first.
func (l *ActivityLog) Recent(n int) []activity.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.items) {
		n = len(l.items)
	}
	if n < 0 {
		n = 0
	}
	return append([]activity.Activity(nil), l.items[:n]...)
}

// Len returns the number of activities.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Get returns the activity with id.
func (l *ActivityLog) Get(id string) (activity.Activity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(id); i >= 0 {
		return l.items[i], true
	}
	return activity.Activity{}, false
}

// Remove deletes the activity with id. A missing id is a no-op.
func (l *ActivityLog) Remove(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i:i], l.items[i+1:]...)
	l.persist(ctx)
	return true
}

// Clear empties the feed.
func (l *ActivityLog) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.persist(ctx)
}

// Consume marks a deletion's snapshot as restored so it cannot be restored again.
// PRE: the activity exists and is restorable
// POST: its State is consumed and the feed is persisted
func (l *ActivityLog) Consume(ctx context.Context, id string) (activity.Activity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return activity.Activity{}, ErrNotFound
	}
	a := l.items[i]
	if err := a.Consume(); err != nil {
		return activity.Activity{}, err
	}
	l.items[i] = a
	l.persist(ctx)
	return a, nil
}

// Save writes the current feed to the store.
func (l *ActivityLog) Save(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.persist(ctx)
}

func (l *ActivityLog) persist(ctx context.Context) {
	items := l.items
	if items == nil {
		items = []activity.Activity{}
	}
	l.store.Set(ctx, kv.KeyActivities, items)
}

func (l *ActivityLog) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}
