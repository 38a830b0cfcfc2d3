package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gym"
	"gymdesk/internal/domain/member"
	domainOutbox "gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

// CollectionFetcher is the backend surface needed to refresh the cache.
type CollectionFetcher interface {
	ListMembers(ctx context.Context) ([]member.Member, error)
	ListTrainers(ctx context.Context) ([]trainer.Trainer, error)
	ListPayments(ctx context.Context) ([]payment.Payment, error)
	CurrentGym(ctx context.Context) (gym.Info, error)
}

// GymCache stores the gym profile.
type GymCache interface {
	SetGymInfo(ctx context.Context, info gym.Info)
}

// PendingLister lists queued outbox work.
type PendingLister interface {
	ListPending(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
}

// RefreshDeps holds dependencies for RefreshCollections.
type RefreshDeps struct {
	Members  *state.Collection[member.Member]
	Trainers *state.Collection[trainer.Trainer]
	Payments *state.Collection[payment.Payment]
	Gym      GymCache
	Backend  CollectionFetcher
	Outbox   PendingLister
}

// RefreshResult reports the outcome per collection.
type RefreshResult struct {
	Members  ResourceRefresh
	Trainers ResourceRefresh
	Payments ResourceRefresh
	GymInfo  bool
}

// ResourceRefresh describes one refreshed collection.
// Err is only set when the fetch failed and there is no cached data to show.
type ResourceRefresh struct {
	Count int
	Stale bool
	Err   error
}

// Offline reports whether any collection is showing cached data.
func (r RefreshResult) Offline() bool {
	return r.Members.Stale || r.Trainers.Stale || r.Payments.Stale
}

// ExecuteRefreshCollections replaces the cached collections with the backend's lists.
// Local entities that are pending or failed win over the backend's copy.
// PRE: none
// POST: a failed fetch leaves its collection untouched
// POST: Returns api.ErrUnauthorized as an error; other failures are reported per collection
func ExecuteRefreshCollections(ctx context.Context, deps RefreshDeps) (RefreshResult, error) {
	var res RefreshResult
	var err error
	deleted := pendingDeletes(ctx, deps.Outbox)

	if res.Members, err = refreshOne(ctx, domainOutbox.ResourceMember, deps.Members, deps.Backend.ListMembers, deleted); err != nil {
		return res, err
	}
	if res.Trainers, err = refreshOne(ctx, domainOutbox.ResourceTrainer, deps.Trainers, deps.Backend.ListTrainers, deleted); err != nil {
		return res, err
	}
	if res.Payments, err = refreshOne(ctx, domainOutbox.ResourcePayment, deps.Payments, deps.Backend.ListPayments, deleted); err != nil {
		return res, err
	}

	if deps.Gym != nil {
		info, err := deps.Backend.CurrentGym(ctx)
		switch {
		case err == nil:
			deps.Gym.SetGymInfo(ctx, info)
			res.GymInfo = true
		case errors.Is(err, api.ErrUnauthorized):
			return res, err
		default:
			slog.Warn("refresh_failed", "resource", "gym", "error", err)
		}
	}

	slog.Info("sync_event", "event", "collections_refreshed",
		"members", res.Members.Count, "trainers", res.Trainers.Count, "payments", res.Payments.Count,
		"offline", res.Offline())
	return res, nil
}

// pendingDeletes returns the ids with a queued sync delete, keyed by resource.
// The backend still lists them until the delete lands.
func pendingDeletes(ctx context.Context, lister PendingLister) map[string]map[entity.ID]bool {
	out := map[string]map[entity.ID]bool{}
	if lister == nil {
		return out
	}
	entries, err := lister.ListPending(ctx, 1000)
	if err != nil {
		slog.Warn("refresh_failed", "resource", "outbox", "error", err)
		return out
	}
	for _, e := range entries {
		if e.ActionType != domainOutbox.ActionTypeAPISync {
			continue
		}
		var p domainOutbox.SyncPayload
		if json.Unmarshal([]byte(e.Payload), &p) != nil || p.Op != domainOutbox.OpDelete {
			continue
		}
		if out[p.Resource] == nil {
			out[p.Resource] = map[entity.ID]bool{}
		}
		out[p.Resource][p.EntityID] = true
	}
	return out
}

func refreshOne[T state.Keyed](ctx context.Context, name string, c *state.Collection[T], fetch func(context.Context) ([]T, error), deleted map[string]map[entity.ID]bool) (ResourceRefresh, error) {
	remote, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return ResourceRefresh{}, err
		}
		slog.Warn("refresh_failed", "resource", name, "error", err)
		r := ResourceRefresh{Count: c.Len(), Stale: true}
		if r.Count == 0 {
			r.Err = fmt.Errorf("could not load %s: %w", name, err)
		}
		return r, nil
	}

	local := make(map[entity.ID]T)
	for _, v := range c.All() {
		if unsynced(v) {
			local[v.Key()] = v
		}
	}
	seen := make(map[entity.ID]bool, len(remote))
	merged := make([]T, 0, len(remote)+len(local))
	for _, v := range remote {
		if v.Key() == "" || seen[v.Key()] || deleted[name][v.Key()] {
			continue
		}
		seen[v.Key()] = true
		if l, ok := local[v.Key()]; ok {
			merged = append(merged, l)
			continue
		}
		merged = append(merged, markSynced(v))
	}
	for _, v := range c.All() {
		if _, ok := local[v.Key()]; ok && !seen[v.Key()] {
			merged = append(merged, v)
		}
	}
	if err := c.ReplaceAll(ctx, merged); err != nil {
		return ResourceRefresh{}, fmt.Errorf("replace %s: %w", name, err)
	}
	return ResourceRefresh{Count: len(merged)}, nil
}

// markSynced stamps an entity fetched from the backend.
func markSynced[T any](v T) T {
	switch e := any(&v).(type) {
	case *member.Member:
		e.SyncStatus = entity.SyncSynced
	case *trainer.Trainer:
		e.SyncStatus = entity.SyncSynced
	case *payment.Payment:
		e.SyncStatus = entity.SyncSynced
	}
	return v
}

// unsynced reports whether a cached entity still has local changes the backend lacks.
func unsynced[T any](v T) bool {
	var s entity.SyncStatus
	switch e := any(v).(type) {
	case member.Member:
		s = e.SyncStatus
	case trainer.Trainer:
		s = e.SyncStatus
	case payment.Payment:
		s = e.SyncStatus
	}
	return s == entity.SyncPending || s == entity.SyncFailed
}
