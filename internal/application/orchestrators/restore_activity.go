package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	domainOutbox "gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

// ErrAlreadyPresent is returned when the snapshot's id is back in its collection.
var ErrAlreadyPresent = errors.New("an entry with this id already exists; nothing to restore")

// RestoreActivityInput carries input for the restore orchestrator.
type RestoreActivityInput struct {
	ActivityID string
}

// RestoreActivityDeps holds dependencies for RestoreActivity.
type RestoreActivityDeps struct {
	Members    *state.Collection[member.Member]
	Trainers   *state.Collection[trainer.Trainer]
	Payments   *state.Collection[payment.Payment]
	Packages   *state.Collection[gympackage.Package]
	Activities *state.ActivityLog
	Outbox     OutboxWriter
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteRestoreActivity re-adds the entity captured by a deletion activity.
// PRE: the activity exists, is a deletion and has not been restored
// POST: the snapshot is back in its collection, the activity is consumed and a *_restored
// activity is appended; server-backed kinds get a sync create queued
// INVARIANT: a snapshot is restored at most once and never duplicates an id
func ExecuteRestoreActivity(ctx context.Context, input RestoreActivityInput, deps RestoreActivityDeps) (activity.Activity, error) {
	a, ok := deps.Activities.Get(input.ActivityID)
	if !ok {
		return activity.Activity{}, fmt.Errorf("activity %s: %w", input.ActivityID, state.ErrNotFound)
	}
	if a.State == activity.StateConsumed {
		return activity.Activity{}, activity.ErrAlreadyConsumed
	}
	if !a.Restorable() {
		return activity.Activity{}, activity.ErrNotRestorable
	}

	snap := a.DeletedData
	var (
		id       entity.ID
		name     string
		resource string
		body     any
		err      error
	)
	switch snap.Kind {
	case activity.KindMember:
		m := *snap.Member
		m.SyncStatus = entity.SyncPending
		id, name, resource, body = m.ID, "member "+m.FullName(), domainOutbox.ResourceMember, m
		err = restoreInto(ctx, deps.Members, m)
	case activity.KindTrainer:
		t := *snap.Trainer
		t.SyncStatus = entity.SyncPending
		id, name, resource, body = t.ID, "trainer "+t.FullName(), domainOutbox.ResourceTrainer, t
		err = restoreInto(ctx, deps.Trainers, t)
	case activity.KindPayment:
		p := *snap.Payment
		p.SyncStatus = entity.SyncPending
		id, name, resource, body = p.ID, "payment "+string(p.ID), domainOutbox.ResourcePayment, p
		err = restoreInto(ctx, deps.Payments, p)
	case activity.KindPackage:
		p := *snap.Package
		id, name = p.ID, "package "+p.Name
		err = restoreInto(ctx, deps.Packages, p)
	default:
		return activity.Activity{}, activity.ErrSnapshotKind
	}
	if err != nil {
		return activity.Activity{}, err
	}

	if _, err := deps.Activities.Consume(ctx, a.ID); err != nil {
		return activity.Activity{}, err
	}
	if resource != "" {
		if err := enqueueSync(ctx, deps.Outbox, deps.GenerateID(), deps.Now(), resource, domainOutbox.OpCreate, id, body); err != nil {
			return activity.Activity{}, err
		}
	}
	action := activity.RestoredAction(snap.Kind)
	restored, err := deps.Activities.Append(ctx, action, "Restored "+name, "", nil)
	if err != nil {
		warnActivity(action, err)
	}

	slog.Info("activity_event", "event", "activity_restored", "activity_id", a.ID, "kind", snap.Kind, "entity_id", id)
	return restored, nil
}

func restoreInto[T state.Keyed](ctx context.Context, c *state.Collection[T], v T) error {
	if err := c.Add(ctx, v); err != nil {
		if errors.Is(err, state.ErrDuplicateID) {
			return fmt.Errorf("%s: %w", v.Key(), ErrAlreadyPresent)
		}
		return err
	}
	return nil
}
