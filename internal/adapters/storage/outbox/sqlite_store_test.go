package outbox_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"gymdesk/internal/adapters/storage"
	outboxstore "gymdesk/internal/adapters/storage/outbox"
	domain "gymdesk/internal/domain/outbox"
)

func newStore(t *testing.T) *outboxstore.SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return outboxstore.NewSQLiteStore(db)
}

func entry(id string, created time.Time) domain.Entry {
	return domain.Entry{
		ID:          id,
		ActionType:  domain.ActionTypeAPISync,
		Payload:     `{"resource":"members","op":"create","entityId":"m-1"}`,
		Status:      domain.StatusPending,
		MaxAttempts: 3,
		CreatedAt:   created,
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	e := entry("ob-1", created)
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.GetByID(ctx, "ob-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Payload != e.Payload || !got.CreatedAt.Equal(created) || got.MaxAttempts != 3 {
		t.Errorf("GetByID = %+v", got)
	}

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetByID(missing) err = %v, want sql.ErrNoRows", err)
	}
}

func TestSQLiteStore_PendingLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.Save(ctx, entry("ob-2", base.Add(time.Minute)))
	s.Save(ctx, entry("ob-1", base))

	pending, err := s.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "ob-1" {
		t.Fatalf("ListPending = %+v, want ob-1 first", pending)
	}
	if n, _ := s.CountPending(ctx); n != 2 {
		t.Errorf("CountPending = %d, want 2", n)
	}

	done := pending[0]
	done.MarkAttempt(base.Add(time.Hour))
	done.MarkSuccess("srv-9")
	s.Save(ctx, done)

	failed := pending[1]
	failed.MarkPermanentFailure(errors.New("400 bad request"))
	failed.LastAttemptedAt = base.Add(time.Hour)
	s.Save(ctx, failed)

	if n, _ := s.CountPending(ctx); n != 0 {
		t.Errorf("CountPending after processing = %d, want 0", n)
	}
	list, _ := s.ListFailed(ctx, 10)
	if len(list) != 1 || list[0].ID != "ob-2" || list[0].ErrorMessage == "" {
		t.Errorf("ListFailed = %+v", list)
	}
	got, _ := s.GetByID(ctx, "ob-1")
	if got.Status != domain.StatusDone || got.ExternalID != "srv-9" {
		t.Errorf("done entry = %+v", got)
	}

	if n, err := s.PurgeDone(ctx, base.Add(30*time.Minute)); err != nil || n != 0 {
		t.Fatalf("PurgeDone before last attempt = %d, %v; want 0", n, err)
	}
	n, err := s.PurgeDone(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("PurgeDone: %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeDone removed %d, want 1", n)
	}
	if _, err := s.GetByID(ctx, "ob-1"); err == nil {
		t.Error("done entry still present after PurgeDone")
	}
	if _, err := s.GetByID(ctx, "ob-2"); err != nil {
		t.Errorf("failed entry purged: %v", err)
	}
}
