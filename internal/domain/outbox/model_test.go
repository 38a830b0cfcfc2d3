package outbox_test

import (
	"errors"
	"testing"
	"time"

	"gymdesk/internal/domain/outbox"
)

// TestEntryLifecycle tests attempts, failure and terminal states.
func TestEntryLifecycle(t *testing.T) {
	e := outbox.Entry{ActionType: outbox.ActionTypeAPISync, Payload: "{}", Status: outbox.StatusPending, CreatedAt: time.Now()}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if e.MaxAttempts != outbox.DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want default", e.MaxAttempts)
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < outbox.DefaultMaxAttempts-1; i++ {
		e.MarkAttempt(now)
		e.MarkFailed(errors.New("boom"))
		if e.IsTerminal() {
			t.Fatalf("terminal after %d attempts", e.Attempts)
		}
		if !e.CanRetry() {
			t.Fatalf("cannot retry after %d attempts", e.Attempts)
		}
	}
	e.MarkAttempt(now)
	e.MarkFailed(errors.New("boom"))
	if e.Status != outbox.StatusFailed || !e.IsTerminal() {
		t.Errorf("status = %s, terminal = %v; want failed terminal", e.Status, e.IsTerminal())
	}
	if e.LastAttemptedAt != now {
		t.Error("LastAttemptedAt not recorded")
	}
}

// TestMarkPermanentFailure tests that non-retryable errors end the entry.
func TestMarkPermanentFailure(t *testing.T) {
	e := outbox.Entry{Status: outbox.StatusPending, MaxAttempts: 5}
	e.MarkPermanentFailure(errors.New("bad request"))
	if !e.IsTerminal() || e.CanRetry() {
		t.Error("expected terminal entry")
	}
}

// TestNextRetryDelay tests exponential backoff with a cap.
func TestNextRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{10, time.Minute},
		{64, time.Minute},
	}
	for _, tt := range tests {
		e := outbox.Entry{Attempts: tt.attempts}
		if got := e.NextRetryDelay(time.Second, time.Minute); got != tt.want {
			t.Errorf("attempts=%d: delay = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

// TestSyncPayloadValidate tests sync payload validation.
func TestSyncPayloadValidate(t *testing.T) {
	ok := outbox.SyncPayload{Resource: outbox.ResourceMember, Op: outbox.OpCreate, EntityID: "m-1"}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []outbox.SyncPayload{
		{Resource: "packages", Op: outbox.OpCreate, EntityID: "p"},
		{Resource: outbox.ResourceMember, Op: "upsert", EntityID: "m"},
		{Resource: outbox.ResourceMember, Op: outbox.OpDelete},
	} {
		if err := bad.Validate(); err != outbox.ErrInvalidSync {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidSync", bad, err)
		}
	}
}
