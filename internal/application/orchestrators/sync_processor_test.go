package orchestrators

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/adapters/email"
	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/entity"
	domainOutbox "gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/payment"
)

func newProcessor(app *state.App, backend *mockBackend, ob *mockOutbox, sender email.Sender, opts ...ProcessorOption) *SyncProcessor {
	executors := map[string]ActionExecutor{
		domainOutbox.ActionTypeAPISync: &APISyncExecutor{
			Client:   backend,
			Members:  app.Members,
			Trainers: app.Trainers,
			Payments: app.Payments,
			Outbox:   ob,
		},
		domainOutbox.ActionTypePaymentReceipt: &ReceiptExecutor{Sender: sender},
	}
	opts = append([]ProcessorOption{WithProcessorClock(fixedNow), WithBackoff(0, 0)}, opts...)
	return NewSyncProcessor(ob, executors, opts...)
}

// addOfflineMember creates a member while the backend is unreachable.
func addOfflineMember(t *testing.T, app *state.App, ob *mockOutbox, ids func() string) entity.ID {
	t.Helper()
	deps := addMemberDeps(app, &mockBackend{err: errOffline}, ob)
	deps.GenerateID = ids
	m, err := ExecuteAddMember(context.Background(), ashaInput, deps)
	if err != nil {
		t.Fatal(err)
	}
	return m.ID
}

func TestSyncProcessor_OfflineCreateIsRemapped(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	ids := seqIDs()
	localID := addOfflineMember(t, app, ob, ids)

	pay, err := ExecuteAddPayment(ctx, AddPaymentInput{UserID: localID, Amount: 100, Method: payment.MethodUPI},
		AddPaymentDeps{Payments: app.Payments, Members: app.Members, Trainers: app.Trainers, Activities: app.Activities, Outbox: ob, Now: fixedNow, GenerateID: ids})
	if err != nil {
		t.Fatal(err)
	}
	phone := "999"
	if _, err := ExecuteUpdateMember(ctx, UpdateMemberInput{MemberID: localID, Patch: MemberPatch{Phone: &phone}},
		UpdateMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: ob, Now: fixedNow, GenerateID: ids}); err != nil {
		t.Fatal(err)
	}

	backend := &mockBackend{nextID: "srv-42"}
	res, err := newProcessor(app, backend, ob, email.NewNoopSender()).ProcessPending(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Succeeded != 3 {
		t.Fatalf("expected 3 entries delivered, got %+v (calls %v)", res, backend.calls)
	}

	if _, ok := app.Members.Get(localID); ok {
		t.Error("expected local id to be replaced")
	}
	m, ok := app.Members.Get("srv-42")
	if !ok {
		t.Fatal("expected member under the server id")
	}
	if m.SyncStatus != entity.SyncSynced || m.Phone != "999" {
		t.Errorf("unexpected member after sync %+v", m)
	}
	p, _ := app.Payments.Get(pay.ID)
	if p.UserID != "srv-42" || p.SyncStatus != entity.SyncSynced {
		t.Errorf("expected payment repointed and synced, got %+v", p)
	}
	want := []string{"CreateUser", "CreatePayment srv-42", "PatchUser srv-42"}
	if strings.Join(backend.calls, "|") != strings.Join(want, "|") {
		t.Errorf("expected calls %v, got %v", want, backend.calls)
	}
	if n, _ := ob.CountPending(ctx); n != 0 {
		t.Errorf("expected empty backlog, got %d", n)
	}
}

func TestSyncProcessor_HoldsLaterChangesBehindRetryingCreate(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	ids := seqIDs()
	localID := addOfflineMember(t, app, ob, ids)
	phone := "999"
	if _, err := ExecuteUpdateMember(ctx, UpdateMemberInput{MemberID: localID, Patch: MemberPatch{Phone: &phone}},
		UpdateMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: ob, Now: fixedNow, GenerateID: ids}); err != nil {
		t.Fatal(err)
	}
	backend := &mockBackend{
		nextID:   "srv-1",
		failOnce: map[string]error{"CreateUser": &api.Error{Status: http.StatusServiceUnavailable, Message: "down"}},
	}
	proc := newProcessor(app, backend, ob, email.NewNoopSender())

	res, err := proc.ProcessPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Retrying != 1 || res.Deferred != 1 || res.Succeeded != 0 {
		t.Fatalf("expected create retrying and update held, got %+v (calls %v)", res, backend.calls)
	}
	entries := ob.all()
	if err := proc.ProcessSingle(ctx, entries[1].ID); !errors.Is(err, ErrQueuedBehind) {
		t.Errorf("expected manual retry of the update to wait for the create, got %v", err)
	}

	if res, err := proc.ProcessPending(ctx); err != nil || res.Succeeded != 2 {
		t.Fatalf("expected create then update delivered, got %+v, %v", res, err)
	}
	want := []string{"CreateUser", "CreateUser", "PatchUser srv-1"}
	if strings.Join(backend.calls, "|") != strings.Join(want, "|") {
		t.Errorf("expected calls %v, got %v", want, backend.calls)
	}
}

func TestSyncProcessor_DeletingUnsentMemberNeverReachesBackend(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	ids := seqIDs()
	localID := addOfflineMember(t, app, ob, ids)
	backend := &mockBackend{
		nextID:   "srv-1",
		failOnce: map[string]error{"CreateUser": &api.Error{Status: http.StatusServiceUnavailable, Message: "down"}},
	}
	proc := newProcessor(app, backend, ob, email.NewNoopSender())
	if res, _ := proc.ProcessPending(ctx); res.Retrying != 1 {
		t.Fatalf("expected create retrying, got %+v", res)
	}

	if _, err := ExecuteDeleteMember(ctx, DeleteMemberInput{MemberID: localID},
		DeleteMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: ob, Now: fixedNow, GenerateID: ids}); err != nil {
		t.Fatal(err)
	}
	for _, p := range ob.syncPayloads(t) {
		if p.Op == domainOutbox.OpDelete {
			t.Errorf("expected no delete queued for a member the backend never saw, got %+v", p)
		}
	}

	res, err := proc.ProcessPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res != (PassResult{}) {
		t.Errorf("expected nothing left to send, got %+v", res)
	}
	if len(backend.calls) != 1 {
		t.Errorf("expected only the first failed create, got %v", backend.calls)
	}
	for _, e := range ob.all() {
		if e.Status != domainOutbox.StatusAbandoned {
			t.Errorf("expected entry %s abandoned, got %s", e.ID, e.Status)
		}
	}
}

func TestSyncProcessor_PermanentFailureMarksEntityFailed(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	localID := addOfflineMember(t, app, ob, seqIDs())

	backend := &mockBackend{err: &api.Error{Status: http.StatusUnprocessableEntity, Message: "email taken"}}
	res, err := newProcessor(app, backend, ob, email.NewNoopSender()).ProcessPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 {
		t.Errorf("expected one failed entry, got %+v", res)
	}
	m, _ := app.Members.Get(localID)
	if m.SyncStatus != entity.SyncFailed {
		t.Errorf("expected member failed, got %s", m.SyncStatus)
	}
	failed, _ := ob.ListFailed(ctx, 10)
	if len(failed) != 1 || failed[0].ErrorMessage != "email taken" {
		t.Errorf("expected failed entry with message, got %+v", failed)
	}
}

func TestSyncProcessor_RetriesUntilExhausted(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	localID := addOfflineMember(t, app, ob, seqIDs())
	proc := newProcessor(app, &mockBackend{err: errOffline}, ob, email.NewNoopSender())

	for i := 1; i < domainOutbox.DefaultMaxAttempts; i++ {
		res, err := proc.ProcessPending(ctx)
		if err != nil || res.Retrying != 1 {
			t.Fatalf("pass %d: expected retry, got %+v, %v", i, res, err)
		}
		if m, _ := app.Members.Get(localID); m.SyncStatus != entity.SyncPending {
			t.Fatalf("pass %d: expected member still pending", i)
		}
	}
	res, _ := proc.ProcessPending(ctx)
	if res.Failed != 1 {
		t.Fatalf("expected final pass to fail the entry, got %+v", res)
	}
	if m, _ := app.Members.Get(localID); m.SyncStatus != entity.SyncFailed {
		t.Errorf("expected member failed after exhaustion, got %s", m.SyncStatus)
	}
}

func TestSyncProcessor_BackoffDefersEntries(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	addOfflineMember(t, app, ob, seqIDs())
	now := fixedTime
	proc := newProcessor(app, &mockBackend{err: errOffline}, ob, email.NewNoopSender(),
		WithBackoff(time.Minute, time.Hour), WithProcessorClock(func() time.Time { return now }))

	if res, _ := proc.ProcessPending(ctx); res.Retrying != 1 {
		t.Fatalf("expected first attempt, got %+v", res)
	}
	if res, _ := proc.ProcessPending(ctx); res.Deferred != 1 {
		t.Fatalf("expected second pass deferred by backoff, got %+v", res)
	}
	now = now.Add(2 * time.Minute)
	if res, _ := proc.ProcessPending(ctx); res.Retrying != 1 {
		t.Fatalf("expected retry after the delay, got %+v", res)
	}
}

func TestSyncProcessor_UnauthorizedStopsPass(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	ids := seqIDs()
	addOfflineMember(t, app, ob, ids)
	addOfflineMember(t, app, ob, ids)
	backend := &mockBackend{err: api.ErrUnauthorized}

	_, err := newProcessor(app, backend, ob, email.NewNoopSender()).ProcessPending(ctx)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if backend.callCount() != 1 {
		t.Errorf("expected pass to stop after the first 401, got %d calls", backend.callCount())
	}
	for _, e := range ob.all() {
		if e.Attempts != 0 || e.Status != domainOutbox.StatusPending {
			t.Errorf("expected entry %s untouched, got %+v", e.ID, e)
		}
	}
}

func TestSyncProcessor_DeleteOfMissingIsDone(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	if err := enqueueSync(ctx, ob, "e1", fixedTime, domainOutbox.ResourceTrainer, domainOutbox.OpDelete, "t9", nil); err != nil {
		t.Fatal(err)
	}
	backend := &mockBackend{err: &api.Error{Status: http.StatusNotFound, Message: "not found"}}

	res, err := newProcessor(app, backend, ob, email.NewNoopSender()).ProcessPending(ctx)
	if err != nil || res.Succeeded != 1 {
		t.Fatalf("expected delete of a missing trainer to succeed, got %+v, %v", res, err)
	}
}

func TestSyncProcessor_PurgesOldFinishedEntries(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	stale := domainOutbox.Entry{
		ID:          "old",
		ActionType:  domainOutbox.ActionTypeAPISync,
		Status:      domainOutbox.StatusDone,
		MaxAttempts: 3,
		CreatedAt:   fixedTime.Add(-48 * time.Hour),
	}
	recent := stale
	recent.ID = "recent"
	recent.CreatedAt = fixedTime.Add(-time.Hour)
	ob.Save(ctx, stale)
	ob.Save(ctx, recent)

	_, err := newProcessor(app, &mockBackend{}, ob, email.NewNoopSender(), WithRetention(24*time.Hour)).ProcessPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ob.GetByID(ctx, "old"); err == nil {
		t.Error("expected entry past retention to be purged")
	}
	if _, err := ob.GetByID(ctx, "recent"); err != nil {
		t.Errorf("expected recent entry kept: %v", err)
	}
}

func TestSyncProcessor_SendsReceipt(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	if err := app.Members.Add(ctx, newMember("m1", "Asha", "asha@gym.example")); err != nil {
		t.Fatal(err)
	}
	deps := addPaymentDeps(app, ob)
	if _, err := ExecuteAddPayment(ctx, AddPaymentInput{UserID: "m1", Amount: 1500, Method: payment.MethodUPI, SendReceipt: true}, deps); err != nil {
		t.Fatal(err)
	}
	sender := email.NewNoopSender()

	res, err := newProcessor(app, &mockBackend{}, ob, sender).ProcessPending(ctx)
	if err != nil || res.Succeeded != 2 {
		t.Fatalf("expected sync and receipt delivered, got %+v, %v", res, err)
	}
	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sent))
	}
	if sent[0].To[0] != "asha@gym.example" || sent[0].Subject != "Iron Temple: Payment receipt PAY001" {
		t.Errorf("unexpected email %+v", sent[0])
	}
	if !strings.Contains(sent[0].HTML, "<table>") {
		t.Error("expected rendered HTML table")
	}
	if sent[0].Tags["kind"] != "receipt" || sent[0].Tags["payment_id"] != "PAY001" {
		t.Errorf("unexpected tags %v", sent[0].Tags)
	}
}

func TestSyncProcessor_UnknownActionFails(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	if err := enqueue(ctx, ob, "e1", fixedTime, "fax", map[string]string{"to": "x"}); err != nil {
		t.Fatal(err)
	}
	res, _ := newProcessor(app, &mockBackend{}, ob, email.NewNoopSender()).ProcessPending(ctx)
	if res.Failed != 1 {
		t.Errorf("expected unknown action to fail, got %+v", res)
	}
}

func TestSyncProcessor_AbandonAndRetry(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	ob := newMockOutbox()
	ids := seqIDs()
	first := addOfflineMember(t, app, ob, ids)
	proc := newProcessor(app, &mockBackend{nextID: "srv-1"}, ob, email.NewNoopSender())
	entries := ob.all()

	if err := proc.AbandonEntry(ctx, entries[0].ID); err != nil {
		t.Fatal(err)
	}
	if m, _ := app.Members.Get(first); m.SyncStatus != entity.SyncFailed {
		t.Errorf("expected abandoned create to mark member failed, got %s", m.SyncStatus)
	}
	if err := proc.ProcessSingle(ctx, entries[0].ID); err == nil {
		t.Error("expected abandoned entry to refuse retry")
	}

	second := addOfflineMember(t, app, ob, ids)
	pending, _ := proc.Pending(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected one pending entry, got %d", len(pending))
	}
	if err := proc.ProcessSingle(ctx, pending[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := app.Members.Get(second); ok {
		t.Error("expected second member remapped to the server id")
	}
}

func TestStartBackgroundWorker_StopsOnSignal(t *testing.T) {
	app := newTestApp(t)
	ob := newMockOutbox()
	proc := newProcessor(app, &mockBackend{}, ob, email.NewNoopSender())
	stop := make(chan struct{})

	done := StartBackgroundWorker(proc, 10*time.Millisecond, stop)
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
