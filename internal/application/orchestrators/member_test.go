package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gympackage"
	domainOutbox "gymdesk/internal/domain/outbox"
)

func addMemberDeps(app *state.App, backend *mockBackend, ob *mockOutbox) AddMemberDeps {
	return AddMemberDeps{
		Members:    app.Members,
		Packages:   app.Packages,
		Activities: app.Activities,
		Backend:    backend,
		Outbox:     ob,
		Now:        fixedNow,
		GenerateID: seqIDs(),
	}
}

var ashaInput = AddMemberInput{FirstName: "Asha", LastName: "Rao", Email: "asha@gym.example"}

// --- ExecuteAddMember tests ---

func TestExecuteAddMember_Online(t *testing.T) {
	app := newTestApp(t)
	backend := &mockBackend{nextID: "srv-1"}
	ob := newMockOutbox()

	m, err := ExecuteAddMember(context.Background(), ashaInput, addMemberDeps(app, backend, ob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != "srv-1" {
		t.Errorf("expected server id srv-1, got %s", m.ID)
	}
	if m.SyncStatus != entity.SyncSynced {
		t.Errorf("expected synced, got %s", m.SyncStatus)
	}
	if m.Username != "asha" {
		t.Errorf("expected username derived from email, got %q", m.Username)
	}
	if m.JoinDate != "2026-03-10" {
		t.Errorf("expected join date to default to today, got %q", m.JoinDate)
	}
	if _, ok := app.Members.Get("srv-1"); !ok {
		t.Error("expected member in collection")
	}
	if n := len(ob.all()); n != 0 {
		t.Errorf("expected no queued sync work, got %d", n)
	}
	recent := app.Activities.Recent(1)
	if len(recent) != 1 || recent[0].Action != activity.MemberAdded {
		t.Fatalf("expected member_added activity, got %+v", recent)
	}
	if recent[0].Description != "Added member Asha Rao" {
		t.Errorf("unexpected description %q", recent[0].Description)
	}
}

func TestExecuteAddMember_OfflineQueuesCreate(t *testing.T) {
	app := newTestApp(t)
	backend := &mockBackend{err: errOffline}
	ob := newMockOutbox()

	m, err := ExecuteAddMember(context.Background(), ashaInput, addMemberDeps(app, backend, ob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != "id-1" {
		t.Errorf("expected local id id-1, got %s", m.ID)
	}
	if m.SyncStatus != entity.SyncPending {
		t.Errorf("expected pending, got %s", m.SyncStatus)
	}
	payloads := ob.syncPayloads(t)
	if len(payloads) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(payloads))
	}
	p := payloads[0]
	if p.Resource != domainOutbox.ResourceMember || p.Op != domainOutbox.OpCreate || p.EntityID != "id-1" {
		t.Errorf("unexpected payload %+v", p)
	}
	if d := app.Activities.Recent(1)[0].Details; d != offlineDetails {
		t.Errorf("expected offline details, got %q", d)
	}
}

func TestExecuteAddMember_ValidationFailsWithoutMutation(t *testing.T) {
	app := newTestApp(t)
	backend := &mockBackend{nextID: "srv-1"}
	ob := newMockOutbox()
	in := ashaInput
	in.Email = "not-an-email"

	_, err := ExecuteAddMember(context.Background(), in, addMemberDeps(app, backend, ob))
	if !errors.Is(err, entity.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if backend.callCount() != 0 {
		t.Error("expected no backend call for invalid input")
	}
	if app.Members.Len() != 0 || app.Activities.Len() != 0 {
		t.Error("expected no state change")
	}
}

func TestExecuteAddMember_RejectedByBackend(t *testing.T) {
	app := newTestApp(t)
	backend := &mockBackend{err: &api.Error{Status: http.StatusConflict, Message: "email already registered"}}
	ob := newMockOutbox()

	_, err := ExecuteAddMember(context.Background(), ashaInput, addMemberDeps(app, backend, ob))
	if err == nil || err.Error() != "email already registered" {
		t.Fatalf("expected backend message, got %v", err)
	}
	if app.Members.Len() != 0 || len(ob.all()) != 0 {
		t.Error("expected a rejected create to leave state unchanged")
	}
}

func TestExecuteAddMember_PackageDerivesExpiry(t *testing.T) {
	app := newTestApp(t)
	pkg := gympackage.Defaults(fixedTime)[0]
	if err := app.Packages.Add(context.Background(), pkg); err != nil {
		t.Fatal(err)
	}
	in := ashaInput
	in.PackageID = pkg.ID
	in.JoinDate = "2026-01-31"

	m, err := ExecuteAddMember(context.Background(), in, addMemberDeps(app, &mockBackend{nextID: "srv-1"}, newMockOutbox()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PackageName != pkg.Name {
		t.Errorf("expected package name %q, got %q", pkg.Name, m.PackageName)
	}
	if m.ExpiryDate != "2026-03-03" {
		t.Errorf("expected one month after join (normalized), got %s", m.ExpiryDate)
	}
}

func TestExecuteAddMember_UnknownPackage(t *testing.T) {
	app := newTestApp(t)
	in := ashaInput
	in.PackageID = "missing"

	_, err := ExecuteAddMember(context.Background(), in, addMemberDeps(app, &mockBackend{nextID: "srv-1"}, newMockOutbox()))
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- ExecuteUpdateMember tests ---

func TestExecuteUpdateMember_OnlyNamedFields(t *testing.T) {
	app := newTestApp(t)
	original := newMember("m1", "Asha", "asha@gym.example")
	original.Phone = "111"
	if err := app.Members.Add(context.Background(), original); err != nil {
		t.Fatal(err)
	}
	ob := newMockOutbox()
	phone := "222"

	updated, err := ExecuteUpdateMember(context.Background(), UpdateMemberInput{
		MemberID: "m1",
		Patch:    MemberPatch{Phone: &phone},
	}, UpdateMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: ob, Now: fixedNow, GenerateID: seqIDs()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Phone != "222" || updated.Email != original.Email || updated.FirstName != original.FirstName {
		t.Errorf("unexpected update result %+v", updated)
	}
	if updated.SyncStatus != entity.SyncPending {
		t.Errorf("expected pending, got %s", updated.SyncStatus)
	}

	payloads := ob.syncPayloads(t)
	if len(payloads) != 1 || payloads[0].Op != domainOutbox.OpUpdate {
		t.Fatalf("expected one update, got %+v", payloads)
	}
	var body map[string]any
	if err := json.Unmarshal(payloads[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if len(body) != 1 || body["phone"] != "222" {
		t.Errorf("expected only phone in body, got %v", body)
	}
	if a := app.Activities.Recent(1)[0]; a.Action != activity.MemberEdited || a.Details != "Changed phone" {
		t.Errorf("unexpected activity %+v", a)
	}
}

func TestExecuteUpdateMember_NotFound(t *testing.T) {
	app := newTestApp(t)
	name := "X"
	_, err := ExecuteUpdateMember(context.Background(), UpdateMemberInput{
		MemberID: "missing",
		Patch:    MemberPatch{FirstName: &name},
	}, UpdateMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: newMockOutbox(), Now: fixedNow, GenerateID: seqIDs()})
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if app.Activities.Len() != 0 {
		t.Error("expected no activity for a missing member")
	}
}

func TestExecuteUpdateMember_InvalidPatchKeepsMember(t *testing.T) {
	app := newTestApp(t)
	if err := app.Members.Add(context.Background(), newMember("m1", "Asha", "asha@gym.example")); err != nil {
		t.Fatal(err)
	}
	bad := "nope"
	ob := newMockOutbox()
	_, err := ExecuteUpdateMember(context.Background(), UpdateMemberInput{
		MemberID: "m1",
		Patch:    MemberPatch{Email: &bad},
	}, UpdateMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: ob, Now: fixedNow, GenerateID: seqIDs()})
	if !errors.Is(err, entity.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	m, _ := app.Members.Get("m1")
	if m.Email != "asha@gym.example" || len(ob.all()) != 0 {
		t.Error("expected invalid patch to change nothing")
	}
}

// --- ExecuteDeleteMember tests ---

func TestExecuteDeleteMember(t *testing.T) {
	app := newTestApp(t)
	m := newMember("m1", "Asha", "asha@gym.example")
	if err := app.Members.Add(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	ob := newMockOutbox()

	a, err := ExecuteDeleteMember(context.Background(), DeleteMemberInput{MemberID: "m1"},
		DeleteMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: ob, Now: fixedNow, GenerateID: seqIDs()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Members.Len() != 0 {
		t.Error("expected member removed")
	}
	if a.Action != activity.MemberDeleted || a.DeletedData == nil || a.DeletedData.Member == nil {
		t.Fatalf("expected snapshot on member_deleted, got %+v", a)
	}
	if a.DeletedData.Member.Email != m.Email {
		t.Errorf("snapshot differs from deleted member")
	}
	payloads := ob.syncPayloads(t)
	if len(payloads) != 1 || payloads[0].Op != domainOutbox.OpDelete || payloads[0].EntityID != "m1" {
		t.Errorf("expected queued delete for m1, got %+v", payloads)
	}
}

func TestExecuteDeleteMember_MissingIsNoOp(t *testing.T) {
	app := newTestApp(t)
	_, err := ExecuteDeleteMember(context.Background(), DeleteMemberInput{MemberID: "missing"},
		DeleteMemberDeps{Members: app.Members, Activities: app.Activities, Outbox: newMockOutbox(), Now: fixedNow, GenerateID: seqIDs()})
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if app.Activities.Len() != 0 {
		t.Error("expected no activity")
	}
}
