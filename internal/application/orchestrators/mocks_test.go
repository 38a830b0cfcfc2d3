package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/adapters/storage/kv"
	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gym"
	"gymdesk/internal/domain/member"
	domainOutbox "gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

var fixedTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// seqIDs returns a generator yielding id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var errOffline = fmt.Errorf("POST /users: %w: dial tcp: connection refused", api.ErrNetwork)

// newTestApp returns a loaded App over an in-memory store, without demo packages.
func newTestApp(t *testing.T) *state.App {
	t.Helper()
	app := state.NewApp(kv.NewStore(kv.NewMemoryBackend()), state.WithClock(fixedNow), state.WithoutPackageSeed())
	app.Load(context.Background())
	return app
}

func newMember(id, first, email string) member.Member {
	return member.Member{Person: entity.Person{
		ID:         entity.ID(id),
		Username:   first,
		FirstName:  first,
		LastName:   "Rao",
		Email:      email,
		Role:       entity.RoleMember,
		IsActive:   true,
		CreatedAt:  fixedTime,
		SyncStatus: entity.SyncSynced,
	}}
}

func newTrainer(id, first string) trainer.Trainer {
	return trainer.Trainer{Person: entity.Person{
		ID:         entity.ID(id),
		FirstName:  first,
		Email:      first + "@gym.example",
		Role:       entity.RoleTrainer,
		IsActive:   true,
		CreatedAt:  fixedTime,
		SyncStatus: entity.SyncSynced,
	}, Specialization: "Strength"}
}

// --- mockOutbox ---

// mockOutbox implements the outbox Store in memory, keeping insertion order.
type mockOutbox struct {
	mu      sync.Mutex
	entries map[string]domainOutbox.Entry
	order   []string
	saveErr error
}

func newMockOutbox() *mockOutbox {
	return &mockOutbox{entries: make(map[string]domainOutbox.Entry)}
}

func (m *mockOutbox) GetByID(_ context.Context, id string) (domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domainOutbox.Entry{}, errors.New("not found")
	}
	return e, nil
}

func (m *mockOutbox) Save(_ context.Context, e domainOutbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.entries[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutbox) list(match func(domainOutbox.Entry) bool, limit int) []domainOutbox.Entry {
	var out []domainOutbox.Entry
	for _, id := range m.order {
		e, ok := m.entries[id]
		if ok && match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func isPending(e domainOutbox.Entry) bool {
	return e.Status == domainOutbox.StatusPending || e.Status == domainOutbox.StatusRetrying
}

func (m *mockOutbox) ListPending(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(isPending, limit), nil
}

func (m *mockOutbox) ListFailed(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(e domainOutbox.Entry) bool { return e.Status == domainOutbox.StatusFailed }, limit), nil
}

func (m *mockOutbox) CountPending(ctx context.Context) (int, error) {
	l, _ := m.ListPending(ctx, 1<<30)
	return len(l), nil
}

func (m *mockOutbox) PurgeDone(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.entries {
		done := e.Status == domainOutbox.StatusDone || e.Status == domainOutbox.StatusAbandoned
		touched := e.LastAttemptedAt
		if touched.IsZero() {
			touched = e.CreatedAt
		}
		if done && touched.Before(before) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

// all returns every entry in insertion order.
func (m *mockOutbox) all() []domainOutbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(domainOutbox.Entry) bool { return true }, 1<<30)
}

// syncPayloads decodes every api_sync entry.
func (m *mockOutbox) syncPayloads(t *testing.T) []domainOutbox.SyncPayload {
	t.Helper()
	var out []domainOutbox.SyncPayload
	for _, e := range m.all() {
		if e.ActionType != domainOutbox.ActionTypeAPISync {
			continue
		}
		var p domainOutbox.SyncPayload
		if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
			t.Fatalf("entry %s payload: %v", e.ID, err)
		}
		out = append(out, p)
	}
	return out
}

// --- mockBackend ---

// mockBackend implements every backend interface the orchestrators use.
type mockBackend struct {
	mu       sync.Mutex
	err      error // returned by every call when set
	nextID   entity.ID
	calls    []string
	patches  []map[string]any
	members  []member.Member
	trainers []trainer.Trainer
	payments []payment.Payment
	gymInfo  gym.Info
	listErr  map[string]error
	failOnce map[string]error // keyed by call, returned the first time only
}

func (b *mockBackend) record(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if err, ok := b.failOnce[call]; ok {
		delete(b.failOnce, call)
		return err
	}
	return b.err
}

func (b *mockBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *mockBackend) CreateUser(_ context.Context, m member.Member) (member.Member, error) {
	if err := b.record("CreateUser"); err != nil {
		return member.Member{}, err
	}
	m.ID = b.nextID
	return m, nil
}

func (b *mockBackend) PatchUser(_ context.Context, id entity.ID, fields map[string]any) (member.Member, error) {
	if err := b.record("PatchUser " + string(id)); err != nil {
		return member.Member{}, err
	}
	b.mu.Lock()
	b.patches = append(b.patches, fields)
	b.mu.Unlock()
	return member.Member{}, nil
}

func (b *mockBackend) DeleteUser(_ context.Context, id entity.ID) error {
	return b.record("DeleteUser " + string(id))
}

func (b *mockBackend) CreateTrainer(_ context.Context, t trainer.Trainer) (trainer.Trainer, error) {
	if err := b.record("CreateTrainer"); err != nil {
		return trainer.Trainer{}, err
	}
	t.ID = b.nextID
	return t, nil
}

func (b *mockBackend) PatchTrainer(_ context.Context, id entity.ID, _ map[string]any) (trainer.Trainer, error) {
	return trainer.Trainer{}, b.record("PatchTrainer " + string(id))
}

func (b *mockBackend) DeleteTrainer(_ context.Context, id entity.ID) error {
	return b.record("DeleteTrainer " + string(id))
}

func (b *mockBackend) CreateTrainerProgram(_ context.Context, trainerID entity.ID, p trainer.Program) (trainer.Program, error) {
	if err := b.record("CreateTrainerProgram " + string(trainerID)); err != nil {
		return trainer.Program{}, err
	}
	p.ID = b.nextID
	return p, nil
}

func (b *mockBackend) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	if err := b.record("CreatePayment " + string(p.UserID)); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (b *mockBackend) PatchPayment(_ context.Context, id entity.ID, _ map[string]any) (payment.Payment, error) {
	return payment.Payment{}, b.record("PatchPayment " + string(id))
}

func (b *mockBackend) DeletePayment(_ context.Context, id entity.ID) error {
	return b.record("DeletePayment " + string(id))
}

func (b *mockBackend) listFailure(name string) error {
	if err := b.record("List" + name); err != nil {
		return err
	}
	return b.listErr[name]
}

func (b *mockBackend) ListMembers(_ context.Context) ([]member.Member, error) {
	if err := b.listFailure("Members"); err != nil {
		return nil, err
	}
	return b.members, nil
}

func (b *mockBackend) ListTrainers(_ context.Context) ([]trainer.Trainer, error) {
	if err := b.listFailure("Trainers"); err != nil {
		return nil, err
	}
	return b.trainers, nil
}

func (b *mockBackend) ListPayments(_ context.Context) ([]payment.Payment, error) {
	if err := b.listFailure("Payments"); err != nil {
		return nil, err
	}
	return b.payments, nil
}

func (b *mockBackend) CurrentGym(_ context.Context) (gym.Info, error) {
	if err := b.listFailure("Gym"); err != nil {
		return gym.Info{}, err
	}
	return b.gymInfo, nil
}

func (b *mockBackend) UpdateGym(_ context.Context, id entity.ID, g gym.Info) (gym.Info, error) {
	if err := b.record("UpdateGym " + string(id)); err != nil {
		return gym.Info{}, err
	}
	return g, nil
}
