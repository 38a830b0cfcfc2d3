package state

import (
	"context"
	"time"

	"gymdesk/internal/adapters/storage/kv"
	"gymdesk/internal/domain/gym"
	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

// App owns every piece of client state. It is built by the composition root
// and handed to commands; nothing in this package is global.
type App struct {
	Store      Store
	Trainers   *Collection[trainer.Trainer]
	Members    *Collection[member.Member]
	Payments   *Collection[payment.Payment]
	Packages   *Collection[gympackage.Package]
	Activities *ActivityLog
	Session    *Session

	now            func() time.Time
	seedPackages   bool
	sessionOptions []SessionOption
}

// AppOption configures an App.
type AppOption func(*App)

// WithClock overrides time.Now for pruning, seeding and sessions.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) { a.now = now }
}

// WithoutPackageSeed disables the demo packages added to an empty Packages collection.
func WithoutPackageSeed() AppOption {
	return func(a *App) { a.seedPackages = false }
}

// WithSessionOptions forwards options to the Session.
func WithSessionOptions(opts ...SessionOption) AppOption {
	return func(a *App) { a.sessionOptions = append(a.sessionOptions, opts...) }
}

// NewApp creates an unloaded App over store.
func NewApp(store Store, opts ...AppOption) *App {
	a := &App{Store: store, now: time.Now, seedPackages: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads every collection, the activity log and the session from the store.
// POST: all fields are non-nil; no network call is made
func (a *App) Load(ctx context.Context) {
	a.Trainers = NewCollection[trainer.Trainer](ctx, a.Store, kv.KeyTrainers)
	a.Members = NewCollection[member.Member](ctx, a.Store, kv.KeyMembers)
	a.Payments = NewCollection[payment.Payment](ctx, a.Store, kv.KeyPayments)

	var pkgOpts []CollectionOption[gympackage.Package]
	if a.seedPackages {
		now := a.now
		pkgOpts = append(pkgOpts, WithSeed(func() []gympackage.Package {
			return gympackage.Defaults(now())
		}))
	}
	a.Packages = NewCollection[gympackage.Package](ctx, a.Store, kv.KeyPackages, pkgOpts...)
	a.Activities = NewActivityLog(ctx, a.Store, a.now)

	sessOpts := append([]SessionOption{WithSessionClock(a.now)}, a.sessionOptions...)
	a.Session = NewSession(ctx, a.Store, sessOpts...)
}

// Save flushes every piece of state to the store.
func (a *App) Save(ctx context.Context) {
	a.Trainers.Save(ctx)
	a.Members.Save(ctx)
	a.Payments.Save(ctx)
	a.Packages.Save(ctx)
	a.Activities.Save(ctx)
	a.Session.Save(ctx)
}

// GymInfo returns the cached gym profile.
func (a *App) GymInfo(ctx context.Context) (gym.Info, bool) {
	var info gym.Info
	ok := a.Store.Get(ctx, kv.KeyGymInfo, &info)
	return info, ok
}

// SetGymInfo caches the gym profile.
func (a *App) SetGymInfo(ctx context.Context, info gym.Info) {
	a.Store.Set(ctx, kv.KeyGymInfo, info)
}
