package projections

import (
	"context"

	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/gym"
	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

// MemberReader lists cached members.
type MemberReader interface {
	All() []member.Member
}

// TrainerReader lists cached trainers.
type TrainerReader interface {
	All() []trainer.Trainer
}

// PaymentReader lists cached payments.
type PaymentReader interface {
	All() []payment.Payment
}

// PackageReader lists packages.
type PackageReader interface {
	All() []gympackage.Package
}

// ActivityReader returns the newest activity entries.
type ActivityReader interface {
	Recent(n int) []activity.Activity
}

// SyncBacklog counts outbox entries still waiting to be sent.
type SyncBacklog interface {
	CountPending(ctx context.Context) (int, error)
}

// StatsFetcher returns the backend's own dashboard summary.
type StatsFetcher interface {
	DashboardStats(ctx context.Context) (gym.Stats, error)
}
