package projections

import (
	"context"
	"log/slog"
	"time"

	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/gym"
	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
)

// RecentActivityLimit is the number of activity entries shown on the dashboard.
const RecentActivityLimit = 10

// GetDashboardQuery carries input for the dashboard projection.
type GetDashboardQuery struct {
	Now           time.Time
	ExpiryWarning time.Duration // window in which a membership counts as expiring
}

// GetDashboardDeps holds dependencies for the dashboard projection.
// Stats and Backlog are optional.
type GetDashboardDeps struct {
	Members    MemberReader
	Trainers   TrainerReader
	Payments   PaymentReader
	Packages   PackageReader
	Activities ActivityReader
	Backlog    SyncBacklog
	Stats      StatsFetcher
}

// MemberCounts splits members by membership status.
type MemberCounts struct {
	Total    int
	Active   int
	Expiring int
	Expired  int
}

// GetDashboardResult is the dashboard read model.
type GetDashboardResult struct {
	Members        MemberCounts
	Trainers       int
	Packages       map[string]int // keyed by package status
	Payments       payment.Summary
	RecentActivity []activity.Activity
	PendingSync    int
	ServerStats    *gym.Stats // nil when the backend was unreachable or not asked
}

// QueryGetDashboard assembles the dashboard from cached state.
// PRE: Members, Trainers, Payments, Packages and Activities are non-nil
// POST: Counts reflect the cache at call time; ServerStats is set only when the backend answered
// INVARIANT: Never mutates state; backend failures do not fail the query
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps) (GetDashboardResult, error) {
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := GetDashboardResult{
		Members:        countMembers(deps.Members.All(), now, query.ExpiryWarning),
		Trainers:       len(deps.Trainers.All()),
		Packages:       countPackages(deps.Packages.All()),
		Payments:       payment.Summarize(deps.Payments.All()),
		RecentActivity: deps.Activities.Recent(RecentActivityLimit),
	}

	if deps.Backlog != nil {
		n, err := deps.Backlog.CountPending(ctx)
		if err != nil {
			slog.Warn("dashboard_event", "event", "backlog_count_failed", "error", err)
		}
		result.PendingSync = n
	}

	if deps.Stats != nil {
		stats, err := deps.Stats.DashboardStats(ctx)
		if err != nil {
			slog.Info("dashboard_event", "event", "server_stats_unavailable", "error", err)
		} else {
			result.ServerStats = &stats
		}
	}
	return result, nil
}

func countMembers(members []member.Member, today time.Time, window time.Duration) MemberCounts {
	c := MemberCounts{Total: len(members)}
	for _, m := range members {
		switch m.Status(today, window) {
		case member.StatusExpired:
			c.Expired++
		case member.StatusExpiring:
			c.Expiring++
		default:
			c.Active++
		}
	}
	return c
}

func countPackages(pkgs []gympackage.Package) map[string]int {
	counts := map[string]int{
		gympackage.StatusActive:   0,
		gympackage.StatusDraft:    0,
		gympackage.StatusDisabled: 0,
	}
	for _, p := range pkgs {
		counts[p.Status]++
	}
	return counts
}
