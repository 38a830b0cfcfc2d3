package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/gympackage"
)

func runDashboard(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	growth := fs.Bool("growth", false, "include monthly membership growth from the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := projections.QueryGetDashboard(ctx, projections.GetDashboardQuery{
		Now:           time.Now(),
		ExpiryWarning: d.cfg.ExpiryWarning,
	}, projections.GetDashboardDeps{
		Members:    d.app.Members,
		Trainers:   d.app.Trainers,
		Payments:   d.app.Payments,
		Packages:   d.app.Packages,
		Activities: d.app.Activities,
		Backlog:    d.outbox,
		Stats:      d.client,
	})
	if err != nil {
		return err
	}

	if name := d.gymName(ctx); name != "" {
		fmt.Fprintf(d.out, "%s\n\n", name)
	}
	m := res.Members
	fmt.Fprintf(d.out, "Members   %d (active %d, expiring %d, expired %d)\n", m.Total, m.Active, m.Expiring, m.Expired)
	fmt.Fprintf(d.out, "Trainers  %d\n", res.Trainers)
	fmt.Fprintf(d.out, "Packages  active %d, draft %d, disabled %d\n",
		res.Packages[gympackage.StatusActive], res.Packages[gympackage.StatusDraft], res.Packages[gympackage.StatusDisabled])
	p := res.Payments
	fmt.Fprintf(d.out, "Revenue   %.2f (%d completed), pending %.2f (%d), failed %.2f (%d)\n",
		p.Revenue, p.CompletedCount, p.Pending, p.PendingCount, p.Failed, p.FailedCount)
	if res.PendingSync > 0 {
		fmt.Fprintf(d.out, "Sync      %d change(s) waiting\n", res.PendingSync)
	}
	if s := res.ServerStats; s != nil {
		fmt.Fprintf(d.out, "Server    %d members (%d active, %d new this month), revenue this month %.2f\n",
			s.TotalMembers, s.ActiveMembers, s.NewMembers, s.MonthlyRevenue)
	} else {
		fmt.Fprintln(d.out, "Server    unreachable, showing cached data")
	}

	if len(res.RecentActivity) > 0 {
		fmt.Fprintln(d.out, "\nRecent activity")
		for _, a := range res.RecentActivity {
			fmt.Fprintf(d.out, "  %s  %s\n", a.Timestamp.Local().Format("Jan 02 15:04"), a.Description)
		}
	}

	if *growth {
		points, err := d.client.MembershipGrowth(ctx)
		if err != nil {
			return fmt.Errorf("membership growth: %w", err)
		}
		fmt.Fprintln(d.out, "\nMembership growth")
		for _, pt := range points {
			fmt.Fprintf(d.out, "  %-8s %d\n", pt.Month, pt.Members)
		}
	}
	return nil
}
