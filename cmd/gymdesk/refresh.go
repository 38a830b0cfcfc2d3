package main

import (
	"context"
	"fmt"

	"gymdesk/internal/application/orchestrators"
)

func runRefresh(ctx context.Context, d *desk, _ []string) error {
	// Push first so the server lists include local edits.
	d.flush(ctx)

	res, err := orchestrators.ExecuteRefreshCollections(ctx, orchestrators.RefreshDeps{
		Members:  d.app.Members,
		Trainers: d.app.Trainers,
		Payments: d.app.Payments,
		Gym:      d.app,
		Backend:  d.client,
		Outbox:   d.outbox,
	})
	if err != nil {
		return err
	}

	for _, r := range []struct {
		name string
		res  orchestrators.ResourceRefresh
	}{
		{"members", res.Members},
		{"trainers", res.Trainers},
		{"payments", res.Payments},
	} {
		switch {
		case r.res.Err != nil:
			fmt.Fprintf(d.out, "%-9s failed: %v\n", r.name, r.res.Err)
		case r.res.Stale:
			fmt.Fprintf(d.out, "%-9s %d (cached, server unreachable)\n", r.name, r.res.Count)
		default:
			fmt.Fprintf(d.out, "%-9s %d\n", r.name, r.res.Count)
		}
	}
	if res.Offline() {
		fmt.Fprintln(d.out, "Offline: showing cached data")
	}
	return nil
}
