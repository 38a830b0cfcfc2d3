package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/activity"
)

func runActivity(ctx context.Context, d *desk, args []string) error {
	if len(args) == 0 {
		return activityList(d, nil)
	}
	switch args[0] {
	case "list", "ls":
		return activityList(d, args[1:])
	case "restore", "undo":
		return activityRestore(ctx, d, args[1:])
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: gymdesk activity rm <id>")
		}
		if !d.app.Activities.Remove(ctx, args[1]) {
			return fmt.Errorf("activity %s: %w", args[1], errNoSuchEntity)
		}
		fmt.Fprintln(d.out, "Removed")
		return nil
	case "clear":
		d.app.Activities.Clear(ctx)
		fmt.Fprintln(d.out, "Activity feed cleared")
		return nil
	default:
		return unknownSubcommand("activity", args[0])
	}
}

func activityList(d *desk, args []string) error {
	fs := flag.NewFlagSet("activity list", flag.ContinueOnError)
	lf := newListFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	params := lf.params(nil, nil)

	var rows []activity.Activity
	for _, a := range d.app.Activities.All() {
		if params.Matches(a.Description, a.Details, string(a.Action)) {
			rows = append(rows, a)
		}
	}
	page, info := listutil.Page(rows, params.PageParams)

	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tACTION\tDESCRIPTION\tUNDO")
	for _, a := range page {
		undo := ""
		if a.Restorable() {
			undo = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Timestamp.Local().Format("2006-01-02 15:04"), a.Action, a.Description, undo)
	}
	tw.Flush()
	printPageFooter(d, info)
	return nil
}

func activityRestore(ctx context.Context, d *desk, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: gymdesk activity restore <id>")
	}
	act, err := orchestrators.ExecuteRestoreActivity(ctx, orchestrators.RestoreActivityInput{ActivityID: args[0]},
		orchestrators.RestoreActivityDeps{
			Members:    d.app.Members,
			Trainers:   d.app.Trainers,
			Payments:   d.app.Payments,
			Packages:   d.app.Packages,
			Activities: d.app.Activities,
			Outbox:     d.outbox,
			Now:        time.Now,
			GenerateID: newID,
		})
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, act.Description)
	d.flush(ctx)
	return nil
}
