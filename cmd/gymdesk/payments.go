package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/payment"
)

func runPayments(ctx context.Context, d *desk, args []string) error {
	if len(args) == 0 {
		return paymentsList(ctx, d, nil)
	}
	switch args[0] {
	case "list", "ls":
		return paymentsList(ctx, d, args[1:])
	case "add":
		return paymentsAdd(ctx, d, args[1:])
	case "status":
		return paymentsStatus(ctx, d, args[1:])
	case "rm", "delete":
		return paymentsRemove(ctx, d, args[1:])
	default:
		return unknownSubcommand("payments", args[0])
	}
}

func paymentsList(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("payments list", flag.ContinueOnError)
	lf := newListFlags(fs, projections.PaymentFilterKeys...)
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := projections.QueryGetPaymentList(ctx, projections.GetPaymentListQuery{
		Params: lf.params(nil, projections.PaymentFilterKeys),
	}, projections.GetPaymentListDeps{Payments: d.app.Payments})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPAYER\tROLE\tAMOUNT\tMETHOD\tSTATUS\tSYNC")
	for _, p := range result.Payments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			p.ID, p.Date, p.UserName, p.UserRole, p.Amount, p.Method, p.Status, p.SyncStatus)
	}
	tw.Flush()
	printPageFooter(d, result.PageInfo)
	fmt.Fprintf(d.out, "Revenue %.2f, pending %.2f, failed %.2f\n",
		result.Summary.Revenue, result.Summary.Pending, result.Summary.Failed)
	return nil
}

func paymentsAdd(ctx context.Context, d *desk, args []string) error {
	fs := flag.NewFlagSet("payments add", flag.ContinueOnError)
	var in orchestrators.AddPaymentInput
	userID := fs.String("user", "", "member or trainer id")
	fs.Float64Var(&in.Amount, "amount", 0, "amount")
	fs.StringVar(&in.Method, "method", payment.MethodUPI, "UPI, Card or Cash")
	fs.StringVar(&in.Date, "date", "", "payment date YYYY-MM-DD (default today)")
	fs.StringVar(&in.Status, "status", "", "completed, pending or failed (default completed)")
	fs.StringVar(&in.Notes, "notes", "", "free-text notes")
	fs.BoolVar(&in.SendReceipt, "receipt", false, "email a receipt to the member")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("--user is required")
	}
	in.UserID = entity.ID(*userID)

	p, err := orchestrators.ExecuteAddPayment(ctx, in, orchestrators.AddPaymentDeps{
		Payments:   d.app.Payments,
		Members:    d.app.Members,
		Trainers:   d.app.Trainers,
		Packages:   d.app.Packages,
		Activities: d.app.Activities,
		Outbox:     d.outbox,
		GymName:    d.gymName(ctx),
		Now:        time.Now,
		GenerateID: newID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Recorded %s: %.2f from %s\n", p.ID, p.Amount, p.UserName)
	d.flush(ctx)
	return nil
}

func paymentsStatus(ctx context.Context, d *desk, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: gymdesk payments status <id> <completed|pending|failed>")
	}
	p, err := orchestrators.ExecuteUpdatePaymentStatus(ctx,
		orchestrators.UpdatePaymentStatusInput{PaymentID: entity.ID(args[0]), Status: args[1]},
		orchestrators.UpdatePaymentStatusDeps{
			Payments:   d.app.Payments,
			Activities: d.app.Activities,
			Outbox:     d.outbox,
			Now:        time.Now,
			GenerateID: newID,
		})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s is now %s\n", p.ID, p.Status)
	d.flush(ctx)
	return nil
}

func paymentsRemove(ctx context.Context, d *desk, args []string) error {
	id, _, err := idArg("payments rm", args)
	if err != nil {
		return err
	}
	act, err := orchestrators.ExecuteDeletePayment(ctx, orchestrators.DeletePaymentInput{PaymentID: id},
		orchestrators.DeletePaymentDeps{
			Payments:   d.app.Payments,
			Activities: d.app.Activities,
			Outbox:     d.outbox,
			Now:        time.Now,
			GenerateID: newID,
		})
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "%s (undo: gymdesk activity restore %s)\n", act.Description, act.ID)
	d.flush(ctx)
	return nil
}
