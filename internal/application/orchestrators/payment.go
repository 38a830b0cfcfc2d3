package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	domainOutbox "gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

// ErrUnknownPayer is returned when a payment references no known member or trainer.
var ErrUnknownPayer = errors.New("payment user is neither a member nor a trainer")

// AddPaymentInput carries input for the add payment orchestrator.
type AddPaymentInput struct {
	UserID      entity.ID
	Amount      float64
	Date        string
	Method      string
	Status      string
	Notes       string
	SendReceipt bool
}

// AddPaymentDeps holds dependencies for AddPayment.
type AddPaymentDeps struct {
	Payments   *state.Collection[payment.Payment]
	Members    *state.Collection[member.Member]
	Trainers   *state.Collection[trainer.Trainer]
	Packages   *state.Collection[gympackage.Package]
	Activities *state.ActivityLog
	Outbox     OutboxWriter
	GymName    string
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteAddPayment records a payment under the next PAY id.
// PRE: UserID resolves to a member or trainer
// POST: payment is pending in Payments with a sync create queued; a receipt is queued when
// requested for a completed member payment with an email
func ExecuteAddPayment(ctx context.Context, input AddPaymentInput, deps AddPaymentDeps) (payment.Payment, error) {
	now := deps.Now()
	p := payment.Payment{
		UserID:     input.UserID,
		Amount:     input.Amount,
		Date:       input.Date,
		Method:     input.Method,
		Status:     input.Status,
		Notes:      strings.TrimSpace(input.Notes),
		SyncStatus: entity.SyncPending,
	}
	if p.Date == "" {
		p.Date = now.Format(member.DateLayout)
	}
	if p.Status == "" {
		p.Status = payment.StatusCompleted
	}

	var payer *member.Member
	if m, ok := deps.Members.Get(input.UserID); ok {
		p.UserName, p.UserRole = m.FullName(), entity.RoleMember
		payer = &m
	} else if t, ok := deps.Trainers.Get(input.UserID); ok {
		p.UserName, p.UserRole = t.FullName(), entity.RoleTrainer
	} else {
		return payment.Payment{}, fmt.Errorf("%s: %w", input.UserID, ErrUnknownPayer)
	}
	if err := p.Validate(); err != nil {
		return payment.Payment{}, err
	}

	p.ID = payment.NextID(deps.Payments.All())
	if err := deps.Payments.Add(ctx, p); err != nil {
		return payment.Payment{}, err
	}
	if err := enqueueSync(ctx, deps.Outbox, deps.GenerateID(), now, domainOutbox.ResourcePayment, domainOutbox.OpCreate, p.ID, p); err != nil {
		return p, err
	}

	receipt := input.SendReceipt && payer != nil && p.Status == payment.StatusCompleted && payer.Email != ""
	if receipt {
		rp := domainOutbox.ReceiptPayload{
			PaymentID: p.ID,
			To:        payer.Email,
			Name:      p.UserName,
			Amount:    p.Amount,
			Method:    p.Method,
			Date:      p.Date,
			GymName:   deps.GymName,
			Package:   payer.PackageName,
		}
		if deps.Packages != nil {
			if pkg, ok := deps.Packages.Get(payer.PackageID); ok {
				rp.PackageInfo = pkg.Description
			}
		}
		if err := enqueue(ctx, deps.Outbox, deps.GenerateID(), now, domainOutbox.ActionTypePaymentReceipt, rp); err != nil {
			return p, err
		}
	}

	desc := fmt.Sprintf("Recorded payment %s of %.2f from %s", p.ID, p.Amount, p.UserName)
	if _, err := deps.Activities.Append(ctx, activity.PaymentAdded, desc, p.Method+", "+p.Status, nil); err != nil {
		warnActivity(activity.PaymentAdded, err)
	}

	slog.Info("payment_event", "event", "payment_added", "payment_id", p.ID, "user_id", p.UserID, "receipt", receipt)
	return p, nil
}

// UpdatePaymentStatusInput carries input for changing a payment's status.
type UpdatePaymentStatusInput struct {
	PaymentID entity.ID
	Status    string
}

// UpdatePaymentStatusDeps holds dependencies for UpdatePaymentStatus.
type UpdatePaymentStatusDeps struct {
	Payments   *state.Collection[payment.Payment]
	Activities *state.ActivityLog
	Outbox     OutboxWriter
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteUpdatePaymentStatus moves a payment to a new status.
// PRE: Status is completed, pending or failed; PaymentID exists
// POST: status changed locally, sync update queued, payment_edited appended
func ExecuteUpdatePaymentStatus(ctx context.Context, input UpdatePaymentStatusInput, deps UpdatePaymentStatusDeps) (payment.Payment, error) {
	if !payment.ValidStatus(input.Status) {
		return payment.Payment{}, payment.ErrInvalidStatus
	}
	var previous string
	updated, ok := deps.Payments.Update(ctx, input.PaymentID, func(p *payment.Payment) {
		previous = p.Status
		p.Status = input.Status
		p.SyncStatus = entity.SyncPending
	})
	if !ok {
		return payment.Payment{}, fmt.Errorf("payment %s: %w", input.PaymentID, state.ErrNotFound)
	}
	if err := enqueueSync(ctx, deps.Outbox, deps.GenerateID(), deps.Now(), domainOutbox.ResourcePayment, domainOutbox.OpUpdate, updated.ID, map[string]any{"status": updated.Status}); err != nil {
		return updated, err
	}
	details := fmt.Sprintf("Status %s to %s", previous, updated.Status)
	if _, err := deps.Activities.Append(ctx, activity.PaymentEdited, "Updated payment "+string(updated.ID), details, nil); err != nil {
		warnActivity(activity.PaymentEdited, err)
	}

	slog.Info("payment_event", "event", "payment_edited", "payment_id", updated.ID, "from", previous, "to", updated.Status)
	return updated, nil
}

// DeletePaymentInput carries input for the delete payment orchestrator.
type DeletePaymentInput struct {
	PaymentID entity.ID
}

// DeletePaymentDeps holds dependencies for DeletePayment.
type DeletePaymentDeps struct {
	Payments   *state.Collection[payment.Payment]
	Activities *state.ActivityLog
	Outbox     OutboxQueue
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteDeletePayment removes a payment and records a restorable snapshot.
// PRE: PaymentID exists in Payments
// POST: payment is gone, a payment_deleted activity holds its snapshot, a sync delete is queued unless its create never left the outbox
func ExecuteDeletePayment(ctx context.Context, input DeletePaymentInput, deps DeletePaymentDeps) (activity.Activity, error) {
	removed, ok := deps.Payments.Remove(ctx, input.PaymentID)
	if !ok {
		return activity.Activity{}, fmt.Errorf("payment %s: %w", input.PaymentID, state.ErrNotFound)
	}
	desc := fmt.Sprintf("Deleted payment %s from %s", removed.ID, removed.UserName)
	a, err := deps.Activities.Append(ctx, activity.PaymentDeleted, desc, "", activity.PaymentSnapshot(removed))
	if err != nil {
		return activity.Activity{}, err
	}
	if _, err := enqueueSyncDelete(ctx, deps.Outbox, deps.GenerateID(), deps.Now(), domainOutbox.ResourcePayment, removed.ID); err != nil {
		return a, err
	}

	slog.Info("payment_event", "event", "payment_deleted", "payment_id", removed.ID, "activity_id", a.ID)
	return a, nil
}
