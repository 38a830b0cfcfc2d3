package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/adapters/email"
	outboxStore "gymdesk/internal/adapters/storage/outbox"
	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/member"
	domainOutbox "gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

// SyncClient is the backend surface replayed by APISyncExecutor.
type SyncClient interface {
	CreateUser(ctx context.Context, m member.Member) (member.Member, error)
	PatchUser(ctx context.Context, id entity.ID, fields map[string]any) (member.Member, error)
	DeleteUser(ctx context.Context, id entity.ID) error
	CreateTrainer(ctx context.Context, t trainer.Trainer) (trainer.Trainer, error)
	PatchTrainer(ctx context.Context, id entity.ID, fields map[string]any) (trainer.Trainer, error)
	DeleteTrainer(ctx context.Context, id entity.ID) error
	CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error)
	PatchPayment(ctx context.Context, id entity.ID, fields map[string]any) (payment.Payment, error)
	DeletePayment(ctx context.Context, id entity.ID) error
}

// APISyncExecutor mirrors queued local mutations to the backend and
// updates the sync status of the cached entity.
type APISyncExecutor struct {
	Client   SyncClient
	Members  *state.Collection[member.Member]
	Trainers *state.Collection[trainer.Trainer]
	Payments *state.Collection[payment.Payment]
	Outbox   outboxStore.Store
}

// Execute replays one mutation.
// PRE: payload is a JSON SyncPayload
// POST: on success the entity is synced unless more work for it is queued; returns the backend id
// INVARIANT: outbox entry status managed by caller
func (e *APISyncExecutor) Execute(ctx context.Context, payload string) (string, error) {
	p, err := decodeSync(payload)
	if err != nil {
		return "", err
	}

	var remoteID entity.ID
	switch p.Resource {
	case domainOutbox.ResourceMember:
		remoteID, err = e.syncMember(ctx, p)
	case domainOutbox.ResourceTrainer:
		remoteID, err = e.syncTrainer(ctx, p)
	case domainOutbox.ResourcePayment:
		remoteID, err = e.syncPayment(ctx, p)
	}
	if err != nil {
		return "", classify(err)
	}

	if p.Op != domainOutbox.OpDelete {
		if remoteID == "" {
			remoteID = p.EntityID
		}
		if remoteID != p.EntityID {
			if err := e.remap(ctx, p.Resource, p.EntityID, remoteID); err != nil {
				return string(remoteID), err
			}
		}
		running := 1
		if remoteID != p.EntityID {
			running = 0
		}
		if !e.moreQueued(ctx, p.Resource, remoteID, running) {
			e.setStatus(ctx, p.Resource, remoteID, entity.SyncSynced)
		}
	}
	slog.Info("sync_event", "event", "entity_synced", "resource", p.Resource, "op", p.Op, "entity_id", remoteID)
	return string(remoteID), nil
}

// OnGiveUp marks the cached entity failed once its sync will not be retried.
func (e *APISyncExecutor) OnGiveUp(ctx context.Context, payload string, cause error) {
	p, err := decodeSync(payload)
	if err != nil || p.Op == domainOutbox.OpDelete {
		return
	}
	e.setStatus(ctx, p.Resource, p.EntityID, entity.SyncFailed)
	slog.Warn("sync_event", "event", "entity_sync_failed", "resource", p.Resource, "op", p.Op, "entity_id", p.EntityID, "error", cause)
}

func decodeSync(payload string) (domainOutbox.SyncPayload, error) {
	var p domainOutbox.SyncPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return p, &PermanentError{Err: fmt.Errorf("unmarshal payload: %w", err)}
	}
	if err := p.Validate(); err != nil {
		return p, &PermanentError{Err: err}
	}
	return p, nil
}

func decodeBody(p domainOutbox.SyncPayload, dst any) error {
	if len(p.Body) == 0 {
		return &PermanentError{Err: fmt.Errorf("%s %s: missing body", p.Op, p.Resource)}
	}
	if err := json.Unmarshal(p.Body, dst); err != nil {
		return &PermanentError{Err: fmt.Errorf("%s %s body: %w", p.Op, p.Resource, err)}
	}
	return nil
}

// ignoreNotFound treats deleting something the backend no longer has as done.
func ignoreNotFound(err error) error {
	if api.IsStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (e *APISyncExecutor) syncMember(ctx context.Context, p domainOutbox.SyncPayload) (entity.ID, error) {
	switch p.Op {
	case domainOutbox.OpCreate:
		var m member.Member
		if err := decodeBody(p, &m); err != nil {
			return "", err
		}
		m.SyncStatus = ""
		created, err := e.Client.CreateUser(ctx, m)
		return created.ID, err
	case domainOutbox.OpUpdate:
		var fields map[string]any
		if err := decodeBody(p, &fields); err != nil {
			return "", err
		}
		_, err := e.Client.PatchUser(ctx, p.EntityID, fields)
		return p.EntityID, err
	default:
		return p.EntityID, ignoreNotFound(e.Client.DeleteUser(ctx, p.EntityID))
	}
}

func (e *APISyncExecutor) syncTrainer(ctx context.Context, p domainOutbox.SyncPayload) (entity.ID, error) {
	switch p.Op {
	case domainOutbox.OpCreate:
		var t trainer.Trainer
		if err := decodeBody(p, &t); err != nil {
			return "", err
		}
		t.SyncStatus = ""
		created, err := e.Client.CreateTrainer(ctx, t)
		return created.ID, err
	case domainOutbox.OpUpdate:
		var fields map[string]any
		if err := decodeBody(p, &fields); err != nil {
			return "", err
		}
		_, err := e.Client.PatchTrainer(ctx, p.EntityID, fields)
		return p.EntityID, err
	default:
		return p.EntityID, ignoreNotFound(e.Client.DeleteTrainer(ctx, p.EntityID))
	}
}

// syncPayment keeps the locally allocated PAY id even if the backend assigns its own.
func (e *APISyncExecutor) syncPayment(ctx context.Context, p domainOutbox.SyncPayload) (entity.ID, error) {
	switch p.Op {
	case domainOutbox.OpCreate:
		var pay payment.Payment
		if err := decodeBody(p, &pay); err != nil {
			return "", err
		}
		pay.SyncStatus = ""
		_, err := e.Client.CreatePayment(ctx, pay)
		return p.EntityID, err
	case domainOutbox.OpUpdate:
		var fields map[string]any
		if err := decodeBody(p, &fields); err != nil {
			return "", err
		}
		_, err := e.Client.PatchPayment(ctx, p.EntityID, fields)
		return p.EntityID, err
	default:
		return p.EntityID, ignoreNotFound(e.Client.DeletePayment(ctx, p.EntityID))
	}
}

func (e *APISyncExecutor) setStatus(ctx context.Context, resource string, id entity.ID, s entity.SyncStatus) {
	switch resource {
	case domainOutbox.ResourceMember:
		e.Members.Update(ctx, id, func(m *member.Member) { m.SyncStatus = s })
	case domainOutbox.ResourceTrainer:
		e.Trainers.Update(ctx, id, func(t *trainer.Trainer) { t.SyncStatus = s })
	case domainOutbox.ResourcePayment:
		e.Payments.Update(ctx, id, func(p *payment.Payment) { p.SyncStatus = s })
	}
}

// moreQueued reports whether more than running entries are queued for the entity.
// The running entry is still listed as pending while it executes.
func (e *APISyncExecutor) moreQueued(ctx context.Context, resource string, id entity.ID, running int) bool {
	entries, err := e.Outbox.ListPending(ctx, 1000)
	if err != nil {
		return false
	}
	n := 0
	for _, entry := range entries {
		if entry.ActionType != domainOutbox.ActionTypeAPISync {
			continue
		}
		var p domainOutbox.SyncPayload
		if json.Unmarshal([]byte(entry.Payload), &p) == nil && p.Resource == resource && p.EntityID == id {
			n++
		}
	}
	return n > running
}

// remap moves an entity created offline to the id the backend assigned.
// POST: the cached entity, references to it and queued sync work all use newID
func (e *APISyncExecutor) remap(ctx context.Context, resource string, oldID, newID entity.ID) error {
	switch resource {
	case domainOutbox.ResourceMember:
		if err := swapID(ctx, e.Members, oldID, func(m *member.Member) { m.ID = newID }); err != nil {
			return err
		}
		e.repointPayments(ctx, oldID, newID)
	case domainOutbox.ResourceTrainer:
		if err := swapID(ctx, e.Trainers, oldID, func(t *trainer.Trainer) { t.ID = newID }); err != nil {
			return err
		}
		for _, m := range e.Members.All() {
			if m.TrainerID == oldID {
				e.Members.Update(ctx, m.ID, func(x *member.Member) { x.TrainerID = newID })
			}
		}
		e.repointPayments(ctx, oldID, newID)
	}

	slog.Info("sync_event", "event", "entity_id_remapped", "resource", resource, "from", oldID, "to", newID)
	return e.rewriteQueued(ctx, oldID, newID)
}

func (e *APISyncExecutor) repointPayments(ctx context.Context, oldID, newID entity.ID) {
	for _, p := range e.Payments.All() {
		if p.UserID == oldID {
			e.Payments.Update(ctx, p.ID, func(x *payment.Payment) { x.UserID = newID })
		}
	}
}

// swapID removes the entity under oldID and re-adds it after setID.
// An entity deleted locally in the meantime stays deleted.
func swapID[T state.Keyed](ctx context.Context, c *state.Collection[T], oldID entity.ID, setID func(*T)) error {
	v, ok := c.Remove(ctx, oldID)
	if !ok {
		return nil
	}
	setID(&v)
	if err := c.Add(ctx, v); err != nil {
		return fmt.Errorf("remap %s: %w", oldID, err)
	}
	return nil
}

// referenceFields hold ids of other entities inside sync bodies.
var referenceFields = []string{"userId", "trainerId"}

// rewriteQueued points queued sync work at newID.
func (e *APISyncExecutor) rewriteQueued(ctx context.Context, oldID, newID entity.ID) error {
	entries, err := e.Outbox.ListPending(ctx, 1000)
	if err != nil {
		return fmt.Errorf("list queued sync work: %w", err)
	}
	for _, entry := range entries {
		if entry.ActionType != domainOutbox.ActionTypeAPISync {
			continue
		}
		var p domainOutbox.SyncPayload
		if json.Unmarshal([]byte(entry.Payload), &p) != nil {
			continue
		}
		changed := false
		if p.EntityID == oldID && p.Op != domainOutbox.OpCreate {
			p.EntityID = newID
			changed = true
		}
		if body, ok := rewriteReferences(p.Body, oldID, newID); ok {
			p.Body = body
			changed = true
		}
		if !changed {
			continue
		}
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		entry.Payload = string(b)
		if err := e.Outbox.Save(ctx, entry); err != nil {
			return fmt.Errorf("rewrite %s: %w", entry.ID, err)
		}
	}
	return nil
}

func rewriteReferences(body json.RawMessage, oldID, newID entity.ID) (json.RawMessage, bool) {
	if len(body) == 0 {
		return nil, false
	}
	var fields map[string]any
	if json.Unmarshal(body, &fields) != nil {
		return nil, false
	}
	changed := false
	for _, k := range referenceFields {
		if v, ok := fields[k].(string); ok && entity.ID(v) == oldID {
			fields[k] = string(newID)
			changed = true
		}
	}
	if !changed {
		return nil, false
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, false
	}
	return b, true
}

// ReceiptExecutor mails payment receipts.
type ReceiptExecutor struct {
	Sender email.Sender
}

// Execute renders and sends one receipt.
// PRE: payload is a JSON ReceiptPayload with a recipient
// POST: returns the provider's message id
// INVARIANT: outbox entry status managed by caller
func (e *ReceiptExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p domainOutbox.ReceiptPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", &PermanentError{Err: fmt.Errorf("unmarshal payload: %w", err)}
	}
	if p.To == "" {
		return "", &PermanentError{Err: errors.New("receipt has no recipient")}
	}

	subject, text, html, err := email.RenderReceipt(email.Receipt{
		GymName:     p.GymName,
		MemberName:  p.Name,
		PaymentID:   string(p.PaymentID),
		Amount:      p.Amount,
		Method:      p.Method,
		Date:        p.Date,
		PackageName: p.Package,
		PackageInfo: p.PackageInfo,
	})
	if err != nil {
		return "", &PermanentError{Err: err}
	}
	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		Subject: subject,
		HTML:    html,
		Text:    text,
		Tags:    map[string]string{"kind": "receipt", "payment_id": string(p.PaymentID)},
	})
	if err != nil {
		return "", err
	}

	slog.Info("payment_event", "event", "receipt_sent", "payment_id", p.PaymentID, "message_id", res.MessageID)
	return res.MessageID, nil
}
