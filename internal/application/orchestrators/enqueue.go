package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/domain/entity"
	domainOutbox "gymdesk/internal/domain/outbox"
)

// OutboxWriter persists sync work for the SyncProcessor.
type OutboxWriter interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// OutboxQueue can also list the work still waiting to be sent.
type OutboxQueue interface {
	OutboxWriter
	ListPending(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
}

// queueScanLimit bounds how many queued entries are inspected per lookup.
const queueScanLimit = 1000

// PermanentError marks a failure that retrying cannot fix, e.g. a 4xx response.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// classify wraps client errors that will never succeed on retry.
func classify(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 &&
		apiErr.Status != http.StatusRequestTimeout && apiErr.Status != http.StatusTooManyRequests {
		return &PermanentError{Err: err}
	}
	return err
}

// enqueue stores one outbox entry carrying payload as JSON.
func enqueue(ctx context.Context, w OutboxWriter, id string, now time.Time, actionType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", actionType, err)
	}
	e := domainOutbox.Entry{
		ID:         id,
		ActionType: actionType,
		Payload:    string(b),
		Status:     domainOutbox.StatusPending,
		CreatedAt:  now,
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := w.Save(ctx, e); err != nil {
		return fmt.Errorf("enqueue %s: %w", actionType, err)
	}
	return nil
}

// enqueueSync queues one mutation to mirror to the backend.
func enqueueSync(ctx context.Context, w OutboxWriter, id string, now time.Time, resource, op string, entityID entity.ID, body any) error {
	p := domainOutbox.SyncPayload{Resource: resource, Op: op, EntityID: entityID}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal sync body: %w", err)
		}
		p.Body = b
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return enqueue(ctx, w, id, now, domainOutbox.ActionTypeAPISync, p)
}

// syncPayloadOf decodes the payload of an api_sync entry.
func syncPayloadOf(e domainOutbox.Entry) (domainOutbox.SyncPayload, bool) {
	var p domainOutbox.SyncPayload
	if e.ActionType != domainOutbox.ActionTypeAPISync {
		return p, false
	}
	if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
		return p, false
	}
	return p, true
}

// syncKey names the record an api_sync entry mutates; empty for other actions.
func syncKey(e domainOutbox.Entry) string {
	p, ok := syncPayloadOf(e)
	if !ok {
		return ""
	}
	return p.Resource + "/" + string(p.EntityID)
}

// enqueueSyncDelete queues a delete for a record. When the record's create is still
// queued the backend has never seen it, so that create and the edits queued after it
// are abandoned and no delete is sent.
// POST: returns true when a delete was queued
func enqueueSyncDelete(ctx context.Context, q OutboxQueue, id string, now time.Time, resource string, entityID entity.ID) (bool, error) {
	queued, err := q.ListPending(ctx, queueScanLimit)
	if err != nil {
		return false, fmt.Errorf("list queued sync work: %w", err)
	}
	var unsent []domainOutbox.Entry
	created := false
	for _, e := range queued {
		p, ok := syncPayloadOf(e)
		if !ok || p.Resource != resource || p.EntityID != entityID {
			continue
		}
		if p.Op == domainOutbox.OpCreate {
			created = true
			unsent = unsent[:0]
		}
		if created {
			unsent = append(unsent, e)
		}
	}
	if !created {
		return true, enqueueSync(ctx, q, id, now, resource, domainOutbox.OpDelete, entityID, nil)
	}
	for _, e := range unsent {
		e.MarkAbandoned()
		if err := q.Save(ctx, e); err != nil {
			return false, fmt.Errorf("abandon unsent %s: %w", e.ID, err)
		}
	}
	slog.Info("sync_event", "event", "unsent_create_dropped", "resource", resource, "entity_id", entityID, "entries", len(unsent))
	return false, nil
}
