package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/adapters/metrics"
	outboxStore "gymdesk/internal/adapters/storage/outbox"
	domainOutbox "gymdesk/internal/domain/outbox"
)

// ErrQueuedBehind is returned when an older change to the same record is still queued.
var ErrQueuedBehind = errors.New("an older change to the same record is still queued")

// Sync results recorded in metrics.
const (
	resultSucceeded = "succeeded"
	resultRetry     = "retry"
	resultFailed    = "failed"
)

// SyncProcessor replays queued outbox entries against the backend and the mail provider.
type SyncProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	retention time.Duration
	now       func() time.Time
}

// ActionExecutor executes a specific type of deferred action.
type ActionExecutor interface {
	// Execute runs the action with the given payload.
	// Returns the id assigned by the remote side, if any, and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// GiveUpHandler is implemented by executors that react when an entry will not be retried.
type GiveUpHandler interface {
	OnGiveUp(ctx context.Context, payload string, cause error)
}

// ProcessorOption configures a SyncProcessor.
type ProcessorOption func(*SyncProcessor)

// WithBackoff sets the base and maximum retry delay.
func WithBackoff(base, maxDelay time.Duration) ProcessorOption {
	return func(p *SyncProcessor) {
		p.baseDelay = base
		p.maxDelay = maxDelay
	}
}

// WithBatchSize sets how many entries one pass handles.
func WithBatchSize(n int) ProcessorOption {
	return func(p *SyncProcessor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithRetention sets how long done and abandoned entries are kept. Zero keeps them forever.
func WithRetention(d time.Duration) ProcessorOption {
	return func(p *SyncProcessor) { p.retention = d }
}

// WithProcessorClock overrides time.Now for backoff decisions.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *SyncProcessor) { p.now = now }
}

// NewSyncProcessor creates a new sync processor.
func NewSyncProcessor(store outboxStore.Store, executors map[string]ActionExecutor, opts ...ProcessorOption) *SyncProcessor {
	p := &SyncProcessor{
		store:     store,
		executors: executors,
		baseDelay: 15 * time.Second,
		maxDelay:  30 * time.Minute,
		batchSize: 50,
		retention: 7 * 24 * time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PassResult counts what one ProcessPending pass did.
type PassResult struct {
	Succeeded int
	Retrying  int
	Failed    int
	Deferred  int
}

// ProcessPending processes queued entries oldest first, honoring backoff.
// Changes to one record go out in the order they were made: an entry waits
// while an older entry for the same record has not succeeded.
// A 401 ends the pass early; the session is already cleared by then.
// PRE: Context is valid
// POST: Attempted entries are saved as done, retrying or failed
func (p *SyncProcessor) ProcessPending(ctx context.Context) (PassResult, error) {
	var res PassResult
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return res, fmt.Errorf("list pending outbox entries: %w", err)
	}

	// records whose earlier queued change has not gone through yet
	held := make(map[string]bool)
	for _, listed := range entries {
		if ctx.Err() != nil {
			break
		}
		// earlier entries in this pass may have rewritten this one
		entry, err := p.store.GetByID(ctx, listed.ID)
		if err != nil || entry.IsTerminal() {
			continue
		}
		key := syncKey(entry)
		if key != "" && held[key] {
			res.Deferred++
			continue
		}
		if !p.due(entry) {
			if key != "" {
				held[key] = true
			}
			res.Deferred++
			continue
		}
		result, err := p.processEntry(ctx, entry)
		if key != "" && result != resultSucceeded {
			held[key] = true
		}
		if errors.Is(err, api.ErrUnauthorized) {
			p.refreshGauge(ctx)
			return res, err
		}
		if err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
		switch result {
		case resultSucceeded:
			res.Succeeded++
		case resultRetry:
			res.Retrying++
		case resultFailed:
			res.Failed++
		}
	}

	p.purge(ctx)
	p.refreshGauge(ctx)
	return res, nil
}

// purge drops finished entries past the retention window.
func (p *SyncProcessor) purge(ctx context.Context) {
	if p.retention <= 0 {
		return
	}
	n, err := p.store.PurgeDone(ctx, p.now().Add(-p.retention))
	if err != nil {
		slog.Warn("outbox_purge_failed", "error", err.Error())
		return
	}
	if n > 0 {
		slog.Debug("outbox_purged", "count", n)
	}
}

// due reports whether enough time has passed since the last attempt.
func (p *SyncProcessor) due(entry domainOutbox.Entry) bool {
	if entry.LastAttemptedAt.IsZero() {
		return true
	}
	return p.now().Sub(entry.LastAttemptedAt) >= entry.NextRetryDelay(p.baseDelay, p.maxDelay)
}

// processEntry runs one entry and saves its new state.
// A 401 leaves the entry untouched and is returned to the caller.
func (p *SyncProcessor) processEntry(ctx context.Context, entry domainOutbox.Entry) (string, error) {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		err := fmt.Errorf("no executor registered for action type: %s", entry.ActionType)
		entry.MarkPermanentFailure(err)
		metrics.RecordSync(entry.ActionType, resultFailed)
		return resultFailed, p.store.Save(ctx, entry)
	}

	attempt := entry
	attempt.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, attempt.Payload)
	if errors.Is(err, api.ErrUnauthorized) {
		slog.Warn("outbox_action_unauthorized", "entry_id", entry.ID, "action_type", entry.ActionType)
		return "", err
	}

	result := resultSucceeded
	var perm *PermanentError
	switch {
	case err == nil:
		attempt.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	case errors.As(err, &perm):
		attempt.MarkPermanentFailure(err)
		result = resultFailed
	default:
		attempt.MarkFailed(err)
		result = resultRetry
		if attempt.Status == domainOutbox.StatusFailed {
			result = resultFailed
		}
	}
	if err != nil {
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType,
			"attempt", attempt.Attempts, "final", result == resultFailed, "error", err.Error())
	}
	if result == resultFailed {
		p.giveUp(ctx, executor, attempt, err)
	}
	metrics.RecordSync(entry.ActionType, result)

	if err := p.store.Save(ctx, attempt); err != nil {
		return result, fmt.Errorf("save outbox entry: %w", err)
	}
	return result, nil
}

func (p *SyncProcessor) giveUp(ctx context.Context, executor ActionExecutor, entry domainOutbox.Entry, cause error) {
	if h, ok := executor.(GiveUpHandler); ok {
		h.OnGiveUp(ctx, entry.Payload, cause)
	}
}

func (p *SyncProcessor) refreshGauge(ctx context.Context) {
	n, err := p.store.CountPending(ctx)
	if err != nil {
		slog.Warn("outbox_count_failed", "error", err)
		return
	}
	metrics.SetSyncPending(n)
}

// ProcessSingle processes one entry now, ignoring backoff (for manual retry).
// PRE: entryID is non-empty
// POST: Entry is processed, status updated
func (p *SyncProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.IsTerminal() {
		return fmt.Errorf("entry %s is in terminal state and cannot be retried", entryID)
	}
	if blocker, err := p.queuedBefore(ctx, entry); err != nil {
		return err
	} else if blocker != "" {
		return fmt.Errorf("entry %s: %w (%s)", entryID, ErrQueuedBehind, blocker)
	}
	result, err := p.processEntry(ctx, entry)
	p.refreshGauge(ctx)
	if err != nil {
		return err
	}
	if result != resultSucceeded {
		entry, _ = p.store.GetByID(ctx, entryID)
		return fmt.Errorf("entry %s: %s", entryID, entry.ErrorMessage)
	}
	return nil
}

// queuedBefore returns the id of an older queued entry for the same record, if any.
func (p *SyncProcessor) queuedBefore(ctx context.Context, entry domainOutbox.Entry) (string, error) {
	key := syncKey(entry)
	if key == "" {
		return "", nil
	}
	queued, err := p.store.ListPending(ctx, queueScanLimit)
	if err != nil {
		return "", fmt.Errorf("list pending outbox entries: %w", err)
	}
	for _, q := range queued {
		if q.ID == entry.ID {
			break
		}
		if syncKey(q) == key {
			return q.ID, nil
		}
	}
	return "", nil
}

// AbandonEntry stops retrying an entry; its entity is marked failed.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *SyncProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.Status == domainOutbox.StatusDone {
		return fmt.Errorf("entry %s already succeeded", entryID)
	}

	entry.MarkAbandoned()
	if executor, ok := p.executors[entry.ActionType]; ok {
		p.giveUp(ctx, executor, entry, errors.New("abandoned"))
	}
	if err := p.store.Save(ctx, entry); err != nil {
		return err
	}
	p.refreshGauge(ctx)
	slog.Info("outbox_entry_abandoned", "entry_id", entryID, "action_type", entry.ActionType)
	return nil
}

// Failed lists entries that will not be retried automatically.
func (p *SyncProcessor) Failed(ctx context.Context, limit int) ([]domainOutbox.Entry, error) {
	return p.store.ListFailed(ctx, limit)
}

// Pending lists entries waiting for delivery.
func (p *SyncProcessor) Pending(ctx context.Context, limit int) ([]domainOutbox.Entry, error) {
	return p.store.ListPending(ctx, limit)
}

// --- Background Worker ---

// StartBackgroundWorker starts a background goroutine that periodically processes pending outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed; done is closed once it has returned
func StartBackgroundWorker(processor *SyncProcessor, interval time.Duration, stopCh <-chan struct{}) (done <-chan struct{}) {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				res, err := processor.ProcessPending(ctx)
				cancel()
				if err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
					if errors.Is(err, api.ErrUnauthorized) {
						slog.Info("outbox_background_worker_stopped", "reason", "unauthorized")
						return
					}
					continue
				}
				if res.Succeeded+res.Retrying+res.Failed > 0 {
					slog.Info("sync_event", "event", "pass_completed", "succeeded", res.Succeeded,
						"retrying", res.Retrying, "failed", res.Failed, "deferred", res.Deferred)
				}
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
	return finished
}
