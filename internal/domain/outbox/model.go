package outbox

import (
	"encoding/json"
	"errors"
	"time"

	"gymdesk/internal/domain/entity"
)

// DefaultMaxAttempts bounds retries when an entry does not set its own limit.
const DefaultMaxAttempts = 5

// Status constants for outbox entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Action type constants for the work the outbox replays.
const (
	ActionTypeAPISync        = "api_sync"
	ActionTypePaymentReceipt = "payment_receipt"
)

// Resources mirrored to the backend.
const (
	ResourceMember  = "members"
	ResourceTrainer = "trainers"
	ResourcePayment = "payments"
)

// Sync operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrMaxRetries      = errors.New("max retry attempts reached")
	ErrInvalidSync     = errors.New("sync payload needs a resource, an operation and an entity id")
)

// Entry represents a single deferred action in the outbox.
type Entry struct {
	ID              string
	ActionType      string // api_sync, payment_receipt
	Payload         string // JSON payload for replay
	Status          string // pending, retrying, done, failed, abandoned
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // id assigned by the remote side, if any
	ErrorMessage    string // Last error message if failed
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// CanRetry returns true if the entry can be retried.
// PRE: Status and Attempts fields are set
// POST: Returns true for pending/retrying/failed with attempts < max
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying || e.Status == StatusFailed) &&
		e.Attempts < e.MaxAttempts
}

// IsTerminal returns true if the entry has reached a terminal state.
// PRE: Status field is set
// POST: Returns true for done, failed (max retries), or abandoned
func (e *Entry) IsTerminal() bool {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return true
	}
	return e.Status == StatusFailed && e.Attempts >= e.MaxAttempts
}

// MarkAttempt records a retry attempt.
// PRE: Entry is in a retryable state
// POST: Attempts incremented, LastAttemptedAt updated, status set to retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as successfully completed.
// POST: Status set to done, ExternalID recorded
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records an error; the entry becomes failed once attempts are exhausted.
// POST: ErrorMessage set; Status is failed when Attempts >= MaxAttempts
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// MarkPermanentFailure fails the entry without further retries.
// POST: Status is failed and Attempts == MaxAttempts
func (e *Entry) MarkPermanentFailure(err error) {
	e.ErrorMessage = err.Error()
	e.Attempts = e.MaxAttempts
	e.Status = StatusFailed
}

// MarkAbandoned marks the entry as abandoned.
// POST: Status set to abandoned
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay calculates the delay before the next retry attempt.
// Uses exponential backoff: 2^attempts * baseDelay, capped at maxDelay.
// PRE: Attempts is set
// POST: Returns duration for next retry
func (e *Entry) NextRetryDelay(baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// SyncPayload describes one mutation to mirror to the backend.
type SyncPayload struct {
	Resource string          `json:"resource"`
	Op       string          `json:"op"`
	EntityID entity.ID       `json:"entityId"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// Validate checks the sync payload.
func (p *SyncPayload) Validate() error {
	if p.EntityID == "" {
		return ErrInvalidSync
	}
	switch p.Resource {
	case ResourceMember, ResourceTrainer, ResourcePayment:
	default:
		return ErrInvalidSync
	}
	switch p.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return ErrInvalidSync
	}
	return nil
}

// ReceiptPayload carries what is needed to mail a payment receipt.
type ReceiptPayload struct {
	PaymentID   entity.ID `json:"paymentId"`
	To          string    `json:"to"`
	Name        string    `json:"name"`
	Amount      float64   `json:"amount"`
	Method      string    `json:"method"`
	Date        string    `json:"date"`
	GymName     string    `json:"gymName,omitempty"`
	Package     string    `json:"package,omitempty"`
	PackageInfo string    `json:"packageInfo,omitempty"` // Markdown description
}
