package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gymdesk/internal/domain/entity"
)

// IDPrefix prefixes every payment id.
const IDPrefix = "PAY"

// Method constants
const (
	MethodUPI  = "UPI"
	MethodCard = "Card"
	MethodCash = "Cash"
)

// Status constants
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

// Domain errors
var (
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrEmptyUser      = errors.New("payment must reference a user")
	ErrInvalidMethod  = errors.New("method must be UPI, Card or Cash")
	ErrInvalidStatus  = errors.New("status must be completed, pending or failed")
)

// Payment records money received from a member or paid to a trainer.
// UserName and UserRole are a point-in-time snapshot; UserID is the live reference.
type Payment struct {
	ID         entity.ID         `json:"id"`
	UserID     entity.ID         `json:"userId,omitempty"`
	UserName   string            `json:"userName"`
	UserRole   string            `json:"userRole"`
	Amount     float64           `json:"amount"`
	Date       string            `json:"date"`
	Method     string            `json:"method"`
	Status     string            `json:"status"`
	Notes      string            `json:"notes,omitempty"`
	SyncStatus entity.SyncStatus `json:"syncStatus,omitempty"`
}

// Key returns the collection key of the payment.
func (p Payment) Key() entity.ID { return p.ID }

// Validate checks if the Payment has valid data.
// PRE: Payment struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Amount >= 0, method and status are from the closed sets
func (p *Payment) Validate() error {
	if p.Amount < 0 {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(p.UserName) == "" && p.UserID == "" {
		return ErrEmptyUser
	}
	if !ValidMethod(p.Method) {
		return ErrInvalidMethod
	}
	if !ValidStatus(p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m string) bool {
	return m == MethodUPI || m == MethodCard || m == MethodCash
}

// ValidStatus reports whether s is a known payment status.
func ValidStatus(s string) bool {
	return s == StatusCompleted || s == StatusPending || s == StatusFailed
}

// NextID allocates the id following the largest numeric suffix in use.
// PRE: none
// POST: Returns PAY + (max suffix + 1) padded to 3 digits; PAY001 when nothing parses
func NextID(existing []Payment) entity.ID {
	highest := 0
	for _, p := range existing {
		if n, ok := suffix(p.ID); ok && n > highest {
			highest = n
		}
	}
	return entity.ID(fmt.Sprintf("%s%03d", IDPrefix, highest+1))
}

func suffix(id entity.ID) (int, bool) {
	s := string(id)
	if !strings.HasPrefix(s, IDPrefix) {
		return 0, false
	}
	digits := s[len(IDPrefix):]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Summary aggregates payments by status.
type Summary struct {
	Revenue        float64
	Pending        float64
	Failed         float64
	CompletedCount int
	PendingCount   int
	FailedCount    int
}

// Summarize totals payments by status.
// INVARIANT: Revenue only includes completed payments
func Summarize(payments []Payment) Summary {
	var s Summary
	for _, p := range payments {
		switch p.Status {
		case StatusCompleted:
			s.Revenue += p.Amount
			s.CompletedCount++
		case StatusPending:
			s.Pending += p.Amount
			s.PendingCount++
		case StatusFailed:
			s.Failed += p.Amount
			s.FailedCount++
		}
	}
	return s
}
