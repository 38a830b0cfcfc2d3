package member

import (
	"errors"
	"time"

	"gymdesk/internal/domain/entity"
)

// DateLayout is the calendar-date format used for join and expiry dates.
const DateLayout = "2006-01-02"

// DefaultWarningWindow is how long before expiry a membership counts as expiring.
const DefaultWarningWindow = 7 * 24 * time.Hour

// Membership status values. Derived at read time, never stored.
const (
	StatusActive   = "active"
	StatusExpiring = "expiring"
	StatusExpired  = "expired"
)

// Domain errors
var (
	ErrWrongRole        = errors.New("member role must be 'member'")
	ErrInvalidExpiry    = errors.New("expiry date must be YYYY-MM-DD")
	ErrExpiryBeforeJoin = errors.New("expiry date cannot be before join date")
)

// Member holds state for a gym member.
type Member struct {
	entity.Person
	TrainerID   entity.ID `json:"trainerId,omitempty"`
	PackageID   entity.ID `json:"packageId,omitempty"`
	PackageName string    `json:"packageName,omitempty"`
	JoinDate    string    `json:"joinDate,omitempty"`
	ExpiryDate  string    `json:"expiryDate,omitempty"`
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Role is member; dates, when present, parse and are ordered
func (m *Member) Validate() error {
	if err := m.Person.Validate(); err != nil {
		return err
	}
	if m.Role != entity.RoleMember {
		return ErrWrongRole
	}
	var join time.Time
	if m.JoinDate != "" {
		j, err := time.Parse(DateLayout, m.JoinDate)
		if err != nil {
			return errors.New("join date must be YYYY-MM-DD")
		}
		join = j
	}
	if m.ExpiryDate != "" {
		exp, err := time.Parse(DateLayout, m.ExpiryDate)
		if err != nil {
			return ErrInvalidExpiry
		}
		if !join.IsZero() && exp.Before(join) {
			return ErrExpiryBeforeJoin
		}
	}
	return nil
}

// Status classifies the membership on the given day.
// INVARIANT: Member fields are not mutated
func (m *Member) Status(today time.Time, window time.Duration) string {
	if m.ExpiryDate == "" {
		return StatusActive
	}
	exp, err := time.Parse(DateLayout, m.ExpiryDate)
	if err != nil {
		return StatusActive
	}
	return ClassifyStatus(today, exp, window)
}

// ClassifyStatus is a pure function of today and the expiry date.
// Both are compared as calendar days in today's location.
// PRE: window >= 0
// POST: Returns expired if expiry is before today, expiring if within window, else active
func ClassifyStatus(today, expiry time.Time, window time.Duration) string {
	day := truncateDay(today)
	exp := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, day.Location())
	if exp.Before(day) {
		return StatusExpired
	}
	if exp.Sub(day) <= window {
		return StatusExpiring
	}
	return StatusActive
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
