package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Role constants shared by every person-shaped entity.
const (
	RoleOwner   = "owner"
	RoleTrainer = "trainer"
	RoleMember  = "member"
)

// SyncStatus records whether a locally held entity has been confirmed by the backend.
type SyncStatus string

// Sync states. Local marks entities that never travel to the backend.
const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncFailed  SyncStatus = "failed"
	SyncLocal   SyncStatus = "local"
)

// Domain errors
var (
	ErrEmptyID        = errors.New("id is required")
	ErrEmptyFirstName = errors.New("first name cannot be empty")
	ErrInvalidEmail   = errors.New("email must contain '@'")
)

// ID identifies an entity within its collection.
// The backend sends ids as JSON strings or numbers; both decode into an ID.
type ID string

// String returns the id as plain text.
func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts "abc", 42 and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Person is the contact shape shared by trainers and members.
type Person struct {
	ID         ID         `json:"id"`
	Username   string     `json:"username"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	SyncStatus SyncStatus `json:"syncStatus,omitempty"`
}

// Key returns the collection key of the person.
func (p Person) Key() ID { return p.ID }

// Validate checks the contact fields.
// PRE: Person struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', FirstName must not be empty
func (p *Person) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return ErrEmptyFirstName
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// FullName joins first and last name.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Initials returns up to two upper-case initials for avatars.
// Presentational only; never persisted.
func (p Person) Initials() string {
	var b strings.Builder
	for _, part := range []string{p.FirstName, p.LastName} {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(part))
		if r != utf8.RuneError {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 && p.Username != "" {
		r, _ := utf8.DecodeRuneInString(p.Username)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// avatarColors is the palette used for avatar backgrounds.
var avatarColors = []string{"#f97316", "#3b82f6", "#10b981", "#8b5cf6", "#ef4444", "#eab308", "#14b8a6", "#ec4899"}

// Color picks a stable avatar color from the person's id.
// Presentational only; never persisted.
func (p Person) Color() string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(p.ID))
	return avatarColors[h.Sum32()%uint32(len(avatarColors))]
}
