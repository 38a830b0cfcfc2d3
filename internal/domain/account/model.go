package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gymdesk/internal/domain/entity"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
)

// credentialCost is the bcrypt cost for the offline credential.
const credentialCost = 12

// ValidRoles contains all valid role values.
var ValidRoles = []string{entity.RoleOwner, entity.RoleTrainer, entity.RoleMember}

// Domain errors
var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidRole      = errors.New("role must be one of: owner, trainer, member")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrEmptyName        = errors.New("first name cannot be empty")
)

// User is the signed-in account as returned by the backend.
type User struct {
	ID        entity.ID `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	GymID     entity.ID `json:"gymId,omitempty"`
}

// DisplayName returns the best human-readable name for the user.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// IsOwner returns true if the user has the owner role.
// INVARIANT: User fields are not mutated
func (u User) IsOwner() bool {
	return u.Role == entity.RoleOwner
}

// IsTrainerOrOwner returns true if the user manages members.
// INVARIANT: User fields are not mutated
func (u User) IsTrainerOrOwner() bool {
	return u.Role == entity.RoleOwner || u.Role == entity.RoleTrainer
}

// Registration carries the fields sent to the backend to create an account.
type Registration struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	GymName   string `json:"gymName,omitempty"`
}

// Validate checks the registration before any network call.
// PRE: Registration struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Registration) Validate() error {
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return ErrEmptyName
	}
	if r.Password == "" {
		return ErrEmptyPassword
	}
	if len(r.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !isValidRole(r.Role) {
		return ErrInvalidRole
	}
	return nil
}

// ValidateEmail checks the shape of an email address.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail
	}
	if len(email) > MaxEmailLength {
		return errors.New("email cannot exceed 254 characters")
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// OfflineCredential lets a previously signed-in user unlock the cached
// session while the backend is unreachable.
type OfflineCredential struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	User         User      `json:"user"`
	Token        string    `json:"token"`
	SavedAt      time.Time `json:"savedAt"`
}

// NewOfflineCredential hashes the password with bcrypt.
// PRE: password is non-empty
// POST: PasswordHash is a bcrypt hash of password
func NewOfflineCredential(email, password string, user User, token string, now time.Time) (OfflineCredential, error) {
	if password == "" {
		return OfflineCredential{}, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), credentialCost)
	if err != nil {
		return OfflineCredential{}, err
	}
	return OfflineCredential{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		User:         user,
		Token:        token,
		SavedAt:      now,
	}, nil
}

// Check verifies email and password against the stored credential.
// INVARIANT: Credential fields are not mutated
func (c *OfflineCredential) Check(email, password string) error {
	if c.PasswordHash == "" || !strings.EqualFold(strings.TrimSpace(email), c.Email) {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func isValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
