package gym

import (
	"errors"
	"strings"

	"gymdesk/internal/domain/entity"
)

// Domain errors
var (
	ErrEmptyName = errors.New("gym name cannot be empty")
	ErrEmptyID   = errors.New("gym id is required to update")
)

// Info is the gym profile shown in headers and printed on receipts.
type Info struct {
	ID           entity.ID `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	OpeningHours string    `json:"openingHours,omitempty"`
	OwnerID      entity.ID `json:"ownerId,omitempty"`
}

// Validate checks if the Info has valid data.
// PRE: Info struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (g *Info) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.Email != "" && !strings.Contains(g.Email, "@") {
		return entity.ErrInvalidEmail
	}
	return nil
}

// Stats is the dashboard summary computed by the backend.
type Stats struct {
	TotalMembers    int     `json:"totalMembers"`
	ActiveMembers   int     `json:"activeMembers"`
	TotalTrainers   int     `json:"totalTrainers"`
	MonthlyRevenue  float64 `json:"monthlyRevenue"`
	PendingPayments int     `json:"pendingPayments"`
	NewMembers      int     `json:"newMembersThisMonth"`
}

// GrowthPoint is one month of membership growth.
type GrowthPoint struct {
	Month   string `json:"month"`
	Members int    `json:"members"`
}
