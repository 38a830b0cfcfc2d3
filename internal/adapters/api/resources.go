package api

import (
	"context"
	"net/http"
	"net/url"

	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gym"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

func idPath(prefix string, id entity.ID) string {
	return prefix + "/" + url.PathEscape(id.String())
}

// ListMembers returns the gym's members.
func (c *Client) ListMembers(ctx context.Context) ([]member.Member, error) {
	var out []member.Member
	err := c.do(ctx, "users.members", http.MethodGet, "/users/members", nil, &out)
	return out, err
}

// CreateUser creates a member account.
func (c *Client) CreateUser(ctx context.Context, m member.Member) (member.Member, error) {
	var out member.Member
	err := c.do(ctx, "users.create", http.MethodPost, "/users", m, &out)
	return out, err
}

// UpdateUser replaces a member.
func (c *Client) UpdateUser(ctx context.Context, id entity.ID, m member.Member) (member.Member, error) {
	var out member.Member
	err := c.do(ctx, "users.update", http.MethodPut, idPath("/users", id), m, &out)
	return out, err
}

// PatchUser updates only the given fields of a member.
func (c *Client) PatchUser(ctx context.Context, id entity.ID, fields map[string]any) (member.Member, error) {
	var out member.Member
	err := c.do(ctx, "users.patch", http.MethodPatch, idPath("/users", id), fields, &out)
	return out, err
}

// DeleteUser deletes a member.
func (c *Client) DeleteUser(ctx context.Context, id entity.ID) error {
	return c.do(ctx, "users.delete", http.MethodDelete, idPath("/users", id), nil, nil)
}

// ListTrainers returns the gym's trainers.
func (c *Client) ListTrainers(ctx context.Context) ([]trainer.Trainer, error) {
	var out []trainer.Trainer
	err := c.do(ctx, "trainers.list", http.MethodGet, "/trainers", nil, &out)
	return out, err
}

// CreateTrainer creates a trainer.
func (c *Client) CreateTrainer(ctx context.Context, t trainer.Trainer) (trainer.Trainer, error) {
	var out trainer.Trainer
	err := c.do(ctx, "trainers.create", http.MethodPost, "/trainers", t, &out)
	return out, err
}

// UpdateTrainer replaces a trainer.
func (c *Client) UpdateTrainer(ctx context.Context, id entity.ID, t trainer.Trainer) (trainer.Trainer, error) {
	var out trainer.Trainer
	err := c.do(ctx, "trainers.update", http.MethodPut, idPath("/trainers", id), t, &out)
	return out, err
}

// PatchTrainer updates only the given fields of a trainer.
func (c *Client) PatchTrainer(ctx context.Context, id entity.ID, fields map[string]any) (trainer.Trainer, error) {
	var out trainer.Trainer
	err := c.do(ctx, "trainers.patch", http.MethodPatch, idPath("/trainers", id), fields, &out)
	return out, err
}

// DeleteTrainer deletes a trainer.
func (c *Client) DeleteTrainer(ctx context.Context, id entity.ID) error {
	return c.do(ctx, "trainers.delete", http.MethodDelete, idPath("/trainers", id), nil, nil)
}

// CreateTrainerProgram creates a training program owned by a trainer.
func (c *Client) CreateTrainerProgram(ctx context.Context, trainerID entity.ID, p trainer.Program) (trainer.Program, error) {
	var out trainer.Program
	err := c.do(ctx, "trainers.programs.create", http.MethodPost, idPath("/trainers", trainerID)+"/programs", p, &out)
	return out, err
}

// ListPayments returns the gym's payments.
func (c *Client) ListPayments(ctx context.Context) ([]payment.Payment, error) {
	var out []payment.Payment
	err := c.do(ctx, "payments.list", http.MethodGet, "/gym/payments", nil, &out)
	return out, err
}

// CreatePayment records a payment.
func (c *Client) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	var out payment.Payment
	err := c.do(ctx, "payments.create", http.MethodPost, "/gym/payments", p, &out)
	return out, err
}

// UpdatePayment replaces a payment.
func (c *Client) UpdatePayment(ctx context.Context, id entity.ID, p payment.Payment) (payment.Payment, error) {
	var out payment.Payment
	err := c.do(ctx, "payments.update", http.MethodPut, idPath("/gym/payments", id), p, &out)
	return out, err
}

// PatchPayment updates only the given fields of a payment.
func (c *Client) PatchPayment(ctx context.Context, id entity.ID, fields map[string]any) (payment.Payment, error) {
	var out payment.Payment
	err := c.do(ctx, "payments.patch", http.MethodPatch, idPath("/gym/payments", id), fields, &out)
	return out, err
}

// DeletePayment deletes a payment.
func (c *Client) DeletePayment(ctx context.Context, id entity.ID) error {
	return c.do(ctx, "payments.delete", http.MethodDelete, idPath("/gym/payments", id), nil, nil)
}

// CurrentGym returns the signed-in user's gym.
func (c *Client) CurrentGym(ctx context.Context) (gym.Info, error) {
	var out gym.Info
	err := c.do(ctx, "gym.current", http.MethodGet, "/gym/current", nil, &out)
	return out, err
}

// UpdateGym replaces the gym profile.
func (c *Client) UpdateGym(ctx context.Context, id entity.ID, g gym.Info) (gym.Info, error) {
	var out gym.Info
	err := c.do(ctx, "gym.update", http.MethodPut, idPath("/gym", id), g, &out)
	return out, err
}

// DashboardStats returns the backend-computed dashboard summary.
func (c *Client) DashboardStats(ctx context.Context) (gym.Stats, error) {
	var out gym.Stats
	err := c.do(ctx, "gym.dashboard_stats", http.MethodGet, "/gym/dashboard-stats", nil, &out)
	return out, err
}

// MembershipGrowth returns members per month.
func (c *Client) MembershipGrowth(ctx context.Context) ([]gym.GrowthPoint, error) {
	var out []gym.GrowthPoint
	err := c.do(ctx, "gym.membership_growth", http.MethodGet, "/gym/membership-growth", nil, &out)
	return out, err
}
