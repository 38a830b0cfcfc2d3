package projections

import (
	"context"
	"errors"
	"time"

	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gym"
	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

var today = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const week = 7 * 24 * time.Hour

type memberList []member.Member

func (l memberList) All() []member.Member { return l }

type trainerList []trainer.Trainer

func (l trainerList) All() []trainer.Trainer { return l }

type paymentList []payment.Payment

func (l paymentList) All() []payment.Payment { return l }

type packageList []gympackage.Package

func (l packageList) All() []gympackage.Package { return l }

type activityList []activity.Activity

func (l activityList) Recent(n int) []activity.Activity {
	if n > len(l) {
		n = len(l)
	}
	return l[:n]
}

type mockBacklog struct {
	n   int
	err error
}

func (m mockBacklog) CountPending(context.Context) (int, error) { return m.n, m.err }

type mockStats struct {
	stats gym.Stats
	err   error
}

func (m mockStats) DashboardStats(context.Context) (gym.Stats, error) { return m.stats, m.err }

var errUnreachable = errors.New("backend unreachable")

func newMember(id, first, last, expiry string) member.Member {
	return member.Member{
		Person: entity.Person{
			ID:        entity.ID(id),
			FirstName: first,
			LastName:  last,
			Email:     first + "@gym.example",
			Role:      entity.RoleMember,
			IsActive:  true,
		},
		JoinDate:   "2026-01-01",
		ExpiryDate: expiry,
	}
}

func newTrainer(id, first, last string) trainer.Trainer {
	return trainer.Trainer{Person: entity.Person{
		ID:        entity.ID(id),
		FirstName: first,
		LastName:  last,
		Email:     first + "@gym.example",
		Role:      entity.RoleTrainer,
	}}
}
