package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/gym"
)

// GymUpdater is the backend call needed by UpdateGym.
type GymUpdater interface {
	UpdateGym(ctx context.Context, id entity.ID, g gym.Info) (gym.Info, error)
}

// UpdateGymInput carries the new gym profile.
type UpdateGymInput struct {
	Info gym.Info
}

// UpdateGymDeps holds dependencies for UpdateGym.
type UpdateGymDeps struct {
	Backend GymUpdater
	Cache   GymCache
}

// ExecuteUpdateGym saves the gym profile on the backend and caches the result.
// The profile is owner-managed on the server, so there is no offline path.
// PRE: Info.ID and Info.Name are set
// POST: the cache holds the backend's copy
func ExecuteUpdateGym(ctx context.Context, input UpdateGymInput, deps UpdateGymDeps) (gym.Info, error) {
	if input.Info.ID == "" {
		return gym.Info{}, gym.ErrEmptyID
	}
	if err := input.Info.Validate(); err != nil {
		return gym.Info{}, err
	}
	saved, err := deps.Backend.UpdateGym(ctx, input.Info.ID, input.Info)
	if err != nil {
		return gym.Info{}, fmt.Errorf("update gym: %w", err)
	}
	if saved.ID == "" {
		saved = input.Info
	}
	deps.Cache.SetGymInfo(ctx, saved)

	slog.Info("gym_event", "event", "gym_updated", "gym_id", saved.ID)
	return saved, nil
}
