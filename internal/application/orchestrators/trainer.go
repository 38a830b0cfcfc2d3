package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/application/state"
	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	domainOutbox "gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/trainer"
)

// TrainerCreator is the backend call needed by AddTrainer.
type TrainerCreator interface {
	CreateTrainer(ctx context.Context, t trainer.Trainer) (trainer.Trainer, error)
}

// AddTrainerInput carries input for the add trainer orchestrator.
type AddTrainerInput struct {
	Username        string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Specialization  string
	ExperienceYears int
	Certifications  []string
}

// AddTrainerDeps holds dependencies for AddTrainer.
type AddTrainerDeps struct {
	Trainers   *state.Collection[trainer.Trainer]
	Activities *state.ActivityLog
	Backend    TrainerCreator
	Outbox     OutboxWriter
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteAddTrainer registers a trainer with the backend and caches it locally.
// PRE: input passes trainer validation
// POST: trainer is in Trainers as synced, or pending with a sync create queued when offline
func ExecuteAddTrainer(ctx context.Context, input AddTrainerInput, deps AddTrainerDeps) (trainer.Trainer, error) {
	now := deps.Now()
	t := trainer.Trainer{
		Person: entity.Person{
			Username:  strings.TrimSpace(input.Username),
			FirstName: strings.TrimSpace(input.FirstName),
			LastName:  strings.TrimSpace(input.LastName),
			Email:     strings.TrimSpace(input.Email),
			Phone:     strings.TrimSpace(input.Phone),
			Role:      entity.RoleTrainer,
			IsActive:  true,
			CreatedAt: now,
		},
		Specialization:  strings.TrimSpace(input.Specialization),
		ExperienceYears: input.ExperienceYears,
		Certifications:  input.Certifications,
	}
	if t.Username == "" {
		t.Username = usernameFromEmail(t.Email)
	}
	if err := t.Validate(); err != nil {
		return trainer.Trainer{}, err
	}

	offline := false
	created, err := deps.Backend.CreateTrainer(ctx, t)
	switch {
	case err == nil:
		if created.ID == "" {
			return trainer.Trainer{}, errors.New("backend returned a trainer without an id")
		}
		t.ID = created.ID
		if !created.CreatedAt.IsZero() {
			t.CreatedAt = created.CreatedAt
		}
		t.SyncStatus = entity.SyncSynced
	case errors.Is(err, api.ErrNetwork):
		offline = true
		t.ID = entity.ID(deps.GenerateID())
		t.SyncStatus = entity.SyncPending
	default:
		return trainer.Trainer{}, err
	}

	if err := deps.Trainers.Add(ctx, t); err != nil {
		return trainer.Trainer{}, err
	}
	details := ""
	if offline {
		details = offlineDetails
		if err := enqueueSync(ctx, deps.Outbox, deps.GenerateID(), now, domainOutbox.ResourceTrainer, domainOutbox.OpCreate, t.ID, t); err != nil {
			return t, err
		}
	}
	if _, err := deps.Activities.Append(ctx, activity.TrainerAdded, "Added trainer "+t.FullName(), details, nil); err != nil {
		warnActivity(activity.TrainerAdded, err)
	}

	slog.Info("trainer_event", "event", "trainer_added", "trainer_id", t.ID, "offline", offline)
	return t, nil
}

// TrainerPatch names the fields to change; nil fields are left alone.
type TrainerPatch struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Phone           *string
	Specialization  *string
	ExperienceYears *int
	Certifications  *[]string
	IsActive        *bool
}

func (p TrainerPatch) apply(t *trainer.Trainer) map[string]any {
	fields := map[string]any{}
	if p.FirstName != nil {
		t.FirstName = strings.TrimSpace(*p.FirstName)
		fields["firstName"] = t.FirstName
	}
	if p.LastName != nil {
		t.LastName = strings.TrimSpace(*p.LastName)
		fields["lastName"] = t.LastName
	}
	if p.Email != nil {
		t.Email = strings.TrimSpace(*p.Email)
		fields["email"] = t.Email
	}
	if p.Phone != nil {
		t.Phone = strings.TrimSpace(*p.Phone)
		fields["phone"] = t.Phone
	}
	if p.Specialization != nil {
		t.Specialization = strings.TrimSpace(*p.Specialization)
		fields["specialization"] = t.Specialization
	}
	if p.ExperienceYears != nil {
		t.ExperienceYears = *p.ExperienceYears
		fields["experienceYears"] = t.ExperienceYears
	}
	if p.Certifications != nil {
		t.Certifications = append([]string(nil), (*p.Certifications)...)
		fields["certifications"] = t.Certifications
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
		fields["isActive"] = t.IsActive
	}
	return fields
}

// UpdateTrainerInput carries input for the update trainer orchestrator.
type UpdateTrainerInput struct {
	TrainerID entity.ID
	Patch     TrainerPatch
}

// UpdateTrainerDeps holds dependencies for UpdateTrainer.
type UpdateTrainerDeps struct {
	Trainers   *state.Collection[trainer.Trainer]
	Activities *state.ActivityLog
	Outbox     OutboxWriter
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteUpdateTrainer edits a trainer locally and queues the change for the backend.
// PRE: TrainerID exists in Trainers
// POST: only the patched fields change; the trainer is pending until the sync lands
func ExecuteUpdateTrainer(ctx context.Context, input UpdateTrainerInput, deps UpdateTrainerDeps) (trainer.Trainer, error) {
	current, ok := deps.Trainers.Get(input.TrainerID)
	if !ok {
		return trainer.Trainer{}, fmt.Errorf("trainer %s: %w", input.TrainerID, state.ErrNotFound)
	}
	fields := input.Patch.apply(&current)
	if len(fields) == 0 {
		return current, nil
	}
	if err := current.Validate(); err != nil {
		return trainer.Trainer{}, err
	}

	current.SyncStatus = entity.SyncPending
	updated, ok := deps.Trainers.Update(ctx, input.TrainerID, func(t *trainer.Trainer) { *t = current })
	if !ok {
		return trainer.Trainer{}, fmt.Errorf("trainer %s: %w", input.TrainerID, state.ErrNotFound)
	}
	if err := enqueueSync(ctx, deps.Outbox, deps.GenerateID(), deps.Now(), domainOutbox.ResourceTrainer, domainOutbox.OpUpdate, updated.ID, fields); err != nil {
		return updated, err
	}
	if _, err := deps.Activities.Append(ctx, activity.TrainerEdited, "Updated trainer "+updated.FullName(), changedFields(fields), nil); err != nil {
		warnActivity(activity.TrainerEdited, err)
	}

	slog.Info("trainer_event", "event", "trainer_edited", "trainer_id", updated.ID, "fields", len(fields))
	return updated, nil
}

// DeleteTrainerInput carries input for the delete trainer orchestrator.
type DeleteTrainerInput struct {
	TrainerID entity.ID
}

// DeleteTrainerDeps holds dependencies for DeleteTrainer.
type DeleteTrainerDeps struct {
	Trainers   *state.Collection[trainer.Trainer]
	Activities *state.ActivityLog
	Outbox     OutboxQueue
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteDeleteTrainer removes a trainer and records a restorable snapshot.
// Members keep their trainerId; the reference is weak.
// PRE: TrainerID exists in Trainers
// POST: trainer is gone, a trainer_deleted activity holds its snapshot, a sync delete is queued unless its create never left the outbox
func ExecuteDeleteTrainer(ctx context.Context, input DeleteTrainerInput, deps DeleteTrainerDeps) (activity.Activity, error) {
	removed, ok := deps.Trainers.Remove(ctx, input.TrainerID)
	if !ok {
		return activity.Activity{}, fmt.Errorf("trainer %s: %w", input.TrainerID, state.ErrNotFound)
	}
	a, err := deps.Activities.Append(ctx, activity.TrainerDeleted, "Deleted trainer "+removed.FullName(), "", activity.TrainerSnapshot(removed))
	if err != nil {
		return activity.Activity{}, err
	}
	if _, err := enqueueSyncDelete(ctx, deps.Outbox, deps.GenerateID(), deps.Now(), domainOutbox.ResourceTrainer, removed.ID); err != nil {
		return a, err
	}

	slog.Info("trainer_event", "event", "trainer_deleted", "trainer_id", removed.ID, "activity_id", a.ID)
	return a, nil
}

// ProgramCreator is the backend call needed by CreateTrainerProgram.
type ProgramCreator interface {
	CreateTrainerProgram(ctx context.Context, trainerID entity.ID, p trainer.Program) (trainer.Program, error)
}

// CreateTrainerProgramInput carries input for publishing a training program.
type CreateTrainerProgramInput struct {
	TrainerID entity.ID
	Program   trainer.Program
}

// CreateTrainerProgramDeps holds dependencies for CreateTrainerProgram.
type CreateTrainerProgramDeps struct {
	Trainers *state.Collection[trainer.Trainer]
	Backend  ProgramCreator
}

// ExecuteCreateTrainerProgram publishes a program for a trainer. Programs are not cached,
// so this needs the backend.
// PRE: TrainerID exists in Trainers; program passes validation
// POST: Returns the program as stored by the backend
func ExecuteCreateTrainerProgram(ctx context.Context, input CreateTrainerProgramInput, deps CreateTrainerProgramDeps) (trainer.Program, error) {
	if _, ok := deps.Trainers.Get(input.TrainerID); !ok {
		return trainer.Program{}, fmt.Errorf("trainer %s: %w", input.TrainerID, state.ErrNotFound)
	}
	if err := input.Program.Validate(); err != nil {
		return trainer.Program{}, err
	}
	p, err := deps.Backend.CreateTrainerProgram(ctx, input.TrainerID, input.Program)
	if err != nil {
		return trainer.Program{}, fmt.Errorf("create program: %w", err)
	}

	slog.Info("trainer_event", "event", "program_created", "trainer_id", input.TrainerID, "program_id", p.ID)
	return p, nil
}
