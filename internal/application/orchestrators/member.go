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
	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	domainOutbox "gymdesk/internal/domain/outbox"
)

// offlineDetails is recorded on activities whose backend call was deferred.
const offlineDetails = "Saved offline; will sync when the server is reachable"

// MemberCreator is the backend call needed by AddMember.
type MemberCreator interface {
	CreateUser(ctx context.Context, m member.Member) (member.Member, error)
}

// AddMemberInput carries input for the add member orchestrator.
type AddMemberInput struct {
	Username   string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	TrainerID  entity.ID
	PackageID  entity.ID
	JoinDate   string
	ExpiryDate string
}

// AddMemberDeps holds dependencies for AddMember.
type AddMemberDeps struct {
	Members    *state.Collection[member.Member]
	Packages   *state.Collection[gympackage.Package]
	Activities *state.ActivityLog
	Backend    MemberCreator
	Outbox     OutboxWriter
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteAddMember registers a member with the backend and caches it locally.
// PRE: input passes member validation
// POST: member is in Members as synced, or pending with a sync create queued when offline
// INVARIANT: validation and backend rejections leave every collection unchanged
func ExecuteAddMember(ctx context.Context, input AddMemberInput, deps AddMemberDeps) (member.Member, error) {
	now := deps.Now()
	m := member.Member{
		Person: entity.Person{
			Username:  strings.TrimSpace(input.Username),
			FirstName: strings.TrimSpace(input.FirstName),
			LastName:  strings.TrimSpace(input.LastName),
			Email:     strings.TrimSpace(input.Email),
			Phone:     strings.TrimSpace(input.Phone),
			Role:      entity.RoleMember,
			IsActive:  true,
			CreatedAt: now,
		},
		TrainerID:  input.TrainerID,
		PackageID:  input.PackageID,
		JoinDate:   input.JoinDate,
		ExpiryDate: input.ExpiryDate,
	}
	if m.Username == "" {
		m.Username = usernameFromEmail(m.Email)
	}
	if m.JoinDate == "" {
		m.JoinDate = now.Format(member.DateLayout)
	}
	if err := applyPackage(&m, deps.Packages); err != nil {
		return member.Member{}, err
	}
	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}

	offline := false
	created, err := deps.Backend.CreateUser(ctx, m)
	switch {
	case err == nil:
		if created.ID == "" {
			return member.Member{}, errors.New("backend returned a member without an id")
		}
		m.ID = created.ID
		if !created.CreatedAt.IsZero() {
			m.CreatedAt = created.CreatedAt
		}
		m.SyncStatus = entity.SyncSynced
	case errors.Is(err, api.ErrNetwork):
		offline = true
		m.ID = entity.ID(deps.GenerateID())
		m.SyncStatus = entity.SyncPending
	default:
		return member.Member{}, err
	}

	if err := deps.Members.Add(ctx, m); err != nil {
		return member.Member{}, err
	}
	details := ""
	if offline {
		details = offlineDetails
		if err := enqueueSync(ctx, deps.Outbox, deps.GenerateID(), now, domainOutbox.ResourceMember, domainOutbox.OpCreate, m.ID, m); err != nil {
			return m, err
		}
	}
	if _, err := deps.Activities.Append(ctx, activity.MemberAdded, "Added member "+m.FullName(), details, nil); err != nil {
		warnActivity(activity.MemberAdded, err)
	}

	slog.Info("member_event", "event", "member_added", "member_id", m.ID, "offline", offline)
	return m, nil
}

// applyPackage copies the package name onto m and derives the expiry date when absent.
func applyPackage(m *member.Member, packages *state.Collection[gympackage.Package]) error {
	if m.PackageID == "" || packages == nil {
		return nil
	}
	p, ok := packages.Get(m.PackageID)
	if !ok {
		return fmt.Errorf("package %s: %w", m.PackageID, state.ErrNotFound)
	}
	m.PackageName = p.Name
	if m.ExpiryDate == "" && m.JoinDate != "" {
		join, err := time.Parse(member.DateLayout, m.JoinDate)
		if err != nil {
			return errors.New("join date must be YYYY-MM-DD")
		}
		m.ExpiryDate = p.ExpiresAt(join).Format(member.DateLayout)
	}
	return nil
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(local)
}

// MemberPatch names the fields to change; nil fields are left alone.
type MemberPatch struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	TrainerID  *entity.ID
	PackageID  *entity.ID
	ExpiryDate *string
	IsActive   *bool
}

// apply writes the named fields onto m and returns them keyed by their JSON names.
func (p MemberPatch) apply(m *member.Member) map[string]any {
	fields := map[string]any{}
	if p.FirstName != nil {
		m.FirstName = strings.TrimSpace(*p.FirstName)
		fields["firstName"] = m.FirstName
	}
	if p.LastName != nil {
		m.LastName = strings.TrimSpace(*p.LastName)
		fields["lastName"] = m.LastName
	}
	if p.Email != nil {
		m.Email = strings.TrimSpace(*p.Email)
		fields["email"] = m.Email
	}
	if p.Phone != nil {
		m.Phone = strings.TrimSpace(*p.Phone)
		fields["phone"] = m.Phone
	}
	if p.TrainerID != nil {
		m.TrainerID = *p.TrainerID
		fields["trainerId"] = m.TrainerID
	}
	if p.PackageID != nil {
		m.PackageID = *p.PackageID
		fields["packageId"] = m.PackageID
	}
	if p.ExpiryDate != nil {
		m.ExpiryDate = *p.ExpiryDate
		fields["expiryDate"] = m.ExpiryDate
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
		fields["isActive"] = m.IsActive
	}
	return fields
}

// UpdateMemberInput carries input for the update member orchestrator.
type UpdateMemberInput struct {
	MemberID entity.ID
	Patch    MemberPatch
}

// UpdateMemberDeps holds dependencies for UpdateMember.
type UpdateMemberDeps struct {
	Members    *state.Collection[member.Member]
	Packages   *state.Collection[gympackage.Package]
	Activities *state.ActivityLog
	Outbox     OutboxWriter
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteUpdateMember edits a member locally and queues the change for the backend.
// PRE: MemberID exists in Members
// POST: only the patched fields change; the member is pending until the sync lands
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps UpdateMemberDeps) (member.Member, error) {
	current, ok := deps.Members.Get(input.MemberID)
	if !ok {
		return member.Member{}, fmt.Errorf("member %s: %w", input.MemberID, state.ErrNotFound)
	}
	fields := input.Patch.apply(&current)
	if len(fields) == 0 {
		return current, nil
	}
	if input.Patch.PackageID != nil {
		if err := applyPackage(&current, deps.Packages); err != nil {
			return member.Member{}, err
		}
		fields["packageName"] = current.PackageName
		fields["expiryDate"] = current.ExpiryDate
	}
	if err := current.Validate(); err != nil {
		return member.Member{}, err
	}

	current.SyncStatus = entity.SyncPending
	updated, ok := deps.Members.Update(ctx, input.MemberID, func(m *member.Member) { *m = current })
	if !ok {
		return member.Member{}, fmt.Errorf("member %s: %w", input.MemberID, state.ErrNotFound)
	}
	if err := enqueueSync(ctx, deps.Outbox, deps.GenerateID(), deps.Now(), domainOutbox.ResourceMember, domainOutbox.OpUpdate, updated.ID, fields); err != nil {
		return updated, err
	}
	if _, err := deps.Activities.Append(ctx, activity.MemberEdited, "Updated member "+updated.FullName(), changedFields(fields), nil); err != nil {
		warnActivity(activity.MemberEdited, err)
	}

	slog.Info("member_event", "event", "member_edited", "member_id", updated.ID, "fields", len(fields))
	return updated, nil
}

// DeleteMemberInput carries input for the delete member orchestrator.
type DeleteMemberInput struct {
	MemberID entity.ID
}

// DeleteMemberDeps holds dependencies for DeleteMember.
type DeleteMemberDeps struct {
	Members    *state.Collection[member.Member]
	Activities *state.ActivityLog
	Outbox     OutboxQueue
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteDeleteMember removes a member and records a restorable snapshot.
// PRE: MemberID exists in Members
// POST: member is gone, a member_deleted activity holds its snapshot, a sync delete is queued unless its create never left the outbox
func ExecuteDeleteMember(ctx context.Context, input DeleteMemberInput, deps DeleteMemberDeps) (activity.Activity, error) {
	removed, ok := deps.Members.Remove(ctx, input.MemberID)
	if !ok {
		return activity.Activity{}, fmt.Errorf("member %s: %w", input.MemberID, state.ErrNotFound)
	}
	a, err := deps.Activities.Append(ctx, activity.MemberDeleted, "Deleted member "+removed.FullName(), "", activity.MemberSnapshot(removed))
	if err != nil {
		return activity.Activity{}, err
	}
	if _, err := enqueueSyncDelete(ctx, deps.Outbox, deps.GenerateID(), deps.Now(), domainOutbox.ResourceMember, removed.ID); err != nil {
		return a, err
	}

	slog.Info("member_event", "event", "member_deleted", "member_id", removed.ID, "activity_id", a.ID)
	return a, nil
}
