package activity

import (
	"errors"
	"strings"
	"time"

	"gymdesk/internal/domain/gympackage"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
	"gymdesk/internal/domain/trainer"
)

// Retention is how long activities survive in the durable feed.
const Retention = 7 * 24 * time.Hour

// Action identifies the kind of event recorded.
type Action string

// Action constants
const (
	MemberAdded          Action = "member_added"
	MemberEdited         Action = "member_edited"
	MemberDeleted        Action = "member_deleted"
	MemberRestored       Action = "member_restored"
	TrainerAdded         Action = "trainer_added"
	TrainerEdited        Action = "trainer_edited"
	TrainerDeleted       Action = "trainer_deleted"
	TrainerRestored      Action = "trainer_restored"
	PackageAdded         Action = "package_added"
	PackageEdited        Action = "package_edited"
	PackageDeleted       Action = "package_deleted"
	PackageRestored      Action = "package_restored"
	PackageCloned        Action = "package_cloned"
	PackageStatusChanged Action = "package_status_changed"
	PaymentAdded         Action = "payment_added"
	PaymentEdited        Action = "payment_edited"
	PaymentDeleted       Action = "payment_deleted"
	PaymentRestored      Action = "payment_restored"
	PhotoAdded           Action = "photo_added"
)

var actions = map[Action]bool{
	MemberAdded: true, MemberEdited: true, MemberDeleted: true, MemberRestored: true,
	TrainerAdded: true, TrainerEdited: true, TrainerDeleted: true, TrainerRestored: true,
	PackageAdded: true, PackageEdited: true, PackageDeleted: true, PackageRestored: true,
	PackageCloned: true, PackageStatusChanged: true,
	PaymentAdded: true, PaymentEdited: true, PaymentDeleted: true, PaymentRestored: true,
	PhotoAdded: true,
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool { return actions[a] }

// IsDeletion reports whether the action records a deletion.
func (a Action) IsDeletion() bool { return strings.HasSuffix(string(a), "_deleted") }

// State is the lifecycle of an activity's undo payload.
type State string

// State constants
const (
	StateActive   State = "active"
	StateConsumed State = "consumed"
)

// Kind tags the entity carried by a Snapshot.
type Kind string

// Kind constants
const (
	KindMember  Kind = "member"
	KindTrainer Kind = "trainer"
	KindPackage Kind = "package"
	KindPayment Kind = "payment"
)

// Domain errors
var (
	ErrUnknownAction   = errors.New("unknown activity action")
	ErrEmptyDesc       = errors.New("activity description cannot be empty")
	ErrNotRestorable   = errors.New("activity has no restorable snapshot")
	ErrAlreadyConsumed = errors.New("activity has already been restored")
	ErrSnapshotKind    = errors.New("snapshot payload does not match its kind")
)

// Snapshot is a copy of an entity taken at deletion time.
// Exactly one payload is set and it matches Kind.
type Snapshot struct {
	Kind    Kind                `json:"kind"`
	Member  *member.Member      `json:"member,omitempty"`
	Trainer *trainer.Trainer    `json:"trainer,omitempty"`
	Package *gympackage.Package `json:"package,omitempty"`
	Payment *payment.Payment    `json:"payment,omitempty"`
}

// MemberSnapshot captures a member.
func MemberSnapshot(m member.Member) *Snapshot { return &Snapshot{Kind: KindMember, Member: &m} }

// TrainerSnapshot captures a trainer.
func TrainerSnapshot(t trainer.Trainer) *Snapshot { return &Snapshot{Kind: KindTrainer, Trainer: &t} }

// PackageSnapshot captures a package.
func PackageSnapshot(p gympackage.Package) *Snapshot {
	p.Features = append([]string(nil), p.Features...)
	return &Snapshot{Kind: KindPackage, Package: &p}
}

// PaymentSnapshot captures a payment.
func PaymentSnapshot(p payment.Payment) *Snapshot { return &Snapshot{Kind: KindPayment, Payment: &p} }

// Validate checks that the payload matches the tag.
// POST: Returns ErrSnapshotKind unless exactly the tagged payload is present
func (s *Snapshot) Validate() error {
	set := 0
	for _, present := range []bool{s.Member != nil, s.Trainer != nil, s.Package != nil, s.Payment != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return ErrSnapshotKind
	}
	switch s.Kind {
	case KindMember:
		if s.Member == nil {
			return ErrSnapshotKind
		}
	case KindTrainer:
		if s.Trainer == nil {
			return ErrSnapshotKind
		}
	case KindPackage:
		if s.Package == nil {
			return ErrSnapshotKind
		}
	case KindPayment:
		if s.Payment == nil {
			return ErrSnapshotKind
		}
	default:
		return ErrSnapshotKind
	}
	return nil
}

// Activity is one entry of the activity feed.
type Activity struct {
	ID          string    `json:"id"`
	Action      Action    `json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Details     string    `json:"details,omitempty"`
	DeletedData *Snapshot `json:"deletedData,omitempty"`
	State       State     `json:"state,omitempty"`
}

// Validate checks if the Activity has valid data.
// PRE: Activity struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: DeletedData only appears on deletion actions
func (a *Activity) Validate() error {
	if !a.Action.Valid() {
		return ErrUnknownAction
	}
	if strings.TrimSpace(a.Description) == "" {
		return ErrEmptyDesc
	}
	if a.DeletedData != nil {
		if !a.Action.IsDeletion() {
			return ErrNotRestorable
		}
		return a.DeletedData.Validate()
	}
	return nil
}

// Restorable reports whether the snapshot can still be restored.
// INVARIANT: Activity fields are not mutated
func (a *Activity) Restorable() bool {
	return a.Action.IsDeletion() && a.DeletedData != nil && a.State != StateConsumed
}

// Consume retires the undo payload after a successful restore.
// PRE: Activity is restorable
// POST: State is consumed
func (a *Activity) Consume() error {
	if a.State == StateConsumed {
		return ErrAlreadyConsumed
	}
	if !a.Action.IsDeletion() || a.DeletedData == nil {
		return ErrNotRestorable
	}
	a.State = StateConsumed
	return nil
}

// Expired reports whether the activity has outlived the retention window.
func (a *Activity) Expired(now time.Time) bool {
	return now.Sub(a.Timestamp) >= Retention
}

// Prune drops expired activities, preserving order.
// POST: Every returned activity satisfies !Expired(now)
func Prune(list []Activity, now time.Time) []Activity {
	kept := make([]Activity, 0, len(list))
	for _, a := range list {
		if !a.Expired(now) {
			kept = append(kept, a)
		}
	}
	return kept
}

// RestoredAction maps a deletion to its matching restore action.
func RestoredAction(k Kind) Action {
	switch k {
	case KindMember:
		return MemberRestored
	case KindTrainer:
		return TrainerRestored
	case KindPackage:
		return PackageRestored
	default:
		return PaymentRestored
	}
}
