package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func asha() member.Member {
	return member.Member{
		Person: entity.Person{
			ID:        "m1",
			FirstName: "Asha",
			LastName:  "Rao",
			Email:     "asha@gym.example",
			Role:      entity.RoleMember,
			IsActive:  true,
		},
		TrainerID:   "t1",
		PackageName: "Monthly",
		JoinDate:    "2026-01-01",
		ExpiryDate:  "2026-03-12",
	}
}

// TestBuildMemberData verifies payments and activity are scoped to the member.
func TestBuildMemberData(t *testing.T) {
	m := asha()
	other := m
	other.ID = "m2"
	other.FirstName = "Bo"

	d, err := BuildMemberData(Source{
		Member:      m,
		TrainerName: "Ravi Kumar",
		Payments: []payment.Payment{
			{ID: "PAY001", UserID: "m1", Amount: 1500, Status: payment.StatusCompleted},
			{ID: "PAY002", UserID: "m2", Amount: 900, Status: payment.StatusCompleted},
		},
		Activities: []activity.Activity{
			{ID: "a1", Action: activity.MemberAdded, Description: "Added member Asha Rao"},
			{ID: "a2", Action: activity.MemberAdded, Description: "Added member Asha Raoul"},
			{ID: "a3", Action: activity.MemberDeleted, Description: "Deleted member", DeletedData: activity.MemberSnapshot(m)},
			{ID: "a4", Action: activity.MemberDeleted, Description: "Deleted member Asha Rao", DeletedData: activity.MemberSnapshot(other)},
		},
		Now:           now,
		ExpiryWarning: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("BuildMemberData: %v", err)
	}
	if d.Member.Status != member.StatusExpiring {
		t.Errorf("Status = %q, want expiring", d.Member.Status)
	}
	if d.Member.Trainer != "Ravi Kumar" {
		t.Errorf("Trainer = %q", d.Member.Trainer)
	}
	if len(d.Payments) != 1 || d.Payments[0].ID != "PAY001" {
		t.Errorf("Payments = %+v", d.Payments)
	}
	if len(d.Activity) != 2 || d.Activity[0].ID != "a1" || d.Activity[1].ID != "a3" {
		t.Errorf("Activity = %+v", d.Activity)
	}
	if d.ExportMetadata.RecordCount != 4 {
		t.Errorf("RecordCount = %d, want 4", d.ExportMetadata.RecordCount)
	}
}

// TestBuildMemberData_RequiresID verifies an empty member is rejected.
func TestBuildMemberData_RequiresID(t *testing.T) {
	if _, err := BuildMemberData(Source{}); err != ErrEmptyMemberID {
		t.Errorf("expected ErrEmptyMemberID, got %v", err)
	}
}

// TestWriteRosterCSV verifies one row per member with completed totals.
func TestWriteRosterCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRosterCSV(&buf, []member.Member{asha()}, map[entity.ID]string{"t1": "Ravi Kumar"}, []payment.Payment{
		{UserID: "m1", Amount: 1500, Status: payment.StatusCompleted},
		{UserID: "m1", Amount: 500, Status: payment.StatusPending},
	}, now, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("WriteRosterCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	row := rows[1]
	if row[8] != member.StatusExpiring || row[9] != "Ravi Kumar" || row[10] != "1500.00" {
		t.Errorf("row = %v", row)
	}
}

// TestValidFormat verifies supported formats.
func TestValidFormat(t *testing.T) {
	if !ValidFormat(FormatJSON) || !ValidFormat(FormatCSV) || ValidFormat("xml") {
		t.Error("unexpected ValidFormat result")
	}
}
