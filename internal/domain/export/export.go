package export

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"gymdesk/internal/domain/activity"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/payment"
)

// Format constants for export file format.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Version is the export schema version written into Metadata.
const Version = "1"

// Domain errors.
var (
	ErrEmptyMemberID = errors.New("member id is required")
	ErrInvalidFormat = errors.New("invalid format: must be 'json' or 'csv'")
)

// ValidFormat reports whether f is a supported export format.
func ValidFormat(f string) bool {
	return f == FormatJSON || f == FormatCSV
}

// Data is the complete export for one member.
type Data struct {
	Member         MemberData       `json:"member"`
	Payments       []PaymentRecord  `json:"payments,omitempty"`
	Activity       []ActivityRecord `json:"activity,omitempty"`
	ExportMetadata Metadata         `json:"export_metadata"`
}

// MemberData is the member's profile and membership.
type MemberData struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Trainer    string    `json:"trainer,omitempty"`
	Package    string    `json:"package,omitempty"`
	JoinDate   string    `json:"join_date,omitempty"`
	ExpiryDate string    `json:"expiry_date,omitempty"`
	Status     string    `json:"status"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// PaymentRecord is one payment made by the member.
type PaymentRecord struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
	Status string  `json:"status"`
	Notes  string  `json:"notes,omitempty"`
}

// ActivityRecord is one activity feed entry that concerns the member.
type ActivityRecord struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Metadata describes the export itself.
type Metadata struct {
	ExportDate  time.Time `json:"export_date"`
	Format      string    `json:"format"`
	Version     string    `json:"version"`
	RecordCount int       `json:"record_count"`
}

// Source is everything an export is built from.
type Source struct {
	Member        member.Member
	TrainerName   string
	Payments      []payment.Payment
	Activities    []activity.Activity
	Now           time.Time
	ExpiryWarning time.Duration
}

// BuildMemberData assembles the export for src.Member.
// PRE: src.Member.ID is non-empty
// POST: Payments are those whose UserID is the member; activity is matched on the member's
// snapshot or full name in the description
func BuildMemberData(src Source) (Data, error) {
	m := src.Member
	if m.ID == "" {
		return Data{}, ErrEmptyMemberID
	}
	d := Data{
		Member: MemberData{
			ID:         string(m.ID),
			Name:       m.FullName(),
			Email:      m.Email,
			Phone:      m.Phone,
			Trainer:    src.TrainerName,
			Package:    m.PackageName,
			JoinDate:   m.JoinDate,
			ExpiryDate: m.ExpiryDate,
			Status:     m.Status(src.Now, src.ExpiryWarning),
			Active:     m.IsActive,
			CreatedAt:  m.CreatedAt,
		},
	}
	for _, p := range src.Payments {
		if p.UserID != m.ID {
			continue
		}
		d.Payments = append(d.Payments, PaymentRecord{
			ID:     string(p.ID),
			Date:   p.Date,
			Amount: p.Amount,
			Method: p.Method,
			Status: p.Status,
			Notes:  p.Notes,
		})
	}
	for _, a := range src.Activities {
		if !concerns(a, m) {
			continue
		}
		d.Activity = append(d.Activity, ActivityRecord{
			ID:          a.ID,
			Action:      string(a.Action),
			Description: a.Description,
			Timestamp:   a.Timestamp,
		})
	}
	d.ExportMetadata = Metadata{
		ExportDate:  src.Now,
		Format:      FormatJSON,
		Version:     Version,
		RecordCount: 1 + len(d.Payments) + len(d.Activity),
	}
	return d, nil
}

func concerns(a activity.Activity, m member.Member) bool {
	if a.DeletedData != nil && a.DeletedData.Member != nil {
		return a.DeletedData.Member.ID == m.ID
	}
	name := m.FullName()
	return name != "" && containsWord(a.Description, name)
}

func containsWord(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] != sub {
			continue
		}
		end := i + len(sub)
		if end == len(s) || !isNameByte(s[end]) {
			return true
		}
	}
	return false
}

func isNameByte(b byte) bool {
	return b == '-' || b == '\'' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// RosterHeader is the first row of the roster CSV.
var RosterHeader = []string{"id", "first_name", "last_name", "email", "phone", "package", "join_date", "expiry_date", "status", "trainer", "paid_total"}

// WriteRosterCSV writes one row per member.
// PRE: trainerNames maps trainer ids to display names
// POST: paid_total sums the member's completed payments
func WriteRosterCSV(w io.Writer, members []member.Member, trainerNames map[entity.ID]string, payments []payment.Payment, now time.Time, window time.Duration) error {
	paid := make(map[entity.ID]float64)
	for _, p := range payments {
		if p.Status == payment.StatusCompleted {
			paid[p.UserID] += p.Amount
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(RosterHeader); err != nil {
		return err
	}
	for _, m := range members {
		row := []string{
			string(m.ID),
			m.FirstName,
			m.LastName,
			m.Email,
			m.Phone,
			m.PackageName,
			m.JoinDate,
			m.ExpiryDate,
			m.Status(now, window),
			trainerNames[m.TrainerID],
			strconv.FormatFloat(paid[m.ID], 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
