package projections

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/domain/entity"
	"gymdesk/internal/domain/member"
)

// MemberSortColumns are the columns members can be sorted by.
var MemberSortColumns = []string{"name", "expiry", "joined"}

// MemberFilterKeys are the filters the member list understands.
var MemberFilterKeys = []string{"status", "trainer"}

// GetMemberListQuery carries input for the member list projection.
type GetMemberListQuery struct {
	Params        listutil.ListParams
	Today         time.Time
	ExpiryWarning time.Duration
}

// GetMemberListDeps holds dependencies for the member list projection.
type GetMemberListDeps struct {
	Members  MemberReader
	Trainers TrainerReader
}

// MemberListItem is one row of the member list.
type MemberListItem struct {
	member.Member
	Status      string // active, expiring, expired
	TrainerName string // empty when unassigned or unknown
}

// GetMemberListResult carries the output of the member list projection.
type GetMemberListResult struct {
	Members  []MemberListItem
	PageInfo listutil.PageInfo
}

// QueryGetMemberList returns one page of members with status and trainer resolved.
// PRE: Params built with listutil constructors
// POST: Rows are filtered, sorted (by name when no column is given) and paged
func QueryGetMemberList(_ context.Context, query GetMemberListQuery, deps GetMemberListDeps) (GetMemberListResult, error) {
	today := query.Today
	if today.IsZero() {
		today = time.Now()
	}

	trainerNames := make(map[entity.ID]string)
	for _, t := range deps.Trainers.All() {
		trainerNames[t.ID] = t.FullName()
	}

	status := query.Params.Filters["status"]
	trainerID := entity.ID(query.Params.Filters["trainer"])

	var rows []MemberListItem
	for _, m := range deps.Members.All() {
		if !query.Params.Matches(m.FullName(), m.Email, m.Username, m.Phone) {
			continue
		}
		if trainerID != "" && m.TrainerID != trainerID {
			continue
		}
		item := MemberListItem{
			Member:      m,
			Status:      m.Status(today, query.ExpiryWarning),
			TrainerName: trainerNames[m.TrainerID],
		}
		if status != "" && item.Status != status {
			continue
		}
		rows = append(rows, item)
	}

	sortMembers(rows, query.Params.SortParams)
	page, info := listutil.Page(rows, query.Params.PageParams)
	return GetMemberListResult{Members: page, PageInfo: info}, nil
}

func sortMembers(rows []MemberListItem, sp listutil.SortParams) {
	byName := func(a, b MemberListItem) int {
		return cmp.Compare(strings.ToLower(a.FullName()), strings.ToLower(b.FullName()))
	}
	compare := byName
	switch sp.Sort {
	case "expiry":
		// Dates are YYYY-MM-DD so they sort as strings.
		compare = func(a, b MemberListItem) int {
			return cmp.Or(cmp.Compare(a.ExpiryDate, b.ExpiryDate), byName(a, b))
		}
	case "joined":
		compare = func(a, b MemberListItem) int {
			return cmp.Or(cmp.Compare(a.JoinDate, b.JoinDate), byName(a, b))
		}
	}
	slices.SortStableFunc(rows, func(a, b MemberListItem) int {
		if sp.Dir == "desc" {
			return compare(b, a)
		}
		return compare(a, b)
	})
}
