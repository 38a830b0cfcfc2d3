package projections

import (
	"cmp"
	"context"
	"slices"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/domain/payment"
)

// PaymentFilterKeys are the filters the payment list understands.
var PaymentFilterKeys = []string{"status", "method"}

// GetPaymentListQuery carries input for the payment list projection.
type GetPaymentListQuery struct {
	Params listutil.ListParams
}

// GetPaymentListDeps holds dependencies for the payment list projection.
type GetPaymentListDeps struct {
	Payments PaymentReader
}

// GetPaymentListResult carries the output of the payment list projection.
type GetPaymentListResult struct {
	Payments []payment.Payment
	Summary  payment.Summary // over every filtered payment, not just the page
	PageInfo listutil.PageInfo
}

// QueryGetPaymentList returns one page of payments, newest first.
// POST: Ties on date are broken by id, newest id first
func QueryGetPaymentList(_ context.Context, query GetPaymentListQuery, deps GetPaymentListDeps) (GetPaymentListResult, error) {
	status := query.Params.Filters["status"]
	method := query.Params.Filters["method"]

	var rows []payment.Payment
	for _, p := range deps.Payments.All() {
		if status != "" && p.Status != status {
			continue
		}
		if method != "" && p.Method != method {
			continue
		}
		if !query.Params.Matches(string(p.ID), p.UserName, p.Notes) {
			continue
		}
		rows = append(rows, p)
	}

	slices.SortStableFunc(rows, func(a, b payment.Payment) int {
		return cmp.Or(cmp.Compare(b.Date, a.Date), cmp.Compare(b.ID, a.ID))
	})

	page, info := listutil.Page(rows, query.Params.PageParams)
	return GetPaymentListResult{
		Payments: page,
		Summary:  payment.Summarize(rows),
		PageInfo: info,
	}, nil
}
