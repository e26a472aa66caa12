package visits

import (
	"github.com/modney/booth-api/internal/enum"
	"github.com/modney/booth-api/internal/store"
	"github.com/shopspring/decimal"
)

// placeholderPayer is shown when no order in the group carries a payer name.
const placeholderPayer = "guest"

// ItemCount is one merged line of a card: item name and summed quantity.
type ItemCount struct {
	Name string
	Qty  int32
}

// CardSummary is the per-table view the manager dashboard renders. It is
// recomputed from fresh data on every load, never patched in place.
type CardSummary struct {
	TableID      int64
	TableNumber  int32
	Active       bool
	OrderStatus  string // empty when the table has no current visit
	Items        []ItemCount
	CustomerName string
	AddAmount    decimal.Decimal
	TotalAmount  decimal.Decimal
	TimeText     string
	VisitID      int64 // zero when the table has no current visit
	TargetOrder  int64 // order id manager actions act upon; zero when none
}

// ResolveStatus reduces a group's statuses to one aggregate: any PENDING
// order makes the whole group PENDING, otherwise it is APPROVED. REJECTED
// and FINISHED orders alone never change the aggregate; it is a coarse
// needs-attention signal, not a faithful per-order summary.
func ResolveStatus(g Group) (string, error) {
	if len(g) == 0 {
		return "", ErrEmptyGroup
	}
	for _, o := range g {
		if o.Order.Status == enum.OrderStatusPending {
			return enum.OrderStatusPending, nil
		}
	}
	return enum.OrderStatusApproved, nil
}

// Summarize produces the card fragment for one visit group: merged items,
// incremental and cumulative amounts, and display metadata. The earliest
// order anchors the visit time; the latest order supplies the displayed
// payer, incremental amount, and the target for manager actions.
func Summarize(g Group) (CardSummary, error) {
	status, err := ResolveStatus(g)
	if err != nil {
		return CardSummary{}, err
	}

	earliest := g[0]
	latest := g[0]
	for _, o := range g[1:] {
		if o.Order.CreatedAt.Before(earliest.Order.CreatedAt) {
			earliest = o
		}
		// >= so that on equal timestamps the later arrival wins.
		if !o.Order.CreatedAt.Before(latest.Order.CreatedAt) {
			latest = o
		}
	}

	s := CardSummary{
		OrderStatus: status,
		Items:       MergeItems(g),
		AddAmount:   orderAmount(latest),
		TotalAmount: totalAmount(g),
		TimeText:    earliest.Order.CreatedAt.Format("15:04"),
		VisitID:     latest.Order.VisitID,
		TargetOrder: latest.Order.ID,
	}

	s.CustomerName = payerName(latest)
	if s.CustomerName == "" {
		s.CustomerName = payerName(earliest)
	}
	if s.CustomerName == "" {
		s.CustomerName = placeholderPayer
	}
	return s, nil
}

// MergeItems sums quantities per item name across the group, preserving
// first-seen name order. The result is a new aggregate; source items are
// never touched.
func MergeItems(g Group) []ItemCount {
	idx := make(map[string]int)
	var out []ItemCount
	for _, o := range g {
		for _, it := range o.Items {
			if i, ok := idx[it.Name]; ok {
				out[i].Qty += it.Quantity
				continue
			}
			idx[it.Name] = len(out)
			out = append(out, ItemCount{Name: it.Name, Qty: it.Quantity})
		}
	}
	return out
}

// totalAmount sums every member's contribution: payment amount when
// present, the order's own total otherwise.
func totalAmount(g Group) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range g {
		sum = sum.Add(orderAmount(o))
	}
	return sum
}

func orderAmount(o store.OrderDetail) decimal.Decimal {
	if o.Payment != nil {
		return o.Payment.Amount
	}
	return o.Order.TotalAmount
}

func payerName(o store.OrderDetail) string {
	if o.Payment != nil {
		return o.Payment.PayerName
	}
	return ""
}
