package visits

import (
	"errors"
	"fmt"

	"github.com/modney/booth-api/internal/store"
)

// Errors returned by the aggregation core.
var (
	ErrMissingVisitID    = errors.New("order has no visit id")
	ErrEmptyGroup        = errors.New("visit group is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Group is the set of orders sharing one visit, in arrival order. It is
// derived on demand and never cached across writes.
type Group []store.OrderDetail

// Groups partitions a table's orders by visit id. Visit order is the
// first-seen order of the input, so downstream selection is deterministic
// rather than depending on map iteration.
type Groups struct {
	byVisit map[int64]Group
	order   []int64
}

// GroupByVisit partitions orders into visit groups. Input order determines
// each group's internal order. An order without a visit id is malformed.
func GroupByVisit(orders []store.OrderDetail) (*Groups, error) {
	g := &Groups{byVisit: make(map[int64]Group)}
	for _, o := range orders {
		if o.Order.VisitID == 0 {
			return nil, fmt.Errorf("order %d: %w", o.Order.ID, ErrMissingVisitID)
		}
		key := o.Order.VisitID
		if _, ok := g.byVisit[key]; !ok {
			g.order = append(g.order, key)
		}
		g.byVisit[key] = append(g.byVisit[key], o)
	}
	return g, nil
}

// Len reports the number of visit groups.
func (g *Groups) Len() int {
	return len(g.order)
}

// VisitIDs returns the visit ids in first-seen order.
func (g *Groups) VisitIDs() []int64 {
	out := make([]int64, len(g.order))
	copy(out, g.order)
	return out
}

// Get returns the group for a visit id, or nil.
func (g *Groups) Get(visitID int64) Group {
	return g.byVisit[visitID]
}

// SelectLatest chooses the "current" visit: the group whose maximum member
// timestamp is largest. On an exact tie the first group in first-seen order
// wins; this tie-break is deliberate and tested, not incidental map order.
func SelectLatest(g *Groups) (Group, bool) {
	var (
		best      Group
		bestFound bool
	)
	var bestTS int64
	for _, id := range g.order {
		group := g.byVisit[id]
		var maxTS int64
		for _, o := range group {
			if ts := o.Order.CreatedAt.UnixNano(); ts > maxTS {
				maxTS = ts
			}
		}
		if !bestFound || maxTS > bestTS {
			best = group
			bestTS = maxTS
			bestFound = true
		}
	}
	return best, bestFound
}
