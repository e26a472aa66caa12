package visits

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/modney/booth-api/internal/enum"
	"github.com/modney/booth-api/internal/store"
)

// RecordStore defines the record-store operations the aggregation core
// consumes. Satisfied by *store.Postgres and *store.Memory; narrow
// interface for testability.
type RecordStore interface {
	ListTables(ctx context.Context, boothID uuid.UUID) ([]store.Table, error)
	GetTable(ctx context.Context, tableID int64) (store.Table, error)
	CreateTable(ctx context.Context, boothID uuid.UUID) (store.Table, error)
	SetTableActive(ctx context.Context, tableID int64, active bool) (store.Table, error)
	ListOrderIDsForTable(ctx context.Context, tableID int64) ([]int64, error)
	GetOrderDetail(ctx context.Context, orderID int64) (store.OrderDetail, error)
	ListOrdersForTable(ctx context.Context, tableID int64) ([]store.OrderDetail, error)
	SetOrderStatus(ctx context.Context, orderID int64, status string) (store.Order, error)
	CloseVisit(ctx context.Context, tableID int64) (bool, error)
}

// allowedTransitions defines the order status state machine. REJECTED and
// FINISHED are terminal.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:  {enum.OrderStatusApproved, enum.OrderStatusRejected},
	enum.OrderStatusApproved: {enum.OrderStatusFinished},
}

func transitionAllowed(current, next string) bool {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// Service aggregates the record store into per-table card summaries and
// dispatches manager actions. It keeps the last-fetched order records as a
// local working copy so actions can update optimistically and roll back to
// the exact prior value on write failure.
type Service struct {
	store RecordStore

	mu     sync.Mutex
	orders map[int64]store.Order
}

// NewService creates a Service on top of a record store.
func NewService(rs RecordStore) *Service {
	return &Service{
		store:  rs,
		orders: make(map[int64]store.Order),
	}
}

// tableResult pairs a table's position with its computed summary so the
// fan-out can write results without ordering assumptions.
type tableResult struct {
	index   int
	summary CardSummary
}

// LoadTableSummaries computes one CardSummary per table of the booth.
// Tables aggregate independently and concurrently; a table whose detail
// fetches partially fail still renders from what succeeded, and a table
// whose aggregation fails falls back to an empty card instead of failing
// the whole load. Output order follows the store's table order.
func (s *Service) LoadTableSummaries(ctx context.Context, boothID uuid.UUID) ([]CardSummary, error) {
	tables, err := s.store.ListTables(ctx, boothID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	results := make([]CardSummary, len(tables))
	var wg sync.WaitGroup
	for i, t := range tables {
		wg.Add(1)
		go func(i int, t store.Table) {
			defer wg.Done()
			results[i] = s.summarizeTable(ctx, t)
		}(i, t)
	}
	wg.Wait()
	return results, nil
}

// summarizeTable computes the card for one table.
func (s *Service) summarizeTable(ctx context.Context, t store.Table) CardSummary {
	empty := CardSummary{TableID: t.ID, TableNumber: t.Number, Active: t.Active}
	if !t.Active {
		return empty
	}

	ids, err := s.store.ListOrderIDsForTable(ctx, t.ID)
	if err != nil {
		log.Printf("ERROR: list order ids for table %d: %v", t.ID, err)
		return empty
	}

	orders := s.fetchDetails(ctx, ids)
	groups, err := GroupByVisit(orders)
	if err != nil {
		// Malformed records abort this table only; the card degrades to
		// the empty state.
		log.Printf("ERROR: group orders for table %d: %v", t.ID, err)
		return empty
	}

	latest, ok := SelectLatest(groups)
	if !ok {
		return empty
	}

	summary, err := Summarize(latest)
	if err != nil {
		log.Printf("ERROR: summarize table %d: %v", t.ID, err)
		return empty
	}
	summary.TableID = t.ID
	summary.TableNumber = t.Number
	summary.Active = t.Active
	return summary
}

// fetchDetails fans out one fetch per order id and joins on completion,
// collecting successes and dropping failures: a single failed detail
// contributes nothing rather than aborting the table. Arrival order of the
// id list is preserved in the result.
func (s *Service) fetchDetails(ctx context.Context, ids []int64) []store.OrderDetail {
	slots := make([]*store.OrderDetail, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			detail, err := s.store.GetOrderDetail(ctx, id)
			if err != nil {
				log.Printf("ERROR: fetch order %d: %v", id, err)
				return
			}
			slots[i] = &detail
		}(i, id)
	}
	wg.Wait()

	var out []store.OrderDetail
	s.mu.Lock()
	for _, d := range slots {
		if d == nil {
			continue
		}
		s.orders[d.Order.ID] = d.Order
		out = append(out, *d)
	}
	s.mu.Unlock()
	return out
}

// LoadTableHistory returns every order ever placed at the table, most
// recent first. No grouping or status resolution is applied; ties keep the
// store's order.
func (s *Service) LoadTableHistory(ctx context.Context, tableID int64) ([]store.OrderDetail, error) {
	orders, err := s.store.ListOrdersForTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Order.CreatedAt.After(orders[j].Order.CreatedAt)
	})
	return orders, nil
}

// Approve moves a PENDING order to APPROVED.
func (s *Service) Approve(ctx context.Context, orderID int64) (store.Order, error) {
	return s.transition(ctx, orderID, enum.OrderStatusApproved)
}

// Reject moves a PENDING order to REJECTED.
func (s *Service) Reject(ctx context.Context, orderID int64) (store.Order, error) {
	return s.transition(ctx, orderID, enum.OrderStatusRejected)
}

// Finish moves an APPROVED order to FINISHED.
func (s *Service) Finish(ctx context.Context, orderID int64) (store.Order, error) {
	return s.transition(ctx, orderID, enum.OrderStatusFinished)
}

// transition validates the status change, applies it optimistically to the
// local copy, writes through, and on failure restores the exact snapshot
// taken before the change.
func (s *Service) transition(ctx context.Context, orderID int64, target string) (store.Order, error) {
	s.mu.Lock()
	current, cached := s.orders[orderID]
	s.mu.Unlock()

	if !cached {
		detail, err := s.store.GetOrderDetail(ctx, orderID)
		if err != nil {
			return store.Order{}, fmt.Errorf("get order %d: %w", orderID, err)
		}
		current = detail.Order
		s.mu.Lock()
		s.orders[orderID] = current
		s.mu.Unlock()
	}

	if !transitionAllowed(current.Status, target) {
		return store.Order{}, fmt.Errorf("%s -> %s: %w", current.Status, target, ErrInvalidTransition)
	}

	// Snapshot, then mutate optimistically.
	s.mu.Lock()
	snapshot := s.orders[orderID]
	updated := snapshot
	updated.Status = target
	s.orders[orderID] = updated
	s.mu.Unlock()

	stored, err := s.store.SetOrderStatus(ctx, orderID, target)
	if err != nil {
		s.mu.Lock()
		s.orders[orderID] = snapshot
		s.mu.Unlock()
		return store.Order{}, fmt.Errorf("set order status: %w", err)
	}

	s.mu.Lock()
	s.orders[orderID] = stored
	s.mu.Unlock()
	return stored, nil
}

// CloseTableVisit marks the table inactive and closes its open visit if
// one exists. Closing a table with no open visit still clears the active
// flag and reports closed=false. A failure closing the visit rolls the
// active flag back to its prior value.
func (s *Service) CloseTableVisit(ctx context.Context, tableID int64) (bool, error) {
	prior, err := s.store.GetTable(ctx, tableID)
	if err != nil {
		return false, fmt.Errorf("get table: %w", err)
	}

	if _, err := s.store.SetTableActive(ctx, tableID, false); err != nil {
		return false, fmt.Errorf("deactivate table: %w", err)
	}

	closed, err := s.store.CloseVisit(ctx, tableID)
	if err != nil {
		if _, rbErr := s.store.SetTableActive(ctx, tableID, prior.Active); rbErr != nil {
			log.Printf("ERROR: restore table %d active flag: %v", tableID, rbErr)
		}
		return false, fmt.Errorf("close visit: %w", err)
	}
	return closed, nil
}

// CreateTable adds a table to the booth.
func (s *Service) CreateTable(ctx context.Context, boothID uuid.UUID) (store.Table, error) {
	t, err := s.store.CreateTable(ctx, boothID)
	if err != nil {
		return store.Table{}, fmt.Errorf("create table: %w", err)
	}
	return t, nil
}

// Order returns the service's current local copy of an order, if present.
// Exposed for tests that assert rollback behavior.
func (s *Service) Order(orderID int64) (store.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	return o, ok
}

// IsNotFound reports whether err is the store's not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
