package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modney/booth-api/internal/enum"
	"github.com/shopspring/decimal"
)

// Memory is a mutex-guarded in-memory store used by tests, local
// development, and the seed tool. It implements the same contract as
// Postgres and returns copies so callers never alias its internals.
type Memory struct {
	mu sync.Mutex

	booths    map[uuid.UUID]Booth
	tables    map[int64]Table
	visits    map[int64]Visit
	orders    map[int64]Order
	items     map[int64][]OrderItem // keyed by order ID
	payments  map[int64]Payment     // keyed by order ID
	menuItems map[int64]MenuItem
	users     map[uuid.UUID]User

	nextTableID int64
	nextVisitID int64
	nextOrderID int64
	nextMenuID  int64

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		booths:    make(map[uuid.UUID]Booth),
		tables:    make(map[int64]Table),
		visits:    make(map[int64]Visit),
		orders:    make(map[int64]Order),
		items:     make(map[int64][]OrderItem),
		payments:  make(map[int64]Payment),
		menuItems: make(map[int64]MenuItem),
		users:     make(map[uuid.UUID]User),
		now:       time.Now,
	}
}

// SetClock overrides the store's clock. Tests use it to pin timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// --- Booths ---

func (m *Memory) CreateBooth(ctx context.Context, name string) (Booth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := Booth{ID: uuid.New(), Name: name, CreatedAt: m.now()}
	m.booths[b.ID] = b
	return b, nil
}

// --- Tables ---

func (m *Memory) ListTables(ctx context.Context, boothID uuid.UUID) ([]Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Table
	for _, t := range m.tables {
		if t.BoothID == boothID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) GetTable(ctx context.Context, tableID int64) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return Table{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) CreateTable(ctx context.Context, boothID uuid.UUID) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.booths[boothID]; !ok {
		return Table{}, ErrNotFound
	}
	var maxNumber int32
	for _, t := range m.tables {
		if t.BoothID == boothID && t.Number > maxNumber {
			maxNumber = t.Number
		}
	}
	m.nextTableID++
	t := Table{
		ID:        m.nextTableID,
		BoothID:   boothID,
		Number:    maxNumber + 1,
		Active:    false,
		CreatedAt: m.now(),
	}
	m.tables[t.ID] = t
	return t, nil
}

func (m *Memory) SetTableActive(ctx context.Context, tableID int64, active bool) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return Table{}, ErrNotFound
	}
	t.Active = active
	m.tables[tableID] = t
	return t, nil
}

// --- Visits ---

// CloseVisit closes the table's open visit, if any. Reports whether a visit
// was actually closed; closing a table with no open visit is a no-op.
func (m *Memory) CloseVisit(ctx context.Context, tableID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[tableID]; !ok {
		return false, ErrNotFound
	}
	for id, v := range m.visits {
		if v.TableID == tableID && v.Open {
			closedAt := m.now()
			v.Open = false
			v.ClosedAt = &closedAt
			m.visits[id] = v
			return true, nil
		}
	}
	return false, nil
}

// openVisitLocked returns the table's open visit, creating one when absent.
func (m *Memory) openVisitLocked(tableID int64) Visit {
	for _, v := range m.visits {
		if v.TableID == tableID && v.Open {
			return v
		}
	}
	m.nextVisitID++
	v := Visit{ID: m.nextVisitID, TableID: tableID, Open: true, StartedAt: m.now()}
	m.visits[v.ID] = v
	return v
}

// --- Orders ---

func (m *Memory) CreateOrder(ctx context.Context, params CreateOrderParams) (OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[params.TableID]
	if !ok {
		return OrderDetail{}, ErrNotFound
	}
	if len(params.Items) == 0 {
		return OrderDetail{}, ErrEmptyItems
	}

	total := decimal.Zero
	var items []OrderItem
	for i, it := range params.Items {
		if it.Quantity <= 0 {
			return OrderDetail{}, fmt.Errorf("items[%d]: quantity must be > 0", i)
		}
		mi, ok := m.menuItems[it.MenuItemID]
		if !ok || mi.BoothID != table.BoothID {
			return OrderDetail{}, fmt.Errorf("items[%d]: %w", i, ErrNotFound)
		}
		if !mi.Available {
			return OrderDetail{}, fmt.Errorf("items[%d]: %w", i, ErrUnavailable)
		}
		price := mi.Price
		items = append(items, OrderItem{
			Name:      mi.Name,
			Quantity:  it.Quantity,
			UnitPrice: &price,
		})
		total = total.Add(mi.Price.Mul(decimal.NewFromInt32(it.Quantity)))
	}

	visit := m.openVisitLocked(params.TableID)
	table.Active = true
	m.tables[table.ID] = table

	m.nextOrderID++
	order := Order{
		ID:          m.nextOrderID,
		TableID:     params.TableID,
		VisitID:     visit.ID,
		Code:        fmt.Sprintf("ORD-%03d", m.nextOrderID),
		Status:      enum.OrderStatusPending,
		TotalAmount: total,
		CreatedAt:   m.now(),
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	payment := Payment{OrderID: order.ID, PayerName: params.PayerName, Amount: total}

	m.orders[order.ID] = order
	m.items[order.ID] = items
	m.payments[order.ID] = payment

	return m.detailLocked(order), nil
}

func (m *Memory) GetOrderDetail(ctx context.Context, orderID int64) (OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return OrderDetail{}, ErrNotFound
	}
	return m.detailLocked(o), nil
}

// ListOrderIDsForTable returns the IDs of orders in the table's open visit,
// in arrival order. Empty when no visit is open.
func (m *Memory) ListOrderIDsForTable(ctx context.Context, tableID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[tableID]; !ok {
		return nil, ErrNotFound
	}
	var open *Visit
	for _, v := range m.visits {
		if v.TableID == tableID && v.Open {
			vc := v
			open = &vc
			break
		}
	}
	if open == nil {
		return nil, nil
	}
	var ids []int64
	for _, o := range m.orders {
		if o.VisitID == open.ID {
			ids = append(ids, o.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ListOrdersForTable returns every order ever placed at the table,
// regardless of visit, oldest first.
func (m *Memory) ListOrdersForTable(ctx context.Context, tableID int64) ([]OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[tableID]; !ok {
		return nil, ErrNotFound
	}
	var orders []Order
	for _, o := range m.orders {
		if o.TableID == tableID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	out := make([]OrderDetail, len(orders))
	for i, o := range orders {
		out[i] = m.detailLocked(o)
	}
	return out, nil
}

func (m *Memory) SetOrderStatus(ctx context.Context, orderID int64, status string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	m.orders[orderID] = o
	return o, nil
}

// detailLocked assembles an OrderDetail with copied items so callers can
// merge and mutate freely.
func (m *Memory) detailLocked(o Order) OrderDetail {
	items := make([]OrderItem, len(m.items[o.ID]))
	copy(items, m.items[o.ID])
	d := OrderDetail{Order: o, Items: items}
	if p, ok := m.payments[o.ID]; ok {
		pc := p
		d.Payment = &pc
	}
	return d
}

// --- Menu ---

func (m *Memory) ListMenuItems(ctx context.Context, boothID uuid.UUID) ([]MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MenuItem
	for _, mi := range m.menuItems {
		if mi.BoothID == boothID {
			out = append(out, mi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi, ok := m.menuItems[id]
	if !ok {
		return MenuItem{}, ErrNotFound
	}
	return mi, nil
}

func (m *Memory) CreateMenuItem(ctx context.Context, params CreateMenuItemParams) (MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.booths[params.BoothID]; !ok {
		return MenuItem{}, ErrNotFound
	}
	m.nextMenuID++
	mi := MenuItem{
		ID:          m.nextMenuID,
		BoothID:     params.BoothID,
		Name:        params.Name,
		Description: params.Description,
		Price:       params.Price,
		Category:    params.Category,
		ImageURL:    params.ImageURL,
		Available:   params.Available,
		CreatedAt:   m.now(),
	}
	m.menuItems[mi.ID] = mi
	return mi, nil
}

func (m *Memory) UpdateMenuItem(ctx context.Context, params UpdateMenuItemParams) (MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi, ok := m.menuItems[params.ID]
	if !ok {
		return MenuItem{}, ErrNotFound
	}
	if params.Name != nil {
		mi.Name = *params.Name
	}
	if params.Description != nil {
		mi.Description = *params.Description
	}
	if params.Price != nil {
		mi.Price = *params.Price
	}
	if params.ImageURL != nil {
		mi.ImageURL = *params.ImageURL
	}
	m.menuItems[params.ID] = mi
	return mi, nil
}

func (m *Memory) DeleteMenuItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.menuItems[id]; !ok {
		return ErrNotFound
	}
	delete(m.menuItems, id)
	return nil
}

func (m *Memory) SetMenuItemAvailable(ctx context.Context, id int64, available bool) (MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mi, ok := m.menuItems[id]
	if !ok {
		return MenuItem{}, ErrNotFound
	}
	mi.Available = available
	m.menuItems[id] = mi
	return mi, nil
}

// --- Users ---

func (m *Memory) CreateUser(ctx context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// --- Reports ---

// GetDailySales sums settled (FINISHED) orders created on the given date.
// Payment amount wins over the order total when both are present.
func (m *Memory) GetDailySales(ctx context.Context, boothID uuid.UUID, date time.Time) (DailySales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	y, mo, d := date.Date()
	out := DailySales{Date: date.Format("2006-01-02"), TotalSales: decimal.Zero}
	for _, o := range m.orders {
		t, ok := m.tables[o.TableID]
		if !ok || t.BoothID != boothID || o.Status != enum.OrderStatusFinished {
			continue
		}
		oy, om, od := o.CreatedAt.Date()
		if oy != y || om != mo || od != d {
			continue
		}
		out.OrderCount++
		amount := o.TotalAmount
		if p, ok := m.payments[o.ID]; ok {
			amount = p.Amount
		}
		out.TotalSales = out.TotalSales.Add(amount)
	}
	return out, nil
}

// GetMenuSales totals revenue per menu item name across settled orders.
func (m *Memory) GetMenuSales(ctx context.Context, boothID uuid.UUID) ([]MenuSales, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := make(map[string]decimal.Decimal)
	for _, o := range m.orders {
		t, ok := m.tables[o.TableID]
		if !ok || t.BoothID != boothID || o.Status != enum.OrderStatusFinished {
			continue
		}
		for _, it := range m.items[o.ID] {
			line := decimal.Zero
			if it.UnitPrice != nil {
				line = it.UnitPrice.Mul(decimal.NewFromInt32(it.Quantity))
			}
			totals[it.Name] = totals[it.Name].Add(line)
		}
	}
	var out []MenuSales
	for _, mi := range m.menuItems {
		if mi.BoothID != boothID {
			continue
		}
		total, ok := totals[mi.Name]
		if !ok {
			total = decimal.Zero
		}
		out = append(out, MenuSales{MenuItemID: mi.ID, Name: mi.Name, TotalSales: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MenuItemID < out[j].MenuItemID })
	return out, nil
}
