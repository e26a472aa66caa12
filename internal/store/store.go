package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by both store implementations.
var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("menu item is not available")
	ErrEmptyItems  = errors.New("order must contain at least one item")
)

// Booth is a single festival booth. All staff and tables belong to one booth.
type Booth struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Table is a physical ordering point at a booth. Active means a visit is
// currently open at it.
type Table struct {
	ID        int64
	BoothID   uuid.UUID
	Number    int32
	Active    bool
	CreatedAt time.Time
}

// Visit is one continuous occupancy of a table. At most one OPEN visit
// exists per table at any time.
type Visit struct {
	ID        int64
	TableID   int64
	Open      bool
	StartedAt time.Time
	ClosedAt  *time.Time
}

// Order is one checkout transaction. Its table/visit association never
// changes after creation; only Status mutates.
type Order struct {
	ID          int64
	TableID     int64
	VisitID     int64
	Code        string
	Status      string
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

// OrderItem is a line item owned by its parent order.
type OrderItem struct {
	OrderID   int64
	Name      string
	Quantity  int32
	UnitPrice *decimal.Decimal
}

// Payment is the payer metadata attached to an order.
type Payment struct {
	OrderID   int64
	PayerName string
	Amount    decimal.Decimal
}

// OrderDetail is an order together with its items and payment, the shape
// the dashboard aggregation consumes.
type OrderDetail struct {
	Order   Order
	Items   []OrderItem
	Payment *Payment
}

// MenuItem is a booth menu entry.
type MenuItem struct {
	ID          int64
	BoothID     uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Available   bool
	CreatedAt   time.Time
}

// User is a staff account.
type User struct {
	ID             uuid.UUID
	BoothID        uuid.UUID
	Name           string
	Email          string
	HashedPassword string
	Role           string
	CreatedAt      time.Time
}

// DailySales is the revenue summary for one date.
type DailySales struct {
	Date       string
	OrderCount int64
	TotalSales decimal.Decimal
}

// MenuSales is the revenue total for one menu item.
type MenuSales struct {
	MenuItemID int64
	Name       string
	TotalSales decimal.Decimal
}

// CreateOrderParams is the input for a customer checkout. Prices are
// resolved from the menu, never trusted from the client.
type CreateOrderParams struct {
	TableID   int64
	PayerName string
	Items     []CreateOrderItemParams
}

// CreateOrderItemParams is a single requested line item.
type CreateOrderItemParams struct {
	MenuItemID int64
	Quantity   int32
}

// CreateMenuItemParams is the input for adding a menu entry.
type CreateMenuItemParams struct {
	BoothID     uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Available   bool
}

// UpdateMenuItemParams is the input for editing a menu entry. Nil fields
// keep their current value.
type UpdateMenuItemParams struct {
	ID          int64
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
}
