package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modney/booth-api/internal/enum"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var Schema string

// Postgres is the production store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ApplySchema creates the tables if they do not exist.
func (p *Postgres) ApplySchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// --- Booths ---

func (p *Postgres) CreateBooth(ctx context.Context, name string) (Booth, error) {
	b := Booth{ID: uuid.New(), Name: name}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO booths (id, name) VALUES ($1, $2) RETURNING created_at`,
		b.ID, b.Name,
	).Scan(&b.CreatedAt)
	if err != nil {
		return Booth{}, fmt.Errorf("create booth: %w", err)
	}
	return b, nil
}

// --- Tables ---

func (p *Postgres) ListTables(ctx context.Context, boothID uuid.UUID) ([]Table, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, booth_id, number, active, created_at
		 FROM tables WHERE booth_id = $1 ORDER BY number`,
		boothID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.BoothID, &t.Number, &t.Active, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) GetTable(ctx context.Context, tableID int64) (Table, error) {
	var t Table
	err := p.pool.QueryRow(ctx,
		`SELECT id, booth_id, number, active, created_at FROM tables WHERE id = $1`,
		tableID,
	).Scan(&t.ID, &t.BoothID, &t.Number, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Table{}, ErrNotFound
	}
	if err != nil {
		return Table{}, fmt.Errorf("get table: %w", err)
	}
	return t, nil
}

func (p *Postgres) CreateTable(ctx context.Context, boothID uuid.UUID) (Table, error) {
	var t Table
	err := p.pool.QueryRow(ctx,
		`INSERT INTO tables (booth_id, number)
		 SELECT $1, COALESCE(MAX(number), 0) + 1 FROM tables WHERE booth_id = $1
		 RETURNING id, booth_id, number, active, created_at`,
		boothID,
	).Scan(&t.ID, &t.BoothID, &t.Number, &t.Active, &t.CreatedAt)
	if err != nil {
		return Table{}, fmt.Errorf("create table: %w", err)
	}
	return t, nil
}

func (p *Postgres) SetTableActive(ctx context.Context, tableID int64, active bool) (Table, error) {
	var t Table
	err := p.pool.QueryRow(ctx,
		`UPDATE tables SET active = $2 WHERE id = $1
		 RETURNING id, booth_id, number, active, created_at`,
		tableID, active,
	).Scan(&t.ID, &t.BoothID, &t.Number, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Table{}, ErrNotFound
	}
	if err != nil {
		return Table{}, fmt.Errorf("set table active: %w", err)
	}
	return t, nil
}

// --- Visits ---

func (p *Postgres) CloseVisit(ctx context.Context, tableID int64) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE visits SET open = FALSE, closed_at = now()
		 WHERE table_id = $1 AND open`,
		tableID,
	)
	if err != nil {
		return false, fmt.Errorf("close visit: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Orders ---

// CreateOrder runs the whole checkout in one transaction: reuse or open the
// table's visit, snapshot menu prices into line items, and record payment.
func (p *Postgres) CreateOrder(ctx context.Context, params CreateOrderParams) (OrderDetail, error) {
	if len(params.Items) == 0 {
		return OrderDetail{}, ErrEmptyItems
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var boothID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT booth_id FROM tables WHERE id = $1 FOR UPDATE`,
		params.TableID,
	).Scan(&boothID)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderDetail{}, ErrNotFound
	}
	if err != nil {
		return OrderDetail{}, fmt.Errorf("lock table: %w", err)
	}

	// Resolve menu items; prices are snapshotted, never trusted from input.
	total := decimal.Zero
	items := make([]OrderItem, 0, len(params.Items))
	for i, it := range params.Items {
		if it.Quantity <= 0 {
			return OrderDetail{}, fmt.Errorf("items[%d]: quantity must be > 0", i)
		}
		var (
			name      string
			price     pgtype.Numeric
			available bool
		)
		err := tx.QueryRow(ctx,
			`SELECT name, price, available FROM menu_items WHERE id = $1 AND booth_id = $2`,
			it.MenuItemID, boothID,
		).Scan(&name, &price, &available)
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderDetail{}, fmt.Errorf("items[%d]: %w", i, ErrNotFound)
		}
		if err != nil {
			return OrderDetail{}, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}
		if !available {
			return OrderDetail{}, fmt.Errorf("items[%d]: %w", i, ErrUnavailable)
		}
		unit := numericToDecimal(price)
		items = append(items, OrderItem{Name: name, Quantity: it.Quantity, UnitPrice: &unit})
		total = total.Add(unit.Mul(decimal.NewFromInt32(it.Quantity)))
	}

	// Reuse the open visit or start one; the first order opens the visit.
	var visitID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM visits WHERE table_id = $1 AND open`,
		params.TableID,
	).Scan(&visitID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx,
			`INSERT INTO visits (table_id) VALUES ($1) RETURNING id`,
			params.TableID,
		).Scan(&visitID)
	}
	if err != nil {
		return OrderDetail{}, fmt.Errorf("open visit: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tables SET active = TRUE WHERE id = $1`, params.TableID,
	); err != nil {
		return OrderDetail{}, fmt.Errorf("activate table: %w", err)
	}

	var order Order
	var totalNum pgtype.Numeric
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (table_id, visit_id, code, status, total_amount)
		 VALUES ($1, $2, '', 'PENDING', $3)
		 RETURNING id, table_id, visit_id, status, total_amount, created_at`,
		params.TableID, visitID, decimalToNumeric(total),
	).Scan(&order.ID, &order.TableID, &order.VisitID, &order.Status, &totalNum, &order.CreatedAt)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("create order: %w", err)
	}
	order.TotalAmount = numericToDecimal(totalNum)

	order.Code = fmt.Sprintf("ORD-%03d", order.ID)
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET code = $2 WHERE id = $1`, order.ID, order.Code,
	); err != nil {
		return OrderDetail{}, fmt.Errorf("set order code: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			order.ID, items[i].Name, items[i].Quantity, decimalToNumeric(*items[i].UnitPrice),
		); err != nil {
			return OrderDetail{}, fmt.Errorf("create order item: %w", err)
		}
	}

	payment := Payment{OrderID: order.ID, PayerName: params.PayerName, Amount: total}
	if _, err := tx.Exec(ctx,
		`INSERT INTO payments (order_id, payer_name, amount) VALUES ($1, $2, $3)`,
		order.ID, payment.PayerName, decimalToNumeric(payment.Amount),
	); err != nil {
		return OrderDetail{}, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return OrderDetail{}, fmt.Errorf("commit tx: %w", err)
	}

	return OrderDetail{Order: order, Items: items, Payment: &payment}, nil
}

func (p *Postgres) GetOrderDetail(ctx context.Context, orderID int64) (OrderDetail, error) {
	var (
		order    Order
		totalNum pgtype.Numeric
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, table_id, visit_id, code, status, total_amount, created_at
		 FROM orders WHERE id = $1`,
		orderID,
	).Scan(&order.ID, &order.TableID, &order.VisitID, &order.Code, &order.Status, &totalNum, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderDetail{}, ErrNotFound
	}
	if err != nil {
		return OrderDetail{}, fmt.Errorf("get order: %w", err)
	}
	order.TotalAmount = numericToDecimal(totalNum)

	detail := OrderDetail{Order: order}
	if detail.Items, err = p.listItems(ctx, orderID); err != nil {
		return OrderDetail{}, err
	}
	if detail.Payment, err = p.getPayment(ctx, orderID); err != nil {
		return OrderDetail{}, err
	}
	return detail, nil
}

func (p *Postgres) ListOrderIDsForTable(ctx context.Context, tableID int64) ([]int64, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT o.id FROM orders o
		 JOIN visits v ON v.id = o.visit_id
		 WHERE v.table_id = $1 AND v.open
		 ORDER BY o.created_at, o.id`,
		tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) ListOrdersForTable(ctx context.Context, tableID int64) ([]OrderDetail, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, table_id, visit_id, code, status, total_amount, created_at
		 FROM orders WHERE table_id = $1 ORDER BY created_at, id`,
		tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var (
			o        Order
			totalNum pgtype.Numeric
		)
		if err := rows.Scan(&o.ID, &o.TableID, &o.VisitID, &o.Code, &o.Status, &totalNum, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.TotalAmount = numericToDecimal(totalNum)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]OrderDetail, len(orders))
	for i, o := range orders {
		d := OrderDetail{Order: o}
		if d.Items, err = p.listItems(ctx, o.ID); err != nil {
			return nil, err
		}
		if d.Payment, err = p.getPayment(ctx, o.ID); err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func (p *Postgres) SetOrderStatus(ctx context.Context, orderID int64, status string) (Order, error) {
	var (
		o        Order
		totalNum pgtype.Numeric
	)
	err := p.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1
		 RETURNING id, table_id, visit_id, code, status, total_amount, created_at`,
		orderID, status,
	).Scan(&o.ID, &o.TableID, &o.VisitID, &o.Code, &o.Status, &totalNum, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("set order status: %w", err)
	}
	o.TotalAmount = numericToDecimal(totalNum)
	return o, nil
}

func (p *Postgres) listItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT order_id, name, quantity, unit_price
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var (
			it    OrderItem
			price pgtype.Numeric
		)
		if err := rows.Scan(&it.OrderID, &it.Name, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if price.Valid {
			d := numericToDecimal(price)
			it.UnitPrice = &d
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (p *Postgres) getPayment(ctx context.Context, orderID int64) (*Payment, error) {
	var (
		pay Payment
		num pgtype.Numeric
	)
	err := p.pool.QueryRow(ctx,
		`SELECT order_id, payer_name, amount FROM payments WHERE order_id = $1`,
		orderID,
	).Scan(&pay.OrderID, &pay.PayerName, &num)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	pay.Amount = numericToDecimal(num)
	return &pay, nil
}

// --- Menu ---

func (p *Postgres) ListMenuItems(ctx context.Context, boothID uuid.UUID) ([]MenuItem, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, booth_id, name, description, price, category, image_url, available, created_at
		 FROM menu_items WHERE booth_id = $1 ORDER BY id`,
		boothID,
	)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var out []MenuItem
	for rows.Next() {
		mi, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mi)
	}
	return out, rows.Err()
}

func (p *Postgres) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, booth_id, name, description, price, category, image_url, available, created_at
		 FROM menu_items WHERE id = $1`,
		id,
	)
	mi, err := scanMenuItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MenuItem{}, ErrNotFound
	}
	return mi, err
}

func (p *Postgres) CreateMenuItem(ctx context.Context, params CreateMenuItemParams) (MenuItem, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO menu_items (booth_id, name, description, price, category, image_url, available)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, booth_id, name, description, price, category, image_url, available, created_at`,
		params.BoothID, params.Name, params.Description, decimalToNumeric(params.Price),
		params.Category, params.ImageURL, params.Available,
	)
	return scanMenuItem(row)
}

func (p *Postgres) UpdateMenuItem(ctx context.Context, params UpdateMenuItemParams) (MenuItem, error) {
	var price any
	if params.Price != nil {
		price = decimalToNumeric(*params.Price)
	}
	row := p.pool.QueryRow(ctx,
		`UPDATE menu_items SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			price       = COALESCE($4, price),
			image_url   = COALESCE($5, image_url)
		 WHERE id = $1
		 RETURNING id, booth_id, name, description, price, category, image_url, available, created_at`,
		params.ID, params.Name, params.Description, price, params.ImageURL,
	)
	mi, err := scanMenuItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MenuItem{}, ErrNotFound
	}
	return mi, err
}

func (p *Postgres) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetMenuItemAvailable(ctx context.Context, id int64, available bool) (MenuItem, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE menu_items SET available = $2 WHERE id = $1
		 RETURNING id, booth_id, name, description, price, category, image_url, available, created_at`,
		id, available,
	)
	mi, err := scanMenuItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MenuItem{}, ErrNotFound
	}
	return mi, err
}

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var (
		mi    MenuItem
		price pgtype.Numeric
	)
	err := row.Scan(&mi.ID, &mi.BoothID, &mi.Name, &mi.Description, &price,
		&mi.Category, &mi.ImageURL, &mi.Available, &mi.CreatedAt)
	if err != nil {
		return MenuItem{}, err
	}
	mi.Price = numericToDecimal(price)
	return mi, nil
}

// --- Users ---

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (id, booth_id, name, email, hashed_password, role)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		u.ID, u.BoothID, u.Name, u.Email, u.HashedPassword, u.Role,
	).Scan(&u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, booth_id, name, email, hashed_password, role, created_at
		 FROM users WHERE lower(email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.BoothID, &u.Name, &u.Email, &u.HashedPassword, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// --- Reports ---

func (p *Postgres) GetDailySales(ctx context.Context, boothID uuid.UUID, date time.Time) (DailySales, error) {
	out := DailySales{Date: date.Format("2006-01-02"), TotalSales: decimal.Zero}
	var num pgtype.Numeric
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(COALESCE(p.amount, o.total_amount)), 0)
		 FROM orders o
		 JOIN tables t ON t.id = o.table_id
		 LEFT JOIN payments p ON p.order_id = o.id
		 WHERE t.booth_id = $1
		   AND o.status = $2
		   AND o.created_at::date = $3::date`,
		boothID, enum.OrderStatusFinished, date,
	).Scan(&out.OrderCount, &num)
	if err != nil {
		return DailySales{}, fmt.Errorf("daily sales: %w", err)
	}
	out.TotalSales = numericToDecimal(num)
	return out, nil
}

func (p *Postgres) GetMenuSales(ctx context.Context, boothID uuid.UUID) ([]MenuSales, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT m.id, m.name, COALESCE(s.total, 0)
		 FROM menu_items m
		 LEFT JOIN (
			SELECT oi.name, SUM(oi.unit_price * oi.quantity) AS total
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			JOIN tables t ON t.id = o.table_id
			WHERE t.booth_id = $1 AND o.status = $2
			GROUP BY oi.name
		 ) s ON s.name = m.name
		 WHERE m.booth_id = $1
		 ORDER BY m.id`,
		boothID, enum.OrderStatusFinished,
	)
	if err != nil {
		return nil, fmt.Errorf("menu sales: %w", err)
	}
	defer rows.Close()

	var out []MenuSales
	for rows.Next() {
		var (
			ms  MenuSales
			num pgtype.Numeric
		)
		if err := rows.Scan(&ms.MenuItemID, &ms.Name, &num); err != nil {
			return nil, fmt.Errorf("scan menu sales: %w", err)
		}
		ms.TotalSales = numericToDecimal(num)
		out = append(out, ms)
	}
	return out, rows.Err()
}

// --- Numeric helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
