package storage

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by Queries, so the same
// methods run against *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns. Amounts travel as TEXT decimal
// strings, delivery dates as YYYY-MM-DD.
type (
	ShopRow struct {
		ID       int64
		Name     string
		ShopType string
	}

	VarietyRow struct {
		ID           int64
		Name         string
		DefaultPrice string
	}

	OrderRow struct {
		ID            int64
		ShopID        int64
		VarietyID     int64
		Quantity      int64
		UnitPrice     string
		DeliveryDate  string
		PaymentStatus string
		PaidAmount    string
		CreatedAt     sql.NullTime
	}

	PendingSyncOrderRow struct {
		ID        int64
		CreatedAt sql.NullTime
	}
)

const createShop = `
INSERT INTO shops (name, shop_type) VALUES (?, ?) RETURNING id
`

func (q *Queries) CreateShop(ctx context.Context, name, shopType string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createShop, name, shopType).Scan(&id)
	return id, err
}

const getShop = `
SELECT id, name, shop_type FROM shops WHERE id = ?
`

func (q *Queries) GetShop(ctx context.Context, id int64) (ShopRow, error) {
	var s ShopRow
	err := q.db.QueryRowContext(ctx, getShop, id).Scan(&s.ID, &s.Name, &s.ShopType)
	return s, err
}

const listShops = `
SELECT id, name, shop_type FROM shops ORDER BY name
`

func (q *Queries) ListShops(ctx context.Context) ([]ShopRow, error) {
	rows, err := q.db.QueryContext(ctx, listShops)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShopRow
	for rows.Next() {
		var s ShopRow
		if err := rows.Scan(&s.ID, &s.Name, &s.ShopType); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const updateShop = `
UPDATE shops SET name = ?, shop_type = ? WHERE id = ?
`

func (q *Queries) UpdateShop(ctx context.Context, id int64, name, shopType string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateShop, name, shopType, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteShop = `
DELETE FROM shops WHERE id = ?
`

func (q *Queries) DeleteShop(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteShop, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countOrdersByShop = `
SELECT COUNT(*) FROM orders WHERE shop_id = ?
`

func (q *Queries) CountOrdersByShop(ctx context.Context, shopID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countOrdersByShop, shopID).Scan(&n)
	return n, err
}

const createVariety = `
INSERT INTO varieties (name, default_price) VALUES (?, ?) RETURNING id
`

func (q *Queries) CreateVariety(ctx context.Context, name, defaultPrice string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createVariety, name, defaultPrice).Scan(&id)
	return id, err
}

const getVariety = `
SELECT id, name, default_price FROM varieties WHERE id = ?
`

func (q *Queries) GetVariety(ctx context.Context, id int64) (VarietyRow, error) {
	var v VarietyRow
	err := q.db.QueryRowContext(ctx, getVariety, id).Scan(&v.ID, &v.Name, &v.DefaultPrice)
	return v, err
}

const listVarieties = `
SELECT id, name, default_price FROM varieties ORDER BY name
`

func (q *Queries) ListVarieties(ctx context.Context) ([]VarietyRow, error) {
	rows, err := q.db.QueryContext(ctx, listVarieties)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VarietyRow
	for rows.Next() {
		var v VarietyRow
		if err := rows.Scan(&v.ID, &v.Name, &v.DefaultPrice); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const updateVariety = `
UPDATE varieties SET name = ?, default_price = ? WHERE id = ?
`

func (q *Queries) UpdateVariety(ctx context.Context, id int64, name, defaultPrice string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateVariety, name, defaultPrice, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteVariety = `
DELETE FROM varieties WHERE id = ?
`

func (q *Queries) DeleteVariety(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteVariety, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countOrdersByVariety = `
SELECT COUNT(*) FROM orders WHERE variety_id = ?
`

func (q *Queries) CountOrdersByVariety(ctx context.Context, varietyID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countOrdersByVariety, varietyID).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	ShopID        int64
	VarietyID     int64
	Quantity      int64
	UnitPrice     string
	DeliveryDate  string
	PaymentStatus string
	PaidAmount    string
}

const createOrder = `
INSERT INTO orders (shop_id, variety_id, quantity, unit_price, delivery_date, payment_status, paid_amount)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateOrder(ctx context.Context, p CreateOrderParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createOrder,
		p.ShopID, p.VarietyID, p.Quantity, p.UnitPrice, p.DeliveryDate, p.PaymentStatus, p.PaidAmount,
	).Scan(&id)
	return id, err
}

const getOrder = `
SELECT id, shop_id, variety_id, quantity, unit_price, delivery_date, payment_status, paid_amount, created_at
FROM orders WHERE id = ?
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (OrderRow, error) {
	var o OrderRow
	err := q.db.QueryRowContext(ctx, getOrder, id).Scan(
		&o.ID, &o.ShopID, &o.VarietyID, &o.Quantity, &o.UnitPrice,
		&o.DeliveryDate, &o.PaymentStatus, &o.PaidAmount, &o.CreatedAt,
	)
	return o, err
}

type UpdateOrderParams struct {
	ID            int64
	ShopID        int64
	VarietyID     int64
	Quantity      int64
	UnitPrice     string
	DeliveryDate  string
	PaymentStatus string
	PaidAmount    string
}

const updateOrder = `
UPDATE orders
SET shop_id = ?, variety_id = ?, quantity = ?, unit_price = ?, delivery_date = ?,
    payment_status = ?, paid_amount = ?, sync_status = 'pending', synced_at = NULL
WHERE id = ?
`

func (q *Queries) UpdateOrder(ctx context.Context, p UpdateOrderParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateOrder,
		p.ShopID, p.VarietyID, p.Quantity, p.UnitPrice, p.DeliveryDate,
		p.PaymentStatus, p.PaidAmount, p.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteOrder = `
DELETE FROM orders WHERE id = ?
`

func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteOrdersByShop = `
DELETE FROM orders WHERE shop_id = ?
`

func (q *Queries) DeleteOrdersByShop(ctx context.Context, shopID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOrdersByShop, shopID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteOrdersByVariety = `
DELETE FROM orders WHERE variety_id = ?
`

func (q *Queries) DeleteOrdersByVariety(ctx context.Context, varietyID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOrdersByVariety, varietyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listOrders = `
SELECT id, shop_id, variety_id, quantity, unit_price, delivery_date, payment_status, paid_amount, created_at
FROM orders
ORDER BY delivery_date DESC, id DESC
`

const listOrdersByShop = `
SELECT id, shop_id, variety_id, quantity, unit_price, delivery_date, payment_status, paid_amount, created_at
FROM orders
WHERE shop_id = ?
ORDER BY delivery_date DESC, id DESC
`

func (q *Queries) ListOrders(ctx context.Context, shopID int64) ([]OrderRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if shopID > 0 {
		rows, err = q.db.QueryContext(ctx, listOrdersByShop, shopID)
	} else {
		rows, err = q.db.QueryContext(ctx, listOrders)
	}
	if err != nil {
		return nil, err
	}
	return scanOrderRows(rows)
}

const listOrdersByDateRange = `
SELECT id, shop_id, variety_id, quantity, unit_price, delivery_date, payment_status, paid_amount, created_at
FROM orders
WHERE delivery_date >= ? AND delivery_date <= ?
ORDER BY delivery_date DESC, id DESC
`

func (q *Queries) ListOrdersByDateRange(ctx context.Context, from, to string) ([]OrderRow, error) {
	rows, err := q.db.QueryContext(ctx, listOrdersByDateRange, from, to)
	if err != nil {
		return nil, err
	}
	return scanOrderRows(rows)
}

const markShopOrdersUnpaidIDs = `
SELECT id FROM orders WHERE shop_id = ? AND payment_status != 'paid'
`

func (q *Queries) ListUnpaidOrderIDsByShop(ctx context.Context, shopID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, markShopOrdersUnpaidIDs, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const orderYears = `
SELECT DISTINCT CAST(substr(delivery_date, 1, 4) AS INTEGER) AS y
FROM orders
ORDER BY y DESC
`

func (q *Queries) OrderYears(ctx context.Context) ([]int, error) {
	rows, err := q.db.QueryContext(ctx, orderYears)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

const getPendingSyncOrders = `
SELECT id, created_at FROM orders
WHERE sync_status = 'pending'
ORDER BY created_at
LIMIT ?
`

func (q *Queries) GetPendingSyncOrders(ctx context.Context, limit int64) ([]PendingSyncOrderRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PendingSyncOrderRow
	for rows.Next() {
		var p PendingSyncOrderRow
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const markOrderSynced = `
UPDATE orders SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP WHERE id = ?
`

func (q *Queries) MarkOrderSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markOrderSynced, id)
	return err
}

const markOrderSyncError = `
UPDATE orders SET sync_status = 'error' WHERE id = ?
`

func (q *Queries) MarkOrderSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markOrderSyncError, id)
	return err
}

func scanOrderRows(rows *sql.Rows) ([]OrderRow, error) {
	defer rows.Close()
	var out []OrderRow
	for rows.Next() {
		var o OrderRow
		if err := rows.Scan(
			&o.ID, &o.ShopID, &o.VarietyID, &o.Quantity, &o.UnitPrice,
			&o.DeliveryDate, &o.PaymentStatus, &o.PaidAmount, &o.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
