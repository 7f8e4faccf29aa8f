package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"brownies/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository is the primary data backend. It satisfies the order
// store and registry ports and additionally exposes the pending-sync
// queue the mirror worker drains.
type SQLiteRepository struct {
	db           *sql.DB
	queries      *Queries
	deletePolicy core.DeletePolicy
}

func NewSQLiteRepository(dbPath string, deletePolicy core.DeletePolicy) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteRepository{
		db:           db,
		queries:      New(db),
		deletePolicy: deletePolicy,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateOrder implements sheets.OrderStore
func (r *SQLiteRepository) CreateOrder(ctx context.Context, o core.Order) (int64, error) {
	id, err := r.queries.CreateOrder(ctx, CreateOrderParams{
		ShopID:        o.ShopID,
		VarietyID:     o.VarietyID,
		Quantity:      o.Quantity,
		UnitPrice:     o.UnitPrice.String(),
		DeliveryDate:  o.DeliveryDate.Format(dateLayout),
		PaymentStatus: string(o.PaymentStatus),
		PaidAmount:    o.PaidAmount.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("create order: %w", mapSQLError(err))
	}

	slog.InfoContext(ctx, "Order saved to SQLite",
		"id", id,
		"shop_id", o.ShopID,
		"variety_id", o.VarietyID,
		"quantity", o.Quantity,
		"delivery_date", o.DeliveryDate.Format(dateLayout))

	return id, nil
}

func (r *SQLiteRepository) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	row, err := r.queries.GetOrder(ctx, id)
	if err != nil {
		return core.Order{}, fmt.Errorf("get order: %w", mapSQLError(err))
	}
	return rowToOrder(row)
}

func (r *SQLiteRepository) UpdateOrder(ctx context.Context, o core.Order) error {
	n, err := r.queries.UpdateOrder(ctx, UpdateOrderParams{
		ID:            o.ID,
		ShopID:        o.ShopID,
		VarietyID:     o.VarietyID,
		Quantity:      o.Quantity,
		UnitPrice:     o.UnitPrice.String(),
		DeliveryDate:  o.DeliveryDate.Format(dateLayout),
		PaymentStatus: string(o.PaymentStatus),
		PaidAmount:    o.PaidAmount.String(),
	})
	if err != nil {
		return fmt.Errorf("update order: %w", mapSQLError(err))
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteOrder(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListOrders(ctx context.Context, shopID int64) ([]core.Order, error) {
	rows, err := r.queries.ListOrders(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return rowsToOrders(rows)
}

func (r *SQLiteRepository) ListOrdersByMonth(ctx context.Context, m core.Month) ([]core.Order, error) {
	from, to := m.DateRange()
	rows, err := r.queries.ListOrdersByDateRange(ctx, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list orders by month: %w", err)
	}
	return rowsToOrders(rows)
}

// MarkOrderPaid settles the order at its exact line total. The update
// goes through the full row so the decimal never round-trips a REAL.
func (r *SQLiteRepository) MarkOrderPaid(ctx context.Context, id int64) error {
	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	o.PaymentStatus = core.Paid
	o.PaidAmount = o.LineTotal()
	return r.UpdateOrder(ctx, o)
}

func (r *SQLiteRepository) MarkShopOrdersPaid(ctx context.Context, shopID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	ids, err := qtx.ListUnpaidOrderIDsByShop(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("list unpaid orders: %w", err)
	}

	for _, id := range ids {
		row, err := qtx.GetOrder(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("get order %d: %w", id, mapSQLError(err))
		}
		o, err := rowToOrder(row)
		if err != nil {
			return 0, err
		}
		if _, err := qtx.UpdateOrder(ctx, UpdateOrderParams{
			ID:            o.ID,
			ShopID:        o.ShopID,
			VarietyID:     o.VarietyID,
			Quantity:      o.Quantity,
			UnitPrice:     o.UnitPrice.String(),
			DeliveryDate:  o.DeliveryDate.Format(dateLayout),
			PaymentStatus: string(core.Paid),
			PaidAmount:    o.LineTotal().String(),
		}); err != nil {
			return 0, fmt.Errorf("settle order %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Shop orders settled", "shop_id", shopID, "count", len(ids))
	return len(ids), nil
}

func (r *SQLiteRepository) OrderYears(ctx context.Context) ([]int, error) {
	years, err := r.queries.OrderYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("order years: %w", err)
	}
	return years, nil
}

// CreateShop implements sheets.ShopRegistry
func (r *SQLiteRepository) CreateShop(ctx context.Context, s core.Shop) (int64, error) {
	id, err := r.queries.CreateShop(ctx, s.Name, string(s.Type))
	if err != nil {
		return 0, fmt.Errorf("create shop: %w", mapSQLError(err))
	}
	return id, nil
}

func (r *SQLiteRepository) GetShop(ctx context.Context, id int64) (core.Shop, error) {
	row, err := r.queries.GetShop(ctx, id)
	if err != nil {
		return core.Shop{}, fmt.Errorf("get shop: %w", mapSQLError(err))
	}
	return core.Shop{ID: row.ID, Name: row.Name, Type: core.ShopType(row.ShopType)}, nil
}

func (r *SQLiteRepository) ListShops(ctx context.Context) ([]core.Shop, error) {
	rows, err := r.queries.ListShops(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	shops := make([]core.Shop, len(rows))
	for i, row := range rows {
		shops[i] = core.Shop{ID: row.ID, Name: row.Name, Type: core.ShopType(row.ShopType)}
	}
	return shops, nil
}

func (r *SQLiteRepository) UpdateShop(ctx context.Context, s core.Shop) error {
	n, err := r.queries.UpdateShop(ctx, s.ID, s.Name, string(s.Type))
	if err != nil {
		return fmt.Errorf("update shop: %w", mapSQLError(err))
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteShop(ctx context.Context, id int64) error {
	if r.deletePolicy == core.DeleteCascade {
		return r.deleteShopCascade(ctx, id)
	}

	n, err := r.queries.CountOrdersByShop(ctx, id)
	if err != nil {
		return fmt.Errorf("count shop orders: %w", err)
	}
	if n > 0 {
		return core.ErrReferenced
	}
	affected, err := r.queries.DeleteShop(ctx, id)
	if err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) deleteShopCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	removed, err := qtx.DeleteOrdersByShop(ctx, id)
	if err != nil {
		return fmt.Errorf("delete shop orders: %w", err)
	}
	affected, err := qtx.DeleteShop(ctx, id)
	if err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Shop deleted with orders", "shop_id", id, "orders_removed", removed)
	return nil
}

// CreateVariety implements sheets.VarietyRegistry
func (r *SQLiteRepository) CreateVariety(ctx context.Context, v core.Variety) (int64, error) {
	id, err := r.queries.CreateVariety(ctx, v.Name, v.DefaultPrice.String())
	if err != nil {
		return 0, fmt.Errorf("create variety: %w", mapSQLError(err))
	}
	return id, nil
}

func (r *SQLiteRepository) GetVariety(ctx context.Context, id int64) (core.Variety, error) {
	row, err := r.queries.GetVariety(ctx, id)
	if err != nil {
		return core.Variety{}, fmt.Errorf("get variety: %w", mapSQLError(err))
	}
	return rowToVariety(row)
}

func (r *SQLiteRepository) ListVarieties(ctx context.Context) ([]core.Variety, error) {
	rows, err := r.queries.ListVarieties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list varieties: %w", err)
	}
	varieties := make([]core.Variety, len(rows))
	for i, row := range rows {
		v, err := rowToVariety(row)
		if err != nil {
			return nil, err
		}
		varieties[i] = v
	}
	return varieties, nil
}

func (r *SQLiteRepository) UpdateVariety(ctx context.Context, v core.Variety) error {
	n, err := r.queries.UpdateVariety(ctx, v.ID, v.Name, v.DefaultPrice.String())
	if err != nil {
		return fmt.Errorf("update variety: %w", mapSQLError(err))
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteVariety(ctx context.Context, id int64) error {
	if r.deletePolicy == core.DeleteCascade {
		return r.deleteVarietyCascade(ctx, id)
	}

	n, err := r.queries.CountOrdersByVariety(ctx, id)
	if err != nil {
		return fmt.Errorf("count variety orders: %w", err)
	}
	if n > 0 {
		return core.ErrReferenced
	}
	affected, err := r.queries.DeleteVariety(ctx, id)
	if err != nil {
		return fmt.Errorf("delete variety: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) deleteVarietyCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	removed, err := qtx.DeleteOrdersByVariety(ctx, id)
	if err != nil {
		return fmt.Errorf("delete variety orders: %w", err)
	}
	affected, err := qtx.DeleteVariety(ctx, id)
	if err != nil {
		return fmt.Errorf("delete variety: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Variety deleted with orders", "variety_id", id, "orders_removed", removed)
	return nil
}

// Names implements sheets.NameReader
func (r *SQLiteRepository) Names(ctx context.Context) (core.NameRegistry, error) {
	names := core.NameRegistry{
		Shops:     make(map[int64]string),
		Varieties: make(map[int64]string),
	}

	shops, err := r.queries.ListShops(ctx)
	if err != nil {
		return names, fmt.Errorf("list shops: %w", err)
	}
	for _, s := range shops {
		names.Shops[s.ID] = s.Name
	}

	varieties, err := r.queries.ListVarieties(ctx)
	if err != nil {
		return names, fmt.Errorf("list varieties: %w", err)
	}
	for _, v := range varieties {
		names.Varieties[v.ID] = v.Name
	}

	return names, nil
}

// PendingSyncOrder is the minimal payload for sync queue messages.
type PendingSyncOrder struct {
	ID int64
}

// GetPendingSyncOrders returns orders not yet mirrored to the spreadsheet.
func (r *SQLiteRepository) GetPendingSyncOrders(ctx context.Context, limit int) ([]PendingSyncOrder, error) {
	rows, err := r.queries.GetPendingSyncOrders(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync orders: %w", err)
	}
	out := make([]PendingSyncOrder, len(rows))
	for i, row := range rows {
		out[i] = PendingSyncOrder{ID: row.ID}
	}
	return out, nil
}

// MarkSynced marks an order as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkOrderSynced(ctx, id); err != nil {
		return fmt.Errorf("mark order synced: %w", err)
	}
	slog.InfoContext(ctx, "Order marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an order as failed to mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkOrderSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark order sync error: %w", err)
	}
	slog.WarnContext(ctx, "Order marked with sync error", "id", id)
	return nil
}

func rowToOrder(row OrderRow) (core.Order, error) {
	unitPrice, err := decimal.NewFromString(row.UnitPrice)
	if err != nil {
		return core.Order{}, fmt.Errorf("parse unit price %q: %w", row.UnitPrice, err)
	}
	paidAmount, err := decimal.NewFromString(row.PaidAmount)
	if err != nil {
		return core.Order{}, fmt.Errorf("parse paid amount %q: %w", row.PaidAmount, err)
	}
	delivery, err := core.ParseDate(row.DeliveryDate)
	if err != nil {
		return core.Order{}, fmt.Errorf("parse delivery date %q: %w", row.DeliveryDate, err)
	}

	o := core.Order{
		ID:            row.ID,
		ShopID:        row.ShopID,
		VarietyID:     row.VarietyID,
		Quantity:      row.Quantity,
		UnitPrice:     unitPrice,
		DeliveryDate:  delivery,
		PaymentStatus: core.PaymentStatus(row.PaymentStatus),
		PaidAmount:    paidAmount,
	}
	if row.CreatedAt.Valid {
		o.CreatedAt = row.CreatedAt.Time
	}
	return o, nil
}

func rowsToOrders(rows []OrderRow) ([]core.Order, error) {
	orders := make([]core.Order, len(rows))
	for i, row := range rows {
		o, err := rowToOrder(row)
		if err != nil {
			return nil, err
		}
		orders[i] = o
	}
	return orders, nil
}

func rowToVariety(row VarietyRow) (core.Variety, error) {
	price, err := decimal.NewFromString(row.DefaultPrice)
	if err != nil {
		return core.Variety{}, fmt.Errorf("parse default price %q: %w", row.DefaultPrice, err)
	}
	return core.Variety{ID: row.ID, Name: row.Name, DefaultPrice: price}, nil
}

func mapSQLError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.ErrNotFound
	case err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return core.ErrDuplicateName
	case err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return core.ErrUnknownReference
	}
	return err
}
