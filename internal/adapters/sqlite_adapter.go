package adapters

import (
	"context"

	"brownies/internal/core"
	"brownies/internal/services"
	"brownies/internal/storage"
)

// SQLiteAdapter combines SQLiteRepository and OrderService behind the
// sheets.* ports. Order mutations route through the service so sync
// messages get published; reads and registry operations hit storage
// directly.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.OrderService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.OrderService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// CreateOrder implements sheets.OrderStore
func (a *SQLiteAdapter) CreateOrder(ctx context.Context, o core.Order) (int64, error) {
	return a.service.CreateOrder(ctx, o)
}

func (a *SQLiteAdapter) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	return a.storage.GetOrder(ctx, id)
}

func (a *SQLiteAdapter) UpdateOrder(ctx context.Context, o core.Order) error {
	return a.service.UpdateOrder(ctx, o)
}

func (a *SQLiteAdapter) DeleteOrder(ctx context.Context, id int64) error {
	return a.service.DeleteOrder(ctx, id)
}

func (a *SQLiteAdapter) ListOrders(ctx context.Context, shopID int64) ([]core.Order, error) {
	return a.storage.ListOrders(ctx, shopID)
}

func (a *SQLiteAdapter) ListOrdersByMonth(ctx context.Context, m core.Month) ([]core.Order, error) {
	return a.storage.ListOrdersByMonth(ctx, m)
}

func (a *SQLiteAdapter) MarkOrderPaid(ctx context.Context, id int64) error {
	return a.service.MarkOrderPaid(ctx, id)
}

func (a *SQLiteAdapter) MarkShopOrdersPaid(ctx context.Context, shopID int64) (int, error) {
	return a.service.MarkShopOrdersPaid(ctx, shopID)
}

func (a *SQLiteAdapter) OrderYears(ctx context.Context) ([]int, error) {
	return a.storage.OrderYears(ctx)
}

// CreateShop implements sheets.ShopRegistry
func (a *SQLiteAdapter) CreateShop(ctx context.Context, s core.Shop) (int64, error) {
	return a.storage.CreateShop(ctx, s)
}

func (a *SQLiteAdapter) GetShop(ctx context.Context, id int64) (core.Shop, error) {
	return a.storage.GetShop(ctx, id)
}

func (a *SQLiteAdapter) ListShops(ctx context.Context) ([]core.Shop, error) {
	return a.storage.ListShops(ctx)
}

func (a *SQLiteAdapter) UpdateShop(ctx context.Context, s core.Shop) error {
	return a.storage.UpdateShop(ctx, s)
}

func (a *SQLiteAdapter) DeleteShop(ctx context.Context, id int64) error {
	return a.storage.DeleteShop(ctx, id)
}

// CreateVariety implements sheets.VarietyRegistry
func (a *SQLiteAdapter) CreateVariety(ctx context.Context, v core.Variety) (int64, error) {
	return a.storage.CreateVariety(ctx, v)
}

func (a *SQLiteAdapter) GetVariety(ctx context.Context, id int64) (core.Variety, error) {
	return a.storage.GetVariety(ctx, id)
}

func (a *SQLiteAdapter) ListVarieties(ctx context.Context) ([]core.Variety, error) {
	return a.storage.ListVarieties(ctx)
}

func (a *SQLiteAdapter) UpdateVariety(ctx context.Context, v core.Variety) error {
	return a.storage.UpdateVariety(ctx, v)
}

func (a *SQLiteAdapter) DeleteVariety(ctx context.Context, id int64) error {
	return a.storage.DeleteVariety(ctx, id)
}

// Names implements sheets.NameReader
func (a *SQLiteAdapter) Names(ctx context.Context) (core.NameRegistry, error) {
	return a.storage.Names(ctx)
}
