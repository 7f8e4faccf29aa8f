// Package sheets declares the outbound ports of the application: the
// operations any data backend (SQLite, Google Sheets, in-memory) must
// provide, plus the narrower mirror ports the sync worker drives.
package sheets

import (
	"context"

	"brownies/internal/core"
)

// Ports for outbound adapters.
type (
	// OrderStore owns order records.
	OrderStore interface {
		CreateOrder(ctx context.Context, o core.Order) (int64, error)
		GetOrder(ctx context.Context, id int64) (core.Order, error)
		UpdateOrder(ctx context.Context, o core.Order) error
		DeleteOrder(ctx context.Context, id int64) error
		// ListOrders returns all orders, newest delivery first.
		// shopID 0 means no shop filter.
		ListOrders(ctx context.Context, shopID int64) ([]core.Order, error)
		// ListOrdersByMonth returns orders delivered inside the calendar month.
		ListOrdersByMonth(ctx context.Context, m core.Month) ([]core.Order, error)
		MarkOrderPaid(ctx context.Context, id int64) error
		// MarkShopOrdersPaid settles every outstanding order of a shop and
		// returns how many it touched.
		MarkShopOrdersPaid(ctx context.Context, shopID int64) (int, error)
		// OrderYears lists the distinct delivery years, newest first.
		OrderYears(ctx context.Context) ([]int, error)
	}

	// ShopRegistry owns shop/customer records.
	ShopRegistry interface {
		ListShops(ctx context.Context) ([]core.Shop, error)
		GetShop(ctx context.Context, id int64) (core.Shop, error)
		CreateShop(ctx context.Context, s core.Shop) (int64, error)
		UpdateShop(ctx context.Context, s core.Shop) error
		DeleteShop(ctx context.Context, id int64) error
	}

	// VarietyRegistry owns brownie variety records.
	VarietyRegistry interface {
		ListVarieties(ctx context.Context) ([]core.Variety, error)
		GetVariety(ctx context.Context, id int64) (core.Variety, error)
		CreateVariety(ctx context.Context, v core.Variety) (int64, error)
		UpdateVariety(ctx context.Context, v core.Variety) error
		DeleteVariety(ctx context.Context, id int64) error
	}

	// NameReader provides the identity-to-display-name lookups the report
	// presenter needs. Presentation only; grouping uses identities.
	NameReader interface {
		Names(ctx context.Context) (core.NameRegistry, error)
	}

	// OrderMirror is the narrow port the sync worker uses to copy order
	// mutations into the spreadsheet.
	OrderMirror interface {
		AppendOrder(ctx context.Context, o core.Order) (rowRef string, err error)
		RemoveOrder(ctx context.Context, id int64) error
	}
)
