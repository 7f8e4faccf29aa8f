package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
)

func newTestRepo(t *testing.T, policy core.DeletePolicy) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(dbPath, policy)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedShopAndVariety(t *testing.T, repo *SQLiteRepository) (shopID, varietyID int64) {
	t.Helper()
	ctx := context.Background()
	shopID, err := repo.CreateShop(ctx, core.Shop{Name: "Corner Cafe", Type: core.Retail})
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}
	varietyID, err = repo.CreateVariety(ctx, core.Variety{Name: "Classic Fudge", DefaultPrice: amt("2.50")})
	if err != nil {
		t.Fatalf("create variety: %v", err)
	}
	return shopID, varietyID
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderRoundTrip(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	id, err := repo.CreateOrder(ctx, core.Order{
		ShopID:        shopID,
		VarietyID:     varietyID,
		Quantity:      3,
		UnitPrice:     amt("2.50"),
		DeliveryDate:  core.NewDate(2024, 3, 15),
		PaymentStatus: core.Partial,
		PaidAmount:    amt("5.00"),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	got, err := repo.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", got.Quantity)
	}
	if !got.UnitPrice.Equal(amt("2.50")) {
		t.Errorf("unit price = %s, want 2.50", got.UnitPrice)
	}
	if !got.LineTotal().Equal(amt("7.50")) {
		t.Errorf("line total = %s, want 7.50", got.LineTotal())
	}
	if !got.PaidAmount.Equal(amt("5.00")) {
		t.Errorf("paid amount = %s, want 5.00", got.PaidAmount)
	}
	if got.DeliveryDate.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("delivery date = %s", got.DeliveryDate.Format("2006-01-02"))
	}
	if got.PaymentStatus != core.Partial {
		t.Errorf("payment status = %s", got.PaymentStatus)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	_, err := repo.GetOrder(context.Background(), 99)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateNames(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()

	if _, err := repo.CreateShop(ctx, core.Shop{Name: "Corner Cafe", Type: core.Retail}); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	_, err := repo.CreateShop(ctx, core.Shop{Name: "Corner Cafe", Type: core.Wholesale})
	if !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("shop err = %v, want ErrDuplicateName", err)
	}

	if _, err := repo.CreateVariety(ctx, core.Variety{Name: "Walnut", DefaultPrice: amt("3.00")}); err != nil {
		t.Fatalf("create variety: %v", err)
	}
	_, err = repo.CreateVariety(ctx, core.Variety{Name: "Walnut", DefaultPrice: amt("4.00")})
	if !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("variety err = %v, want ErrDuplicateName", err)
	}
}

func TestListOrdersByMonth(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	dates := []core.Date{
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 3, 31),
		core.NewDate(2024, 4, 1),
		core.NewDate(2024, 2, 29),
	}
	for _, d := range dates {
		if _, err := repo.CreateOrder(ctx, core.Order{
			ShopID: shopID, VarietyID: varietyID, Quantity: 1,
			UnitPrice: amt("2.00"), DeliveryDate: d,
			PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
		}); err != nil {
			t.Fatalf("create order for %s: %v", d.Format("2006-01-02"), err)
		}
	}

	m, _ := core.NewMonth(2024, 3)
	orders, err := repo.ListOrdersByMonth(ctx, m)
	if err != nil {
		t.Fatalf("list by month: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders for March, want 2", len(orders))
	}
	for _, o := range orders {
		if !m.Contains(o.DeliveryDate) {
			t.Errorf("order %d delivered %s is outside March", o.ID, o.DeliveryDate.Format("2006-01-02"))
		}
	}
}

func TestMarkOrderPaidSettlesExactTotal(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	id, err := repo.CreateOrder(ctx, core.Order{
		ShopID: shopID, VarietyID: varietyID, Quantity: 3,
		UnitPrice: amt("3.67"), DeliveryDate: core.NewDate(2024, 3, 10),
		PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := repo.MarkOrderPaid(ctx, id); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	got, err := repo.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.PaymentStatus != core.Paid {
		t.Errorf("status = %s, want paid", got.PaymentStatus)
	}
	if !got.PaidAmount.Equal(amt("11.01")) {
		t.Errorf("paid amount = %s, want 11.01", got.PaidAmount)
	}
}

func TestMarkShopOrdersPaid(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)
	otherShop, err := repo.CreateShop(ctx, core.Shop{Name: "Depot", Type: core.Wholesale})
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}

	mk := func(shop int64, status core.PaymentStatus, paid string) {
		t.Helper()
		if _, err := repo.CreateOrder(ctx, core.Order{
			ShopID: shop, VarietyID: varietyID, Quantity: 2,
			UnitPrice: amt("2.00"), DeliveryDate: core.NewDate(2024, 5, 5),
			PaymentStatus: status, PaidAmount: amt(paid),
		}); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}
	mk(shopID, core.Unpaid, "0")
	mk(shopID, core.Partial, "1.50")
	mk(shopID, core.Paid, "4.00")
	mk(otherShop, core.Unpaid, "0")

	n, err := repo.MarkShopOrdersPaid(ctx, shopID)
	if err != nil {
		t.Fatalf("mark shop paid: %v", err)
	}
	if n != 2 {
		t.Fatalf("settled %d orders, want 2", n)
	}

	orders, err := repo.ListOrders(ctx, shopID)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	for _, o := range orders {
		if o.PaymentStatus != core.Paid {
			t.Errorf("order %d status = %s, want paid", o.ID, o.PaymentStatus)
		}
		if !o.PaidAmount.Equal(o.LineTotal()) {
			t.Errorf("order %d paid = %s, want %s", o.ID, o.PaidAmount, o.LineTotal())
		}
	}

	others, err := repo.ListOrders(ctx, otherShop)
	if err != nil {
		t.Fatalf("list other shop: %v", err)
	}
	if others[0].PaymentStatus != core.Unpaid {
		t.Errorf("other shop order touched: %s", others[0].PaymentStatus)
	}
}

func TestDeleteShopBlocked(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	if _, err := repo.CreateOrder(ctx, core.Order{
		ShopID: shopID, VarietyID: varietyID, Quantity: 1,
		UnitPrice: amt("2.00"), DeliveryDate: core.NewDate(2024, 1, 1),
		PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := repo.DeleteShop(ctx, shopID); !errors.Is(err, core.ErrReferenced) {
		t.Fatalf("delete shop err = %v, want ErrReferenced", err)
	}
	if err := repo.DeleteVariety(ctx, varietyID); !errors.Is(err, core.ErrReferenced) {
		t.Fatalf("delete variety err = %v, want ErrReferenced", err)
	}
}

func TestDeleteShopCascade(t *testing.T) {
	repo := newTestRepo(t, core.DeleteCascade)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	if _, err := repo.CreateOrder(ctx, core.Order{
		ShopID: shopID, VarietyID: varietyID, Quantity: 1,
		UnitPrice: amt("2.00"), DeliveryDate: core.NewDate(2024, 1, 1),
		PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := repo.DeleteShop(ctx, shopID); err != nil {
		t.Fatalf("cascade delete shop: %v", err)
	}
	orders, err := repo.ListOrders(ctx, 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("got %d orders after cascade, want 0", len(orders))
	}
}

func TestDeleteUnreferencedShop(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, _ := seedShopAndVariety(t, repo)

	if err := repo.DeleteShop(ctx, shopID); err != nil {
		t.Fatalf("delete shop: %v", err)
	}
	if _, err := repo.GetShop(ctx, shopID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted shop err = %v, want ErrNotFound", err)
	}
}

func TestOrderYears(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	for _, y := range []int{2023, 2024, 2023} {
		if _, err := repo.CreateOrder(ctx, core.Order{
			ShopID: shopID, VarietyID: varietyID, Quantity: 1,
			UnitPrice: amt("2.00"), DeliveryDate: core.NewDate(y, 6, 1),
			PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
		}); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	years, err := repo.OrderYears(ctx)
	if err != nil {
		t.Fatalf("order years: %v", err)
	}
	if len(years) != 2 || years[0] != 2024 || years[1] != 2023 {
		t.Fatalf("years = %v, want [2024 2023]", years)
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	id, err := repo.CreateOrder(ctx, core.Order{
		ShopID: shopID, VarietyID: varietyID, Quantity: 1,
		UnitPrice: amt("2.00"), DeliveryDate: core.NewDate(2024, 1, 1),
		PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	pending, err := repo.GetPendingSyncOrders(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, want order %d", pending, id)
	}

	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.GetPendingSyncOrders(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("got %d pending after sync, want 0", len(pending))
	}

	// An update puts the order back on the queue.
	o, err := repo.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	o.Quantity = 2
	if err := repo.UpdateOrder(ctx, o); err != nil {
		t.Fatalf("update order: %v", err)
	}
	pending, err = repo.GetPendingSyncOrders(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending after update, want 1", len(pending))
	}
}

func TestNames(t *testing.T) {
	repo := newTestRepo(t, core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seedShopAndVariety(t, repo)

	names, err := repo.Names(ctx)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if names.Shops[shopID] != "Corner Cafe" {
		t.Errorf("shop name = %q", names.Shops[shopID])
	}
	if names.Varieties[varietyID] != "Classic Fudge" {
		t.Errorf("variety name = %q", names.Varieties[varietyID])
	}
}
