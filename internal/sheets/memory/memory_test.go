package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
)

func seed(t *testing.T, s *Store) (shopID, varietyID int64) {
	t.Helper()
	ctx := context.Background()
	shopID, err := s.CreateShop(ctx, core.Shop{Name: "Corner Cafe", Type: core.Retail})
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}
	varietyID, err = s.CreateVariety(ctx, core.Variety{Name: "Classic Fudge", DefaultPrice: decimal.RequireFromString("2.50")})
	if err != nil {
		t.Fatalf("create variety: %v", err)
	}
	return shopID, varietyID
}

func TestStoreOrderLifecycle(t *testing.T) {
	s := New(core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seed(t, s)

	id, err := s.CreateOrder(ctx, core.Order{
		ShopID: shopID, VarietyID: varietyID, Quantity: 2,
		UnitPrice: decimal.RequireFromString("3.00"), DeliveryDate: core.NewDate(2024, 3, 15),
		PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := s.MarkOrderPaid(ctx, id); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.PaymentStatus != core.Paid || !o.PaidAmount.Equal(decimal.RequireFromString("6.00")) {
		t.Errorf("order after mark paid: status=%s paid=%s", o.PaymentStatus, o.PaidAmount)
	}

	if err := s.DeleteOrder(ctx, id); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if _, err := s.GetOrder(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted order err = %v, want ErrNotFound", err)
	}
}

func TestStoreDuplicateShopName(t *testing.T) {
	s := New(core.DeleteBlock)
	seed(t, s)
	_, err := s.CreateShop(context.Background(), core.Shop{Name: "Corner Cafe", Type: core.Wholesale})
	if !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
}

func TestStoreDeletePolicies(t *testing.T) {
	ctx := context.Background()

	blocked := New(core.DeleteBlock)
	shopID, varietyID := seed(t, blocked)
	if _, err := blocked.CreateOrder(ctx, core.Order{
		ShopID: shopID, VarietyID: varietyID, Quantity: 1,
		UnitPrice: decimal.RequireFromString("2.00"), DeliveryDate: core.NewDate(2024, 1, 1),
		PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := blocked.DeleteShop(ctx, shopID); !errors.Is(err, core.ErrReferenced) {
		t.Fatalf("block delete err = %v, want ErrReferenced", err)
	}

	cascading := New(core.DeleteCascade)
	shopID, varietyID = seed(t, cascading)
	if _, err := cascading.CreateOrder(ctx, core.Order{
		ShopID: shopID, VarietyID: varietyID, Quantity: 1,
		UnitPrice: decimal.RequireFromString("2.00"), DeliveryDate: core.NewDate(2024, 1, 1),
		PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := cascading.DeleteShop(ctx, shopID); err != nil {
		t.Fatalf("cascade delete: %v", err)
	}
	orders, _ := cascading.ListOrders(ctx, 0)
	if len(orders) != 0 {
		t.Fatalf("got %d orders after cascade, want 0", len(orders))
	}
}

func TestStoreListOrdersByMonth(t *testing.T) {
	s := New(core.DeleteBlock)
	ctx := context.Background()
	shopID, varietyID := seed(t, s)

	for _, d := range []core.Date{
		core.NewDate(2024, 3, 31),
		core.NewDate(2024, 4, 1),
	} {
		if _, err := s.CreateOrder(ctx, core.Order{
			ShopID: shopID, VarietyID: varietyID, Quantity: 1,
			UnitPrice: decimal.RequireFromString("2.00"), DeliveryDate: d,
			PaymentStatus: core.Unpaid, PaidAmount: decimal.Zero,
		}); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	m, _ := core.NewMonth(2024, 3)
	orders, err := s.ListOrdersByMonth(ctx, m)
	if err != nil {
		t.Fatalf("list by month: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}

	if _, err := s.ListOrdersByMonth(ctx, core.Month{Year: 2024, Month: 13}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("err = %v, want ErrInvalidMonth", err)
	}
}

func TestStoreNames(t *testing.T) {
	s := New(core.DeleteBlock)
	shopID, varietyID := seed(t, s)

	names, err := s.Names(context.Background())
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if names.Shops[shopID] != "Corner Cafe" || names.Varieties[varietyID] != "Classic Fudge" {
		t.Fatalf("names = %+v", names)
	}
}
