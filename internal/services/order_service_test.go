package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
	"brownies/internal/storage"
)

func newTestService(t *testing.T) (*OrderService, *storage.SQLiteRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := storage.NewSQLiteRepository(dbPath, core.DeleteBlock)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	svc := NewOrderService(repo, nil) // no broker, local-only
	t.Cleanup(func() { svc.Close() })
	return svc, repo
}

func seedOrder(t *testing.T, svc *OrderService, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	ctx := context.Background()
	shopID, err := repo.CreateShop(ctx, core.Shop{Name: "Corner Cafe", Type: core.Retail})
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}
	varietyID, err := repo.CreateVariety(ctx, core.Variety{Name: "Classic Fudge", DefaultPrice: decimal.RequireFromString("2.50")})
	if err != nil {
		t.Fatalf("create variety: %v", err)
	}
	id, err := svc.CreateOrder(ctx, core.Order{
		ShopID:        shopID,
		VarietyID:     varietyID,
		Quantity:      2,
		UnitPrice:     decimal.RequireFromString("2.50"),
		DeliveryDate:  core.NewDate(2024, 3, 15),
		PaymentStatus: core.Unpaid,
		PaidAmount:    decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return id
}

func TestCreateOrderWithoutBroker(t *testing.T) {
	svc, repo := newTestService(t)
	id := seedOrder(t, svc, repo)

	got, err := repo.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", got.Quantity)
	}
}

func TestUpdateOrderPersists(t *testing.T) {
	svc, repo := newTestService(t)
	id := seedOrder(t, svc, repo)
	ctx := context.Background()

	o, err := repo.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	o.Quantity = 5
	if err := svc.UpdateOrder(ctx, o); err != nil {
		t.Fatalf("update order: %v", err)
	}

	got, err := repo.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", got.Quantity)
	}
}

func TestDeleteOrder(t *testing.T) {
	svc, repo := newTestService(t)
	id := seedOrder(t, svc, repo)
	ctx := context.Background()

	if err := svc.DeleteOrder(ctx, id); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if _, err := repo.GetOrder(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted order err = %v, want ErrNotFound", err)
	}

	if err := svc.DeleteOrder(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestMarkOrderPaid(t *testing.T) {
	svc, repo := newTestService(t)
	id := seedOrder(t, svc, repo)
	ctx := context.Background()

	if err := svc.MarkOrderPaid(ctx, id); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	got, err := repo.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.PaymentStatus != core.Paid {
		t.Errorf("status = %s, want paid", got.PaymentStatus)
	}
	if !got.PaidAmount.Equal(got.LineTotal()) {
		t.Errorf("paid = %s, want %s", got.PaidAmount, got.LineTotal())
	}
}
