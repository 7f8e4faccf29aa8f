package google

import (
	"testing"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
)

func TestParseOrderRow(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		want core.Order
		ok   bool
	}{
		{
			name: "full row",
			cols: []string{"3", "1", "2", "4", "2.50", "2024-03-15", "partial", "5.00", "2024-03-01 10:00:00"},
			want: core.Order{
				ID: 3, ShopID: 1, VarietyID: 2, Quantity: 4,
				UnitPrice:     decimal.RequireFromString("2.50"),
				DeliveryDate:  core.NewDate(2024, 3, 15),
				PaymentStatus: core.Partial,
				PaidAmount:    decimal.RequireFromString("5.00"),
			},
			ok: true,
		},
		{
			name: "header row skipped",
			cols: []string{"ID", "Shop ID", "Variety ID", "Quantity", "Unit Price", "Delivery Date", "Payment Status", "Paid Amount", "Created At"},
			ok:   false,
		},
		{
			name: "cleared row skipped",
			cols: []string{},
			ok:   false,
		},
		{
			name: "decimal comma price",
			cols: []string{"7", "1", "1", "1", "3,25", "2024-01-02", "unpaid", "0", ""},
			want: core.Order{
				ID: 7, ShopID: 1, VarietyID: 1, Quantity: 1,
				UnitPrice:     decimal.RequireFromString("3.25"),
				DeliveryDate:  core.NewDate(2024, 1, 2),
				PaymentStatus: core.Unpaid,
				PaidAmount:    decimal.Zero,
			},
			ok: true,
		},
		{
			name: "unknown status defaults to unpaid",
			cols: []string{"9", "1", "1", "1", "2.00", "2024-01-02", "maybe", "0", ""},
			want: core.Order{
				ID: 9, ShopID: 1, VarietyID: 1, Quantity: 1,
				UnitPrice:     decimal.RequireFromString("2.00"),
				DeliveryDate:  core.NewDate(2024, 1, 2),
				PaymentStatus: core.Unpaid,
				PaidAmount:    decimal.Zero,
			},
			ok: true,
		},
		{
			name: "bad date skipped",
			cols: []string{"5", "1", "1", "1", "2.00", "15/03/2024", "unpaid", "0", ""},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseOrderRow(tt.cols)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.ID != tt.want.ID || got.ShopID != tt.want.ShopID || got.VarietyID != tt.want.VarietyID {
				t.Errorf("ids = %d/%d/%d, want %d/%d/%d",
					got.ID, got.ShopID, got.VarietyID, tt.want.ID, tt.want.ShopID, tt.want.VarietyID)
			}
			if !got.UnitPrice.Equal(tt.want.UnitPrice) {
				t.Errorf("unit price = %s, want %s", got.UnitPrice, tt.want.UnitPrice)
			}
			if !got.PaidAmount.Equal(tt.want.PaidAmount) {
				t.Errorf("paid = %s, want %s", got.PaidAmount, tt.want.PaidAmount)
			}
			if got.PaymentStatus != tt.want.PaymentStatus {
				t.Errorf("status = %s, want %s", got.PaymentStatus, tt.want.PaymentStatus)
			}
			if !got.DeliveryDate.Equal(tt.want.DeliveryDate.Time) {
				t.Errorf("delivery = %v, want %v", got.DeliveryDate, tt.want.DeliveryDate)
			}
		})
	}
}

func TestParseShopRow(t *testing.T) {
	s, ok := parseShopRow([]string{"2", "Depot", "wholesale"})
	if !ok || s.ID != 2 || s.Name != "Depot" || s.Type != core.Wholesale {
		t.Fatalf("parsed %+v ok=%v", s, ok)
	}

	if _, ok := parseShopRow([]string{"ID", "Name", "Type"}); ok {
		t.Error("header row should not parse")
	}

	s, ok = parseShopRow([]string{"3", "Kiosk", "stand"})
	if !ok || s.Type != core.Retail {
		t.Errorf("unknown type should default to retail, got %+v ok=%v", s, ok)
	}
}

func TestParseVarietyRow(t *testing.T) {
	v, ok := parseVarietyRow([]string{"4", "Walnut", "₹3.75"})
	if !ok || v.ID != 4 || v.Name != "Walnut" || !v.DefaultPrice.Equal(decimal.RequireFromString("3.75")) {
		t.Fatalf("parsed %+v ok=%v", v, ok)
	}

	if _, ok := parseVarietyRow([]string{"5", "", "2.00"}); ok {
		t.Error("nameless row should not parse")
	}
}

func TestOrderToRowRoundTrip(t *testing.T) {
	o := core.Order{
		ID: 11, ShopID: 2, VarietyID: 3, Quantity: 5,
		UnitPrice:     decimal.RequireFromString("2.20"),
		DeliveryDate:  core.NewDate(2024, 6, 30),
		PaymentStatus: core.Paid,
		PaidAmount:    decimal.RequireFromString("11.00"),
	}
	row := toStrings(orderToRow(o))
	got, ok := parseOrderRow(row)
	if !ok {
		t.Fatal("row did not parse back")
	}
	if got.ID != o.ID || got.Quantity != o.Quantity || !got.PaidAmount.Equal(o.PaidAmount) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
