package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testRegistry() NameRegistry {
	return NameRegistry{
		Shops:     map[int64]string{1: "A", 2: "B"},
		Varieties: map[int64]string{10: "X", 20: "Y"},
	}
}

func marchOrders() []Order {
	return []Order{
		{ShopID: 1, VarietyID: 10, Quantity: 3, UnitPrice: amt("2.00"), DeliveryDate: NewDate(2024, 3, 5)},
		{ShopID: 2, VarietyID: 10, Quantity: 1, UnitPrice: amt("5.00"), DeliveryDate: NewDate(2024, 3, 20)},
		{ShopID: 1, VarietyID: 20, Quantity: 2, UnitPrice: amt("3.00"), DeliveryDate: NewDate(2024, 4, 1)},
	}
}

func TestBuildMonthlyReportExample(t *testing.T) {
	rep, err := BuildMonthlyReport(Month{2024, 3}, marchOrders(), testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.TotalRevenue.Equal(amt("11.00")) {
		t.Fatalf("total revenue = %s, want 11.00", rep.TotalRevenue)
	}
	if !rep.TotalMargin.Equal(amt("3.30")) {
		t.Fatalf("total margin = %s, want 3.30", rep.TotalMargin)
	}
	if len(rep.ByShop) != 2 {
		t.Fatalf("by_shop size = %d, want 2", len(rep.ByShop))
	}
	// Sorted by total descending: A (6.00) before B (5.00).
	if rep.ByShop[0].Name != "A" || !rep.ByShop[0].Total.Equal(amt("6.00")) {
		t.Fatalf("by_shop[0] = %s %s, want A 6.00", rep.ByShop[0].Name, rep.ByShop[0].Total)
	}
	if rep.ByShop[1].Name != "B" || !rep.ByShop[1].Total.Equal(amt("5.00")) {
		t.Fatalf("by_shop[1] = %s %s, want B 5.00", rep.ByShop[1].Name, rep.ByShop[1].Total)
	}
	if len(rep.ByVariety) != 1 {
		t.Fatalf("by_variety size = %d, want 1 (Y has no March orders)", len(rep.ByVariety))
	}
	if rep.ByVariety[0].Name != "X" || !rep.ByVariety[0].Total.Equal(amt("11.00")) {
		t.Fatalf("by_variety[0] = %s %s, want X 11.00", rep.ByVariety[0].Name, rep.ByVariety[0].Total)
	}
	if rep.OrderCount != 2 {
		t.Fatalf("order count = %d, want 2", rep.OrderCount)
	}
	if !rep.AvgOrderValue.Equal(amt("5.50")) {
		t.Fatalf("avg order value = %s, want 5.50", rep.AvgOrderValue)
	}
}

func TestSubtotalsSumToRevenue(t *testing.T) {
	orders := append(marchOrders(),
		Order{ShopID: 2, VarietyID: 20, Quantity: 7, UnitPrice: amt("12.50"), DeliveryDate: NewDate(2024, 3, 31)},
		Order{ShopID: 1, VarietyID: 10, Quantity: 1, UnitPrice: amt("0.01"), DeliveryDate: NewDate(2024, 3, 1)},
	)
	rep, err := BuildMonthlyReport(Month{2024, 3}, orders, testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := func(sts []Subtotal) decimal.Decimal {
		s := decimal.Zero
		for _, st := range sts {
			s = s.Add(st.Total)
		}
		return s
	}
	if !sum(rep.ByShop).Equal(rep.TotalRevenue) {
		t.Fatalf("sum(by_shop) = %s, revenue = %s", sum(rep.ByShop), rep.TotalRevenue)
	}
	if !sum(rep.ByVariety).Equal(rep.TotalRevenue) {
		t.Fatalf("sum(by_variety) = %s, revenue = %s", sum(rep.ByVariety), rep.TotalRevenue)
	}
}

func TestMarginExactness(t *testing.T) {
	// 30% of awkward totals must be exact, no float drift.
	cases := []struct{ revenue, margin string }{
		{"11.00", "3.30"},
		{"11.01", "3.303"},
		{"0.01", "0.003"},
		{"999999.99", "299999.997"},
	}
	for _, tc := range cases {
		orders := []Order{{ShopID: 1, VarietyID: 10, Quantity: 1, UnitPrice: amt(tc.revenue), DeliveryDate: NewDate(2024, 3, 5)}}
		rep, err := BuildMonthlyReport(Month{2024, 3}, orders, testRegistry(), DefaultReportOptions())
		if err != nil {
			t.Fatalf("revenue %s: %v", tc.revenue, err)
		}
		if !rep.TotalMargin.Equal(amt(tc.margin)) {
			t.Fatalf("margin of %s = %s, want %s", tc.revenue, rep.TotalMargin, tc.margin)
		}
	}
}

func TestMonthBoundaries(t *testing.T) {
	orders := []Order{
		{ShopID: 1, VarietyID: 10, Quantity: 1, UnitPrice: amt("1.00"), DeliveryDate: NewDate(2024, 3, 31)},
		{ShopID: 1, VarietyID: 10, Quantity: 1, UnitPrice: amt("1.00"), DeliveryDate: NewDate(2024, 4, 1)},
		{ShopID: 1, VarietyID: 10, Quantity: 1, UnitPrice: amt("1.00"), DeliveryDate: NewDate(2024, 2, 29)},
	}
	rep, err := BuildMonthlyReport(Month{2024, 3}, orders, testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.TotalRevenue.Equal(amt("1.00")) {
		t.Fatalf("revenue = %s, want 1.00 (only the March 31 order)", rep.TotalRevenue)
	}
}

func TestEmptyMonthIsZeroReportNotError(t *testing.T) {
	rep, err := BuildMonthlyReport(Month{2030, 6}, marchOrders(), testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("empty month must not error, got %v", err)
	}
	if !rep.TotalRevenue.IsZero() || !rep.TotalMargin.IsZero() {
		t.Fatalf("expected zero totals, got revenue=%s margin=%s", rep.TotalRevenue, rep.TotalMargin)
	}
	if len(rep.ByShop) != 0 || len(rep.ByVariety) != 0 {
		t.Fatalf("expected empty breakdowns, got %d/%d", len(rep.ByShop), len(rep.ByVariety))
	}
	if rep.OrderCount != 0 || !rep.AvgOrderValue.IsZero() {
		t.Fatalf("expected zero stats")
	}
}

func TestInvalidMonthRejected(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if _, err := BuildMonthlyReport(Month{2024, m}, nil, NameRegistry{}, DefaultReportOptions()); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("month %d: expected ErrInvalidMonth, got %v", m, err)
		}
	}
}

func TestIdempotence(t *testing.T) {
	orders := marchOrders()
	first, err := BuildMonthlyReport(Month{2024, 3}, orders, testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := BuildMonthlyReport(Month{2024, 3}, orders, testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.TotalRevenue.Equal(second.TotalRevenue) || len(first.ByShop) != len(second.ByShop) {
		t.Fatalf("reports differ between identical invocations")
	}
	for i := range first.ByShop {
		if first.ByShop[i].Name != second.ByShop[i].Name || !first.ByShop[i].Total.Equal(second.ByShop[i].Total) {
			t.Fatalf("by_shop[%d] differs", i)
		}
	}
}

func TestLabelPolicies(t *testing.T) {
	orders := []Order{{ShopID: 99, VarietyID: 10, Quantity: 1, UnitPrice: amt("2.00"), DeliveryDate: NewDate(2024, 3, 5)}}

	rep, err := BuildMonthlyReport(Month{2024, 3}, orders, testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("placeholder policy must not error, got %v", err)
	}
	if rep.ByShop[0].Name != PlaceholderShop {
		t.Fatalf("name = %q, want placeholder", rep.ByShop[0].Name)
	}

	strict := DefaultReportOptions()
	strict.Labels = LabelStrict
	if _, err := BuildMonthlyReport(Month{2024, 3}, orders, testRegistry(), strict); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("strict policy: expected ErrUnknownReference, got %v", err)
	}
}

func TestConfigurableMarginRate(t *testing.T) {
	opts := DefaultReportOptions()
	opts.MarginRate = amt("0.25")
	rep, err := BuildMonthlyReport(Month{2024, 3}, marchOrders(), testRegistry(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.TotalMargin.Equal(amt("2.75")) {
		t.Fatalf("margin = %s, want 2.75 at 25%%", rep.TotalMargin)
	}
}

func TestOverallReportAndSeries(t *testing.T) {
	orders := marchOrders()
	orders[1].PaymentStatus = Paid
	orders[1].PaidAmount = amt("5.00")
	rep, err := BuildOverallReport(orders, testRegistry(), DefaultReportOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.TotalRevenue.Equal(amt("17.00")) {
		t.Fatalf("overall revenue = %s, want 17.00", rep.TotalRevenue)
	}
	if !rep.TotalPaid.Equal(amt("5.00")) || !rep.TotalPending.Equal(amt("12.00")) {
		t.Fatalf("paid/pending = %s/%s, want 5.00/12.00", rep.TotalPaid, rep.TotalPending)
	}

	shops := rep.ShopSeries()
	if len(shops.Labels) != 2 || len(shops.Labels) != len(shops.Values) || len(shops.Pending) != 2 {
		t.Fatalf("shop series shape mismatch: %v", shops)
	}
	// A: 6.00 + 6.00 = 12.00 ranks above B: 5.00.
	if shops.Labels[0] != "A" || !shops.Values[0].Equal(amt("12.00")) {
		t.Fatalf("shop series[0] = %s %s", shops.Labels[0], shops.Values[0])
	}
	if !shops.Pending[1].IsZero() {
		t.Fatalf("B pending = %s, want 0 (fully paid)", shops.Pending[1])
	}

	varieties := rep.VarietySeries()
	if len(varieties.Labels) != 2 || varieties.Pending != nil {
		t.Fatalf("variety series shape mismatch: %v", varieties)
	}
}
