package core

import "testing"

func TestBrownieCount(t *testing.T) {
	full := Order{Quantity: 2, UnitPrice: amt("25")}
	if !BrownieCount(full).Equal(amt("2")) {
		t.Fatalf("full: got %s", BrownieCount(full))
	}
	half := Order{Quantity: 1, UnitPrice: amt("12.5")}
	if !BrownieCount(half).Equal(amt("0.5")) {
		t.Fatalf("half: got %s", BrownieCount(half))
	}
	boundary := Order{Quantity: 1, UnitPrice: amt("15")}
	if !BrownieCount(boundary).Equal(amt("1")) {
		t.Fatalf("price 15 counts as a full brownie, got %s", BrownieCount(boundary))
	}
}

func TestBuildCostBreakdown(t *testing.T) {
	orders := []Order{
		{Quantity: 6, UnitPrice: amt("25")},   // 6 brownies
		{Quantity: 4, UnitPrice: amt("12.5")}, // 2 brownies
	}
	prices := IngredientPrices{
		Egg:        amt("8"),
		Sugar:      amt("50"),
		BrownSugar: amt("90"),
		Flour:      amt("60"),
	}
	bd := BuildCostBreakdown(orders, prices)
	if !bd.TotalBrownies.Equal(amt("8")) {
		t.Fatalf("total brownies = %s, want 8", bd.TotalBrownies)
	}
	if bd.OrderCount != 2 {
		t.Fatalf("order count = %d", bd.OrderCount)
	}
	// 2 batches of 4: 2 eggs, 0.11 kg sugar, 0.11 kg brown sugar, 0.24 kg flour.
	want := map[string]string{
		"Eggs":        "16",   // 2 × 8
		"Sugar":       "5.5",  // 0.11 × 50
		"Brown sugar": "9.9",  // 0.11 × 90
		"Flour":       "14.4", // 0.24 × 60
	}
	sum := amt("0")
	for _, line := range bd.Ingredients {
		if !line.Cost.Equal(amt(want[line.Name])) {
			t.Fatalf("%s cost = %s, want %s", line.Name, line.Cost, want[line.Name])
		}
		sum = sum.Add(line.Cost)
	}
	if !bd.TotalCost.Equal(sum) || !bd.TotalCost.Equal(amt("45.8")) {
		t.Fatalf("total cost = %s, want 45.8", bd.TotalCost)
	}
}

func TestBuildCostBreakdownEmpty(t *testing.T) {
	bd := BuildCostBreakdown(nil, IngredientPrices{})
	if !bd.TotalBrownies.IsZero() || !bd.TotalCost.IsZero() {
		t.Fatalf("empty orders must cost nothing")
	}
}
