package core

import "github.com/shopspring/decimal"

// Ingredient needs per batch of four brownies.
var (
	batchSize        = decimal.NewFromInt(4)
	eggsPerBatch     = decimal.NewFromInt(1)
	sugarKgPerBatch  = decimal.New(55, -3)  // 55 g
	brownSugarKgPer  = decimal.New(55, -3)  // 55 g
	flourKgPerBatch  = decimal.New(120, -3) // 120 g
	fullBrownieFloor = decimal.NewFromInt(15)
	halfBrownie      = decimal.New(5, -1) // 0.5
)

// IngredientPrices are the entered market prices: per egg and per kilogram
// for the rest.
type IngredientPrices struct {
	Egg        decimal.Decimal
	Sugar      decimal.Decimal
	BrownSugar decimal.Decimal
	Flour      decimal.Decimal
}

// IngredientCost is one line of the breakdown.
type IngredientCost struct {
	Name     string
	Quantity decimal.Decimal
	Unit     string
	Price    decimal.Decimal
	Cost     decimal.Decimal
}

// CostBreakdown estimates production cost for a set of orders.
type CostBreakdown struct {
	TotalBrownies decimal.Decimal
	OrderCount    int
	Ingredients   []IngredientCost
	TotalCost     decimal.Decimal
}

// BrownieCount converts an order into brownies produced. Unit prices of 15
// and above sell a full brownie per unit; cheaper ones are half-size.
func BrownieCount(o Order) decimal.Decimal {
	per := decimal.NewFromInt(1)
	if o.UnitPrice.LessThan(fullBrownieFloor) {
		per = halfBrownie
	}
	return per.Mul(decimal.NewFromInt(o.Quantity))
}

// BuildCostBreakdown computes ingredient needs and costs for the orders,
// scaled from the per-4-brownies recipe. Pure, exact decimal throughout.
func BuildCostBreakdown(orders []Order, prices IngredientPrices) CostBreakdown {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(BrownieCount(o))
	}
	batches := total.Div(batchSize)

	lines := []IngredientCost{
		{Name: "Eggs", Quantity: batches.Mul(eggsPerBatch), Unit: "pieces", Price: prices.Egg},
		{Name: "Sugar", Quantity: batches.Mul(sugarKgPerBatch), Unit: "kg", Price: prices.Sugar},
		{Name: "Brown sugar", Quantity: batches.Mul(brownSugarKgPer), Unit: "kg", Price: prices.BrownSugar},
		{Name: "Flour", Quantity: batches.Mul(flourKgPerBatch), Unit: "kg", Price: prices.Flour},
	}
	cost := decimal.Zero
	for i := range lines {
		lines[i].Cost = lines[i].Quantity.Mul(lines[i].Price)
		cost = cost.Add(lines[i].Cost)
	}
	return CostBreakdown{
		TotalBrownies: total,
		OrderCount:    len(orders),
		Ingredients:   lines,
		TotalCost:     cost,
	}
}
