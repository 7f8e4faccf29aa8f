package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"brownies/internal/core"
)

// subtotalJSON is one breakdown slice in the report API. Amounts are decimal
// strings so clients never lose precision to float parsing.
type subtotalJSON struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Total   string `json:"total"`
	Paid    string `json:"paid"`
	Pending string `json:"pending"`
}

type reportJSON struct {
	Year          int            `json:"year,omitempty"`
	Month         int            `json:"month,omitempty"`
	TotalRevenue  string         `json:"total_revenue"`
	TotalMargin   string         `json:"total_margin"`
	TotalPaid     string         `json:"total_paid"`
	TotalPending  string         `json:"total_pending"`
	OrderCount    int            `json:"order_count"`
	AvgOrderValue string         `json:"avg_order_value"`
	MarginRate    string         `json:"margin_rate"`
	ByShop        []subtotalJSON `json:"by_shop"`
	ByVariety     []subtotalJSON `json:"by_variety"`
}

func toSubtotalJSON(subtotals []core.Subtotal) []subtotalJSON {
	out := make([]subtotalJSON, 0, len(subtotals))
	for _, st := range subtotals {
		out = append(out, subtotalJSON{
			ID:      st.ID,
			Name:    st.Name,
			Total:   st.Total.StringFixed(2),
			Paid:    st.Paid.StringFixed(2),
			Pending: st.Total.Sub(st.Paid).StringFixed(2),
		})
	}
	return out
}

func (s *Server) toReportJSON(rep core.Report) reportJSON {
	return reportJSON{
		TotalRevenue:  rep.TotalRevenue.StringFixed(2),
		TotalMargin:   rep.TotalMargin.StringFixed(2),
		TotalPaid:     rep.TotalPaid.StringFixed(2),
		TotalPending:  rep.TotalPending.StringFixed(2),
		OrderCount:    rep.OrderCount,
		AvgOrderValue: rep.AvgOrderValue.StringFixed(2),
		MarginRate:    s.reportOpts.MarginRate.String(),
		ByShop:        toSubtotalJSON(rep.ByShop),
		ByVariety:     toSubtotalJSON(rep.ByVariety),
	}
}

// handleMonthlyReportJSON serves GET /api/reports/monthly/{year}/{month}.
func (s *Server) handleMonthlyReportJSON(w http.ResponseWriter, r *http.Request) {
	year, err := pathInt(r, "year")
	if err != nil {
		s.failJSON(w, r, "monthly report", core.ErrInvalidMonth)
		return
	}
	monthNum, err := pathInt(r, "month")
	if err != nil {
		s.failJSON(w, r, "monthly report", core.ErrInvalidMonth)
		return
	}
	m, err := core.NewMonth(year, monthNum)
	if err != nil {
		s.failJSON(w, r, "monthly report", err)
		return
	}

	rep, err := s.getMonthlyReport(r.Context(), m)
	if err != nil {
		s.failJSON(w, r, "monthly report", err)
		return
	}

	out := s.toReportJSON(rep.Report)
	out.Year = m.Year
	out.Month = m.Month
	writeJSON(w, http.StatusOK, out)
}

// handleOverallReportJSON serves GET /api/reports/overall.
func (s *Server) handleOverallReportJSON(w http.ResponseWriter, r *http.Request) {
	orders, err := s.getOrders(r.Context(), 0)
	if err != nil {
		s.failJSON(w, r, "overall report", err)
		return
	}
	names, err := s.names.Names(r.Context())
	if err != nil {
		s.failJSON(w, r, "overall report", err)
		return
	}
	rep, err := core.BuildOverallReport(orders, names, s.reportOpts)
	if err != nil {
		s.failJSON(w, r, "overall report", err)
		return
	}
	writeJSON(w, http.StatusOK, s.toReportJSON(rep))
}

// chartJSON is the embedded pie-chart payload the static charts script reads.
type chartJSON struct {
	Labels  []string `json:"labels"`
	Values  []string `json:"values"`
	Pending []string `json:"pending,omitempty"`
}

// toChartJSON marshals a series for embedding in a json script tag.
// json.Marshal HTML-escapes angle brackets, so the payload is safe to inject
// unescaped.
func toChartJSON(series core.ChartSeries) template.JS {
	c := chartJSON{Labels: series.Labels}
	for _, v := range series.Values {
		c.Values = append(c.Values, v.StringFixed(2))
	}
	for _, p := range series.Pending {
		c.Pending = append(c.Pending, p.StringFixed(2))
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return template.JS(b)
}

// handleReportsPage renders the monthly report with pie charts.
func (s *Server) handleReportsPage(w http.ResponseWriter, r *http.Request) {
	m, err := queryMonth(r)
	if err != nil {
		s.fail(w, r, "reports page", err)
		return
	}

	rep, err := s.getMonthlyReport(r.Context(), m)
	if err != nil {
		s.fail(w, r, "reports page", err)
		return
	}

	years, err := s.orders.OrderYears(r.Context())
	if err != nil {
		s.fail(w, r, "reports page", err)
		return
	}
	if len(years) == 0 {
		years = []int{m.Year}
	}

	type subtotalRow struct {
		Name    string
		Total   string
		Paid    string
		Pending string
	}
	toRows := func(subtotals []core.Subtotal) []subtotalRow {
		rows := make([]subtotalRow, 0, len(subtotals))
		for _, st := range subtotals {
			rows = append(rows, subtotalRow{
				Name:    st.Name,
				Total:   core.FormatRupees(st.Total),
				Paid:    core.FormatRupees(st.Paid),
				Pending: core.FormatRupees(st.Total.Sub(st.Paid)),
			})
		}
		return rows
	}

	data := struct {
		Year          int
		Month         int
		Years         []int
		Months        []int
		TotalRevenue  string
		TotalMargin   string
		TotalPaid     string
		TotalPending  string
		OrderCount    int
		AvgOrderValue string
		MarginPct     string
		ByShop        []subtotalRow
		ByVariety     []subtotalRow
		ShopChart     template.JS
		VarietyChart  template.JS
	}{
		Year:          m.Year,
		Month:         m.Month,
		Years:         years,
		Months:        []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		TotalRevenue:  core.FormatRupees(rep.TotalRevenue),
		TotalMargin:   core.FormatRupees(rep.TotalMargin),
		TotalPaid:     core.FormatRupees(rep.TotalPaid),
		TotalPending:  core.FormatRupees(rep.TotalPending),
		OrderCount:    rep.OrderCount,
		AvgOrderValue: core.FormatRupees(rep.AvgOrderValue),
		MarginPct:     s.reportOpts.MarginRate.Mul(decimal.NewFromInt(100)).String() + "%",
		ByShop:        toRows(rep.ByShop),
		ByVariety:     toRows(rep.ByVariety),
		ShopChart:     toChartJSON(rep.ShopSeries()),
		VarietyChart:  toChartJSON(rep.VarietySeries()),
	}
	s.render(w, r, "reports.html", data)
}

// handleCostsPage estimates ingredient needs and cost for a month's orders
// from user-entered market prices.
func (s *Server) handleCostsPage(w http.ResponseWriter, r *http.Request) {
	m, err := queryMonth(r)
	if err != nil {
		s.fail(w, r, "costs page", err)
		return
	}

	prices := core.IngredientPrices{
		Egg:        queryPrice(r, "egg"),
		Sugar:      queryPrice(r, "sugar"),
		BrownSugar: queryPrice(r, "brown_sugar"),
		Flour:      queryPrice(r, "flour"),
	}

	cctx, cancel := context7(r)
	defer cancel()
	orders, err := s.orders.ListOrdersByMonth(cctx, m)
	if err != nil {
		s.fail(w, r, "costs page", err)
		return
	}

	breakdown := core.BuildCostBreakdown(orders, prices)

	type ingredientRow struct {
		Name     string
		Quantity string
		Unit     string
		Price    string
		Cost     string
	}
	rows := make([]ingredientRow, 0, len(breakdown.Ingredients))
	for _, line := range breakdown.Ingredients {
		rows = append(rows, ingredientRow{
			Name:     line.Name,
			Quantity: line.Quantity.Round(3).String(),
			Unit:     line.Unit,
			Price:    line.Price.StringFixed(2),
			Cost:     core.FormatRupees(line.Cost),
		})
	}

	data := struct {
		Year          int
		Month         int
		TotalBrownies string
		OrderCount    int
		Ingredients   []ingredientRow
		TotalCost     string
		EggPrice      string
		SugarPrice    string
		BrownPrice    string
		FlourPrice    string
	}{
		Year:          m.Year,
		Month:         m.Month,
		TotalBrownies: breakdown.TotalBrownies.String(),
		OrderCount:    breakdown.OrderCount,
		Ingredients:   rows,
		TotalCost:     core.FormatRupees(breakdown.TotalCost),
		EggPrice:      prices.Egg.StringFixed(2),
		SugarPrice:    prices.Sugar.StringFixed(2),
		BrownPrice:    prices.BrownSugar.StringFixed(2),
		FlourPrice:    prices.Flour.StringFixed(2),
	}
	s.render(w, r, "costs.html", data)
}

// queryPrice parses an optional non-negative price parameter; anything
// unparseable counts as zero.
func queryPrice(r *http.Request, field string) decimal.Decimal {
	v := strings.TrimSpace(r.URL.Query().Get(field))
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
