package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// PlaceholderShop and PlaceholderVariety label orders whose referenced
// registry row no longer exists, under the placeholder label policy.
const (
	PlaceholderShop    = "(unknown shop)"
	PlaceholderVariety = "(unknown variety)"
)

type LabelPolicy int

const (
	// LabelPlaceholder substitutes a fixed label for missing display names.
	LabelPlaceholder LabelPolicy = iota
	// LabelStrict fails the report with ErrUnknownReference instead.
	LabelStrict
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month int // 1-12
}

// NewMonth validates and builds a Month.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	if year < 1 {
		return Month{}, fmt.Errorf("%w: year %d", ErrInvalidMonth, year)
	}
	return Month{Year: year, Month: month}, nil
}

// Contains reports whether the date falls inside the calendar month,
// first through last day inclusive.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && int(d.Time.Month()) == m.Month
}

// DateRange returns the first and last day of the month, inclusive.
func (m Month) DateRange() (first, last Date) {
	first = NewDate(m.Year, m.Month, 1)
	last = Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// ReportOptions carries the report policy knobs. They are passed explicitly
// so the aggregation stays a pure function of its inputs.
type ReportOptions struct {
	// MarginRate is the fixed margin assumption applied to revenue.
	// It is a policy constant, not derived from cost records.
	MarginRate decimal.Decimal
	Labels     LabelPolicy
}

// DefaultMarginRate is the 30%-of-revenue policy estimate.
var DefaultMarginRate = decimal.New(30, -2) // 0.30 exactly

func DefaultReportOptions() ReportOptions {
	return ReportOptions{MarginRate: DefaultMarginRate, Labels: LabelPlaceholder}
}

// NameRegistry maps shop and variety identities to display names.
// Lookups are used only for presentation, never for grouping.
type NameRegistry struct {
	Shops     map[int64]string
	Varieties map[int64]string
}

// Subtotal is one slice of a breakdown: an identity, its display name, and
// the summed line totals (plus paid portion) of its orders.
type Subtotal struct {
	ID    int64
	Name  string
	Total decimal.Decimal
	Paid  decimal.Decimal
}

// Report holds the aggregated figures for a set of orders.
// ByShop and ByVariety are sorted by total descending (name ascending on
// ties) and contain only identities present in at least one order.
type Report struct {
	TotalRevenue  decimal.Decimal
	TotalMargin   decimal.Decimal
	TotalPaid     decimal.Decimal
	TotalPending  decimal.Decimal
	OrderCount    int
	AvgOrderValue decimal.Decimal
	ByShop        []Subtotal
	ByVariety     []Subtotal
}

// MonthlyReport is a Report scoped to one calendar month. It is derived on
// demand and never persisted.
type MonthlyReport struct {
	Month Month
	Report
}

// ChartSeries is pie-chart-ready data: parallel label/value slices.
// Pending is populated for the shop series only.
type ChartSeries struct {
	Labels  []string
	Values  []decimal.Decimal
	Pending []decimal.Decimal
}

// BuildMonthlyReport computes the report for the given month from the full
// order set. It is a pure single-pass aggregation: same inputs, same report.
// A month with no orders yields a zero report, not an error.
func BuildMonthlyReport(m Month, orders []Order, names NameRegistry, opts ReportOptions) (MonthlyReport, error) {
	if _, err := NewMonth(m.Year, m.Month); err != nil {
		return MonthlyReport{}, err
	}
	selected := make([]Order, 0, len(orders))
	for _, o := range orders {
		if m.Contains(o.DeliveryDate) {
			selected = append(selected, o)
		}
	}
	rep, err := aggregate(selected, names, opts)
	if err != nil {
		return MonthlyReport{}, err
	}
	return MonthlyReport{Month: m, Report: rep}, nil
}

// BuildOverallReport aggregates every order regardless of date.
func BuildOverallReport(orders []Order, names NameRegistry, opts ReportOptions) (Report, error) {
	return aggregate(orders, names, opts)
}

func aggregate(orders []Order, names NameRegistry, opts ReportOptions) (Report, error) {
	rep := Report{
		TotalRevenue:  decimal.Zero,
		TotalMargin:   decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalPending:  decimal.Zero,
		AvgOrderValue: decimal.Zero,
	}
	shopTotals := map[int64]*Subtotal{}
	varietyTotals := map[int64]*Subtotal{}

	for _, o := range orders {
		line := o.LineTotal()
		rep.TotalRevenue = rep.TotalRevenue.Add(line)
		rep.TotalPaid = rep.TotalPaid.Add(o.PaidAmount)
		rep.OrderCount++

		st, ok := shopTotals[o.ShopID]
		if !ok {
			name, err := displayName(names.Shops, o.ShopID, PlaceholderShop, opts.Labels)
			if err != nil {
				return Report{}, fmt.Errorf("shop %d: %w", o.ShopID, err)
			}
			st = &Subtotal{ID: o.ShopID, Name: name, Total: decimal.Zero, Paid: decimal.Zero}
			shopTotals[o.ShopID] = st
		}
		st.Total = st.Total.Add(line)
		st.Paid = st.Paid.Add(o.PaidAmount)

		vt, ok := varietyTotals[o.VarietyID]
		if !ok {
			name, err := displayName(names.Varieties, o.VarietyID, PlaceholderVariety, opts.Labels)
			if err != nil {
				return Report{}, fmt.Errorf("variety %d: %w", o.VarietyID, err)
			}
			vt = &Subtotal{ID: o.VarietyID, Name: name, Total: decimal.Zero, Paid: decimal.Zero}
			varietyTotals[o.VarietyID] = vt
		}
		vt.Total = vt.Total.Add(line)
		vt.Paid = vt.Paid.Add(o.PaidAmount)
	}

	rep.TotalMargin = rep.TotalRevenue.Mul(opts.MarginRate)
	rep.TotalPending = rep.TotalRevenue.Sub(rep.TotalPaid)
	if rep.OrderCount > 0 {
		rep.AvgOrderValue = rep.TotalRevenue.DivRound(decimal.NewFromInt(int64(rep.OrderCount)), 2)
	}
	rep.ByShop = sortedSubtotals(shopTotals)
	rep.ByVariety = sortedSubtotals(varietyTotals)
	return rep, nil
}

func displayName(names map[int64]string, id int64, placeholder string, policy LabelPolicy) (string, error) {
	if name, ok := names[id]; ok && name != "" {
		return name, nil
	}
	if policy == LabelStrict {
		return "", ErrUnknownReference
	}
	return placeholder, nil
}

func sortedSubtotals(m map[int64]*Subtotal) []Subtotal {
	out := make([]Subtotal, 0, len(m))
	for _, st := range m {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ShopSeries returns the by-shop breakdown as pie-chart pairs, with the
// pending amount per shop alongside.
func (r Report) ShopSeries() ChartSeries {
	s := ChartSeries{}
	for _, st := range r.ByShop {
		s.Labels = append(s.Labels, st.Name)
		s.Values = append(s.Values, st.Total)
		s.Pending = append(s.Pending, st.Total.Sub(st.Paid))
	}
	return s
}

// VarietySeries returns the by-variety breakdown as pie-chart pairs.
func (r Report) VarietySeries() ChartSeries {
	s := ChartSeries{}
	for _, st := range r.ByVariety {
		s.Labels = append(s.Labels, st.Name)
		s.Values = append(s.Values, st.Total)
	}
	return s
}
