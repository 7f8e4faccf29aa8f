// Package core holds the brownie sales domain: orders, shops, varieties,
// and the monthly report aggregation.
//
// This file contains parsing and formatting for currency amounts. All money
// values are shopspring decimals; floats never enter a calculation.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a form-submitted amount to an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) separators, rejects signs,
// and requires a strictly positive value. At most two fractional digits are
// kept; a third digit rounds half-up, matching how prices are entered.
//
// Examples:
//
//	ParseAmount("12.5")   -> 12.5
//	ParseAmount("12,50")  -> 12.5
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("-3")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatRupees renders an amount as "₹1234.50" (two decimals, leading sign
// for negatives). Used only for display; never parsed back.
func FormatRupees(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-₹" + d.Neg().StringFixed(2)
	}
	return "₹" + d.StringFixed(2)
}
