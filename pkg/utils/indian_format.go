// Package utils provides ticker, date and number helpers for Indian equities.
package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	lakh     = decimal.NewFromInt(1_00_000)
	crore    = decimal.NewFromInt(1_00_00_000)
)

// FormatINR formats a number in Indian Rupee format (₹12,34,567.89).
// Uses the Indian numbering system: last 3 digits, then groups of 2.
func FormatINR(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()
	d = d.Abs()

	fixed := d.StringFixed(2)
	intPart, decPart, _ := strings.Cut(fixed, ".")
	formatted := groupIndian(intPart) + "." + decPart

	if negative {
		return "-₹" + formatted
	}
	return "₹" + formatted
}

// FormatPrice formats a price with two decimals and no currency symbol.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(2)
}

// FormatVolume formats volume in human-readable Indian format.
// e.g., 1500000 → "15.00 L", 25000000 → "2.50 Cr"
func FormatVolume(volume int64) string {
	v := decimal.NewFromInt(volume)
	switch {
	case v.GreaterThanOrEqual(crore):
		return v.Div(crore).StringFixed(2) + " Cr"
	case v.GreaterThanOrEqual(lakh):
		return v.Div(lakh).StringFixed(2) + " L"
	case v.GreaterThanOrEqual(thousand):
		return v.Div(thousand).StringFixed(2) + " K"
	default:
		return v.String()
	}
}

// groupIndian inserts Indian digit grouping into a string of digits.
func groupIndian(s string) string {
	if len(s) <= 3 {
		return s
	}

	result := s[len(s)-3:]
	remaining := s[:len(s)-3]
	for len(remaining) > 2 {
		result = remaining[len(remaining)-2:] + "," + result
		remaining = remaining[:len(remaining)-2]
	}
	if remaining != "" {
		result = remaining + "," + result
	}
	return result
}
