// Package core provides money parsing and formatting utilities.
//
// This file contains the boundary helpers that turn untrusted form text into
// decimals and decimals back into peso strings for display. Core arithmetic
// never calls the parse helpers; they belong to the input collaborators.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalOrZero converts user supplied text to a decimal.
//
// Surrounding whitespace, a leading peso sign and thousands separators are
// ignored. Anything that still does not parse as a decimal yields zero, which
// mirrors the permissive input policy of the dashboard forms. Negative values
// are returned as given.
//
// Examples:
//
//	ParseDecimalOrZero("1,500.25") -> 1500.25
//	ParseDecimalOrZero("₱200")     -> 200
//	ParseDecimalOrZero("abc")      -> 0
//	ParseDecimalOrZero("-10")      -> -10
func ParseDecimalOrZero(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₱")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountOrZero is ParseDecimalOrZero for fields that must be
// non-negative (bill amounts, goal targets, contribution requests).
// Negative input is treated as invalid and coerced to zero.
func ParseAmountOrZero(s string) decimal.Decimal {
	d := ParseDecimalOrZero(s)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FormatPeso formats an amount as "₱1,234.50". Negative amounts keep the sign
// after the currency symbol ("₱-20.00").
func FormatPeso(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := "₱"
	if neg {
		out += "-"
	}
	return out + b.String() + "." + fracPart
}

// FormatPesoValue formats loosely typed template values. Anything that is not
// a number renders as "₱0.00" instead of failing the page.
func FormatPesoValue(v any) string {
	switch val := v.(type) {
	case decimal.Decimal:
		return FormatPeso(val)
	case *decimal.Decimal:
		if val == nil {
			return FormatPeso(decimal.Zero)
		}
		return FormatPeso(*val)
	case float64:
		return FormatPeso(decimal.NewFromFloat(val))
	case int:
		return FormatPeso(decimal.NewFromInt(int64(val)))
	case int64:
		return FormatPeso(decimal.NewFromInt(val))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return FormatPeso(decimal.Zero)
		}
		return FormatPeso(d)
	default:
		return FormatPeso(decimal.Zero)
	}
}
