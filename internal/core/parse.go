// Package core provides the domain types shared by the gateway, the
// aggregation engine and the HTTP layer.
//
// This file contains the tolerant number parsers used for spreadsheet
// cells. Blank or non-numeric cells parse to zero.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary cell. It accepts plain floats ("1234.5"),
// currency prefixes ("$ 1.234.567"), and Colombian formatting with dot
// thousands and comma decimals ("1.234.567,89"). Anything else is 0.
//
// Examples:
//
//	ParseAmount("1500000")       -> 1500000
//	ParseAmount("$ 1.234.567,5") -> 1234567.5
//	ParseAmount("")              -> 0
func ParseAmount(s string) float64 {
	d, ok := parseDecimal(s)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

// ParsePercentage parses a percentage cell, with or without a trailing "%".
func ParsePercentage(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return ParseAmount(s)
}

// ParseDecimal is ParseAmount without the float conversion.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	return parseDecimal(s)
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "COP")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	d, err := decimal.NewFromString(normalizeSeparators(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeSeparators rewrites a grouped number into plain dot-decimal form.
// The last separator is the decimal one unless the same separator repeats.
func normalizeSeparators(s string) string {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		return strings.Replace(s, ",", ".", 1)
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// FormatCOP renders an amount as Colombian pesos without decimals, e.g. "$ 1.234.567".
func FormatCOP(v float64) string {
	d := decimal.NewFromFloat(v).Round(0)
	neg := d.IsNegative()
	digits := d.Abs().String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$ " + b.String()
	}
	return "$ " + b.String()
}
