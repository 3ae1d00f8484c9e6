package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
	}{
		{"1", 1},
		{"1500000", 1500000},
		{"1234.5", 1234.5},
		{" 2.50 ", 2.5},
		{"$ 1.234.567", 1234567},
		{"1.234.567,89", 1234567.89},
		{"1,234,567.89", 1234567.89},
		{"12,5", 12.5},
		{"COP 2.000.000", 2000000},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"-300", -300},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got != tc.out {
			t.Fatalf("ParseAmount(%q) = %v, want %v", tc.in, got, tc.out)
		}
	}
}

func TestParsePercentage(t *testing.T) {
	cases := []struct {
		in  string
		out float64
	}{
		{"40", 40},
		{"40%", 40},
		{" 72,5 % ", 72.5},
		{"", 0},
		{"n/a", 0},
	}
	for _, tc := range cases {
		if got := ParsePercentage(tc.in); got != tc.out {
			t.Fatalf("ParsePercentage(%q) = %v, want %v", tc.in, got, tc.out)
		}
	}
}

func TestFormatCOP(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{0, "$ 0"},
		{999, "$ 999"},
		{1000, "$ 1.000"},
		{1234567.6, "$ 1.234.568"},
		{-2500, "-$ 2.500"},
	}
	for _, tc := range cases {
		if got := FormatCOP(tc.in); got != tc.out {
			t.Errorf("FormatCOP(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
