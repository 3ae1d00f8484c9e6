package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var monthNames = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Bogota has no DST, so a fixed zone avoids depending on tzdata.
var bogota = time.FixedZone("COT", -5*60*60)

// spreadsheetEpoch is day zero of spreadsheet serial dates.
var spreadsheetEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var cutoffLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/1/2",
	// month first, as the sheet's browser clients read them
	"1/2/2006",
	"1-2-2006",
	// day first only when the leading field cannot be a month
	"2/1/2006",
	"2-1-2006",
}

// MonthName returns the lowercase Spanish name for month (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// MonthNames returns the Spanish month names in calendar order.
func MonthNames() []string {
	out := make([]string, len(monthNames))
	copy(out, monthNames[:])
	return out
}

// ParseMonth accepts a month number ("3", "03") or a Spanish name ("marzo", "Marzo").
func ParseMonth(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrInvalidMonth
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidMonth, n)
		}
		return n, nil
	}
	for i, name := range monthNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

// ParseCutoffDate parses a cutoff date cell. It tolerates ISO dates and
// timestamps, slash- or dash-delimited dates with the year last (month
// first, falling back to day first when the first field exceeds 12) and
// numeric values: milliseconds or seconds since the Unix epoch, or
// spreadsheet serial days for small numbers. Timestamps are read as
// calendar dates in Bogota time.
func ParseCutoffDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dateOnly(t.In(bogota)), true
	}
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 && !math.IsInf(n, 0) {
		switch {
		case n >= 1e11:
			return dateOnly(time.UnixMilli(int64(n)).In(bogota)), true
		case n >= 1e6:
			return dateOnly(time.Unix(int64(n), 0).In(bogota)), true
		default:
			return dateOnly(spreadsheetEpoch.AddDate(0, 0, int(n))), true
		}
	}
	return time.Time{}, false
}

// LastDayOfMonth returns the last calendar day of month in year.
func LastDayOfMonth(year, month int) time.Time {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
}

// FormatCutoff renders a cutoff date the way the financial sheet stores it.
func FormatCutoff(t time.Time) string {
	return t.Format("2006-01-02")
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
