package aggregate

import (
	"sort"

	"seguimiento/internal/core"
)

// Period is a reporting month.
type Period struct {
	Year  int `json:"anio"`
	Month int `json:"mes"`
}

func (p Period) before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Periods lists the distinct months and years present in cutoff dates.
type Periods struct {
	Months []int `json:"meses"`
	Years  []int `json:"anios"`
	// Latest is the default month of the charts view.
	Latest Period `json:"ultimo"`
	// Previous is the period before Latest, used as the first month of
	// the comparison. It equals Latest when only one period exists.
	Previous Period `json:"anterior"`
}

// FilterByMonth keeps the rows whose cutoff falls in month. Year 0 matches
// any year. Rows without a parseable cutoff are excluded.
func FilterByMonth(rows []core.FinancialRow, month, year int) []core.FinancialRow {
	out := make([]core.FinancialRow, 0, len(rows))
	for _, r := range rows {
		if !r.HasCutoff() {
			continue
		}
		if int(r.Cutoff.Month()) != month {
			continue
		}
		if year != 0 && r.Cutoff.Year() != year {
			continue
		}
		out = append(out, r)
	}
	return out
}

// AvailablePeriods scans cutoff dates for the months and years with data.
func AvailablePeriods(rows []core.FinancialRow) Periods {
	months := map[int]struct{}{}
	years := map[int]struct{}{}
	periods := map[Period]struct{}{}
	for _, r := range rows {
		if !r.HasCutoff() {
			continue
		}
		p := Period{Year: r.Cutoff.Year(), Month: int(r.Cutoff.Month())}
		months[p.Month] = struct{}{}
		years[p.Year] = struct{}{}
		periods[p] = struct{}{}
	}

	var out Periods
	out.Months = sortedKeys(months)
	out.Years = sortedKeys(years)

	all := make([]Period, 0, len(periods))
	for p := range periods {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].before(all[j]) })
	switch n := len(all); n {
	case 0:
	case 1:
		out.Latest, out.Previous = all[0], all[0]
	default:
		out.Latest, out.Previous = all[n-1], all[n-2]
	}
	return out
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
