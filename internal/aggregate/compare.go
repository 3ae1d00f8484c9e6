package aggregate

import (
	"github.com/shopspring/decimal"

	"seguimiento/internal/core"
)

// ComparisonItem is one category of a month-to-month comparison.
type ComparisonItem struct {
	Category   string  `json:"tipo"`
	First      float64 `json:"mes1"`
	Second     float64 `json:"mes2"`
	Difference float64 `json:"diferencia"`
	// Change is the relative difference in percent, 0 when First is 0.
	Change float64 `json:"variacion"`
}

type Comparison struct {
	Project string           `json:"proyecto"`
	First   int              `json:"mes1"`
	Second  int              `json:"mes2"`
	Items   []ComparisonItem `json:"items"`
}

// CompareMonths totals every canonical category for two months. A project
// filter is resolved against the known projects by short or long name; an
// unknown filter compares every project and is reported as such. Each row
// counts toward the first category it matches.
func (e *Engine) CompareMonths(known []string, rows []core.FinancialRow, project string, year, first, second int) Comparison {
	full, ok := "", false
	if !IsAll(project) {
		full, ok = e.catalog.ResolveFilter(known, project)
	}
	if ok {
		rows = e.rowsOf(full, rows)
	} else {
		project = core.AllProjects
	}

	firstRows := FilterByMonth(rows, first, year)
	secondRows := FilterByMonth(rows, second, year)

	order := LineItemOrder()
	firstSums := sumByCategory(firstRows, order)
	secondSums := sumByCategory(secondRows, order)
	items := make([]ComparisonItem, len(order))
	hundred := decimal.NewFromInt(100)
	for i, label := range order {
		a, b := firstSums[i], secondSums[i]
		item := ComparisonItem{
			Category:   label,
			First:      a.InexactFloat64(),
			Second:     b.InexactFloat64(),
			Difference: b.Sub(a).InexactFloat64(),
		}
		if !a.IsZero() {
			item.Change = b.Sub(a).Div(a.Abs()).Mul(hundred).Round(2).InexactFloat64()
		}
		items[i] = item
	}
	return Comparison{Project: project, First: first, Second: second, Items: items}
}

func sumByCategory(rows []core.FinancialRow, order []string) []decimal.Decimal {
	sums := make([]decimal.Decimal, len(order))
	for _, r := range rows {
		if i, ok := indexIn(order, r.ValueType); ok {
			sums[i] = sums[i].Add(decimal.NewFromFloat(r.Amount))
		}
	}
	return sums
}
