package aggregate

import "github.com/shopspring/decimal"

// ConsolidatedTotal is one category summed across the projects in view.
type ConsolidatedTotal struct {
	Category string  `json:"tipo"`
	Total    float64 `json:"total"`
	// AveragePercentage averages the positive declared percentages only.
	AveragePercentage float64 `json:"porcentajePromedio"`
	// Reporting counts the projects that declared a positive percentage.
	Reporting int `json:"proyectosReportando"`
	Projects  int `json:"proyectos"`
}

// Consolidate sums each category across summaries, in canonical order. A
// project with a zero percentage for a category does not lower the average.
func Consolidate(summaries []ProjectSummary) []ConsolidatedTotal {
	order := LineItemOrder()
	type acc struct {
		total     decimal.Decimal
		pctSum    decimal.Decimal
		reporting int
		projects  int
	}
	accs := make([]acc, len(order))
	for _, s := range summaries {
		for _, c := range s.Categories {
			idx, ok := indexIn(order, c.Category)
			if !ok {
				continue
			}
			a := &accs[idx]
			a.projects++
			a.total = a.total.Add(decimal.NewFromFloat(c.Total))
			if c.DeclaredPercentage > 0 {
				a.reporting++
				a.pctSum = a.pctSum.Add(decimal.NewFromFloat(c.DeclaredPercentage))
			}
		}
	}

	out := make([]ConsolidatedTotal, 0, len(order))
	for i, a := range accs {
		if a.projects == 0 {
			continue
		}
		ct := ConsolidatedTotal{
			Category:  order[i],
			Total:     a.total.InexactFloat64(),
			Reporting: a.reporting,
			Projects:  a.projects,
		}
		if a.reporting > 0 {
			ct.AveragePercentage = a.pctSum.Div(decimal.NewFromInt(int64(a.reporting))).InexactFloat64()
		}
		out = append(out, ct)
	}
	return out
}
