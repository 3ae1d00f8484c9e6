package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"
)

var million = decimal.NewFromInt(1_000_000)

// Series is one category plotted over the projects of a Chart.
type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"data"`
}

// Chart is chart-ready data: one label per project and one series per
// category, with values in millions of pesos.
type Chart struct {
	Labels   []string `json:"labels"`
	Datasets []Series `json:"datasets"`
}

// ChartSeries orders projects by descending total and drops categories whose
// unrounded total is zero for every project.
func ChartSeries(summaries []ProjectSummary) Chart {
	sorted := make([]ProjectSummary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total() > sorted[j].Total()
	})

	chart := Chart{Labels: make([]string, len(sorted))}
	for i, s := range sorted {
		chart.Labels[i] = s.ShortName
	}
	for _, label := range LineItemOrder() {
		values := make([]float64, len(sorted))
		nonZero := false
		for i, s := range sorted {
			c, ok := s.Category(label)
			if !ok {
				continue
			}
			if c.Total != 0 {
				nonZero = true
			}
			values[i] = decimal.NewFromFloat(c.Total).Div(million).Round(2).InexactFloat64()
		}
		if nonZero {
			chart.Datasets = append(chart.Datasets, Series{Label: label, Values: values})
		}
	}
	return chart
}
