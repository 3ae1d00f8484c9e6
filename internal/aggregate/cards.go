package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"

	"seguimiento/internal/core"
)

// Card is one of the top-level summary cards of the charts view.
type Card struct {
	Label string  `json:"tipo"`
	Total float64 `json:"total"`
	// Source is the raw label the card was matched from: the exact
	// canonical label when present, else the first matching raw label.
	Source string `json:"etiquetaOrigen,omitempty"`
}

// CategoryCards returns exactly one card per canonical "Total" label for the
// month, across every project. Every raw label resolving to a category adds
// to that card; categories with no rows show 0.
func CategoryCards(rows []core.FinancialRow, month, year int) []Card {
	order := TotalOrder()
	sums := make([]decimal.Decimal, len(order))
	sources := make([]string, len(order))
	for _, r := range FilterByMonth(rows, month, year) {
		idx, ok := indexIn(order, r.ValueType)
		if !ok {
			continue
		}
		sums[idx] = sums[idx].Add(decimal.NewFromFloat(r.Amount))
		label := strings.TrimSpace(r.ValueType)
		if sources[idx] == "" || label == order[idx] {
			sources[idx] = label
		}
	}
	out := make([]Card, len(order))
	for i, label := range order {
		out[i] = Card{Label: label, Total: sums[i].InexactFloat64(), Source: sources[i]}
	}
	return out
}

// PerCategoryPanel lists a project's line items in canonical order, keeping
// only categories with a positive total.
func PerCategoryPanel(s ProjectSummary) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(s.Categories))
	for _, label := range LineItemOrder() {
		c, ok := s.Category(label)
		if !ok || c.Total <= 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}
