package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultValueTypes are offered by the admin form when the gateway cannot
// list the value types in use.
var DefaultValueTypes = []string{
	"Apropiacion Inicial",
	"Apropiacion Vigente",
	"Total CDP",
	"Apropiacion Disponible",
	"Total Comprometido",
	"Total Obligacion",
	"Total Orden de Pago",
}

type (
	// FinancialEntry is one value type filled in the admin form.
	FinancialEntry struct {
		ValueType  string `json:"tipoValor"`
		Value      string `json:"valor"`
		Percentage string `json:"porcentaje"`
	}

	// FinancialInput is a monthly financial snapshot entered by an admin.
	FinancialInput struct {
		Project string           `json:"proyecto"`
		BPIN    string           `json:"bpin"`
		Month   int              `json:"mes"`
		Year    int              `json:"anio"`
		Entries []FinancialEntry `json:"valores"`
	}
)

// RequiresPercentage reports whether a value type carries a declared
// execution percentage (committed, obligated and payment order amounts).
func RequiresPercentage(valueType string) bool {
	t := strings.ToLower(valueType)
	return strings.Contains(t, "comprometido") ||
		strings.Contains(t, "obligacion") ||
		strings.Contains(t, "obligación") ||
		strings.Contains(t, "orden de pago")
}

// Records builds the rows sent to the financial sheet: one per entry with
// a non-blank value, dated on the last day of the month. Zero amounts and
// percentages are written as empty strings so the sheet keeps blank cells.
func (in FinancialInput) Records() ([]Record, error) {
	if in.Month < 1 || in.Month > 12 {
		return nil, ErrInvalidMonth
	}
	if in.Year < 2000 || in.Year > 2100 {
		return nil, ErrInvalidYear
	}
	if strings.TrimSpace(in.Project) == "" {
		return nil, ErrEmptyProject
	}

	cutoff := FormatCutoff(LastDayOfMonth(in.Year, in.Month))
	var out []Record
	for _, e := range in.Entries {
		if strings.TrimSpace(e.Value) == "" || strings.TrimSpace(e.ValueType) == "" {
			continue
		}
		pct := any("")
		if RequiresPercentage(e.ValueType) {
			pct = blankIfZero(e.Percentage)
		}
		out = append(out, Record{
			"BPIN":          strings.TrimSpace(in.BPIN),
			"Proyecto":      strings.TrimSpace(in.Project),
			"Tipo de Valor": strings.TrimSpace(e.ValueType),
			"Valor":         blankIfZero(e.Value),
			"Porcentaje":    pct,
			"Fecha Corte":   cutoff,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoFinancialValues
	}
	return out, nil
}

// blankIfZero returns the numeric value of s, or "" when it is zero or not a number.
func blankIfZero(s string) any {
	d, ok := ParseDecimal(s)
	if !ok || d.Equal(decimal.Zero) {
		return ""
	}
	return d.InexactFloat64()
}
