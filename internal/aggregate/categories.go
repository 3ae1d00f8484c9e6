package aggregate

// Category is one of the seven canonical financial line items.
type Category int

const (
	CategoryInitial Category = iota
	CategoryCurrent
	CategoryAvailable
	CategoryCDP
	CategoryCommitted
	CategoryObligated
	CategoryPaymentOrder
)

// rule matches a label when it contains one of anyOf and none of forbid.
// Substrings are compared against folded labels.
type rule struct {
	anyOf  []string
	forbid []string
}

func (r rule) satisfiedBy(folded string) bool {
	return containsAny(folded, r.anyOf) && !containsAny(folded, r.forbid)
}

type categorySpec struct {
	item  string // label used for per-category line items
	total string // label used for the top-level summary cards
	rule  rule
}

// categorySpecs is ordered; callers resolving a raw label take the first match.
var categorySpecs = [...]categorySpec{
	CategoryInitial:      {item: "Apropiación Inicial", total: "Apropiación Inicial Total", rule: rule{anyOf: []string{"inicia"}}},
	CategoryCurrent:      {item: "Apropiación Vigente", total: "Apropiación Vigente Total", rule: rule{anyOf: []string{"vigente"}, forbid: []string{"disponible"}}},
	CategoryAvailable:    {item: "Apropiación Disponible", total: "Apropiación Disponible Total", rule: rule{anyOf: []string{"disponible"}}},
	CategoryCDP:          {item: "CDP Expedidos", total: "Total CDP Expedidos", rule: rule{anyOf: []string{"cdp"}}},
	CategoryCommitted:    {item: "Comprometido", total: "Total Comprometido", rule: rule{anyOf: []string{"comprometido"}}},
	CategoryObligated:    {item: "Obligación", total: "Total Obligación", rule: rule{anyOf: []string{"obligacion"}}},
	CategoryPaymentOrder: {item: "Orden de Pago", total: "Total Orden de Pago", rule: rule{anyOf: []string{"orden"}}},
}

// Categories returns the canonical categories in display order.
func Categories() []Category {
	out := make([]Category, len(categorySpecs))
	for i := range categorySpecs {
		out[i] = Category(i)
	}
	return out
}

// Label is the line-item form, e.g. "Comprometido".
func (c Category) Label() string {
	if !c.valid() {
		return ""
	}
	return categorySpecs[c].item
}

// TotalLabel is the summary-card form, e.g. "Total Comprometido".
func (c Category) TotalLabel() string {
	if !c.valid() {
		return ""
	}
	return categorySpecs[c].total
}

func (c Category) String() string { return c.Label() }

func (c Category) valid() bool {
	return c >= 0 && int(c) < len(categorySpecs)
}

// LineItemOrder lists the canonical labels without "Total".
func LineItemOrder() []string {
	out := make([]string, len(categorySpecs))
	for i, s := range categorySpecs {
		out[i] = s.item
	}
	return out
}

// TotalOrder lists the canonical labels used by the summary cards.
func TotalOrder() []string {
	out := make([]string, len(categorySpecs))
	for i, s := range categorySpecs {
		out[i] = s.total
	}
	return out
}

// Matches reports whether raw names the same category as canonical. Both
// labels must satisfy the same rule; case, accents, plural endings and the
// presence of "Total" do not matter. Rules are evaluated independently, so
// a raw label may in principle match more than one canonical label.
func Matches(canonical, raw string) bool {
	c, r := Fold(canonical), Fold(raw)
	if c == "" || r == "" {
		return false
	}
	for _, s := range categorySpecs {
		if s.rule.satisfiedBy(c) && s.rule.satisfiedBy(r) {
			return true
		}
	}
	return false
}

// Resolve returns the first label of order that matches raw.
func Resolve(order []string, raw string) (string, bool) {
	for _, canonical := range order {
		if Matches(canonical, raw) {
			return canonical, true
		}
	}
	return "", false
}

// ResolveCategory maps a raw label to its canonical category.
func ResolveCategory(raw string) (Category, bool) {
	for i, s := range categorySpecs {
		if Matches(s.item, raw) {
			return Category(i), true
		}
	}
	return 0, false
}
