package aggregate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"seguimiento/internal/core"
)

type (
	// CategoryTotal is the sum of one canonical category within a project.
	CategoryTotal struct {
		Category string  `json:"tipo"`
		Total    float64 `json:"total"`
		// DeclaredPercentage is the first positive percentage found among the
		// category's rows. It is never computed from amounts.
		DeclaredPercentage float64 `json:"porcentaje"`
		// Labels are the raw value-type labels merged into this category.
		Labels []string `json:"etiquetas"`
	}

	// ProjectSummary holds the category totals of one known project.
	ProjectSummary struct {
		Name      string `json:"nombre"`
		ShortName string `json:"nombreCorto"`
		BPIN      string `json:"bpin"`
		// Attributed is false when no row named the project and the rows
		// came from the positional fallback split.
		Attributed bool            `json:"atribuido"`
		Categories []CategoryTotal `json:"categorias"`
	}

	// Filter selects the rows a summary is computed over. Year 0 matches any
	// year; an empty Project or "todos" matches every project.
	Filter struct {
		Month   int
		Year    int
		Project string
	}
)

// Category looks up a category total by its canonical label.
func (p ProjectSummary) Category(label string) (CategoryTotal, bool) {
	for _, c := range p.Categories {
		if c.Category == label {
			return c, true
		}
	}
	return CategoryTotal{}, false
}

// Total is the sum of every category of the project.
func (p ProjectSummary) Total() float64 {
	sum := decimal.Zero
	for _, c := range p.Categories {
		sum = sum.Add(decimal.NewFromFloat(c.Total))
	}
	return sum.InexactFloat64()
}

// Engine computes summaries against a project catalog. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	catalog *Catalog
}

func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

// ShortName is a convenience for Catalog().ShortName.
func (e *Engine) ShortName(name string) string { return e.catalog.ShortName(name) }

// SummarizeProjects returns one summary per known project for the rows whose
// cutoff falls in f.Month (and f.Year when set). Projects without matching
// rows take the positional chunk of the month's rows with the same index.
// When known is empty the first distinct project names of the rows are used.
func (e *Engine) SummarizeProjects(known []string, rows []core.FinancialRow, f Filter) []ProjectSummary {
	if f.Month < 1 || f.Month > 12 {
		return nil
	}
	if len(known) == 0 {
		known = financialProjects(rows)
	}
	if len(known) > MaxProjects {
		known = known[:MaxProjects]
	}

	inMonth := FilterByMonth(rows, f.Month, f.Year)
	chunks := SplitFallback(inMonth)

	out := make([]ProjectSummary, 0, len(known))
	for i, name := range known {
		selected := e.rowsOf(name, inMonth)
		attributed := len(selected) > 0
		if !attributed {
			selected = chunks[i]
		}
		s := ProjectSummary{
			Name:       name,
			ShortName:  e.catalog.ShortName(name),
			BPIN:       resolveBPIN(selected, i),
			Attributed: attributed,
			Categories: sumCategories(selected),
		}
		if !IsAll(f.Project) && !matchesFilter(s, f.Project) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (e *Engine) rowsOf(project string, rows []core.FinancialRow) []core.FinancialRow {
	var out []core.FinancialRow
	for _, r := range rows {
		if e.catalog.BelongsToProject(project, r.Project) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFilter(s ProjectSummary, filter string) bool {
	filter = strings.TrimSpace(filter)
	return s.ShortName == filter || s.Name == filter
}

// SplitFallback partitions rows into three contiguous chunks in row order.
// Chunk sizes differ by at most one and the earlier chunks take the
// remainder. The split is positional only, so rows are misattributed when
// the real distribution is uneven.
func SplitFallback[T any](rows []T) [MaxProjects][]T {
	var out [MaxProjects][]T
	base, rem := len(rows)/MaxProjects, len(rows)%MaxProjects
	start := 0
	for i := range out {
		size := base
		if i < rem {
			size++
		}
		out[i] = rows[start : start+size : start+size]
		start += size
	}
	return out
}

type accumulator struct {
	sum        decimal.Decimal
	percentage float64
	labels     []string
	seen       bool
}

func (a *accumulator) add(r core.FinancialRow) {
	a.seen = true
	a.sum = a.sum.Add(decimal.NewFromFloat(r.Amount))
	if a.percentage == 0 && r.Percentage > 0 {
		a.percentage = r.Percentage
	}
	label := strings.TrimSpace(r.ValueType)
	for _, l := range a.labels {
		if l == label {
			return
		}
	}
	a.labels = append(a.labels, label)
}

// sumCategories groups rows by canonical line-item category. Rows whose
// label matches no category are dropped.
func sumCategories(rows []core.FinancialRow) []CategoryTotal {
	order := LineItemOrder()
	accs := make([]accumulator, len(order))
	for _, r := range rows {
		idx, ok := indexIn(order, r.ValueType)
		if !ok {
			continue
		}
		accs[idx].add(r)
	}
	out := make([]CategoryTotal, 0, len(order))
	for i, a := range accs {
		if !a.seen {
			continue
		}
		out = append(out, CategoryTotal{
			Category:           order[i],
			Total:              a.sum.InexactFloat64(),
			DeclaredPercentage: a.percentage,
			Labels:             a.labels,
		})
	}
	return out
}

// indexIn returns the position of the first label in order matching raw.
func indexIn(order []string, raw string) (int, bool) {
	for i, canonical := range order {
		if Matches(canonical, raw) {
			return i, true
		}
	}
	return 0, false
}

func resolveBPIN(rows []core.FinancialRow, idx int) string {
	for _, r := range rows {
		if b := strings.TrimSpace(r.BPIN); b != "" {
			return b
		}
	}
	return PlaceholderBPIN(idx)
}

// PlaceholderBPIN is the identifier shown for the project at idx when no row
// carries a BPIN.
func PlaceholderBPIN(idx int) string {
	return fmt.Sprintf("BPIN-%d", idx+1)
}

func financialProjects(rows []core.FinancialRow) []string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Project)
	}
	return FirstDistinct(names, MaxProjects)
}
