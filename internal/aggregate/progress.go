package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"

	"seguimiento/internal/core"
)

const (
	// MaxProgressActivities caps the activities shown per project in the
	// presentation view.
	MaxProgressActivities = 5

	defaultUnit = "Unidades"
	defaultGoal = "N/A"
)

type (
	// Activity is an editable line of the progress form.
	Activity struct {
		ID          int        `json:"id"`
		Name        string     `json:"nombre"`
		Objective   string     `json:"objetivo,omitempty"`
		Product     string     `json:"producto,omitempty"`
		Unit        string     `json:"unidadMedida,omitempty"`
		GoalTotal   string     `json:"metaTotal,omitempty"`
		GoalYear    string     `json:"metaAnual,omitempty"`
		Monthly     [12]string `json:"avances"`
		Overall     string     `json:"avanceGeneral,omitempty"`
		Observation string     `json:"observaciones,omitempty"`
		SheetRow    int        `json:"filaOriginal"`
	}

	// ProjectActivities groups the activities of one known project. ID is
	// the project name, which the gateway uses as the project key.
	ProjectActivities struct {
		ID         string     `json:"id"`
		ShortName  string     `json:"nombreCorto"`
		BPIN       string     `json:"bpin"`
		Activities []Activity `json:"actividades"`
	}

	// MonthValue is one month of reported physical progress.
	MonthValue struct {
		Month string  `json:"mes"`
		Raw   string  `json:"valor"`
		Value float64 `json:"numero"`
	}

	ActivityProgress struct {
		Name string `json:"nombre"`
		Unit string `json:"unidad"`
		Goal string `json:"meta"`
		// Qualitative activities report text instead of quantities.
		Qualitative bool         `json:"cualitativo"`
		Months      []MonthValue `json:"meses"`
		Cumulative  float64      `json:"acumulado"`
		Percent     float64      `json:"porcentaje"`
	}

	ProjectProgress struct {
		Name       string             `json:"nombre"`
		ShortName  string             `json:"nombreCorto"`
		BPIN       string             `json:"bpin"`
		Attributed bool               `json:"atribuido"`
		Activities []ActivityProgress `json:"actividades"`
	}
)

// GroupActivities returns the known projects with the activities whose
// project field equals the project name exactly. Activity IDs are 1-based
// positions within the project.
func (e *Engine) GroupActivities(rows []core.ProjectRow) []ProjectActivities {
	known := KnownProjects(rows)
	out := make([]ProjectActivities, 0, len(known))
	for i, name := range known {
		selected := exactProjectRows(rows, name)
		p := ProjectActivities{
			ID:         name,
			ShortName:  e.catalog.ShortName(name),
			BPIN:       activityBPIN(selected, i),
			Activities: make([]Activity, 0, len(selected)),
		}
		for j, r := range selected {
			p.Activities = append(p.Activities, Activity{
				ID:          j + 1,
				Name:        r.Activity,
				Objective:   r.Objective,
				Product:     r.Product,
				Unit:        r.Unit,
				GoalTotal:   r.GoalTotal,
				GoalYear:    r.GoalYear,
				Monthly:     r.Monthly,
				Overall:     r.Overall,
				Observation: r.Observation,
				SheetRow:    r.SheetRow,
			})
		}
		out = append(out, p)
	}
	return out
}

// PhysicalProgress reports, per known project, the monthly progress of its
// first activities from January through month. Projects with no activity
// matching their name take the positional chunk of all rows with the same
// index. When known is empty the projects of rows are used.
func (e *Engine) PhysicalProgress(known []string, rows []core.ProjectRow, month int) []ProjectProgress {
	if month < 1 || month > 12 {
		return nil
	}
	if len(known) == 0 {
		known = KnownProjects(rows)
	}
	if len(known) > MaxProjects {
		known = known[:MaxProjects]
	}
	named := make([]core.ProjectRow, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Project) != "" {
			named = append(named, r)
		}
	}
	chunks := SplitFallback(named)

	out := make([]ProjectProgress, 0, len(known))
	for i, name := range known {
		selected := e.activitiesOf(name, rows)
		attributed := len(selected) > 0
		if !attributed {
			selected = chunks[i]
		}
		if len(selected) > MaxProgressActivities {
			selected = selected[:MaxProgressActivities]
		}
		p := ProjectProgress{
			Name:       name,
			ShortName:  e.catalog.ShortName(name),
			BPIN:       activityBPIN(selected, i),
			Attributed: attributed,
			Activities: make([]ActivityProgress, 0, len(selected)),
		}
		for _, r := range selected {
			p.Activities = append(p.Activities, activityProgress(r, month, i == 0))
		}
		out = append(out, p)
	}
	return out
}

func activityProgress(r core.ProjectRow, month int, qualitative bool) ActivityProgress {
	a := ActivityProgress{
		Name:        r.Activity,
		Unit:        orDefault(r.Unit, defaultUnit),
		Goal:        orDefault(r.GoalYear, defaultGoal),
		Qualitative: qualitative,
		Months:      make([]MonthValue, 0, month),
	}
	cumulative := decimal.Zero
	for m := 1; m <= month; m++ {
		raw := strings.TrimSpace(r.MonthlyProgress(m))
		mv := MonthValue{Month: core.MonthName(m), Raw: raw}
		if raw != "" {
			if d, ok := core.ParseDecimal(strings.TrimSuffix(raw, "%")); ok {
				cumulative = cumulative.Add(d)
				mv.Value = d.InexactFloat64()
			} else {
				a.Qualitative = true
			}
		}
		a.Months = append(a.Months, mv)
	}
	a.Cumulative = cumulative.InexactFloat64()
	if goal, ok := core.ParseDecimal(a.Goal); ok && goal.IsPositive() {
		a.Percent = cumulative.Div(goal).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return a
}

func exactProjectRows(rows []core.ProjectRow, name string) []core.ProjectRow {
	var out []core.ProjectRow
	for _, r := range rows {
		if strings.TrimSpace(r.Project) == name {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) activitiesOf(project string, rows []core.ProjectRow) []core.ProjectRow {
	var out []core.ProjectRow
	for _, r := range rows {
		if e.catalog.BelongsToProject(project, r.Project) {
			out = append(out, r)
		}
	}
	return out
}

func activityBPIN(rows []core.ProjectRow, idx int) string {
	for _, r := range rows {
		if b := strings.TrimSpace(r.BPIN); b != "" {
			return b
		}
	}
	return PlaceholderBPIN(idx)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
