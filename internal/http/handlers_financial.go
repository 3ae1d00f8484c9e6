package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"seguimiento/internal/activity"
	"seguimiento/internal/aggregate"
	"seguimiento/internal/core"
	"seguimiento/internal/export"
	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// financialSummary is everything the charts view renders for one month.
type financialSummary struct {
	Month        int                                  `json:"mes"`
	MonthName    string                               `json:"nombreMes"`
	Year         int                                  `json:"anio,omitempty"`
	Project      string                               `json:"proyecto"`
	Cards        []aggregate.Card                     `json:"tarjetas"`
	Projects     []aggregate.ProjectSummary           `json:"proyectos"`
	Consolidated []aggregate.ConsolidatedTotal        `json:"consolidado"`
	Panels       map[string][]aggregate.CategoryTotal `json:"paneles"`
	Chart        aggregate.Chart                      `json:"grafico"`
}

// loadDataset fetches the full dump and derives the known projects from
// the projects sheet.
func (s *Server) loadDataset(ctx context.Context) (core.Dataset, []string, error) {
	ds, err := s.deps.Gateway.Dataset(ctx)
	if err != nil {
		return core.Dataset{}, nil, err
	}
	return ds, aggregate.KnownProjects(ds.Projects), nil
}

// monthOrLatest reads mes/anio, defaulting to the latest period with data.
// The latest year only applies when the month was not given.
func monthOrLatest(r *http.Request, periods aggregate.Periods) (MonthParams, error) {
	p, err := parseMonthParams(r.URL.Query(), periods.Latest.Month)
	if err != nil {
		return MonthParams{}, err
	}
	if r.URL.Query().Get("mes") == "" && p.Year == 0 {
		p.Year = periods.Latest.Year
	}
	return p, nil
}

func (s *Server) summarize(ds core.Dataset, known []string, p MonthParams, project string) financialSummary {
	summaries := s.deps.Engine.SummarizeProjects(known, ds.Financial, aggregate.Filter{
		Month:   p.Month,
		Year:    p.Year,
		Project: project,
	})
	if summaries == nil {
		summaries = []aggregate.ProjectSummary{}
	}
	panels := make(map[string][]aggregate.CategoryTotal, len(summaries))
	for _, sm := range summaries {
		panels[sm.ShortName] = aggregate.PerCategoryPanel(sm)
	}
	if project == "" {
		project = core.AllProjects
	}
	return financialSummary{
		Month:        p.Month,
		MonthName:    core.MonthName(p.Month),
		Year:         p.Year,
		Project:      project,
		Cards:        aggregate.CategoryCards(ds.Financial, p.Month, p.Year),
		Projects:     summaries,
		Consolidated: aggregate.Consolidate(summaries),
		Panels:       panels,
		Chart:        aggregate.ChartSeries(summaries),
	}
}

func (s *Server) handleFinancialSummary(w http.ResponseWriter, r *http.Request, sess session.Session) {
	ds, known, err := s.loadDataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := monthOrLatest(r, aggregate.AvailablePeriods(ds.Financial))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.record(r, sess.Email, activity.ActionChartsAccess, "Usuario accedió a la sección de gráficos")
	writeData(w, s.summarize(ds, known, p, sanitizeInput(r.URL.Query().Get("proyecto"))))
}

func (s *Server) handleCompareMonths(w http.ResponseWriter, r *http.Request, _ session.Session) {
	ds, known, err := s.loadDataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	periods := aggregate.AvailablePeriods(ds.Financial)
	q := r.URL.Query()
	first, err := parseMonthValue(q, "mes1", periods.Previous.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	second, err := parseMonthValue(q, "mes2", periods.Latest.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parseMonthParams(q, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if first == 0 || second == 0 {
		writeError(w, r, core.ErrInvalidMonth)
		return
	}
	cmp := s.deps.Engine.CompareMonths(known, ds.Financial, sanitizeInput(q.Get("proyecto")), p.Year, first, second)
	writeData(w, cmp)
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request, _ session.Session) {
	ds, err := s.deps.Gateway.Dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, aggregate.AvailablePeriods(ds.Financial))
}

// presentation pairs the financial summaries with physical progress.
type presentation struct {
	financialSummary
	Progress []aggregate.ProjectProgress `json:"avanceFisico"`
}

func (s *Server) handlePresentation(w http.ResponseWriter, r *http.Request, sess session.Session) {
	ds, known, err := s.loadDataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := monthOrLatest(r, aggregate.AvailablePeriods(ds.Financial))
	if err != nil {
		writeError(w, r, err)
		return
	}
	progress := s.deps.Engine.PhysicalProgress(known, ds.Projects, p.Month)
	if progress == nil {
		progress = []aggregate.ProjectProgress{}
	}
	s.record(r, sess.Email, activity.ActionPresentationAccess, "Usuario accedió a la presentación")
	writeData(w, presentation{
		financialSummary: s.summarize(ds, known, p, ""),
		Progress:         progress,
	})
}

// handleExport renders the month as an XLSX workbook. The raw sheet keeps
// every row of the month, including labels outside the known categories.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess session.Session) {
	ds, known, err := s.loadDataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := monthOrLatest(r, aggregate.AvailablePeriods(ds.Financial))
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum := s.summarize(ds, known, p, sanitizeInput(r.URL.Query().Get("proyecto")))

	title := "Ejecución financiera " + core.MonthName(p.Month)
	if p.Year != 0 {
		title += " " + strconv.Itoa(p.Year)
	}
	var buf bytes.Buffer
	err = export.Write(&buf, export.Report{
		Title:        title,
		Summaries:    sum.Projects,
		Consolidated: sum.Consolidated,
		Raw:          aggregate.FilterByMonth(ds.Financial, p.Month, p.Year),
	})
	if err != nil {
		writeError(w, r, fmt.Errorf("render export: %w", err))
		return
	}

	s.record(r, sess.Email, activity.ActionExport, title)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Financial export generated",
		log.FieldOperation, log.OpExport,
		log.FieldMonth, p.Month,
		log.FieldYear, p.Year,
		log.FieldRows, len(sum.Projects))

	filename := fmt.Sprintf("financiera_%s_%d.xlsx", core.MonthName(p.Month), p.Year)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDebugNames(w http.ResponseWriter, r *http.Request, _ session.Session) {
	raw, err := s.deps.Gateway.ColumnNames(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, raw)
}

// debugRow is a raw financial row annotated with the category it resolves to.
type debugRow struct {
	Row      core.Record `json:"fila"`
	Category string      `json:"categoria"`
	Matched  bool        `json:"coincide"`
}

func (s *Server) handleDebugData(w http.ResponseWriter, r *http.Request, _ session.Session) {
	ds, known, err := s.loadDataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows := make([]debugRow, 0, len(ds.Financial))
	unmatched := 0
	for _, f := range ds.Financial {
		d := debugRow{Row: f.Raw, Category: export.Unmatched}
		if c, ok := aggregate.ResolveCategory(f.ValueType); ok {
			d.Category = c.Label()
			d.Matched = true
		} else {
			unmatched++
		}
		rows = append(rows, d)
	}
	writeData(w, map[string]any{
		"proyectosConocidos": known,
		"proyectos":          ds.Projects,
		"financiera":         rows,
		"sinCategoria":       unmatched,
	})
}
