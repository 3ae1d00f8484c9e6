// Package export renders financial data as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"seguimiento/internal/aggregate"
	"seguimiento/internal/core"
)

// Sheet names, in workbook order.
const (
	SheetSummary      = "Resumen"
	SheetConsolidated = "Consolidado"
	SheetRaw          = "Datos"
)

// Unmatched marks raw rows whose label resolves to no canonical category.
const Unmatched = "(sin categoría)"

const (
	colorHeader = "#1F4E79"
	numFmtMoney = 4 // #,##0.00
)

// Report is everything one export contains.
type Report struct {
	Title        string
	Summaries    []aggregate.ProjectSummary
	Consolidated []aggregate.ConsolidatedTotal
	// Raw rows are written unfiltered by category, unmatched labels included.
	Raw []core.FinancialRow
}

type styles struct {
	title, header, money, percent int
}

// Workbook builds the XLSX file for r.
func Workbook(r Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetConsolidated, SheetRaw} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	for _, write := range []func(*excelize.File, styles, Report) error{writeSummary, writeConsolidated, writeRaw} {
		if err := write(f, st, r); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write streams the workbook for r to w.
func Write(w io.Writer, r Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: colorHeader},
	}); err != nil {
		return st, fmt.Errorf("title style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.money, err = f.NewStyle(&excelize.Style{NumFmt: numFmtMoney}); err != nil {
		return st, fmt.Errorf("money style: %w", err)
	}
	if st.percent, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: ptr(`0.00"%"`),
	}); err != nil {
		return st, fmt.Errorf("percent style: %w", err)
	}
	return st, nil
}

func writeSummary(f *excelize.File, st styles, r Report) error {
	sheet := SheetSummary
	title := r.Title
	if title == "" {
		title = "Ejecución financiera"
	}
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return err
	}
	headers := []string{"Proyecto", "Nombre corto", "BPIN", "Categoría", "Total", "Porcentaje", "Atribuido"}
	if err := writeHeader(f, st, sheet, 3, headers); err != nil {
		return err
	}
	row := 4
	for _, s := range r.Summaries {
		for _, c := range s.Categories {
			values := []any{s.Name, s.ShortName, s.BPIN, c.Category, c.Total, c.DeclaredPercentage, yesNo(s.Attributed)}
			if err := writeRow(f, sheet, row, values); err != nil {
				return err
			}
			if err := styleCell(f, sheet, 5, row, st.money); err != nil {
				return err
			}
			if err := styleCell(f, sheet, 6, row, st.percent); err != nil {
				return err
			}
			row++
		}
	}
	return setWidths(f, sheet, []float64{48, 14, 16, 26, 18, 12, 10})
}

func writeConsolidated(f *excelize.File, st styles, r Report) error {
	sheet := SheetConsolidated
	headers := []string{"Categoría", "Total", "Porcentaje promedio", "Proyectos reportando", "Proyectos"}
	if err := writeHeader(f, st, sheet, 1, headers); err != nil {
		return err
	}
	for i, c := range r.Consolidated {
		row := i + 2
		if err := writeRow(f, sheet, row, []any{c.Category, c.Total, c.AveragePercentage, c.Reporting, c.Projects}); err != nil {
			return err
		}
		if err := styleCell(f, sheet, 2, row, st.money); err != nil {
			return err
		}
		if err := styleCell(f, sheet, 3, row, st.percent); err != nil {
			return err
		}
	}
	return setWidths(f, sheet, []float64{26, 18, 20, 20, 12})
}

func writeRaw(f *excelize.File, st styles, r Report) error {
	sheet := SheetRaw
	headers := []string{"Proyecto", "BPIN", "Tipo de Valor", "Categoría", "Valor", "Porcentaje", "Fecha Corte"}
	if err := writeHeader(f, st, sheet, 1, headers); err != nil {
		return err
	}
	for i, fr := range r.Raw {
		row := i + 2
		category := Unmatched
		if c, ok := aggregate.ResolveCategory(fr.ValueType); ok {
			category = c.Label()
		}
		cutoff := fr.CutoffRaw
		if fr.HasCutoff() {
			cutoff = core.FormatCutoff(fr.Cutoff)
		}
		if err := writeRow(f, sheet, row, []any{fr.Project, fr.BPIN, fr.ValueType, category, fr.Amount, fr.Percentage, cutoff}); err != nil {
			return err
		}
		if err := styleCell(f, sheet, 5, row, st.money); err != nil {
			return err
		}
	}
	return setWidths(f, sheet, []float64{48, 16, 30, 26, 18, 12, 14})
}

func writeHeader(f *excelize.File, st styles, sheet string, row int, headers []string) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, sheet, row, values); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	return f.SetCellStyle(sheet, first, last, st.header)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleCell(f *excelize.File, sheet string, col, row, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}

func setWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

func ptr[T any](v T) *T { return &v }
