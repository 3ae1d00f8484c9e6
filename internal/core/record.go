package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a header-keyed spreadsheet row.
type Record map[string]any

// Column name variants found across the source sheets.
var (
	ColProject     = []string{"Proyecto", "PROYECTO", "proyecto"}
	ColValueType   = []string{"Tipo de Valor", "TIPO_VALOR", "tipo_valor"}
	ColAmount      = []string{"Valor", "VALOR", "valor"}
	ColPercentage  = []string{"Porcentaje", "PORCENTAJE", "porcentaje"}
	ColCutoff      = []string{"Fecha Corte", "FECHA_CORTE", "fecha_corte"}
	ColBPIN        = []string{"BPIN", "bpin"}
	ColActivity    = []string{"ACTIVIDAD", "Actividad", "actividad"}
	ColObjective   = []string{"OBJ", "Obj", "obj"}
	ColProduct     = []string{"PRODUCTO", "Producto", "producto"}
	ColUnit        = []string{"Unidad de Medida", "UNIDAD DE MEDIDA", "unidad_medida"}
	ColGoalTotal   = []string{"META TOTAL", "Meta Total", "meta_total"}
	ColGoalYear    = []string{"META 2025", "Meta 2025", "META ANUAL", "meta_anual"}
	ColOverall     = []string{"% Avance", "% AVANCE", "AVANCE", "avance"}
	ColObservation = []string{"Observaciones", "OBSERVACIONES", "observaciones"}
)

// Get returns the first non-empty value among keys as a trimmed string.
func (r Record) Get(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

// CellString renders a cell value the way Get does.
func CellString(v any) string { return stringify(v) }

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}

// FinancialRowFromRecord decodes a financial sheet row. Missing value types
// become "Sin tipo"; unparseable amounts and percentages become 0.
func FinancialRowFromRecord(r Record) FinancialRow {
	row := FinancialRow{
		Project:    r.Get(ColProject...),
		BPIN:       r.Get(ColBPIN...),
		ValueType:  r.Get(ColValueType...),
		Amount:     ParseAmount(r.Get(ColAmount...)),
		Percentage: ParsePercentage(r.Get(ColPercentage...)),
		CutoffRaw:  r.Get(ColCutoff...),
		Raw:        r,
	}
	if row.ValueType == "" {
		row.ValueType = "Sin tipo"
	}
	if t, ok := ParseCutoffDate(row.CutoffRaw); ok {
		row.Cutoff = t
	}
	return row
}

// ProjectRowFromRecord decodes an activity row of the projects sheet.
func ProjectRowFromRecord(r Record, sheetRow int) ProjectRow {
	p := ProjectRow{
		Project:     r.Get(ColProject...),
		BPIN:        r.Get(ColBPIN...),
		Objective:   r.Get(ColObjective...),
		Product:     r.Get(ColProduct...),
		Unit:        r.Get(ColUnit...),
		GoalTotal:   r.Get(ColGoalTotal...),
		GoalYear:    r.Get(ColGoalYear...),
		Overall:     r.Get(ColOverall...),
		Observation: r.Get(ColObservation...),
		SheetRow:    sheetRow,
	}
	p.Activity = r.Get(ColActivity...)
	if p.Activity == "" {
		p.Activity = p.Objective
	}
	for i, name := range monthNames {
		p.Monthly[i] = r.Get(strings.ToUpper(name), capitalize(name), name)
	}
	return p
}

// DecodeDataset converts raw gateway records into typed rows.
func DecodeDataset(projects, financial []Record) Dataset {
	ds := Dataset{
		Projects:  make([]ProjectRow, 0, len(projects)),
		Financial: make([]FinancialRow, 0, len(financial)),
	}
	for i, r := range projects {
		// Row 1 is the header.
		ds.Projects = append(ds.Projects, ProjectRowFromRecord(r, i+2))
	}
	for _, r := range financial {
		ds.Financial = append(ds.Financial, FinancialRowFromRecord(r))
	}
	return ds
}

// LogEntryFromRecord tolerates the different field names used by the log sheet.
func LogEntryFromRecord(r Record) LogEntry {
	return LogEntry{
		Email:       r.Get("email", "user", "usuario", "username", "correo", "Email"),
		Action:      r.Get("accion", "action", "tipo", "Accion", "Acción"),
		Description: r.Get("descripcion", "desc", "message", "Descripcion", "Descripción"),
		Date:        r.Get("fecha", "timestamp", "createdAt", "created_at", "date", "Fecha"),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
