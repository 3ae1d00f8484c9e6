package core

import (
	"errors"
	"strings"
	"time"
)

// AllProjects is the project filter value that disables project filtering.
const AllProjects = "todos"

type (
	// FinancialRow is one line of the financial execution sheet.
	FinancialRow struct {
		Project    string    `json:"proyecto"`
		BPIN       string    `json:"bpin"`
		ValueType  string    `json:"tipoValor"`
		Amount     float64   `json:"valor"`
		Percentage float64   `json:"porcentaje"`
		CutoffRaw  string    `json:"fechaCorteRaw"`
		Cutoff     time.Time `json:"fechaCorte"`
		// Raw keeps the row exactly as the gateway returned it.
		Raw Record `json:"-"`
	}

	// ProjectRow is one activity line of the projects sheet.
	ProjectRow struct {
		Project     string     `json:"proyecto"`
		BPIN        string     `json:"bpin"`
		Activity    string     `json:"actividad"`
		Objective   string     `json:"objetivo"`
		Product     string     `json:"producto"`
		Unit        string     `json:"unidadMedida"`
		GoalTotal   string     `json:"metaTotal"`
		GoalYear    string     `json:"metaAnual"`
		Monthly     [12]string `json:"avances"`
		Overall     string     `json:"avanceGeneral"`
		Observation string     `json:"observaciones"`
		// SheetRow is the 1-based spreadsheet row, header included.
		SheetRow int `json:"filaOriginal"`
	}

	// Dataset is the full dump served by the gateway root endpoint.
	Dataset struct {
		Projects  []ProjectRow   `json:"proyectos"`
		Financial []FinancialRow `json:"financiera"`
	}

	// EditConfig controls which month of physical progress can be edited.
	EditConfig struct {
		ActiveMonth string `json:"mesActivo"`
		Active      bool   `json:"activo"`
		Version     string `json:"version,omitempty"`
	}

	User struct {
		Email    string `json:"email"`
		Password string `json:"password,omitempty"`
	}

	// LogEntry is one line of the remote activity log.
	LogEntry struct {
		Email       string `json:"email"`
		Action      string `json:"accion"`
		Description string `json:"descripcion"`
		Date        string `json:"fecha"`
	}

	// AccessResult is the outcome of a credential or admin check.
	AccessResult struct {
		Success bool   `json:"success"`
		IsAdmin bool   `json:"esAdmin"`
		Message string `json:"message,omitempty"`
	}

	// WriteResult is the generic acknowledgement of a gateway write.
	WriteResult struct {
		Success bool           `json:"success"`
		Message string         `json:"message,omitempty"`
		Debug   map[string]any `json:"debug,omitempty"`
	}
)

var (
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidYear       = errors.New("invalid year")
	ErrEmptyEmail        = errors.New("empty email")
	ErrEmptyPassword     = errors.New("empty password")
	ErrEmptyProject      = errors.New("empty project")
	ErrEmptyActivity     = errors.New("empty activity")
	ErrNoFinancialValues = errors.New("at least one financial value is required")
	ErrMonthNotEditable  = errors.New("month is not editable")
)

// DefaultEditConfig is used when the gateway configuration cannot be read.
func DefaultEditConfig() EditConfig {
	return EditConfig{ActiveMonth: "enero", Active: true}
}

// Editable reports whether the given Spanish month name is the active one.
func (c EditConfig) Editable(month string) bool {
	return c.ActiveMonth != "" && strings.EqualFold(strings.TrimSpace(month), c.ActiveMonth)
}

// HasCutoff reports whether the row carries a parseable cutoff date.
func (r FinancialRow) HasCutoff() bool {
	return !r.Cutoff.IsZero()
}

// MonthlyProgress returns the progress value recorded for month (1-12).
func (p ProjectRow) MonthlyProgress(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return p.Monthly[month-1]
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}
