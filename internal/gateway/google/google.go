// Package google reads and appends the dashboard tabs directly through the
// Sheets API, bypassing the Apps Script web app.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"seguimiento/internal/core"
	"seguimiento/internal/gateway"
)

const (
	DefaultProjectsSheet  = "Principal"
	DefaultFinancialSheet = "Tabla_Eje_Financiera"
)

// Config selects the spreadsheet and the credentials used to read it.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	ProjectsSheet   string
	FinancialSheet  string
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	projectsSheet  string
	financialSheet string
}

// Ensure interface conformance
var (
	_ gateway.DatasetReader   = (*Client)(nil)
	_ gateway.FinancialWriter = (*Client)(nil)
	_ gateway.SelectorSource  = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg), nil
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	c := &Client{
		svc:            svc,
		spreadsheetID:  strings.TrimSpace(cfg.SpreadsheetID),
		projectsSheet:  strings.TrimSpace(cfg.ProjectsSheet),
		financialSheet: strings.TrimSpace(cfg.FinancialSheet),
	}
	if c.projectsSheet == "" {
		c.projectsSheet = DefaultProjectsSheet
	}
	if c.financialSheet == "" {
		c.financialSheet = DefaultFinancialSheet
	}
	return c
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is set.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case credsJSON != "":
		credentials = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentials),
		"scope", gsheet.SpreadsheetsScope)

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := sheet
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", gateway.ErrTransport, rng, err)
	}
	return resp.Values, nil
}

// Dataset reads both tabs.
func (c *Client) Dataset(ctx context.Context) (core.Dataset, error) {
	projects, err := c.readSheet(ctx, c.projectsSheet)
	if err != nil {
		return core.Dataset{}, err
	}
	financial, err := c.readSheet(ctx, c.financialSheet)
	if err != nil {
		return core.Dataset{}, err
	}
	return core.DecodeDataset(recordsFromValues(projects), recordsFromValues(financial)), nil
}

// SaveFinancial writes rows below the last used row of the financial tab,
// placing each value under the column whose header names it.
func (c *Client) SaveFinancial(ctx context.Context, rows []core.Record) (core.WriteResult, error) {
	if len(rows) == 0 {
		return core.WriteResult{}, core.ErrNoFinancialValues
	}
	values, err := c.readSheet(ctx, c.financialSheet)
	if err != nil {
		return core.WriteResult{}, err
	}
	if len(values) == 0 {
		return core.WriteResult{}, fmt.Errorf("sheet %s has no header row", c.financialSheet)
	}
	headers := toStrings(values[0])
	matrix := make([][]any, 0, len(rows))
	for _, r := range rows {
		matrix = append(matrix, rowForHeaders(headers, r))
	}

	first := len(values) + 1
	rng := fmt.Sprintf("%s!A%d", c.financialSheet, first)
	vr := &gsheet.ValueRange{Values: matrix}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("%w: update %s: %w", gateway.ErrTransport, rng, err)
	}
	return core.WriteResult{
		Success: true,
		Message: fmt.Sprintf("%d filas guardadas", len(matrix)),
		Debug:   map[string]any{"rango": fmt.Sprintf("%s!A%d:A%d", c.financialSheet, first, first+len(matrix)-1)},
	}, nil
}

func (c *Client) UniqueProjects(ctx context.Context) ([]string, error) {
	return c.uniqueFinancial(ctx, core.ColProject)
}

func (c *Client) UniqueBPINs(ctx context.Context) ([]string, error) {
	return c.uniqueFinancial(ctx, core.ColBPIN)
}

func (c *Client) UniqueValueTypes(ctx context.Context) ([]string, error) {
	return c.uniqueFinancial(ctx, core.ColValueType)
}

func (c *Client) uniqueFinancial(ctx context.Context, keys []string) ([]string, error) {
	values, err := c.readSheet(ctx, c.financialSheet)
	if err != nil {
		return nil, err
	}
	return uniqueColumn(recordsFromValues(values), keys), nil
}

// recordsFromValues turns a header row plus data rows into header-keyed
// records. Fully blank rows are skipped.
func recordsFromValues(values [][]any) []core.Record {
	if len(values) < 2 {
		return nil
	}
	headers := toStrings(values[0])
	out := make([]core.Record, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(core.Record, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			var cell any = ""
			if i < len(row) && row[i] != nil {
				cell = row[i]
			}
			if core.CellString(cell) != "" {
				blank = false
			}
			rec[h] = cell
		}
		if blank {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// rowForHeaders orders a record's values by header position. Headers the
// record does not name are left empty.
func rowForHeaders(headers []string, r core.Record) []any {
	row := make([]any, len(headers))
	for i := range row {
		row[i] = ""
	}
	for k, v := range r {
		if idx := indexOf(headers, k); idx >= 0 {
			row[idx] = v
		}
	}
	return row
}

func uniqueColumn(records []core.Record, keys []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, r := range records {
		v := r.Get(keys...)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}
