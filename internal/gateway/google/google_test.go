package google

import (
	"context"
	"errors"
	"testing"

	"seguimiento/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "test"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestClient_NilService(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "test"})
	if c.projectsSheet != DefaultProjectsSheet || c.financialSheet != DefaultFinancialSheet {
		t.Fatalf("default sheet names not applied: %+v", c)
	}
	if _, err := c.Dataset(context.Background()); err == nil {
		t.Fatal("expected error with nil service")
	}
	if _, err := c.SaveFinancial(context.Background(), nil); !errors.Is(err, core.ErrNoFinancialValues) {
		t.Fatalf("expected ErrNoFinancialValues, got %v", err)
	}
}

func TestRecordsFromValues(t *testing.T) {
	values := [][]any{
		{"Proyecto", "Tipo de Valor", "Valor", "Fecha Corte", ""},
		{"Alpha", "Total CDP", 1500000.0, "2025-03-31", "ignored"},
		{"", "", "", ""},
		{"Beta", "Total Comprometido"},
	}
	recs := recordsFromValues(values)
	if len(recs) != 2 {
		t.Fatalf("expected blank row skipped, got %d records", len(recs))
	}
	row := core.FinancialRowFromRecord(recs[0])
	if row.Project != "Alpha" || row.Amount != 1500000 || !row.HasCutoff() {
		t.Fatalf("decoded row = %+v", row)
	}
	if recs[1]["Valor"] != "" {
		t.Fatalf("short row must pad missing cells, got %#v", recs[1]["Valor"])
	}
	if _, ok := recs[0][""]; ok {
		t.Fatalf("empty headers must not become keys")
	}
	if recordsFromValues(values[:1]) != nil {
		t.Fatalf("header-only sheet must produce no records")
	}
}

func TestRowForHeaders(t *testing.T) {
	headers := []string{"BPIN", "Proyecto", "Tipo de Valor", "Valor", "Porcentaje", "Fecha Corte"}
	rec := core.Record{"Proyecto": "Alpha", "valor": "", "Porcentaje": 40.0, "Extra": "x"}
	row := rowForHeaders(headers, rec)
	if len(row) != len(headers) {
		t.Fatalf("row length = %d", len(row))
	}
	if row[1] != "Alpha" || row[3] != "" || row[4] != 40.0 || row[0] != "" {
		t.Fatalf("row = %#v", row)
	}
}

func TestUniqueColumn(t *testing.T) {
	recs := []core.Record{
		{"Proyecto": "Beta"}, {"PROYECTO": "Alpha"}, {"Proyecto": "Beta"}, {"Proyecto": ""},
	}
	got := uniqueColumn(recs, core.ColProject)
	if len(got) != 2 || got[0] != "Alpha" || got[1] != "Beta" {
		t.Fatalf("uniqueColumn = %v", got)
	}
}
