package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestEditConfigEditable(t *testing.T) {
	cfg := EditConfig{ActiveMonth: "marzo", Active: true}
	if !cfg.Editable("marzo") || !cfg.Editable(" Marzo ") {
		t.Fatalf("expected marzo to be editable")
	}
	if cfg.Editable("abril") {
		t.Fatalf("abril must not be editable")
	}
	if (EditConfig{}).Editable("enero") {
		t.Fatalf("empty config must not allow edits")
	}
	if DefaultEditConfig().ActiveMonth != "enero" || !DefaultEditConfig().Active {
		t.Fatalf("unexpected default config: %+v", DefaultEditConfig())
	}
}

func TestFinancialRowFromRecord(t *testing.T) {
	var rec Record
	raw := `{"PROYECTO":"Alpha","TIPO_VALOR":"Total Comprometido","VALOR":1500.5,"PORCENTAJE":"40","FECHA_CORTE":"2025-03-31T05:00:00.000Z","bpin":2024011000123}`
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	row := FinancialRowFromRecord(rec)
	if row.Project != "Alpha" || row.ValueType != "Total Comprometido" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.Amount != 1500.5 || row.Percentage != 40 {
		t.Fatalf("amount/percentage = %v/%v", row.Amount, row.Percentage)
	}
	if row.BPIN != "2024011000123" {
		t.Fatalf("bpin = %q", row.BPIN)
	}
	want := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	if !row.Cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", row.Cutoff, want)
	}
}

func TestFinancialRowFromRecordDefaults(t *testing.T) {
	row := FinancialRowFromRecord(Record{"Proyecto": "Beta", "Valor": "", "Fecha Corte": "garbage"})
	if row.ValueType != "Sin tipo" {
		t.Fatalf("value type = %q, want Sin tipo", row.ValueType)
	}
	if row.Amount != 0 {
		t.Fatalf("blank amount must parse to 0, got %v", row.Amount)
	}
	if row.HasCutoff() {
		t.Fatalf("unparseable cutoff must be absent")
	}
}

func TestProjectRowFromRecord(t *testing.T) {
	rec := Record{
		"PROYECTO":         "Alpha",
		"OBJ":              "Objetivo 1",
		"PRODUCTO":         "Informe",
		"Unidad de Medida": "Documentos",
		"ENERO":            float64(10),
		"MARZO":            "35",
	}
	p := ProjectRowFromRecord(rec, 2)
	if p.Activity != "Objetivo 1" {
		t.Fatalf("activity should fall back to OBJ, got %q", p.Activity)
	}
	if p.MonthlyProgress(1) != "10" || p.MonthlyProgress(3) != "35" || p.MonthlyProgress(2) != "" {
		t.Fatalf("unexpected monthly values: %v", p.Monthly)
	}
	if p.MonthlyProgress(13) != "" {
		t.Fatalf("out of range month must be empty")
	}
}

func TestLogEntryFromRecord(t *testing.T) {
	e := LogEntryFromRecord(Record{"usuario": "a@b.co", "action": "login", "message": "hola", "timestamp": "2025-01-01"})
	if e.Email != "a@b.co" || e.Action != "login" || e.Description != "hola" || e.Date != "2025-01-01" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestUserValidate(t *testing.T) {
	if err := (User{Email: " "}).Validate(); !errors.Is(err, ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
	if err := (User{Email: "a@b.co"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
