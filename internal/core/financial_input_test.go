package core

import (
	"errors"
	"testing"
)

func TestFinancialInputRecords(t *testing.T) {
	in := FinancialInput{
		Project: "Alpha",
		BPIN:    "2024-1",
		Month:   2,
		Year:    2025,
		Entries: []FinancialEntry{
			{ValueType: "Apropiacion Inicial", Value: "1000", Percentage: "15"},
			{ValueType: "Total Comprometido", Value: "0", Percentage: "0"},
			{ValueType: "Total Obligacion", Value: "250.5", Percentage: "40"},
			{ValueType: "Total Orden de Pago", Value: "", Percentage: "10"},
		},
	}
	recs, err := in.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 rows (blank value skipped), got %d", len(recs))
	}

	first := recs[0]
	if first["Valor"] != float64(1000) {
		t.Fatalf("Valor = %#v", first["Valor"])
	}
	if first["Porcentaje"] != "" {
		t.Fatalf("initial appropriation must not carry a percentage, got %#v", first["Porcentaje"])
	}
	if first["Fecha Corte"] != "2025-02-28" {
		t.Fatalf("Fecha Corte = %v", first["Fecha Corte"])
	}

	zero := recs[1]
	if v, ok := zero["Valor"].(string); !ok || v != "" {
		t.Fatalf("zero amount must be submitted as empty string, got %#v", zero["Valor"])
	}
	if v, ok := zero["Porcentaje"].(string); !ok || v != "" {
		t.Fatalf("zero percentage must be submitted as empty string, got %#v", zero["Porcentaje"])
	}

	if recs[2]["Porcentaje"] != float64(40) {
		t.Fatalf("obligation percentage = %#v", recs[2]["Porcentaje"])
	}
}

func TestFinancialInputRecordsValidation(t *testing.T) {
	base := FinancialInput{Project: "Alpha", Month: 3, Year: 2025, Entries: []FinancialEntry{{ValueType: "Total CDP", Value: "1"}}}

	cases := []struct {
		name   string
		mutate func(*FinancialInput)
		want   error
	}{
		{"bad month", func(in *FinancialInput) { in.Month = 13 }, ErrInvalidMonth},
		{"bad year", func(in *FinancialInput) { in.Year = 0 }, ErrInvalidYear},
		{"no project", func(in *FinancialInput) { in.Project = " " }, ErrEmptyProject},
		{"no values", func(in *FinancialInput) { in.Entries = []FinancialEntry{{ValueType: "Total CDP"}} }, ErrNoFinancialValues},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			in.Entries = append([]FinancialEntry(nil), base.Entries...)
			tc.mutate(&in)
			if _, err := in.Records(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRequiresPercentage(t *testing.T) {
	for _, vt := range []string{"Total Comprometido", "Total Obligacion", "Total Obligación", "Total Orden de Pago"} {
		if !RequiresPercentage(vt) {
			t.Errorf("%q should require a percentage", vt)
		}
	}
	for _, vt := range []string{"Apropiacion Inicial", "Total CDP", "Apropiacion Disponible"} {
		if RequiresPercentage(vt) {
			t.Errorf("%q should not require a percentage", vt)
		}
	}
}
