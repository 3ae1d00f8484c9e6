package aggregate

import (
	"testing"

	"seguimiento/internal/core"
)

func TestConsolidateAveragesReportingProjectsOnly(t *testing.T) {
	summaries := []ProjectSummary{
		{Name: "A", Categories: []CategoryTotal{{Category: "Comprometido", Total: 100, DeclaredPercentage: 40}}},
		{Name: "B", Categories: []CategoryTotal{{Category: "Comprometido", Total: 200, DeclaredPercentage: 0}}},
		{Name: "C", Categories: []CategoryTotal{{Category: "Comprometido", Total: 300, DeclaredPercentage: 70}}},
	}
	got := Consolidate(summaries)
	if len(got) != 1 {
		t.Fatalf("expected 1 category, got %+v", got)
	}
	if got[0].AveragePercentage != 55 {
		t.Fatalf("average = %v, want 55", got[0].AveragePercentage)
	}
	if got[0].Reporting != 2 || got[0].Projects != 3 {
		t.Fatalf("reporting/projects = %d/%d", got[0].Reporting, got[0].Projects)
	}
	if got[0].Total != 600 {
		t.Fatalf("total = %v", got[0].Total)
	}
}

func TestConsolidateMatchesProjectSums(t *testing.T) {
	rows := []core.FinancialRow{
		fin("A", "Apropiación Inicial", 1000, "2025-03-31"),
		fin("A", "Total CDP", 250, "2025-03-31"),
		fin("B", "APROPIACION INICIAL", 500, "2025-03-31"),
		fin("B", "Total Orden de Pago", 75, "2025-03-31"),
		fin("C", "Total CDP", 125, "2025-03-31"),
		fin("C", "Reservas", 9999, "2025-03-31"),
	}
	summaries := NewEngine(nil).SummarizeProjects(nil, rows, Filter{Month: 3})
	consolidated := Consolidate(summaries)

	want := map[string]float64{}
	for _, s := range summaries {
		for _, c := range s.Categories {
			want[c.Category] += c.Total
		}
	}
	if len(consolidated) != len(want) {
		t.Fatalf("consolidated %d categories, projects have %d", len(consolidated), len(want))
	}
	for _, ct := range consolidated {
		if ct.Total != want[ct.Category] {
			t.Errorf("%s: consolidated %v, sum of projects %v", ct.Category, ct.Total, want[ct.Category])
		}
	}
}

func TestConsolidateEmpty(t *testing.T) {
	if got := Consolidate(nil); len(got) != 0 {
		t.Fatalf("expected no totals, got %+v", got)
	}
}
