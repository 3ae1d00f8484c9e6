package aggregate

import "testing"

func TestChartSeries(t *testing.T) {
	summaries := []ProjectSummary{
		{ShortName: "Pequeño", Categories: []CategoryTotal{
			{Category: "Apropiación Inicial", Total: 1_000_000},
			{Category: "Comprometido", Total: 0},
		}},
		{ShortName: "Grande", Categories: []CategoryTotal{
			{Category: "Apropiación Inicial", Total: 2_500_000},
			{Category: "Orden de Pago", Total: 1_234_567},
		}},
	}
	chart := ChartSeries(summaries)

	if len(chart.Labels) != 2 || chart.Labels[0] != "Grande" || chart.Labels[1] != "Pequeño" {
		t.Fatalf("labels = %v, want projects by descending total", chart.Labels)
	}
	if len(chart.Datasets) != 2 {
		t.Fatalf("expected all-zero category to be dropped, got %+v", chart.Datasets)
	}
	initial := chart.Datasets[0]
	if initial.Label != "Apropiación Inicial" || initial.Values[0] != 2.5 || initial.Values[1] != 1 {
		t.Fatalf("initial series = %+v", initial)
	}
	if got := chart.Datasets[1].Values; got[0] != 1.23 || got[1] != 0 {
		t.Fatalf("payment order series = %v", got)
	}
	if summaries[0].ShortName != "Pequeño" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestChartSeriesKeepsSmallTotals(t *testing.T) {
	chart := ChartSeries([]ProjectSummary{
		{ShortName: "Alpha", Categories: []CategoryTotal{
			{Category: "CDP Expedidos", Total: 4000},
		}},
	})
	if len(chart.Datasets) != 1 || chart.Datasets[0].Label != "CDP Expedidos" {
		t.Fatalf("non-zero total below 0.01 million dropped: %+v", chart.Datasets)
	}
	if v := chart.Datasets[0].Values[0]; v != 0 {
		t.Fatalf("value = %v, want 0 after rounding to millions", v)
	}
}
