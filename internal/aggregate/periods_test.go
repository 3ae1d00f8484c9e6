package aggregate

import (
	"reflect"
	"testing"

	"seguimiento/internal/core"
)

func TestFilterByMonth(t *testing.T) {
	rows := []core.FinancialRow{
		fin("A", "Total CDP", 1, "2025-03-31"),
		fin("A", "Total CDP", 2, "31/03/2024"),
		fin("A", "Total CDP", 3, "2025-04-30"),
		fin("A", "Total CDP", 4, "sin fecha"),
	}
	if got := FilterByMonth(rows, 3, 0); len(got) != 2 {
		t.Fatalf("any year: got %d rows", len(got))
	}
	if got := FilterByMonth(rows, 3, 2025); len(got) != 1 || got[0].Amount != 1 {
		t.Fatalf("year 2025: got %+v", got)
	}
}

func TestAvailablePeriods(t *testing.T) {
	rows := []core.FinancialRow{
		fin("A", "Total CDP", 1, "2025-01-31"),
		fin("A", "Total CDP", 1, "2025-03-31"),
		fin("A", "Total CDP", 1, "2024-12-31"),
		fin("A", "Total CDP", 1, "2025-03-31"),
		fin("A", "Total CDP", 1, ""),
	}
	got := AvailablePeriods(rows)
	if !reflect.DeepEqual(got.Months, []int{1, 3, 12}) {
		t.Fatalf("months = %v", got.Months)
	}
	if !reflect.DeepEqual(got.Years, []int{2024, 2025}) {
		t.Fatalf("years = %v", got.Years)
	}
	if got.Latest != (Period{Year: 2025, Month: 3}) || got.Previous != (Period{Year: 2025, Month: 1}) {
		t.Fatalf("latest/previous = %+v / %+v", got.Latest, got.Previous)
	}

	single := AvailablePeriods(rows[:1])
	if single.Latest != single.Previous {
		t.Fatalf("single period must be both latest and previous: %+v", single)
	}
	if none := AvailablePeriods(nil); none.Latest != (Period{}) {
		t.Fatalf("no rows: %+v", none)
	}
}
