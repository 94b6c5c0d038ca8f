package filters

import (
	"testing"
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestComputeDTE(t *testing.T) {
	rows := []engine.Quote{
		{QuoteDatetime: d(2024, 1, 15), Expiration: d(2024, 1, 16)},
		{QuoteDatetime: d(2024, 1, 15), Expiration: d(2024, 2, 16)},
		{QuoteDatetime: d(2024, 1, 16), Expiration: d(2024, 3, 15)},
	}
	out := ComputeDTE(rows)
	want := []int{1, 32, 59}
	for i, w := range want {
		if out[i].DTE != w {
			t.Fatalf("row %d: got dte %d want %d", i, out[i].DTE, w)
		}
	}
}

func TestFilterDTERangeBoundaries(t *testing.T) {
	rows := []Row{
		{DTE: 10}, {DTE: 20}, {DTE: 30}, {DTE: 45}, {DTE: 60},
	}
	out := FilterDTERange(rows, 45, 20)
	if len(out) != 3 {
		t.Fatalf("got %d rows, want 3", len(out))
	}
	out = FilterDTERange(rows, 30, 30)
	if len(out) != 1 {
		t.Fatalf("exact boundary: got %d rows, want 1", len(out))
	}
}

func TestFilterOptionType(t *testing.T) {
	rows := []Row{
		{Quote: engine.Quote{OptionType: engine.Call}},
		{Quote: engine.Quote{OptionType: engine.Call}},
		{Quote: engine.Quote{OptionType: engine.Put}},
	}
	if got := FilterOptionType(rows, engine.Call); len(got) != 2 {
		t.Fatalf("got %d calls, want 2", len(got))
	}
	if got := FilterOptionType(rows, engine.Put); len(got) != 1 {
		t.Fatalf("got %d puts, want 1", len(got))
	}
}

func TestFilterValidQuotes(t *testing.T) {
	rows := []Row{
		{Quote: engine.Quote{Bid: 2.0, Ask: 2.5}},
		{Quote: engine.Quote{Bid: 0, Ask: 0.5}},
		{Quote: engine.Quote{Bid: -1.0, Ask: 1.0}},
	}
	out := FilterValidQuotes(rows)
	if len(out) != 1 {
		t.Fatalf("got %d valid rows, want 1", len(out))
	}
}

func TestSelectClosestDeltaPicksNearest(t *testing.T) {
	dt1 := d(2024, 1, 15)
	exp1 := d(2024, 2, 16)
	rows := []Row{
		{Quote: engine.Quote{QuoteDatetime: dt1, Expiration: exp1, Delta: 0.30, Strike: 95}},
		{Quote: engine.Quote{QuoteDatetime: dt1, Expiration: exp1, Delta: 0.48, Strike: 100}},
		{Quote: engine.Quote{QuoteDatetime: dt1, Expiration: exp1, Delta: 0.52, Strike: 105}},
	}
	target := engine.TargetRange{Target: 0.50, Min: 0.25, Max: 0.55}
	out := SelectClosestDelta(rows, target)
	if len(out) != 1 {
		t.Fatalf("got %d rows, want 1", len(out))
	}
	if out[0].Strike != 100 && out[0].Strike != 105 {
		t.Fatalf("unexpected strike selected: %v", out[0].Strike)
	}
}

func TestSelectClosestDeltaFiltersOutOfRange(t *testing.T) {
	dt1 := d(2024, 1, 15)
	exp1 := d(2024, 2, 16)
	rows := []Row{
		{Quote: engine.Quote{QuoteDatetime: dt1, Expiration: exp1, Delta: 0.10, Strike: 90}},
		{Quote: engine.Quote{QuoteDatetime: dt1, Expiration: exp1, Delta: 0.90, Strike: 110}},
	}
	target := engine.TargetRange{Target: 0.50, Min: 0.40, Max: 0.60}
	out := SelectClosestDelta(rows, target)
	if len(out) != 0 {
		t.Fatalf("got %d rows, want 0", len(out))
	}
}
