package candidates

import (
	"testing"
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/engineerr"
)

func dt(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func longCallParams() engine.BacktestParams {
	return engine.BacktestParams{
		Strategy:    "long_call",
		LegDeltas:   []engine.TargetRange{{Target: 0.50, Min: 0.40, Max: 0.60}},
		MaxEntryDTE: 60,
		ExitDTE:     7,
		Quantity:    1,
		Multiplier:  100,
	}
}

func longCallDef() engine.StrategyDef {
	return engine.StrategyDef{
		Name:              "long_call",
		Legs:              []engine.LegDef{{Side: engine.Long, OptionType: engine.Call, Qty: 1}},
		StrictStrikeOrder: true,
	}
}

func TestBuildSingleLeg(t *testing.T) {
	quotes := []engine.Quote{
		{QuoteDatetime: dt(2024, 1, 2), Expiration: dt(2024, 2, 16), OptionType: engine.Call, Strike: 100, Bid: 2.0, Ask: 2.2, Delta: 0.50},
		{QuoteDatetime: dt(2024, 1, 2), Expiration: dt(2024, 2, 16), OptionType: engine.Put, Strike: 100, Bid: 2.0, Ask: 2.2, Delta: -0.50},
	}
	out, err := Build([][]engine.Quote{quotes}, longCallDef(), longCallParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := dt(2024, 1, 2)
	cands, ok := out[day]
	if !ok || len(cands) != 1 {
		t.Fatalf("got %d candidates for %v, want 1", len(cands), day)
	}
	if cands[0].Legs[0].Strike != 100 {
		t.Fatalf("got strike %v, want 100", cands[0].Legs[0].Strike)
	}
}

func TestBuildNoCandidatesError(t *testing.T) {
	quotes := []engine.Quote{
		{QuoteDatetime: dt(2024, 1, 2), Expiration: dt(2024, 2, 16), OptionType: engine.Call, Strike: 100, Bid: 2.0, Ask: 2.2, Delta: 0.90},
	}
	_, err := Build([][]engine.Quote{quotes}, longCallDef(), longCallParams())
	if err == nil {
		t.Fatal("expected error")
	}
	if !engineerr.Is(err, engineerr.NoCandidates) {
		t.Fatalf("got %v, want NoCandidates kind", err)
	}
}

func TestBuildTwoLegJoinAndStrikeOrder(t *testing.T) {
	def := engine.StrategyDef{
		Name: "bull_call_spread",
		Legs: []engine.LegDef{
			{Side: engine.Long, OptionType: engine.Call, Qty: 1},
			{Side: engine.Short, OptionType: engine.Call, Qty: 1},
		},
		StrictStrikeOrder: true,
	}
	params := engine.BacktestParams{
		Strategy:    "bull_call_spread",
		LegDeltas:   []engine.TargetRange{{Target: 0.50, Min: 0.30, Max: 0.70}, {Target: 0.30, Min: 0.10, Max: 0.50}},
		MaxEntryDTE: 60,
		ExitDTE:     7,
		Quantity:    1,
		Multiplier:  100,
	}
	leg1Quotes := []engine.Quote{
		{QuoteDatetime: dt(2024, 1, 2), Expiration: dt(2024, 2, 16), OptionType: engine.Call, Strike: 100, Bid: 3.0, Ask: 3.2, Delta: 0.50},
	}
	leg2Quotes := []engine.Quote{
		{QuoteDatetime: dt(2024, 1, 2), Expiration: dt(2024, 2, 16), OptionType: engine.Call, Strike: 110, Bid: 1.0, Ask: 1.2, Delta: 0.30},
	}
	out, err := Build([][]engine.Quote{leg1Quotes, leg2Quotes}, def, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cands := out[dt(2024, 1, 2)]
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if cands[0].Legs[0].Strike != 100 || cands[0].Legs[1].Strike != 110 {
		t.Fatalf("unexpected leg strikes: %+v", cands[0].Legs)
	}
}

func TestBuildLegDeltaMismatchError(t *testing.T) {
	params := longCallParams()
	params.LegDeltas = nil
	_, err := Build([][]engine.Quote{{}}, longCallDef(), params)
	if err == nil {
		t.Fatal("expected error for mismatched leg_deltas")
	}
}
