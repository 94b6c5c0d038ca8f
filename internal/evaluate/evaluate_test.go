package evaluate

import (
	"math"
	"testing"
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/strategy"
)

func dt(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quote(quoteDate, expiration time.Time, strike float64, ot engine.OptionType, mid, delta float64) engine.Quote {
	return engine.Quote{
		QuoteDatetime: quoteDate,
		Expiration:    expiration,
		OptionType:    ot,
		Strike:        strike,
		Bid:           mid - 0.05,
		Ask:           mid + 0.05,
		Delta:         delta,
	}
}

func baseEvalParams(legDeltas []engine.TargetRange) engine.EvaluateParams {
	return engine.EvaluateParams{
		BacktestParams: engine.BacktestParams{
			LegDeltas:    legDeltas,
			MaxEntryDTE:  90,
			ExitDTE:      5,
			Slippage:     engine.DefaultSlippage(),
			Capital:      100000,
			Quantity:     1,
			Multiplier:   100,
			MaxPositions: 5,
			Selector:     engine.SelectFirst,
		},
		DTEInterval:   10,
		DeltaInterval: 0.10,
	}
}

func TestRunSingleCandidateSingleBucket(t *testing.T) {
	def, ok := strategy.FindByName("long_call")
	if !ok {
		t.Fatal("long_call not found")
	}

	expiration := dt(2024, 3, 1)
	entryDate := dt(2024, 1, 1)
	exitDate := dt(2024, 2, 1)

	quotes := []engine.Quote{
		quote(entryDate, expiration, 100, engine.Call, 5.00, 0.50),
		quote(exitDate, expiration, 100, engine.Call, 7.00, 0.55),
	}

	params := baseEvalParams([]engine.TargetRange{{Target: 0.50, Min: 0.47, Max: 0.53}})
	params.Strategy = "long_call"

	results, err := Run([][]engine.Quote{quotes}, def, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d buckets, want 1", len(results))
	}

	b := results[0]
	if b.Count != 1 {
		t.Fatalf("got count %d, want 1", b.Count)
	}
	wantPnL := (7.00 - 5.00) * 1 * 100.0
	if math.Abs(b.Mean-wantPnL) >= 1e-9 {
		t.Fatalf("got mean %v, want %v", b.Mean, wantPnL)
	}
	if b.WinRate != 1.0 {
		t.Fatalf("got win_rate %v, want 1.0", b.WinRate)
	}
	if b.DTEBucketLabel != "(60, 70]" {
		t.Fatalf("got dte bucket %q", b.DTEBucketLabel)
	}
	if b.DeltaBucketLabel != "(0.50, 0.60]" {
		t.Fatalf("got delta bucket %q", b.DeltaBucketLabel)
	}
}

func TestRunPicksClosestExitToTarget(t *testing.T) {
	def, _ := strategy.FindByName("long_call")
	expiration := dt(2024, 3, 1)
	entryDate := dt(2024, 1, 1)

	// exit_dte=5 -> target = Feb 25. For the Jan 1 entry, Feb 20 is 5 days
	// away and Jan 10 is 46 days away: Feb 20 must win. The Jan 10 quote is
	// itself an in-range entry (DTE 51) that also exits on Feb 20, so it
	// fills a second, lower DTE bucket ahead of the Jan 1 entry's bucket.
	quotes := []engine.Quote{
		quote(entryDate, expiration, 100, engine.Call, 5.00, 0.50),
		quote(dt(2024, 1, 10), expiration, 100, engine.Call, 5.50, 0.50),
		quote(dt(2024, 2, 20), expiration, 100, engine.Call, 9.00, 0.50),
	}

	params := baseEvalParams([]engine.TargetRange{{Target: 0.50, Min: 0.47, Max: 0.53}})
	params.Strategy = "long_call"

	results, err := Run([][]engine.Quote{quotes}, def, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d buckets, want 2", len(results))
	}
	wantPnL := (9.00 - 5.00) * 100.0
	if math.Abs(results[1].Mean-wantPnL) >= 1e-9 {
		t.Fatalf("got mean %v, want %v (should pair with Feb 20 exit)", results[1].Mean, wantPnL)
	}
}

func TestRunNoExitAvailableDropsTrade(t *testing.T) {
	def, _ := strategy.FindByName("long_call")
	expiration := dt(2024, 3, 1)
	entryDate := dt(2024, 1, 1)

	quotes := []engine.Quote{
		quote(entryDate, expiration, 100, engine.Call, 5.00, 0.50),
	}

	params := baseEvalParams([]engine.TargetRange{{Target: 0.50, Min: 0.47, Max: 0.53}})
	params.Strategy = "long_call"

	results, err := Run([][]engine.Quote{quotes}, def, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d buckets, want 0 (no exit row available)", len(results))
	}
}

func TestRunRejectsNonPositiveIntervals(t *testing.T) {
	def, _ := strategy.FindByName("long_call")
	params := baseEvalParams([]engine.TargetRange{{Target: 0.50, Min: 0.47, Max: 0.53}})
	params.Strategy = "long_call"
	params.DTEInterval = 0

	if _, err := Run([][]engine.Quote{{}}, def, params); err == nil {
		t.Fatal("got nil error for dte_interval=0, want error")
	}
}
