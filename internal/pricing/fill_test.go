package pricing

import (
	"math"
	"testing"

	"github.com/contactkeval/option-replay/internal/engine"
)

const (
	testBid = 2.0
	testAsk = 2.50
	testMid = 2.25
)

func approxEqual(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFillPriceMid(t *testing.T) {
	slip := engine.DefaultSlippage()
	approxEqual(t, FillPrice(testBid, testAsk, engine.Long, slip), testMid)
	approxEqual(t, FillPrice(testBid, testAsk, engine.Short, slip), testMid)
}

func TestFillPriceSpread(t *testing.T) {
	slip := engine.Slippage{Type: engine.SlippageSpread}
	approxEqual(t, FillPrice(testBid, testAsk, engine.Long, slip), testAsk)
	approxEqual(t, FillPrice(testBid, testAsk, engine.Short, slip), testBid)
}

func TestFillPriceLiquidity(t *testing.T) {
	slip := engine.Slippage{Type: engine.SlippageLiquidity, FillRatio: 0.75, RefVolume: 100}
	approxEqual(t, FillPrice(testBid, testAsk, engine.Long, slip), 2.375)
	approxEqual(t, FillPrice(testBid, testAsk, engine.Short, slip), 2.125)
}

func TestFillPricePerLeg(t *testing.T) {
	slip := engine.Slippage{Type: engine.SlippagePerLeg, PerLegSlip: 0.05}
	approxEqual(t, FillPrice(testBid, testAsk, engine.Long, slip), 2.30)
	approxEqual(t, FillPrice(testBid, testAsk, engine.Short, slip), 2.20)
}

func TestLegPnLLongProfitable(t *testing.T) {
	pnl := LegPnL(2.0, 2.50, 3.0, 3.50, engine.Long, engine.DefaultSlippage(), 1, 100)
	approxEqual(t, pnl, 100.0)
}

func TestLegPnLShortProfitable(t *testing.T) {
	pnl := LegPnL(3.0, 3.50, 2.0, 2.50, engine.Short, engine.DefaultSlippage(), 1, 100)
	approxEqual(t, pnl, 100.0)
}

func TestLegPnLLongLosing(t *testing.T) {
	pnl := LegPnL(3.0, 3.50, 2.0, 2.50, engine.Long, engine.DefaultSlippage(), 1, 100)
	approxEqual(t, pnl, -100.0)
}

func TestLegPnLQuantityScaling(t *testing.T) {
	pnl := LegPnL(2.0, 2.50, 3.0, 3.50, engine.Long, engine.DefaultSlippage(), 5, 100)
	approxEqual(t, pnl, 500.0)
}

func TestLegPnLMultiplierScaling(t *testing.T) {
	pnl := LegPnL(2.0, 2.50, 3.0, 3.50, engine.Long, engine.DefaultSlippage(), 1, 50)
	approxEqual(t, pnl, 50.0)
}

func TestCommissionCalculate(t *testing.T) {
	cases := []struct {
		name      string
		c         engine.Commission
		contracts int
		want      float64
	}{
		{"basic", engine.Commission{PerContract: 0.65}, 10, 6.50},
		{"with base", engine.Commission{PerContract: 0.65, BaseFee: 1.00}, 5, 4.25},
		{"min binds", engine.Commission{PerContract: 0.10, MinFee: 5.00}, 1, 5.00},
		{"min doesn't bind", engine.Commission{PerContract: 1.00, BaseFee: 5.00, MinFee: 2.00}, 3, 8.00},
		{"zero commission", engine.Commission{}, 10, 0.0},
		{"negative contracts uses abs", engine.Commission{PerContract: 0.65}, -10, 6.50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			approxEqual(t, tc.c.Calculate(tc.contracts), tc.want)
		})
	}
}
