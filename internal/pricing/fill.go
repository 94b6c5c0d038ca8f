// Package pricing implements the fill-price and P&L arithmetic of spec
// §4.3, ported from original_source/src/engine/pricing.rs, plus the
// teacher's Black-Scholes estimator kept as a data-provider fallback.
package pricing

import "github.com/contactkeval/option-replay/internal/engine"

// midpoint matches Rust's f64::midpoint exactly (half-sum, not (a+b)/2)
// for numeric stability per spec §9.
func midpoint(a, b float64) float64 {
	return a/2 + b/2
}

// FillPrice returns the executable price for the given side under the
// given slippage model.
func FillPrice(bid, ask float64, side engine.Side, slippage engine.Slippage) float64 {
	mid := midpoint(bid, ask)
	spread := ask - bid

	switch slippage.Type {
	case engine.SlippageSpread:
		if side == engine.Long {
			return ask
		}
		return bid
	case engine.SlippageLiquidity:
		if side == engine.Long {
			return bid + spread*slippage.FillRatio
		}
		return ask - spread*slippage.FillRatio
	case engine.SlippagePerLeg:
		if side == engine.Long {
			return mid + slippage.PerLegSlip
		}
		return mid - slippage.PerLegSlip
	default: // engine.SlippageMid and zero-value
		return mid
	}
}

// invert returns the closing-direction side: selling to close a long,
// buying to close a short.
func invert(side engine.Side) engine.Side {
	if side == engine.Long {
		return engine.Short
	}
	return engine.Long
}

// Invert is the exported form of invert, used by the event simulator to
// price a position's closing leg with the opposite side from entry.
func Invert(side engine.Side) engine.Side { return invert(side) }

// LegPnL computes the realised P&L of a single leg opened and closed at
// the given bid/ask pairs.
func LegPnL(entryBid, entryAsk, exitBid, exitAsk float64, side engine.Side, slippage engine.Slippage, qty, multiplier int) float64 {
	entryPrice := FillPrice(entryBid, entryAsk, side, slippage)
	exitPrice := FillPrice(exitBid, exitAsk, invert(side), slippage)
	direction := side.Multiplier()
	return (exitPrice - entryPrice) * direction * float64(qty) * float64(multiplier)
}
