// Package metrics computes the equity-curve-derived performance bundle and
// trade-log summary statistics of spec §4.8, ported exactly from
// original_source/src/engine/metrics.rs.
package metrics

import (
	"math"
	"sort"

	"github.com/contactkeval/option-replay/internal/engine"
)

// Calculate computes Sharpe, Sortino, max drawdown, win rate, profit
// factor, Calmar, VaR95, and total-return-percent from a daily equity
// curve, annualising on a 252-trading-day assumption.
func Calculate(equityCurve []engine.EquityPoint, initialCapital float64) engine.PerformanceMetrics {
	if len(equityCurve) < 2 {
		return engine.PerformanceMetrics{}
	}

	returns := make([]float64, 0, len(equityCurve))
	prevEquity := initialCapital
	for _, point := range equityCurve {
		if prevEquity > 0 {
			returns = append(returns, (point.Equity-prevEquity)/prevEquity)
		}
		prevEquity = point.Equity
	}
	if len(returns) == 0 {
		return engine.PerformanceMetrics{}
	}

	meanReturn := sum(returns) / float64(len(returns))
	stdReturn := stdDev(returns)
	downsideStd := downsideDeviation(returns)
	annualization := math.Sqrt(252)

	sharpe := 0.0
	if stdReturn > 0 {
		sharpe = meanReturn / stdReturn * annualization
	}

	sortino := 0.0
	if downsideStd > 0 {
		sortino = meanReturn / downsideStd * annualization
	}

	maxDrawdown := maxDrawdownOf(equityCurve)

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(returns))

	totalGains, totalLosses := 0.0, 0.0
	for _, r := range returns {
		if r > 0 {
			totalGains += r
		} else if r < 0 {
			totalLosses += -r
		}
	}
	profitFactor := 0.0
	switch {
	case totalLosses > 0:
		profitFactor = totalGains / totalLosses
	case totalGains > 0:
		profitFactor = math.Inf(1)
	}

	totalReturn := (equityCurve[len(equityCurve)-1].Equity - initialCapital) / initialCapital
	calmar := 0.0
	if maxDrawdown > 0 {
		calmar = totalReturn / maxDrawdown
	}

	var95 := valueAtRisk(returns, 0.05)

	return engine.PerformanceMetrics{
		Sharpe:        sharpe,
		Sortino:       sortino,
		MaxDrawdown:   maxDrawdown,
		WinRate:       winRate,
		ProfitFactor:  profitFactor,
		Calmar:        calmar,
		VaR95:         var95,
		TotalReturnPc: totalReturn * 100,
	}
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

// SampleStdDev is the exported sample standard deviation, shared with
// internal/evaluate's bucket statistics so both packages compute dispersion
// the same way.
func SampleStdDev(data []float64) float64 {
	return stdDev(data)
}

func stdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	mean := sum(data) / float64(len(data))
	variance := 0.0
	for _, x := range data {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(data) - 1)
	return math.Sqrt(variance)
}

// downsideDeviation divides by the TOTAL return count, not just the
// negative-return count — matching the Rust original exactly (a deliberate
// asymmetry from a textbook Sortino denominator).
func downsideDeviation(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	hasNegative := false
	variance := 0.0
	for _, r := range returns {
		if r < 0 {
			hasNegative = true
			variance += r * r
		}
	}
	if !hasNegative {
		return 0
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

func maxDrawdownOf(equityCurve []engine.EquityPoint) float64 {
	peak := equityCurve[0].Equity
	maxDD := 0.0
	for _, point := range equityCurve {
		if point.Equity > peak {
			peak = point.Equity
		}
		dd := (peak - point.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// valueAtRisk returns the floor-index percentile loss of the sorted
// returns, negated so VaR reads as a positive number for a losing tail.
func valueAtRisk(returns []float64, confidence float64) float64 {
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	index := int(confidence * float64(len(sorted)))
	if index > len(sorted)-1 {
		index = len(sorted) - 1
	}
	return -sorted[index]
}

// TradeStatsOf summarises the closed-trade log itself, supplementing
// PerformanceMetrics (which is equity-curve-derived) with trade-level
// aggregates spec §4.8's closing paragraph calls for.
func TradeStatsOf(trades []engine.TradeRecord) engine.TradeStats {
	stats := engine.TradeStats{ExitReasonHistogram: make(map[engine.ExitType]int)}
	if len(trades) == 0 {
		return stats
	}

	var winSum, loseSum, daysSum float64
	var winCount, loseCount int
	var consecLosses, maxConsecLosses int

	for _, tr := range trades {
		stats.ExitReasonHistogram[tr.ExitType]++
		daysSum += float64(tr.DaysHeld)

		if tr.PnL > 0 {
			winSum += tr.PnL
			winCount++
			consecLosses = 0
		} else if tr.PnL < 0 {
			loseSum += tr.PnL
			loseCount++
			consecLosses++
			if consecLosses > maxConsecLosses {
				maxConsecLosses = consecLosses
			}
		} else {
			consecLosses = 0
		}
	}

	if winCount > 0 {
		stats.AvgWinner = winSum / float64(winCount)
	}
	if loseCount > 0 {
		stats.AvgLoser = loseSum / float64(loseCount)
	}
	stats.AvgDaysHeld = daysSum / float64(len(trades))
	stats.MaxConsecutiveLosses = maxConsecLosses

	winRate := float64(winCount) / float64(len(trades))
	stats.Expectancy = winRate*stats.AvgWinner - (1-winRate)*math.Abs(stats.AvgLoser)

	return stats
}
