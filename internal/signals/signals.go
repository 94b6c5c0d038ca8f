// Package signals evaluates the technical-signal adapter of spec §4.10: a
// tagged union of leaf predicates over an OHLCV bar series, closed under
// binary And/Or combinators, reduced to the set of dates where the signal
// fires. Indicator math is hand-rolled arithmetic, per spec §4.10's own
// statement that indicator semantics are "delegated to an external library
// and are not part of this core's contracts" — no TA-indicator dependency
// appears in the teacher's or pack's go.mod, so any reasonably faithful
// implementation satisfies the contract.
package signals

import (
	"fmt"
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
)

// Evaluate reduces a SignalSpec against a bar series to a parallel boolean
// vector, one entry per bar.
func Evaluate(spec *engine.SignalSpec, bars []engine.Bar) ([]bool, error) {
	if spec == nil {
		return make([]bool, len(bars)), nil
	}

	switch spec.Type {
	case engine.SignalAnd:
		return combine(spec, bars, func(a, b bool) bool { return a && b })
	case engine.SignalOr:
		return combine(spec, bars, func(a, b bool) bool { return a || b })
	case engine.SignalRSIOversold:
		return rsiThreshold(bars, spec.Period, spec.Threshold, true)
	case engine.SignalRSIOverbought:
		return rsiThreshold(bars, spec.Period, spec.Threshold, false)
	case engine.SignalSMACross:
		return smaCross(bars, spec.FastN, spec.SlowN)
	case engine.SignalGapUp:
		return gap(bars, spec.Threshold, true)
	case engine.SignalGapDown:
		return gap(bars, spec.Threshold, false)
	case engine.SignalConsecutiveUp:
		return consecutive(bars, spec.Period, true)
	case engine.SignalConsecDown:
		return consecutive(bars, spec.Period, false)
	case engine.SignalVolumeSpike:
		return volumeSpike(bars, spec.Period, spec.Threshold)
	default:
		return nil, fmt.Errorf("signals: unknown predicate %q", spec.Type)
	}
}

// ActiveDates flattens a bar series and its evaluated vector into the set
// of dates where the signal is true, keyed the way internal/simulator
// indexes its trading days — the form it consumes as an exit/entry filter.
func ActiveDates(spec *engine.SignalSpec, bars []engine.Bar) (map[time.Time]bool, error) {
	fired, err := Evaluate(spec, bars)
	if err != nil {
		return nil, err
	}
	out := make(map[time.Time]bool)
	for i, b := range bars {
		if fired[i] {
			out[b.Date.Time] = true
		}
	}
	return out, nil
}

func combine(spec *engine.SignalSpec, bars []engine.Bar, op func(a, b bool) bool) ([]bool, error) {
	if spec.Left == nil || spec.Right == nil {
		return nil, fmt.Errorf("signals: %s requires both left and right children", spec.Type)
	}
	left, err := Evaluate(spec.Left, bars)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(spec.Right, bars)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(bars))
	for i := range bars {
		out[i] = op(left[i], right[i])
	}
	return out, nil
}

// rsi computes the classic Wilder RSI over a closing-price series using a
// simple (non-exponential) average of gains/losses across period bars.
func rsi(bars []engine.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	if period <= 0 {
		return out
	}
	for i := range bars {
		if i < period {
			continue
		}
		gains, losses := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			change := bars[j].Close - bars[j-1].Close
			if change > 0 {
				gains += change
			} else {
				losses += -change
			}
		}
		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

func rsiThreshold(bars []engine.Bar, period int, threshold float64, oversold bool) ([]bool, error) {
	if period <= 0 {
		return nil, fmt.Errorf("signals: rsi period must be positive")
	}
	values := rsi(bars, period)
	out := make([]bool, len(bars))
	for i, v := range values {
		if i < period {
			continue
		}
		if oversold {
			out[i] = v <= threshold
		} else {
			out[i] = v >= threshold
		}
	}
	return out, nil
}

func sma(bars []engine.Bar, n int) []float64 {
	out := make([]float64, len(bars))
	if n <= 0 {
		return out
	}
	for i := range bars {
		if i+1 < n {
			continue
		}
		sum := 0.0
		for j := i - n + 1; j <= i; j++ {
			sum += bars[j].Close
		}
		out[i] = sum / float64(n)
	}
	return out
}

// smaCross fires on the bar where the fast SMA crosses above the slow SMA.
func smaCross(bars []engine.Bar, fastN, slowN int) ([]bool, error) {
	if fastN <= 0 || slowN <= 0 {
		return nil, fmt.Errorf("signals: sma_cross requires positive fast_n and slow_n")
	}
	fast := sma(bars, fastN)
	slow := sma(bars, slowN)
	warmup := fastN
	if slowN > warmup {
		warmup = slowN
	}
	out := make([]bool, len(bars))
	for i := range bars {
		if i < warmup || i == 0 {
			continue
		}
		crossedUp := fast[i-1] <= slow[i-1] && fast[i] > slow[i]
		out[i] = crossedUp
	}
	return out, nil
}

func gap(bars []engine.Bar, threshold float64, up bool) ([]bool, error) {
	out := make([]bool, len(bars))
	for i := range bars {
		if i == 0 {
			continue
		}
		prevClose := bars[i-1].Close
		if prevClose == 0 {
			continue
		}
		pctGap := (bars[i].Open - prevClose) / prevClose
		if up {
			out[i] = pctGap >= threshold
		} else {
			out[i] = pctGap <= -threshold
		}
	}
	return out, nil
}

func consecutive(bars []engine.Bar, period int, up bool) ([]bool, error) {
	if period <= 0 {
		return nil, fmt.Errorf("signals: consecutive run length must be positive")
	}
	out := make([]bool, len(bars))
	for i := range bars {
		if i+1 < period+1 {
			continue
		}
		streak := true
		for j := i - period + 1; j <= i; j++ {
			change := bars[j].Close - bars[j-1].Close
			if up && change <= 0 {
				streak = false
				break
			}
			if !up && change >= 0 {
				streak = false
				break
			}
		}
		out[i] = streak
	}
	return out, nil
}

func volumeSpike(bars []engine.Bar, period int, threshold float64) ([]bool, error) {
	if period <= 0 {
		return nil, fmt.Errorf("signals: volume_spike period must be positive")
	}
	out := make([]bool, len(bars))
	for i := range bars {
		if i < period {
			continue
		}
		sum := int64(0)
		for j := i - period; j < i; j++ {
			sum += bars[j].Volume
		}
		avg := float64(sum) / float64(period)
		if avg == 0 {
			continue
		}
		out[i] = float64(bars[i].Volume)/avg >= threshold
	}
	return out, nil
}
