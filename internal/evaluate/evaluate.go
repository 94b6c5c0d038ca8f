// Package evaluate implements Evaluate mode (spec §4.9): instead of
// simulating day-by-day, every entry candidate is paired with a single
// synthetic exit row and the resulting trades are binned by (dte, |delta|)
// into summary statistics. Grounded on spec.md §4.9's pairing rule; the
// per-bucket percentile math follows the teacher's own stdlib-math style
// already established in internal/metrics.
package evaluate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/contactkeval/option-replay/internal/candidates"
	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/metrics"
	"github.com/contactkeval/option-replay/internal/pricing"
)

// legKey addresses one option contract across its full quote history.
type legKey struct {
	Expiration time.Time
	Strike     float64
	OptionType engine.OptionType
}

// dateSnap is one dated quote of a legKey's history.
type dateSnap struct {
	date time.Time
	bid  float64
	ask  float64
}

// buildLegIndex groups one leg's quotes by contract, sorted ascending by
// quote date so the exit search can binary-search the target date.
func buildLegIndex(quotes []engine.Quote) map[legKey][]dateSnap {
	idx := make(map[legKey][]dateSnap)
	for _, q := range quotes {
		k := legKey{Expiration: q.Expiration.UTC().Truncate(24 * time.Hour), Strike: q.Strike, OptionType: q.OptionType}
		idx[k] = append(idx[k], dateSnap{date: q.QuoteDatetime.UTC().Truncate(24 * time.Hour), bid: q.Bid, ask: q.Ask})
	}
	for k := range idx {
		sort.Slice(idx[k], func(i, j int) bool { return idx[k][i].date.Before(idx[k][j].date) })
	}
	return idx
}

// findExit returns the quote strictly after entryDate whose date is closest
// to target, per spec §4.9's synthetic-exit pairing rule.
func findExit(history []dateSnap, entryDate, target time.Time) (dateSnap, bool) {
	var best dateSnap
	found := false
	bestDelta := time.Duration(math.MaxInt64)
	for _, s := range history {
		if !s.date.After(entryDate) {
			continue
		}
		delta := s.date.Sub(target)
		if delta < 0 {
			delta = -delta
		}
		if !found || delta < bestDelta {
			best = s
			bestDelta = delta
			found = true
		}
	}
	return best, found
}

// pairedTrade is one candidate paired with its synthetic exit.
type pairedTrade struct {
	pnl    float64
	dte    int64
	delta0 float64
}

// pairTrades pairs every entry candidate across all days with its synthetic
// exit and returns the surviving (fully-filled) trades.
func pairTrades(candidatesByDay map[time.Time][]engine.EntryCandidate, legIndexes []map[legKey][]dateSnap, def engine.StrategyDef, params engine.EvaluateParams) []pairedTrade {
	var out []pairedTrade

	for _, dayCands := range candidatesByDay {
		for _, cand := range dayCands {
			pnl := 0.0
			complete := true

			for i, candLeg := range cand.Legs {
				legDef := def.Legs[i]
				target := candLeg.Expiration.Add(-time.Duration(params.ExitDTE) * 24 * time.Hour)
				exit, ok := findExit(legIndexes[i][legKey{Expiration: candLeg.Expiration, Strike: candLeg.Strike, OptionType: candLeg.OptionType}], cand.EntryDate, target)
				if !ok {
					complete = false
					break
				}

				entryPrice := pricing.FillPrice(candLeg.Bid, candLeg.Ask, legDef.Side, params.Slippage)
				exitPrice := pricing.FillPrice(exit.bid, exit.ask, pricing.Invert(legDef.Side), params.Slippage)
				contracts := legDef.Qty * params.Quantity
				pnl += (exitPrice - entryPrice) * legDef.Side.Multiplier() * float64(contracts) * float64(params.Multiplier)
			}
			if !complete {
				continue
			}

			if params.Commission != nil {
				totalContracts := 0
				for _, legDef := range def.Legs {
					qty := legDef.Qty * params.Quantity
					if qty < 0 {
						qty = -qty
					}
					totalContracts += qty
				}
				pnl -= params.Commission.Calculate(totalContracts) * 2
			}

			dte := int64(cand.Expiration.Sub(cand.EntryDate).Hours() / 24)
			delta0 := math.Abs(cand.Legs[0].Delta)
			out = append(out, pairedTrade{pnl: pnl, dte: dte, delta0: delta0})
		}
	}
	return out
}

// bucketKey addresses one (dte, |delta|) bucket.
type bucketKey struct {
	dteFloor   int64
	deltaFloor float64
}

// Run executes Evaluate mode end to end: candidate building, synthetic-exit
// pairing, and bucket aggregation.
func Run(quotesByLeg [][]engine.Quote, def engine.StrategyDef, params engine.EvaluateParams) ([]engine.GroupStats, error) {
	if params.DTEInterval <= 0 {
		return nil, fmt.Errorf("evaluate: dte_interval must be positive")
	}
	if params.DeltaInterval <= 0 {
		return nil, fmt.Errorf("evaluate: delta_interval must be positive")
	}

	candidatesByDay, err := candidates.Build(quotesByLeg, def, params.BacktestParams)
	if err != nil {
		return nil, err
	}

	legIndexes := make([]map[legKey][]dateSnap, len(quotesByLeg))
	for i, qs := range quotesByLeg {
		legIndexes[i] = buildLegIndex(qs)
	}

	trades := pairTrades(candidatesByDay, legIndexes, def, params)

	buckets := make(map[bucketKey][]float64)
	var keys []bucketKey
	for _, tr := range trades {
		dteFloor := (tr.dte / int64(params.DTEInterval)) * int64(params.DTEInterval)
		deltaFloor := math.Floor(tr.delta0/params.DeltaInterval) * params.DeltaInterval
		k := bucketKey{dteFloor: dteFloor, deltaFloor: deltaFloor}
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], tr.pnl)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].dteFloor != keys[j].dteFloor {
			return keys[i].dteFloor < keys[j].dteFloor
		}
		return keys[i].deltaFloor < keys[j].deltaFloor
	})

	out := make([]engine.GroupStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, statsOf(buckets[k], k, params))
	}
	return out, nil
}

func statsOf(pnls []float64, k bucketKey, params engine.EvaluateParams) engine.GroupStats {
	sorted := append([]float64(nil), pnls...)
	sort.Float64s(sorted)

	n := len(sorted)
	mean := 0.0
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)

	wins, totalGains, totalLosses := 0, 0.0, 0.0
	for _, v := range sorted {
		if v > 0 {
			wins++
			totalGains += v
		} else if v < 0 {
			totalLosses += -v
		}
	}
	profitFactor := 0.0
	switch {
	case totalLosses > 0:
		profitFactor = totalGains / totalLosses
	case totalGains > 0:
		profitFactor = math.Inf(1)
	}

	return engine.GroupStats{
		DTEBucketLabel:   fmt.Sprintf("(%d, %d]", k.dteFloor, k.dteFloor+int64(params.DTEInterval)),
		DeltaBucketLabel: fmt.Sprintf("(%.2f, %.2f]", k.deltaFloor, k.deltaFloor+params.DeltaInterval),
		Count:            n,
		Mean:             mean,
		Stdev:            metrics.SampleStdDev(sorted),
		Min:              sorted[0],
		P25:              percentile(sorted, 0.25),
		Median:           percentile(sorted, 0.5),
		P75:              percentile(sorted, 0.75),
		Max:              sorted[n-1],
		WinRate:          float64(wins) / float64(n),
		ProfitFactor:     profitFactor,
	}
}

// percentile applies linear interpolation between closest ranks over an
// ascending-sorted slice.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
