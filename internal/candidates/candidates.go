// Package candidates builds the day-indexed entry-candidate table of
// spec §4.4: per-leg filtering, an inner join across legs keyed on
// (quote_datetime, expiration[, secondary expiration]), and the
// strike-order gate, grounded on original_source/src/engine/core.rs's
// candidate-building routine and generalized to the internal/filters
// and internal/rules packages built in this module.
package candidates

import (
	"fmt"
	"sort"
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/engineerr"
	"github.com/contactkeval/option-replay/internal/filters"
	"github.com/contactkeval/option-replay/internal/rules"
)

// cycleKey groups rows sharing an expiration-cycle within one trading day:
// all legs in the same cycle must share the same expiration.
type cycleKey struct {
	quoteDate  time.Time
	expiration time.Time
}

// candStrikesOf extracts the per-leg strike slice from a joined row for
// rules.FilterStrikeOrder.
func candStrikesOf(row []filters.Row) []float64 {
	out := make([]float64, len(row))
	for i, r := range row {
		out[i] = r.Strike
	}
	return out
}

// Build runs the §4.4 pipeline and returns a day-indexed candidate table.
func Build(quotesByLeg [][]engine.Quote, def engine.StrategyDef, params engine.BacktestParams) (map[time.Time][]engine.EntryCandidate, error) {
	if len(quotesByLeg) != len(def.Legs) {
		return nil, fmt.Errorf("candidates: got %d leg quote sets, want %d legs", len(quotesByLeg), len(def.Legs))
	}
	if len(def.Legs) != len(params.LegDeltas) {
		return nil, fmt.Errorf("candidates: got %d leg_deltas, want %d legs", len(params.LegDeltas), len(def.Legs))
	}

	minDTE := params.ExitDTE + 1

	legRows := make([][]filters.Row, len(def.Legs))
	for i, leg := range def.Legs {
		rows := filters.ComputeDTE(quotesByLeg[i])
		rows = filters.FilterOptionType(rows, leg.OptionType)
		rows = filters.FilterDTERange(rows, params.MaxEntryDTE, minDTE)
		rows = filters.FilterValidQuotes(rows)
		rows = filters.SelectClosestDelta(rows, params.LegDeltas[i])
		if len(rows) == 0 {
			return nil, engineerr.New(engineerr.NoCandidates,
				fmt.Sprintf("no entry candidates for leg %d of strategy %s", i, def.Name))
		}
		legRows[i] = rows
	}

	joined := innerJoin(legRows, def)
	joined = rules.FilterStrikeOrder(joined, candStrikesOf, len(def.Legs), def.StrictStrikeOrder, &def)

	out := make(map[time.Time][]engine.EntryCandidate)
	for _, row := range joined {
		cand := toEntryCandidate(row, def)
		day := cand.EntryDate
		out[day] = append(out[day], cand)
	}
	return out, nil
}

// expCombo is one within-cycle row combination, tagged with the expiration
// all its legs share. rows holds one row per leg index within the cycle.
type expCombo struct {
	expiration time.Time
	rows       []filters.Row
}

// innerJoin performs the leg join in two steps: (1) within each expiration
// cycle, legs sharing that cycle must share the same expiration on a given
// quote date — an ordinary inner join keyed on (quote_date, expiration);
// (2) across cycles, the resulting per-cycle row-groups are cross-joined on
// quote_date, constrained so the Secondary cycle's expiration strictly
// follows the Primary cycle's (the near/far ordering a calendar or
// diagonal spread requires). Each emitted row preserves the original leg
// order.
func innerJoin(legRows [][]filters.Row, def engine.StrategyDef) [][]filters.Row {
	cycles := []engine.ExpirationCycle{engine.Primary, engine.Secondary}

	// cycleGroups[c][quoteDate] -> list of leg-index-ordered row combos for
	// the legs belonging to cycle c.
	type cycleGroup struct {
		legIdx []int
		combos map[time.Time][]expCombo
	}
	groupsByCycle := make(map[engine.ExpirationCycle]*cycleGroup)

	for legIdx, leg := range def.Legs {
		g, ok := groupsByCycle[leg.ExpirationCycle]
		if !ok {
			g = &cycleGroup{combos: make(map[time.Time][]expCombo)}
			groupsByCycle[leg.ExpirationCycle] = g
		}
		g.legIdx = append(g.legIdx, legIdx)
	}

	for _, cycle := range cycles {
		g, ok := groupsByCycle[cycle]
		if !ok {
			continue
		}
		cycleLegRows := make([][]filters.Row, len(g.legIdx))
		for i, legIdx := range g.legIdx {
			cycleLegRows[i] = legRows[legIdx]
		}
		g.combos = joinWithinCycle(cycleLegRows)
	}

	var activeCycles []*cycleGroup
	for _, cycle := range cycles {
		if g, ok := groupsByCycle[cycle]; ok {
			activeCycles = append(activeCycles, g)
		}
	}

	var out [][]filters.Row
	if len(activeCycles) == 0 {
		return out
	}

	baseDates := activeCycles[0].combos
	for quoteDate, firstCombos := range baseDates {
		comboSets := [][]expCombo{firstCombos}
		ok := true
		for _, g := range activeCycles[1:] {
			combos, present := g.combos[quoteDate]
			if !present {
				ok = false
				break
			}
			comboSets = append(comboSets, combos)
		}
		if !ok {
			continue
		}

		for _, combo := range cartesianExpCombos(comboSets) {
			if len(combo) == 2 && !combo[1].expiration.After(combo[0].expiration) {
				// Secondary cycle must expire strictly after Primary.
				continue
			}
			row := make([]filters.Row, len(def.Legs))
			for ci, g := range activeCycles {
				for i, legIdx := range g.legIdx {
					row[legIdx] = combo[ci].rows[i]
				}
			}
			out = append(out, row)
		}
	}
	return out
}

// joinWithinCycle inner-joins the legs of a single expiration cycle, keyed
// on (quote_date, expiration): all legs in the cycle share one expiration.
// Returns, per quote date, the list of leg-ordered row combinations (within
// this cycle only), ordered deterministically by expiration so that
// candidate selection ties break on a stable, input-independent order
// rather than Go's randomised map iteration.
func joinWithinCycle(legRows [][]filters.Row) map[time.Time][]expCombo {
	type group struct {
		rowsPerLeg [][]filters.Row
	}
	groups := make(map[cycleKey]*group)
	keys := make([]cycleKey, 0)

	for legIdx, rows := range legRows {
		for _, r := range rows {
			k := cycleKey{quoteDate: r.QuoteDatetime.UTC(), expiration: r.Expiration.UTC()}
			g, ok := groups[k]
			if !ok {
				g = &group{rowsPerLeg: make([][]filters.Row, len(legRows))}
				groups[k] = g
				keys = append(keys, k)
			}
			g.rowsPerLeg[legIdx] = append(g.rowsPerLeg[legIdx], r)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].quoteDate.Equal(keys[j].quoteDate) {
			return keys[i].quoteDate.Before(keys[j].quoteDate)
		}
		return keys[i].expiration.Before(keys[j].expiration)
	})

	out := make(map[time.Time][]expCombo)
	for _, k := range keys {
		g := groups[k]
		complete := true
		for _, legSet := range g.rowsPerLeg {
			if len(legSet) == 0 {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for _, rows := range cartesian(g.rowsPerLeg) {
			out[k.quoteDate] = append(out[k.quoteDate], expCombo{expiration: k.expiration, rows: rows})
		}
	}
	return out
}

// cartesian expands the per-leg row sets for one join-key group into every
// combination, one []filters.Row per combination in leg order.
func cartesian(rowsPerLeg [][]filters.Row) [][]filters.Row {
	combos := [][]filters.Row{{}}
	for _, legSet := range rowsPerLeg {
		var next [][]filters.Row
		for _, combo := range combos {
			for _, r := range legSet {
				extended := append(append([]filters.Row(nil), combo...), r)
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

// cartesianExpCombos expands a list of per-cycle expCombo sets into every
// cross-cycle combination, preserving input order within each set.
func cartesianExpCombos(comboSets [][]expCombo) [][]expCombo {
	combos := [][]expCombo{{}}
	for _, set := range comboSets {
		var next [][]expCombo
		for _, combo := range combos {
			for _, c := range set {
				extended := append(append([]expCombo(nil), combo...), c)
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

func toEntryCandidate(row []filters.Row, def engine.StrategyDef) engine.EntryCandidate {
	legs := make([]engine.CandidateLeg, len(row))
	netPremium := 0.0
	primaryExp := row[0].Expiration
	for i, r := range row {
		legs[i] = engine.CandidateLeg{
			OptionType: r.OptionType,
			Strike:     r.Strike,
			Expiration: r.Expiration,
			Bid:        r.Bid,
			Ask:        r.Ask,
			Delta:      r.Delta,
		}
		mid := r.Bid/2 + r.Ask/2
		netPremium += def.Legs[i].Side.Multiplier() * mid * float64(def.Legs[i].Qty)
		if def.Legs[i].ExpirationCycle == engine.Primary {
			primaryExp = r.Expiration
		}
	}
	return engine.EntryCandidate{
		EntryDate:  row[0].QuoteDatetime,
		Expiration: primaryExp,
		Legs:       legs,
		NetPremium: netPremium,
	}
}
