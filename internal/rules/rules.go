// Package rules validates and filters multi-leg strike ordering, ported
// from original_source/src/engine/rules.rs.
package rules

import (
	"fmt"

	"github.com/contactkeval/option-replay/internal/engine"
)

// ValidateStrikeOrder returns an error if strikes are not strictly
// ascending.
func ValidateStrikeOrder(strikes []float64) error {
	for i := 1; i < len(strikes); i++ {
		if strikes[i] <= strikes[i-1] {
			return fmt.Errorf("strike ordering violated: strike[%d]=%v must be > strike[%d]=%v",
				i, strikes[i], i-1, strikes[i-1])
		}
	}
	return nil
}

// JoinedRow is one candidate row after the legs have been joined: one
// strike per leg index, in strategy leg order.
type JoinedRow struct {
	Strikes []float64
}

func ordered(strikes []float64, strict bool) bool {
	for i := 1; i < len(strikes); i++ {
		if strict {
			if !(strikes[i] > strikes[i-1]) {
				return false
			}
		} else if !(strikes[i] >= strikes[i-1]) {
			return false
		}
	}
	return true
}

// FilterStrikeOrder keeps rows whose leg strike sequence respects the
// ordering invariant of spec §3: strict or weak ascending order, applied
// within each expiration-cycle group independently for multi-expiration
// strategies.
func FilterStrikeOrder[T any](rows []T, strikesOf func(T) []float64, numLegs int, strict bool, strategyDef *engine.StrategyDef) []T {
	if numLegs <= 1 {
		return rows
	}

	if strategyDef != nil && strategyDef.IsMultiExpiration() {
		var primary, secondary []int
		for i, leg := range strategyDef.Legs {
			if leg.ExpirationCycle == engine.Secondary {
				secondary = append(secondary, i)
			} else {
				primary = append(primary, i)
			}
		}
		out := make([]T, 0, len(rows))
		for _, row := range rows {
			strikes := strikesOf(row)
			if cycleOrdered(strikes, primary, strict) && cycleOrdered(strikes, secondary, strict) {
				out = append(out, row)
			}
		}
		return out
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if ordered(strikesOf(row), strict) {
			out = append(out, row)
		}
	}
	return out
}

func cycleOrdered(strikes []float64, indices []int, strict bool) bool {
	for i := 1; i < len(indices); i++ {
		a, b := strikes[indices[i-1]], strikes[indices[i]]
		if strict {
			if !(b > a) {
				return false
			}
		} else if !(b >= a) {
			return false
		}
	}
	return true
}
