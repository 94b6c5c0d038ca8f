// Package strategy holds the static catalog of named multi-leg option
// strategies (spec §4.1), kept and generalized from the teacher's
// internal/backtest/strategy planner.
package strategy

import (
	"sync"

	"github.com/contactkeval/option-replay/internal/engine"
)

func leg(side engine.Side, ot engine.OptionType, qty int) engine.LegDef {
	return engine.LegDef{Side: side, OptionType: ot, Qty: qty, ExpirationCycle: engine.Primary}
}

func legCycle(side engine.Side, ot engine.OptionType, qty int, cycle engine.ExpirationCycle) engine.LegDef {
	return engine.LegDef{Side: side, OptionType: ot, Qty: qty, ExpirationCycle: cycle}
}

func def(name, category, desc string, strict bool, legs ...engine.LegDef) engine.StrategyDef {
	return engine.StrategyDef{Name: name, Category: category, Description: desc, Legs: legs, StrictStrikeOrder: strict}
}

var (
	once    sync.Once
	catalog []engine.StrategyDef
	byName  map[string]engine.StrategyDef
)

func build() {
	L, S, C, P := engine.Long, engine.Short, engine.Call, engine.Put

	catalog = []engine.StrategyDef{
		// Singles
		def("long_call", "singles", "Long a single call option", true, leg(L, C, 1)),
		def("short_call", "singles", "Short a single call option", true, leg(S, C, 1)),
		def("long_put", "singles", "Long a single put option", true, leg(L, P, 1)),
		def("short_put", "singles", "Short a single put option", true, leg(S, P, 1)),
		def("covered_call", "singles", "Short call against a notional long stock holding", true, leg(S, C, 1)),
		def("cash_secured_put", "singles", "Short put with cash reserved to take assignment", true, leg(S, P, 1)),
		def("protective_put", "singles", "Long put hedging a notional long stock holding", true, leg(L, P, 1)),

		// Verticals / straddles / strangles
		def("bull_call_spread", "verticals", "Long lower-strike call, short higher-strike call", true, leg(L, C, 1), leg(S, C, 1)),
		def("bear_call_spread", "verticals", "Short lower-strike call, long higher-strike call", true, leg(S, C, 1), leg(L, C, 1)),
		def("bull_put_spread", "verticals", "Short higher-strike put, long lower-strike put", true, leg(L, P, 1), leg(S, P, 1)),
		def("bear_put_spread", "verticals", "Long higher-strike put, short lower-strike put", true, leg(S, P, 1), leg(L, P, 1)),
		def("long_straddle", "straddles", "Long call and long put at the same strike", false, leg(L, C, 1), leg(L, P, 1)),
		def("short_straddle", "straddles", "Short call and short put at the same strike", false, leg(S, C, 1), leg(S, P, 1)),
		def("long_strangle", "strangles", "Long out-of-the-money call and put at different strikes", true, leg(L, P, 1), leg(L, C, 1)),
		def("short_strangle", "strangles", "Short out-of-the-money call and put at different strikes", true, leg(S, P, 1), leg(S, C, 1)),

		// Butterflies (middle leg qty=2)
		def("long_call_butterfly", "butterflies", "Long wings, short double middle, all calls", true, leg(L, C, 1), leg(S, C, 2), leg(L, C, 1)),
		def("short_call_butterfly", "butterflies", "Short wings, long double middle, all calls", true, leg(S, C, 1), leg(L, C, 2), leg(S, C, 1)),
		def("long_put_butterfly", "butterflies", "Long wings, short double middle, all puts", true, leg(L, P, 1), leg(S, P, 2), leg(L, P, 1)),
		def("short_put_butterfly", "butterflies", "Short wings, long double middle, all puts", true, leg(S, P, 1), leg(L, P, 2), leg(S, P, 1)),

		// Condors
		def("long_call_condor", "condors", "Four ascending-strike calls, long wings, short middle pair", true, leg(L, C, 1), leg(S, C, 1), leg(S, C, 1), leg(L, C, 1)),
		def("short_call_condor", "condors", "Four ascending-strike calls, short wings, long middle pair", true, leg(S, C, 1), leg(L, C, 1), leg(L, C, 1), leg(S, C, 1)),
		def("long_put_condor", "condors", "Four ascending-strike puts, long wings, short middle pair", true, leg(L, P, 1), leg(S, P, 1), leg(S, P, 1), leg(L, P, 1)),
		def("short_put_condor", "condors", "Four ascending-strike puts, short wings, long middle pair", true, leg(S, P, 1), leg(L, P, 1), leg(L, P, 1), leg(S, P, 1)),

		// Iron strategies (relaxed ordering where wings share a strike with the body)
		def("iron_condor", "iron", "Short put spread plus short call spread", true, leg(L, P, 1), leg(S, P, 1), leg(S, C, 1), leg(L, C, 1)),
		def("iron_butterfly", "iron", "Short straddle at the body, long wings for protection", false, leg(L, P, 1), leg(S, P, 1), leg(S, C, 1), leg(L, C, 1)),
		def("reverse_iron_condor", "iron", "Long put spread plus long call spread", true, leg(S, P, 1), leg(L, P, 1), leg(L, C, 1), leg(S, C, 1)),
		def("reverse_iron_butterfly", "iron", "Long straddle at the body, short wings", false, leg(S, P, 1), leg(L, P, 1), leg(L, C, 1), leg(S, C, 1)),

		// Calendar / diagonal (mixed cycle)
		def("call_calendar_spread", "calendar", "Short near-term call, long far-term call at the same strike", true,
			legCycle(S, C, 1, engine.Primary), legCycle(L, C, 1, engine.Secondary)),
		def("put_calendar_spread", "calendar", "Short near-term put, long far-term put at the same strike", true,
			legCycle(S, P, 1, engine.Primary), legCycle(L, P, 1, engine.Secondary)),
		def("call_diagonal_spread", "calendar", "Short near-term call, long far-term call at a different strike", true,
			legCycle(S, C, 1, engine.Primary), legCycle(L, C, 1, engine.Secondary)),
		def("put_diagonal_spread", "calendar", "Short near-term put, long far-term put at a different strike", true,
			legCycle(S, P, 1, engine.Primary), legCycle(L, P, 1, engine.Secondary)),
		def("double_calendar", "calendar", "Call calendar and put calendar combined around the same body", true,
			legCycle(S, C, 1, engine.Primary), legCycle(L, C, 1, engine.Secondary),
			legCycle(S, P, 1, engine.Primary), legCycle(L, P, 1, engine.Secondary)),
		def("double_diagonal", "calendar", "Call diagonal and put diagonal combined", true,
			legCycle(S, C, 1, engine.Primary), legCycle(L, C, 1, engine.Secondary),
			legCycle(S, P, 1, engine.Primary), legCycle(L, P, 1, engine.Secondary)),
		def("collar", "calendar", "Long put hedge against a notional long stock holding, financed by a short call", true,
			leg(L, P, 1), leg(S, C, 1)),
	}

	byName = make(map[string]engine.StrategyDef, len(catalog))
	for _, s := range catalog {
		byName[s.Name] = s
	}
}

func ensureBuilt() {
	once.Do(build)
}

// FindByName looks up a strategy by its canonical name.
func FindByName(name string) (engine.StrategyDef, bool) {
	ensureBuilt()
	s, ok := byName[name]
	return s, ok
}

// All returns every catalogued strategy, in declaration order.
func All() []engine.StrategyDef {
	ensureBuilt()
	out := make([]engine.StrategyDef, len(catalog))
	copy(out, catalog)
	return out
}

// Info projects a StrategyDef into its public StrategyInfo summary.
func Info(s engine.StrategyDef) engine.StrategyInfo {
	return engine.StrategyInfo{
		Name:              s.Name,
		Category:          s.Category,
		Description:       s.Description,
		LegCount:          len(s.Legs),
		StrictStrikeOrder: s.StrictStrikeOrder,
		MultiExpiration:   s.IsMultiExpiration(),
	}
}

// ListInfo returns the StrategyInfo projection of every catalogued
// strategy; this is the body of the core's ListStrategies() operation.
func ListInfo() []engine.StrategyInfo {
	all := All()
	out := make([]engine.StrategyInfo, len(all))
	for i, s := range all {
		out[i] = Info(s)
	}
	return out
}
