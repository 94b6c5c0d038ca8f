// Package simulator runs the day-by-day event loop of spec §4.5/§4.6,
// ported from original_source/src/engine/event_sim.rs::run_event_loop and
// its helpers, trading the original's Polars PriceTable for a plain Go
// map keyed the same way the teacher keys its own in-memory lookups.
package simulator

import (
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/pricing"
)

// Snapshot is one quote's {bid, ask, delta} at a given key.
type Snapshot struct {
	Bid   float64
	Ask   float64
	Delta float64
}

// PriceKey addresses one row of the price-lookup table.
type PriceKey struct {
	QuoteDate  time.Time
	Expiration time.Time
	Strike     float64
	OptionType engine.OptionType
}

// carryKey addresses the carry-forward cache: same as PriceKey minus the
// quote date, since the cache holds only the most recent observation.
type carryKey struct {
	Expiration time.Time
	Strike     float64
	OptionType engine.OptionType
}

// PriceTable is the full quotes table, keyed for O(1) lookup by the
// simulator.
type PriceTable map[PriceKey]Snapshot

// BuildPriceTable indexes a flat quote slice by (quote_date, expiration,
// strike, option_type).
func BuildPriceTable(quotes []engine.Quote) PriceTable {
	table := make(PriceTable, len(quotes))
	for _, q := range quotes {
		table[PriceKey{
			QuoteDate:  q.QuoteDatetime.UTC().Truncate(24 * time.Hour),
			Expiration: q.Expiration.UTC().Truncate(24 * time.Hour),
			Strike:     q.Strike,
			OptionType: q.OptionType,
		}] = Snapshot{Bid: q.Bid, Ask: q.Ask, Delta: q.Delta}
	}
	return table
}

// RunEventLoop drives the simulation across trading_days and returns the
// closed-trade log and the daily equity curve, in that order.
//
// activeExitSignalDates is the set of dates on which params.ExitSignal
// evaluated true against the OHLCV series (internal/signals); it may be nil
// when no exit signal is configured. activeEntrySignalDates is the
// equivalent gate on params.EntrySignal: when non-nil, the entry phase only
// opens a position on a date present (and true) in the set.
func RunEventLoop(
	priceTable PriceTable,
	candidatesByDay map[time.Time][]engine.EntryCandidate,
	tradingDays []time.Time,
	params engine.BacktestParams,
	def engine.StrategyDef,
	activeExitSignalDates map[time.Time]bool,
	activeEntrySignalDates map[time.Time]bool,
) ([]engine.TradeRecord, []engine.EquityPoint) {
	var positions []*engine.Position
	var tradeLog []engine.TradeRecord
	var equityCurve []engine.EquityPoint

	realizedEquity := params.Capital
	nextID := 1
	tradeID := 0

	carry := make(map[carryKey]Snapshot)

	commission := engine.Commission{}
	if params.Commission != nil {
		commission = *params.Commission
	}

	for _, today := range tradingDays {
		// Phase 1: exits.
		remaining := positions[:0]
		for _, p := range positions {
			if !p.Status.Open {
				continue
			}
			exitType, fires := checkExitTriggers(p, today, priceTable, carry, params, activeExitSignalDates)
			if fires {
				pnl := closePosition(p, today, priceTable, carry, params.Slippage, commission, exitType)
				realizedEquity += pnl

				tradeID++
				tradeLog = append(tradeLog, engine.TradeRecord{
					TradeID:       tradeID,
					EntryDatetime: p.EntryDate,
					ExitDatetime:  today,
					EntryCost:     p.EntryCost,
					ExitProceeds:  p.EntryCost + pnl,
					PnL:           pnl,
					DaysHeld:      daysBetween(p.EntryDate, today),
					ExitType:      exitType,
				})
				continue
			}
			remaining = append(remaining, p)
		}
		positions = remaining

		// Phase 2: entry.
		entryGated := activeEntrySignalDates != nil && !activeEntrySignalDates[today]
		if len(positions) < params.MaxPositions && !entryGated {
			if dayCandidates, ok := candidatesByDay[today]; ok {
				available := excludeHeldExpirations(dayCandidates, positions)
				if cand := selectCandidate(available, params.Selector); cand != nil {
					pos := openPosition(cand, today, def, params, nextID)
					nextID++
					positions = append(positions, pos)
				}
			}
		}

		// Phase 3: carry-forward update.
		updateCarryForward(priceTable, today, carry)

		// Phase 4: mark-to-market.
		unrealized := 0.0
		for _, p := range positions {
			if p.Status.Open {
				unrealized += markToMarket(p, today, priceTable, carry, params.Slippage, params.Multiplier)
			}
		}
		equityCurve = append(equityCurve, engine.EquityPoint{Datetime: today, Equity: realizedEquity + unrealized})
	}

	return tradeLog, equityCurve
}

func daysBetween(a, b time.Time) int64 {
	return int64(b.Sub(a).Hours() / 24)
}

func excludeHeldExpirations(dayCandidates []engine.EntryCandidate, positions []*engine.Position) []engine.EntryCandidate {
	held := make(map[int64]bool, len(positions))
	for _, p := range positions {
		if p.Status.Open {
			held[p.Expiration.Unix()] = true
		}
	}
	out := make([]engine.EntryCandidate, 0, len(dayCandidates))
	for _, c := range dayCandidates {
		if !held[c.Expiration.Unix()] {
			out = append(out, c)
		}
	}
	return out
}

// checkExitTriggers evaluates the §4.6 priority table: Expiration →
// DteExit → MaxHold → Signal → StopLoss → TakeProfit. The Signal check is
// a supplement over the grounding source, which omits it in its current
// revision; it is kept here because spec §4.6 lists it explicitly.
func checkExitTriggers(
	p *engine.Position,
	today time.Time,
	priceTable PriceTable,
	carry map[carryKey]Snapshot,
	params engine.BacktestParams,
	activeExitSignalDates map[time.Time]bool,
) (engine.ExitType, bool) {
	if !today.Before(p.Expiration) {
		return engine.ExitExpiration, true
	}

	dte := daysBetween(today, p.Expiration)
	if dte <= int64(params.ExitDTE) {
		return engine.ExitDteExit, true
	}

	if params.MaxHoldDays != nil {
		heldDays := daysBetween(p.EntryDate, today)
		if heldDays >= int64(*params.MaxHoldDays) {
			return engine.ExitMaxHold, true
		}
	}

	if activeExitSignalDates != nil && activeExitSignalDates[today] {
		return engine.ExitSignal, true
	}

	mtm := markToMarket(p, today, priceTable, carry, params.Slippage, params.Multiplier)

	if params.StopLoss != nil {
		if mtm < -abs(p.EntryCost)*(*params.StopLoss) {
			return engine.ExitStopLoss, true
		}
	}
	if params.TakeProfit != nil {
		if mtm > abs(p.EntryCost)*(*params.TakeProfit) {
			return engine.ExitTakeProfit, true
		}
	}

	return "", false
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// markToMarket sums unrealised P&L across a position's open legs, using
// today's quote or the carry-forward cache; a leg with neither contributes
// zero.
func markToMarket(p *engine.Position, today time.Time, priceTable PriceTable, carry map[carryKey]Snapshot, slippage engine.Slippage, multiplier int) float64 {
	mtm := 0.0
	for _, leg := range p.Legs {
		if leg.Closed {
			if leg.ClosePrice != nil {
				direction := leg.Side.Multiplier()
				mtm += (*leg.ClosePrice - leg.EntryPrice) * direction * float64(leg.Qty) * float64(multiplier)
			}
			continue
		}

		snap, ok := lookupSnapshot(priceTable, carry, today, leg.Expiration, leg.Strike, leg.OptionType)
		if !ok {
			continue
		}
		exitSide := pricing.Invert(leg.Side)
		currentPrice := pricing.FillPrice(snap.Bid, snap.Ask, exitSide, slippage)
		direction := leg.Side.Multiplier()
		mtm += (currentPrice - leg.EntryPrice) * direction * float64(leg.Qty) * float64(multiplier)
	}
	return mtm
}

func lookupSnapshot(priceTable PriceTable, carry map[carryKey]Snapshot, today, expiration time.Time, strike float64, ot engine.OptionType) (Snapshot, bool) {
	key := PriceKey{QuoteDate: today, Expiration: expiration, Strike: strike, OptionType: ot}
	if s, ok := priceTable[key]; ok {
		return s, true
	}
	s, ok := carry[carryKey{Expiration: expiration, Strike: strike, OptionType: ot}]
	return s, ok
}

// closePosition marks every open leg closed at today's (or carry-forward)
// price, charges round-trip commission, and returns realised P&L.
func closePosition(p *engine.Position, today time.Time, priceTable PriceTable, carry map[carryKey]Snapshot, slippage engine.Slippage, commission engine.Commission, exitType engine.ExitType) float64 {
	pnl := 0.0
	totalContracts := 0

	for i := range p.Legs {
		leg := &p.Legs[i]
		if leg.Closed {
			continue
		}

		exitSide := pricing.Invert(leg.Side)
		closePrice := 0.0
		if snap, ok := lookupSnapshot(priceTable, carry, today, leg.Expiration, leg.Strike, leg.OptionType); ok {
			closePrice = pricing.FillPrice(snap.Bid, snap.Ask, exitSide, slippage)
		}

		direction := leg.Side.Multiplier()
		pnl += (closePrice - leg.EntryPrice) * direction * float64(leg.Qty) * float64(p.Multiplier)

		qty := leg.Qty
		if qty < 0 {
			qty = -qty
		}
		totalContracts += qty

		leg.Closed = true
		cp := closePrice
		leg.ClosePrice = &cp
		cd := today
		leg.CloseDate = &cd
	}

	pnl -= commission.Calculate(totalContracts) * 2
	p.Status = engine.PositionStatus{Open: false, Exit: exitType}
	return pnl
}

// openPosition materialises a Position from a selected EntryCandidate.
func openPosition(cand *engine.EntryCandidate, today time.Time, def engine.StrategyDef, params engine.BacktestParams, id int) *engine.Position {
	legs := make([]engine.PositionLeg, len(cand.Legs))
	entryCost := 0.0

	for i, candLeg := range cand.Legs {
		legDef := def.Legs[i]
		entryPrice := pricing.FillPrice(candLeg.Bid, candLeg.Ask, legDef.Side, params.Slippage)
		contracts := legDef.Qty * params.Quantity
		entryCost += entryPrice * float64(contracts) * float64(params.Multiplier) * legDef.Side.Multiplier()

		legs[i] = engine.PositionLeg{
			LegIndex:   i,
			Side:       legDef.Side,
			OptionType: legDef.OptionType,
			Strike:     candLeg.Strike,
			Expiration: candLeg.Expiration,
			EntryPrice: entryPrice,
			Qty:        contracts,
		}
	}

	return &engine.Position{
		ID:         id,
		EntryDate:  today,
		Expiration: cand.Expiration,
		Legs:       legs,
		EntryCost:  entryCost,
		Quantity:   params.Quantity,
		Multiplier: params.Multiplier,
		Status:     engine.PositionStatus{Open: true},
	}
}

// selectCandidate applies the §4.7 TradeSelector to same-day candidates.
func selectCandidate(candidates []engine.EntryCandidate, selector engine.TradeSelector) *engine.EntryCandidate {
	if len(candidates) == 0 {
		return nil
	}
	switch selector {
	case engine.SelectHighestPremium:
		best := &candidates[0]
		for i := 1; i < len(candidates); i++ {
			if abs(candidates[i].NetPremium) > abs(best.NetPremium) {
				best = &candidates[i]
			}
		}
		return best
	case engine.SelectLowestPremium:
		best := &candidates[0]
		for i := 1; i < len(candidates); i++ {
			if abs(candidates[i].NetPremium) < abs(best.NetPremium) {
				best = &candidates[i]
			}
		}
		return best
	default: // SelectFirst, SelectNearest
		return &candidates[0]
	}
}

// updateCarryForward copies every quote dated today into the carry-forward
// cache, keyed without the date so later days can fall back to it.
func updateCarryForward(priceTable PriceTable, today time.Time, carry map[carryKey]Snapshot) {
	for key, snap := range priceTable {
		if key.QuoteDate.Equal(today) {
			carry[carryKey{Expiration: key.Expiration, Strike: key.Strike, OptionType: key.OptionType}] = snap
		}
	}
}
