// Package backtest wires the core's pure components — strategy catalog,
// candidate builder, event simulator, metrics, bucket aggregator, and
// signal adapter — into the four functions spec clients call: ListStrategies,
// RunBacktest, EvaluateStrategy, CompareStrategies. Descended from the
// teacher's root Engine.Run orchestration line (config load → provider
// fetch → schedule → simulate → report), generalized from its string-keyed
// Config onto the typed BacktestParams/EvaluateParams/CompareParams model.
package backtest

import (
	"sort"
	"time"

	"github.com/contactkeval/option-replay/internal/candidates"
	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/engineerr"
	"github.com/contactkeval/option-replay/internal/evaluate"
	"github.com/contactkeval/option-replay/internal/logger"
	"github.com/contactkeval/option-replay/internal/metrics"
	"github.com/contactkeval/option-replay/internal/params"
	"github.com/contactkeval/option-replay/internal/signals"
	"github.com/contactkeval/option-replay/internal/simulator"
	"github.com/contactkeval/option-replay/internal/strategy"
)

// ListStrategies projects the static catalog into the wire-level summary
// clients browse before choosing a strategy name.
func ListStrategies() []engine.StrategyInfo {
	return strategy.ListInfo()
}

// quotesByLeg splits the full quote table into one slice per leg, selecting
// rows matching that leg's option type. The same backing rows are shared
// across legs of the same option type; downstream filtering (DTE, delta,
// join) happens inside internal/candidates.
func quotesByLeg(table []engine.Quote, def engine.StrategyDef) [][]engine.Quote {
	out := make([][]engine.Quote, len(def.Legs))
	for i, leg := range def.Legs {
		for _, q := range table {
			if q.OptionType == leg.OptionType {
				out[i] = append(out[i], q)
			}
		}
	}
	return out
}

// tradingDaysOf returns the sorted, de-duplicated set of quote dates in the
// table — spec §3's "trading day" axis.
func tradingDaysOf(table []engine.Quote) []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, q := range table {
		d := q.QuoteDatetime.UTC().Truncate(24 * time.Hour)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// resolveSignalDates evaluates an optional SignalSpec against the OHLCV
// series loaded by the caller; a nil spec yields a nil (unfiltered) gate.
func resolveSignalDates(spec *engine.SignalSpec, bars []engine.Bar) (map[time.Time]bool, error) {
	if spec == nil {
		return nil, nil
	}
	return signals.ActiveDates(spec, bars)
}

// RunBacktest simulates a strategy day-by-day against the full quote table
// and returns its trade log, equity curve, and derived metrics.
func RunBacktest(table []engine.Quote, bars []engine.Bar, p engine.BacktestParams) (engine.BacktestResult, error) {
	def, ok := strategy.FindByName(p.Strategy)
	if !ok {
		return engine.BacktestResult{}, engineerr.New(engineerr.UnknownStrategy, "unknown strategy "+p.Strategy)
	}
	if err := params.ValidateBacktestParams(&p, len(def.Legs)); err != nil {
		return engine.BacktestResult{}, err
	}

	legQuotes := quotesByLeg(table, def)
	candidatesByDay, err := candidates.Build(legQuotes, def, p)
	if err != nil {
		return engine.BacktestResult{}, err
	}

	exitDates, err := resolveSignalDates(p.ExitSignal, bars)
	if err != nil {
		return engine.BacktestResult{}, engineerr.Wrap(engineerr.DataUnavailable, "exit signal evaluation failed", err)
	}
	entryDates, err := resolveSignalDates(p.EntrySignal, bars)
	if err != nil {
		return engine.BacktestResult{}, engineerr.Wrap(engineerr.DataUnavailable, "entry signal evaluation failed", err)
	}

	priceTable := simulator.BuildPriceTable(table)
	tradingDays := tradingDaysOf(table)

	logger.Infof("running backtest strategy=%s days=%d", p.Strategy, len(tradingDays))
	trades, equityCurve := simulator.RunEventLoop(priceTable, candidatesByDay, tradingDays, p, def, exitDates, entryDates)

	result := engine.BacktestResult{
		Strategy:    p.Strategy,
		Trades:      trades,
		EquityCurve: equityCurve,
		Metrics:     metrics.Calculate(equityCurve, p.Capital),
		TradeStats:  metrics.TradeStatsOf(trades),
	}
	logger.Infof("backtest complete strategy=%s trades=%d sharpe=%.3f", p.Strategy, len(trades), result.Metrics.Sharpe)
	return result, nil
}

// EvaluateStrategy runs Evaluate mode: entry/synthetic-exit pairing binned
// into DTE/delta bucket statistics, without a day-by-day simulation.
func EvaluateStrategy(table []engine.Quote, p engine.EvaluateParams) ([]engine.GroupStats, error) {
	def, ok := strategy.FindByName(p.Strategy)
	if !ok {
		return nil, engineerr.New(engineerr.UnknownStrategy, "unknown strategy "+p.Strategy)
	}
	if err := params.ValidateEvaluateParams(&p, len(def.Legs)); err != nil {
		return nil, err
	}

	legQuotes := quotesByLeg(table, def)
	logger.Infof("evaluating strategy=%s dte_interval=%d delta_interval=%.2f", p.Strategy, p.DTEInterval, p.DeltaInterval)
	return evaluate.Run(legQuotes, def, p)
}

// CompareStrategies runs RunBacktest once per CompareEntry, sharing one
// backtest-shaped parameter set across strategy/delta-targeting
// combinations.
func CompareStrategies(table []engine.Quote, bars []engine.Bar, p engine.CompareParams) ([]engine.CompareResult, error) {
	legCounts := make(map[string]int, len(p.Entries))
	for _, e := range p.Entries {
		def, ok := strategy.FindByName(e.StrategyName)
		if !ok {
			return nil, engineerr.New(engineerr.UnknownStrategy, "unknown strategy "+e.StrategyName)
		}
		legCounts[e.StrategyName] = len(def.Legs)
	}
	if err := params.ValidateCompareParams(&p, legCounts); err != nil {
		return nil, err
	}

	out := make([]engine.CompareResult, 0, len(p.Entries))
	for _, e := range p.Entries {
		backtestParams := engine.BacktestParams{
			Strategy:     e.StrategyName,
			LegDeltas:    e.LegDeltas,
			MaxEntryDTE:  p.MaxEntryDTE,
			ExitDTE:      p.ExitDTE,
			Slippage:     p.Slippage,
			Commission:   p.Commission,
			StopLoss:     p.StopLoss,
			TakeProfit:   p.TakeProfit,
			MaxHoldDays:  p.MaxHoldDays,
			Capital:      p.Capital,
			Quantity:     p.Quantity,
			Multiplier:   p.Multiplier,
			MaxPositions: p.MaxPositions,
			Selector:     p.Selector,
		}
		res, err := RunBacktest(table, nil, backtestParams)
		if err != nil {
			return nil, err
		}
		out = append(out, engine.CompareResult{
			StrategyName: e.StrategyName,
			Metrics:      res.Metrics,
			TradeCount:   len(res.Trades),
		})
	}
	return out, nil
}
