// Package params validates the core's parameter records before they reach
// the engine, turning struct-tag and cross-field failures into
// engineerr.InvalidParameters errors.
package params

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/engineerr"
)

var validate = validator.New()

// ValidateBacktestParams runs struct-tag validation plus the cross-field
// checks validator tags alone cannot express: leg-count-vs-catalog,
// exit_dte < max_entry_dte, and signal-requires-OHLCV-source.
func ValidateBacktestParams(p *engine.BacktestParams, legCount int) error {
	if err := validate.Struct(p); err != nil {
		return engineerr.Wrap(engineerr.InvalidParameters, "backtest params failed validation", err)
	}
	if len(p.LegDeltas) != legCount {
		return engineerr.New(engineerr.InvalidParameters,
			fmt.Sprintf("strategy %q expects %d leg delta targets, got %d", p.Strategy, legCount, len(p.LegDeltas)))
	}
	if p.ExitDTE >= p.MaxEntryDTE {
		return engineerr.New(engineerr.InvalidParameters,
			fmt.Sprintf("exit_dte (%d) must be less than max_entry_dte (%d)", p.ExitDTE, p.MaxEntryDTE))
	}
	for _, tr := range p.LegDeltas {
		if !(tr.Min <= tr.Target && tr.Target <= tr.Max) {
			return engineerr.New(engineerr.InvalidParameters,
				fmt.Sprintf("target range min<=target<=max violated: %+v", tr))
		}
	}
	if (p.EntrySignal != nil || p.ExitSignal != nil) && p.OHLCVSource == "" {
		return engineerr.New(engineerr.InvalidParameters,
			"entry_signal or exit_signal configured without an ohlcv_source")
	}
	return nil
}

// ValidateEvaluateParams validates the Evaluate-mode superset of
// BacktestParams.
func ValidateEvaluateParams(p *engine.EvaluateParams, legCount int) error {
	if err := ValidateBacktestParams(&p.BacktestParams, legCount); err != nil {
		return err
	}
	if err := validate.Struct(p); err != nil {
		return engineerr.Wrap(engineerr.InvalidParameters, "evaluate params failed validation", err)
	}
	return nil
}

// ValidateCompareParams validates CompareParams; legCounts maps each
// entry's strategy name to its catalog leg count so cross-field checks
// can run per entry.
func ValidateCompareParams(p *engine.CompareParams, legCounts map[string]int) error {
	if err := validate.Struct(p); err != nil {
		return engineerr.Wrap(engineerr.InvalidParameters, "compare params failed validation", err)
	}
	if p.ExitDTE >= p.MaxEntryDTE {
		return engineerr.New(engineerr.InvalidParameters,
			fmt.Sprintf("exit_dte (%d) must be less than max_entry_dte (%d)", p.ExitDTE, p.MaxEntryDTE))
	}
	for _, e := range p.Entries {
		n, ok := legCounts[e.StrategyName]
		if !ok {
			return engineerr.New(engineerr.UnknownStrategy, fmt.Sprintf("unknown strategy %q", e.StrategyName))
		}
		if len(e.LegDeltas) != n {
			return engineerr.New(engineerr.InvalidParameters,
				fmt.Sprintf("strategy %q expects %d leg delta targets, got %d", e.StrategyName, n, len(e.LegDeltas)))
		}
	}
	return nil
}
