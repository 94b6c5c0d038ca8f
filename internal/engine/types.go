package engine

import "time"

// Side is a leg's direction. Long contributes +1 to P&L direction, Short -1.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) Multiplier() float64 {
	if s == Short {
		return -1
	}
	return 1
}

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Side) UnmarshalJSON(b []byte) error {
	if string(b) == `"short"` {
		*s = Short
	} else {
		*s = Long
	}
	return nil
}

// OptionType distinguishes calls from puts.
type OptionType int

const (
	Call OptionType = iota
	Put
)

func (o OptionType) String() string {
	if o == Put {
		return "put"
	}
	return "call"
}

func (o OptionType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

func (o *OptionType) UnmarshalJSON(b []byte) error {
	if string(b) == `"put"` {
		*o = Put
	} else {
		*o = Call
	}
	return nil
}

// ExpirationCycle distinguishes the near-term (Primary) leg from a
// far-term (Secondary) leg in calendar/diagonal strategies.
type ExpirationCycle int

const (
	Primary ExpirationCycle = iota
	Secondary
)

// TargetRange is a delta target with an acceptance band, all in [0, 1].
type TargetRange struct {
	Target float64 `json:"target" validate:"gte=0,lte=1"`
	Min    float64 `json:"min" validate:"gte=0,lte=1"`
	Max    float64 `json:"max" validate:"gte=0,lte=1"`
}

// Commission is a linear-plus-floor per-trade fee model.
type Commission struct {
	PerContract float64 `json:"per_contract" validate:"gte=0"`
	BaseFee     float64 `json:"base_fee" validate:"gte=0"`
	MinFee      float64 `json:"min_fee" validate:"gte=0"`
}

// Calculate returns max(min_fee, base_fee + per_contract*|contracts|).
func (c Commission) Calculate(contracts int) float64 {
	if contracts < 0 {
		contracts = -contracts
	}
	fee := c.BaseFee + c.PerContract*float64(contracts)
	if fee < c.MinFee {
		return c.MinFee
	}
	return fee
}

// SlippageKind discriminates the Slippage tagged union.
type SlippageKind string

const (
	SlippageMid       SlippageKind = "mid"
	SlippageSpread    SlippageKind = "spread"
	SlippageLiquidity SlippageKind = "liquidity"
	SlippagePerLeg    SlippageKind = "per_leg"
)

// Slippage is a tagged union over the four fill-price models. The
// discriminator is the Type field (external-tag JSON encoding, per spec).
type Slippage struct {
	Type       SlippageKind `json:"type"`
	FillRatio  float64      `json:"fill_ratio,omitempty"`
	RefVolume  int          `json:"ref_volume,omitempty"`
	PerLegSlip float64      `json:"per_leg,omitempty"`
}

// DefaultSlippage is the Mid model, matching the Rust original's #[default].
func DefaultSlippage() Slippage { return Slippage{Type: SlippageMid} }

// TradeSelector chooses among same-day entry candidates.
type TradeSelector string

const (
	SelectFirst          TradeSelector = "first"
	SelectNearest        TradeSelector = "nearest"
	SelectHighestPremium TradeSelector = "highest_premium"
	SelectLowestPremium  TradeSelector = "lowest_premium"
)

// ExitType names the reason a position was closed.
type ExitType string

const (
	ExitExpiration ExitType = "expiration"
	ExitDteExit    ExitType = "dte_exit"
	ExitMaxHold    ExitType = "max_hold"
	ExitSignal     ExitType = "signal"
	ExitStopLoss   ExitType = "stop_loss"
	ExitTakeProfit ExitType = "take_profit"
)

// LegDef describes one leg of a strategy template (not yet bound to a
// concrete strike/expiration; that happens at candidate-build time).
type LegDef struct {
	Side            Side            `json:"side"`
	OptionType      OptionType      `json:"option_type"`
	Qty             int             `json:"qty"`
	ExpirationCycle ExpirationCycle `json:"expiration_cycle"`
}

// StrategyDef is an ordered, named, catalogued multi-leg strategy.
type StrategyDef struct {
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	Description       string   `json:"description"`
	Legs              []LegDef `json:"legs"`
	StrictStrikeOrder bool     `json:"strict_strike_order"`
}

// IsMultiExpiration reports whether any leg uses the Secondary cycle.
func (s StrategyDef) IsMultiExpiration() bool {
	for _, l := range s.Legs {
		if l.ExpirationCycle == Secondary {
			return true
		}
	}
	return false
}

// StrategyInfo is the public, display-oriented projection of a StrategyDef
// returned by ListStrategies.
type StrategyInfo struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Description       string `json:"description"`
	LegCount          int    `json:"leg_count"`
	StrictStrikeOrder bool   `json:"strict_strike_order"`
	MultiExpiration   bool   `json:"multi_expiration"`
}

// Quote is one row of the quotes table: a bid/ask/delta snapshot for a
// single (quote date, expiration, strike, option type) key.
type Quote struct {
	QuoteDatetime time.Time
	Expiration    time.Time
	OptionType    OptionType
	Strike        float64
	Bid           float64
	Ask           float64
	Delta         float64
	Raw           map[string]any
}

// CandidateLeg is one resolved leg of an EntryCandidate.
type CandidateLeg struct {
	OptionType OptionType
	Strike     float64
	Expiration time.Time
	Bid        float64
	Ask        float64
	Delta      float64
}

// EntryCandidate is one concrete, day-indexed occurrence of a strategy.
type EntryCandidate struct {
	EntryDate   time.Time
	Expiration  time.Time
	Legs        []CandidateLeg
	NetPremium  float64
}

// PositionLeg is the live state of one leg of an open or closed Position.
type PositionLeg struct {
	LegIndex   int
	Side       Side
	OptionType OptionType
	Strike     float64
	Expiration time.Time
	EntryPrice float64
	Qty        int
	Closed     bool
	ClosePrice *float64
	CloseDate  *time.Time
}

// PositionStatus is Open, or Closed with the reason it closed.
type PositionStatus struct {
	Open bool
	Exit ExitType
}

// Position is the live, mutable state of an opened trade.
type Position struct {
	ID         int
	EntryDate  time.Time
	Expiration time.Time
	Legs       []PositionLeg
	EntryCost  float64
	Quantity   int
	Multiplier int
	Status     PositionStatus
}

// EquityPoint is one (datetime, equity) sample of the equity curve.
type EquityPoint struct {
	Datetime time.Time `json:"datetime"`
	Equity   float64   `json:"equity"`
}

// TradeRecord is the closed-trade log entry.
type TradeRecord struct {
	TradeID       int       `json:"trade_id"`
	EntryDatetime time.Time `json:"entry_datetime"`
	ExitDatetime  time.Time `json:"exit_datetime"`
	EntryCost     float64   `json:"entry_cost"`
	ExitProceeds  float64   `json:"exit_proceeds"`
	PnL           float64   `json:"pnl"`
	DaysHeld      int64     `json:"days_held"`
	ExitType      ExitType  `json:"exit_type"`
}

// PerformanceMetrics is the equity-curve-derived metric bundle of §4.8.
type PerformanceMetrics struct {
	Sharpe        float64 `json:"sharpe"`
	Sortino       float64 `json:"sortino"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	Calmar        float64 `json:"calmar"`
	VaR95         float64 `json:"var_95"`
	TotalReturnPc float64 `json:"total_return_pct"`
}

// TradeStats summarises the trade log itself (distinct from the
// equity-curve-derived PerformanceMetrics). Supplemented per SPEC_FULL.md
// to give spec.md §4.8's closing paragraph a concrete return type.
type TradeStats struct {
	AvgWinner            float64            `json:"avg_winner"`
	AvgLoser             float64            `json:"avg_loser"`
	AvgDaysHeld          float64            `json:"avg_days_held"`
	ExitReasonHistogram  map[ExitType]int   `json:"exit_reason_histogram"`
	MaxConsecutiveLosses int                `json:"max_consecutive_losses"`
	Expectancy           float64            `json:"expectancy"`
}

// BacktestParams configures RunBacktest.
type BacktestParams struct {
	Strategy      string        `json:"strategy" validate:"required"`
	LegDeltas     []TargetRange `json:"leg_deltas" validate:"required,min=1,dive"`
	MaxEntryDTE   int           `json:"max_entry_dte" validate:"gte=1"`
	ExitDTE       int           `json:"exit_dte" validate:"gte=0"`
	Slippage      Slippage      `json:"slippage"`
	Commission    *Commission   `json:"commission,omitempty"`
	StopLoss      *float64      `json:"stop_loss,omitempty" validate:"omitempty,gt=0"`
	TakeProfit    *float64      `json:"take_profit,omitempty" validate:"omitempty,gt=0"`
	MaxHoldDays   *int          `json:"max_hold_days,omitempty" validate:"omitempty,gt=0"`
	Capital       float64       `json:"capital" validate:"gt=0"`
	Quantity      int           `json:"quantity" validate:"gte=1"`
	Multiplier    int           `json:"multiplier" validate:"gte=1"`
	MaxPositions  int           `json:"max_positions" validate:"gte=1"`
	Selector      TradeSelector `json:"selector"`
	EntrySignal   *SignalSpec   `json:"entry_signal,omitempty"`
	ExitSignal    *SignalSpec   `json:"exit_signal,omitempty"`
	OHLCVSource   string        `json:"ohlcv_source,omitempty"`
}

// EvaluateParams configures EvaluateStrategy.
type EvaluateParams struct {
	BacktestParams
	DTEInterval   int     `json:"dte_interval" validate:"gte=1"`
	DeltaInterval float64 `json:"delta_interval" validate:"gt=0,lte=1"`
}

// CompareEntry names one strategy/delta-targeting combination to compare.
type CompareEntry struct {
	StrategyName string        `json:"strategy_name" validate:"required"`
	LegDeltas    []TargetRange `json:"leg_deltas" validate:"required,min=1,dive"`
}

// CompareParams configures CompareStrategies: one shared parameter set
// applied across several strategy/delta combinations.
type CompareParams struct {
	Entries       []CompareEntry `json:"entries" validate:"required,min=1,dive"`
	MaxEntryDTE   int            `json:"max_entry_dte" validate:"gte=1"`
	ExitDTE       int            `json:"exit_dte" validate:"gte=0"`
	Slippage      Slippage       `json:"slippage"`
	Commission    *Commission    `json:"commission,omitempty"`
	StopLoss      *float64       `json:"stop_loss,omitempty" validate:"omitempty,gt=0"`
	TakeProfit    *float64       `json:"take_profit,omitempty" validate:"omitempty,gt=0"`
	MaxHoldDays   *int           `json:"max_hold_days,omitempty" validate:"omitempty,gt=0"`
	Capital       float64        `json:"capital" validate:"gt=0"`
	Quantity      int            `json:"quantity" validate:"gte=1"`
	Multiplier    int            `json:"multiplier" validate:"gte=1"`
	MaxPositions  int            `json:"max_positions" validate:"gte=1"`
	Selector      TradeSelector  `json:"selector"`
}

// BacktestResult is the output of RunBacktest.
type BacktestResult struct {
	Strategy    string              `json:"strategy"`
	Trades      []TradeRecord       `json:"trades"`
	EquityCurve []EquityPoint       `json:"equity_curve"`
	Metrics     PerformanceMetrics  `json:"metrics"`
	TradeStats  TradeStats          `json:"trade_stats"`
}

// CompareResult pairs a strategy name with its resulting metrics.
type CompareResult struct {
	StrategyName string             `json:"strategy_name"`
	Metrics      PerformanceMetrics `json:"metrics"`
	TradeCount   int                `json:"trade_count"`
}

// GroupStats is one bucket's summary statistics in Evaluate mode.
type GroupStats struct {
	DTEBucketLabel   string  `json:"dte_bucket"`
	DeltaBucketLabel string  `json:"delta_bucket"`
	Count            int     `json:"count"`
	Mean             float64 `json:"mean"`
	Stdev            float64 `json:"stdev"`
	Min              float64 `json:"min"`
	P25              float64 `json:"p25"`
	Median           float64 `json:"median"`
	P75              float64 `json:"p75"`
	Max              float64 `json:"max"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
}
