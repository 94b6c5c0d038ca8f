// Package filters implements the deterministic quote-table filter
// pipeline of spec §4.2, ported from original_source/src/engine/filters.rs
// from Polars lazy-frame operations to plain Go slice operations (the
// teacher's own idiom for tabular data throughout internal/data and
// internal/backtest is a plain []struct, not a dataframe library).
package filters

import (
	"math"
	"sort"

	"github.com/contactkeval/option-replay/internal/engine"
)

// Row is one quote augmented with its computed DTE.
type Row struct {
	engine.Quote
	DTE int
}

// ComputeDTE adds the integer dte column to every row.
func ComputeDTE(rows []engine.Quote) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{Quote: r, DTE: engine.DTE(r.QuoteDatetime, r.Expiration)}
	}
	return out
}

// FilterOptionType retains rows matching the given option type.
func FilterOptionType(rows []Row, t engine.OptionType) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.OptionType == t {
			out = append(out, r)
		}
	}
	return out
}

// FilterDTERange retains rows with min <= dte <= max.
func FilterDTERange(rows []Row, max, min int) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.DTE >= min && r.DTE <= max {
			out = append(out, r)
		}
	}
	return out
}

// FilterValidQuotes retains rows with bid > 0 and ask > 0.
func FilterValidQuotes(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Bid > 0 && r.Ask > 0 {
			out = append(out, r)
		}
	}
	return out
}

type dayExpKey struct {
	day int64
	exp int64
}

// SelectClosestDelta retains rows whose |delta| is within [target.Min,
// target.Max], then for each (quote_datetime, expiration) group keeps only
// the row minimising ||delta|-target.Target|. Ties are broken by input
// order (stable).
func SelectClosestDelta(rows []Row, target engine.TargetRange) []Row {
	inRange := make([]Row, 0, len(rows))
	for _, r := range rows {
		ad := math.Abs(r.Delta)
		if ad >= target.Min && ad <= target.Max {
			inRange = append(inRange, r)
		}
	}

	best := make(map[dayExpKey]int) // key -> index into inRange of current best
	order := make([]dayExpKey, 0)
	for i, r := range inRange {
		k := dayExpKey{r.QuoteDatetime.Unix(), r.Expiration.Unix()}
		cur, ok := best[k]
		if !ok {
			best[k] = i
			order = append(order, k)
			continue
		}
		curDist := math.Abs(math.Abs(inRange[cur].Delta) - target.Target)
		newDist := math.Abs(math.Abs(r.Delta) - target.Target)
		if newDist < curDist {
			best[k] = i
		}
	}

	out := make([]Row, 0, len(order))
	for _, k := range order {
		out = append(out, inRange[best[k]])
	}
	return out
}

// SortByQuoteDate sorts rows by quote_datetime ascending, stable.
func SortByQuoteDate(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuoteDatetime.Before(out[j].QuoteDatetime)
	})
	return out
}
