package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
)

// quoteDateLayouts are the date formats accepted in the quote_date/
// data_date/quote_datetime and expiration columns, tried in order.
var quoteDateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05Z07:00", time.RFC3339}

func parseQuoteDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range quoteDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// LoadQuoteTable reads a CSV quotes file into the core's quote-table
// contract (spec §6). The header row's quote_date/data_date column is
// renamed to quote_datetime here, outside the core, per spec's loader
// note; any column beyond the required set rides along in Raw.
func LoadQuoteTable(path string) ([]engine.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening quote table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading quote table %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("quote table %s has no header row", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "quote_date" || name == "data_date" {
			name = "quote_datetime"
		}
		col[name] = i
	}

	required := []string{"quote_datetime", "expiration", "option_type", "strike", "bid", "ask", "delta"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("quote table %s missing required column %q", path, name)
		}
	}

	out := make([]engine.Quote, 0, len(rows)-1)
	for _, row := range rows[1:] {
		quoteDate, err := parseQuoteDate(strings.TrimSpace(row[col["quote_datetime"]]))
		if err != nil {
			return nil, fmt.Errorf("parsing quote_datetime: %w", err)
		}
		expiration, err := parseQuoteDate(strings.TrimSpace(row[col["expiration"]]))
		if err != nil {
			return nil, fmt.Errorf("parsing expiration: %w", err)
		}

		var optType engine.OptionType
		if strings.ToLower(strings.TrimSpace(row[col["option_type"]])) == "put" {
			optType = engine.Put
		}

		strike, err := strconv.ParseFloat(strings.TrimSpace(row[col["strike"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing strike: %w", err)
		}
		bid, err := strconv.ParseFloat(strings.TrimSpace(row[col["bid"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing bid: %w", err)
		}
		ask, err := strconv.ParseFloat(strings.TrimSpace(row[col["ask"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing ask: %w", err)
		}
		delta, err := strconv.ParseFloat(strings.TrimSpace(row[col["delta"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing delta: %w", err)
		}

		var raw map[string]any
		for name, idx := range col {
			if contains(required, name) || idx >= len(row) {
				continue
			}
			if raw == nil {
				raw = make(map[string]any)
			}
			raw[name] = row[idx]
		}

		out = append(out, engine.Quote{
			QuoteDatetime: quoteDate,
			Expiration:    expiration,
			OptionType:    optType,
			Strike:        strike,
			Bid:           bid,
			Ask:           ask,
			Delta:         delta,
			Raw:           raw,
		})
	}
	return out, nil
}

// LoadBars reads a CSV OHLCV file (date,open,high,low,close,volume) into
// the bar series the signal adapter consumes.
func LoadBars(path string) ([]engine.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bars file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bars file %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("bars file %s has no header row", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	out := make([]engine.Bar, 0, len(rows)-1)
	for _, row := range rows[1:] {
		date, err := parseQuoteDate(strings.TrimSpace(row[col["date"]]))
		if err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}
		open, _ := strconv.ParseFloat(strings.TrimSpace(row[col["open"]]), 64)
		high, _ := strconv.ParseFloat(strings.TrimSpace(row[col["high"]]), 64)
		low, _ := strconv.ParseFloat(strings.TrimSpace(row[col["low"]]), 64)
		closeP, _ := strconv.ParseFloat(strings.TrimSpace(row[col["close"]]), 64)
		volume, _ := strconv.ParseInt(strings.TrimSpace(row[col["volume"]]), 10, 64)

		out = append(out, engine.Bar{
			Date:   engine.NewDate(date),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeP,
			Volume: volume,
		})
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
