// Package engine defines the core, provider-agnostic data model for
// options-strategy backtesting: quotes, legs, strategies, positions, and
// the result records produced by a run.
package engine

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date wraps time.Time with YYYY-MM-DD JSON serialisation, matching the
// wire format spec'd for dates (as opposed to full ISO 8601 datetimes,
// which use plain time.Time elsewhere in this package).
type Date struct {
	time.Time
}

// NewDate truncates t to midnight UTC and wraps it.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("engine: invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// DTE returns the integer number of whole calendar days from quoteDate to expiration.
func DTE(quoteDate, expiration time.Time) int {
	qd := truncDay(quoteDate)
	ed := truncDay(expiration)
	return int(ed.Sub(qd).Hours() / 24)
}

func truncDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
