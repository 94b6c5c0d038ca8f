// Package tablestore holds the single "currently loaded quotes table" slot
// that a surrounding service (the REST server, the CLI) keeps between a
// data-load step and the core's pure RunBacktest/EvaluateStrategy/
// CompareStrategies calls. The core itself never holds this state; it only
// borrows a table by value for the duration of one call.
package tablestore

import (
	"sync"

	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/engineerr"
)

// Store guards a quotes table and an optional OHLCV bar series behind a
// sync.RWMutex: concurrent reads are allowed, a Load replaces the slot
// exclusively.
type Store struct {
	mu     sync.RWMutex
	quotes []engine.Quote
	bars   []engine.Bar
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load replaces the store's quotes table and bar series atomically.
func (s *Store) Load(quotes []engine.Quote, bars []engine.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = quotes
	s.bars = bars
}

// Quotes returns the currently loaded quotes table, or an error if nothing
// has been loaded yet.
func (s *Store) Quotes() ([]engine.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.quotes == nil {
		return nil, engineerr.New(engineerr.DataUnavailable, "no quotes table loaded")
	}
	return s.quotes, nil
}

// Bars returns the currently loaded OHLCV series, which may be empty if no
// signal-bearing run has loaded one.
func (s *Store) Bars() []engine.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bars
}
