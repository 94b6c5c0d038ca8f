package signals

import (
	"testing"
	"time"

	"github.com/contactkeval/option-replay/internal/engine"
)

func bar(day int, open, high, low, close float64, volume int64) engine.Bar {
	d := engine.NewDate(time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC))
	return engine.Bar{Date: d, Open: open, High: high, Low: low, Close: close, Volume: volume}
}

func TestRSIOversoldFiresOnSustainedDecline(t *testing.T) {
	bars := []engine.Bar{
		bar(1, 100, 100, 100, 100, 1000),
		bar(2, 99, 99, 99, 99, 1000),
		bar(3, 98, 98, 98, 98, 1000),
		bar(4, 97, 97, 97, 97, 1000),
		bar(5, 96, 96, 96, 96, 1000),
	}
	spec := &engine.SignalSpec{Type: engine.SignalRSIOversold, Period: 3, Threshold: 30}
	fired, err := Evaluate(spec, bars)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !fired[4] {
		t.Fatalf("expected RSI oversold to fire on bar 4 after a sustained decline, got %v", fired)
	}
	if fired[0] || fired[1] {
		t.Fatalf("expected no signal during warmup, got %v", fired)
	}
}

func TestSMACrossFiresOnUpwardCross(t *testing.T) {
	bars := []engine.Bar{
		bar(1, 10, 10, 10, 10, 1),
		bar(2, 10, 10, 10, 10, 1),
		bar(3, 10, 10, 10, 10, 1),
		bar(4, 20, 20, 20, 20, 1),
		bar(5, 20, 20, 20, 20, 1),
	}
	spec := &engine.SignalSpec{Type: engine.SignalSMACross, FastN: 2, SlowN: 3}
	fired, err := Evaluate(spec, bars)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	any := false
	for _, f := range fired {
		if f {
			any = true
		}
	}
	if !any {
		t.Fatalf("expected sma_cross to fire somewhere after the price jump, got %v", fired)
	}
}

func TestGapUpAndGapDown(t *testing.T) {
	bars := []engine.Bar{
		bar(1, 100, 100, 100, 100, 1),
		bar(2, 110, 110, 110, 110, 1), // +10% gap up
		bar(3, 99, 99, 99, 99, 1),     // -10% gap down from 110
	}
	up, err := Evaluate(&engine.SignalSpec{Type: engine.SignalGapUp, Threshold: 0.05}, bars)
	if err != nil {
		t.Fatalf("Evaluate gap_up: %v", err)
	}
	if !up[1] {
		t.Fatalf("expected gap_up to fire on bar 1, got %v", up)
	}

	down, err := Evaluate(&engine.SignalSpec{Type: engine.SignalGapDown, Threshold: 0.05}, bars)
	if err != nil {
		t.Fatalf("Evaluate gap_down: %v", err)
	}
	if !down[2] {
		t.Fatalf("expected gap_down to fire on bar 2, got %v", down)
	}
}

func TestConsecutiveUpAndDown(t *testing.T) {
	bars := []engine.Bar{
		bar(1, 100, 100, 100, 100, 1),
		bar(2, 101, 101, 101, 101, 1),
		bar(3, 102, 102, 102, 102, 1),
		bar(4, 103, 103, 103, 103, 1),
	}
	fired, err := Evaluate(&engine.SignalSpec{Type: engine.SignalConsecutiveUp, Period: 3}, bars)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !fired[3] {
		t.Fatalf("expected consecutive_up to fire on bar 3 after three up days, got %v", fired)
	}
}

func TestVolumeSpike(t *testing.T) {
	bars := []engine.Bar{
		bar(1, 100, 100, 100, 100, 1000),
		bar(2, 100, 100, 100, 100, 1000),
		bar(3, 100, 100, 100, 100, 1000),
		bar(4, 100, 100, 100, 100, 5000),
	}
	fired, err := Evaluate(&engine.SignalSpec{Type: engine.SignalVolumeSpike, Period: 3, Threshold: 2.0}, bars)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !fired[3] {
		t.Fatalf("expected volume_spike to fire on bar 3's 5x average volume, got %v", fired)
	}
}

func TestAndOrCombinators(t *testing.T) {
	bars := []engine.Bar{
		bar(1, 100, 100, 100, 100, 1000),
		bar(2, 110, 110, 110, 110, 1000),
	}
	gapUp := &engine.SignalSpec{Type: engine.SignalGapUp, Threshold: 0.05}
	alwaysFalse := &engine.SignalSpec{Type: engine.SignalGapDown, Threshold: 0.05}

	and := &engine.SignalSpec{Type: engine.SignalAnd, Left: gapUp, Right: alwaysFalse}
	firedAnd, err := Evaluate(and, bars)
	if err != nil {
		t.Fatalf("Evaluate and: %v", err)
	}
	if firedAnd[1] {
		t.Fatalf("expected And of true/false to be false, got %v", firedAnd)
	}

	or := &engine.SignalSpec{Type: engine.SignalOr, Left: gapUp, Right: alwaysFalse}
	firedOr, err := Evaluate(or, bars)
	if err != nil {
		t.Fatalf("Evaluate or: %v", err)
	}
	if !firedOr[1] {
		t.Fatalf("expected Or of true/false to be true, got %v", firedOr)
	}
}

func TestActiveDatesExtraction(t *testing.T) {
	bars := []engine.Bar{
		bar(1, 100, 100, 100, 100, 1),
		bar(2, 110, 110, 110, 110, 1),
	}
	spec := &engine.SignalSpec{Type: engine.SignalGapUp, Threshold: 0.05}
	dates, err := ActiveDates(spec, bars)
	if err != nil {
		t.Fatalf("ActiveDates: %v", err)
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !dates[want] {
		t.Fatalf("expected %v to be an active date, got %v", want, dates)
	}
	if len(dates) != 1 {
		t.Fatalf("got %d active dates, want 1", len(dates))
	}
}

func TestNilSpecEvaluatesAllFalse(t *testing.T) {
	bars := []engine.Bar{bar(1, 100, 100, 100, 100, 1)}
	fired, err := Evaluate(nil, bars)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if fired[0] {
		t.Fatalf("expected nil spec to evaluate false everywhere, got %v", fired)
	}
}
