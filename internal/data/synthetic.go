package data

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/contactkeval/option-replay/internal/pricing"
)

// syntheticRiskFreeRate is the flat annual rate fed to the Black-Scholes
// estimator below; the synthetic provider has no real rate curve to draw on.
const syntheticRiskFreeRate = 0.04

// synthDataProvider implements Data Provider generating synthetic data.
type synthDataProvider struct {
	secondary Provider
}

func NewSyntheticProvider() Provider { return &synthDataProvider{} }

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

func (synthDataProv *synthDataProvider) GetContracts(underlying string, strike float64, expiryDate, fromDate, toDate time.Time) ([]OptionContract, error) {
	if synthDataProv.secondary != nil {
		return synthDataProv.secondary.GetContracts(underlying, strike, expiryDate, fromDate, toDate)
	}
	return nil, fmt.Errorf("GetContracts not implemented for SyntheticProvider")
}

func (synthDataProv *synthDataProvider) GetDailyBars(underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	cur := fromDate
	price := 100.0 + float64(rand.Intn(200))
	var out []Bar
	for !cur.After(toDate) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			delta := rand.NormFloat64() * 0.01 * price
			open := price
			close := price + delta
			high := math.Max(open, close) + math.Abs(rand.NormFloat64()*0.3)
			low := math.Min(open, close) - math.Abs(rand.NormFloat64()*0.3)
			out = append(out, Bar{Date: cur, Open: open, High: high, Low: low, Close: close, Vol: float64(1000 + rand.Intn(5000))})
			price = close
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return out, nil
}

func (synthDataProv *synthDataProvider) GetOptionMidPrice(underlying string, strike float64, expiryDate time.Time, optionType string, asOf time.Time) (float64, error) {
	if synthDataProv.secondary != nil {
		return synthDataProv.secondary.GetOptionMidPrice(underlying, strike, expiryDate, optionType, asOf)
	}

	// No real spot/vol series backs this provider, so synthesize both
	// around the requested strike and feed them through Black-Scholes
	// rather than returning a context-free random price.
	spot := strike * (1 + rand.NormFloat64()*0.05)
	sigma := 0.20 + math.Abs(rand.NormFloat64()*0.10)
	yearsToExpiry := expiryDate.Sub(asOf).Hours() / (24 * 365.25)

	price := pricing.BlackScholesPrice(optionType == "call", spot, strike, yearsToExpiry, syntheticRiskFreeRate, sigma)
	return price + math.Abs(rand.NormFloat64()*0.05), nil
}

func (synthDataProv *synthDataProvider) GetRelevantExpiries(ticker string, fromDate, toDate time.Time) ([]time.Time, error) {
	if synthDataProv.secondary != nil {
		return synthDataProv.secondary.GetRelevantExpiries(ticker, fromDate, toDate)
	}
	return nil, fmt.Errorf("GetRelevantExpiries not implemented for SyntheticProvider")
}

func (synthDataProv *synthDataProvider) RoundToNearestStrike(underlying string, price float64, openDate, expiryDate time.Time) float64 {
	intervals := synthDataProv.getIntervals(underlying)
	if intervals == 0 {
		return price
	}
	return math.Round(price/intervals) * intervals
}

func (synthDataProv *synthDataProvider) getIntervals(underlying string) float64 {
	if synthDataProv.secondary != nil {
		return synthDataProv.secondary.getIntervals(underlying)
	}
	return 5.0 // default strike spacing for synthetic data
}
