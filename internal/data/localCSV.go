package data

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// localFileDataProvider implements Data Provider from local files.
type localFileDataProvider struct {
	dir       string
	secondary Provider
}

// NewLocalFileDataProvider convenience constructor.
func NewLocalFileDataProvider(dir string, secondary Provider) *localFileDataProvider {
	return &localFileDataProvider{dir: dir, secondary: secondary}
}

func (localFileDataProv *localFileDataProvider) Secondary() Provider {
	return localFileDataProv.secondary
}

func (localFileDataProv *localFileDataProvider) GetContracts(underlying string, strike float64, expiryDate, fromDate, toDate time.Time) ([]OptionContract, error) {
	if localFileDataProv.secondary != nil {
		return localFileDataProv.secondary.GetContracts(underlying, strike, expiryDate, fromDate, toDate)
	}
	return nil, fmt.Errorf("GetContracts not implemented for localFileDataProvider")
}

func (localFileDataProv *localFileDataProvider) GetDailyBars(underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	if localFileDataProv.secondary != nil {
		return localFileDataProv.secondary.GetDailyBars(underlying, fromDate, toDate)
	}
	return nil, fmt.Errorf("GetDailyBars not implemented for localFileDataProvider")
}

func (localFileDataProv *localFileDataProvider) GetOptionMidPrice(underlying string, strike float64, expiryDate time.Time, optType string, asOf time.Time) (float64, error) {
	if localFileDataProv.secondary != nil {
		return localFileDataProv.secondary.GetOptionMidPrice(underlying, strike, expiryDate, optType, asOf)
	}
	return 0, fmt.Errorf("GetOptionMidPrice not implemented for localFileDataProvider")
}

func (localFileDataProv *localFileDataProvider) GetRelevantExpiries(ticker string, fromDate, toDate time.Time) ([]time.Time, error) {
	if localFileDataProv.secondary != nil {
		return localFileDataProv.secondary.GetRelevantExpiries(ticker, fromDate, toDate)
	}
	return nil, fmt.Errorf("GetRelevantExpiries not implemented for localFileDataProvider")
}

// getIntervals reads intervals.csv on every call; nothing is cached
func (localFileDataProv *localFileDataProvider) getIntervals(underlying string) float64 {
	intervals := make(map[string]float64)

	f, err := os.Open(filepath.Join(localFileDataProv.dir, "intervals.csv"))
	if err != nil {
		log.Printf("open intervals file: %v", err)
		return 0
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		log.Printf("read csv: %v", err)
		return 0
	}

	for _, row := range records {
		if len(row) < 2 {
			continue
		}

		underlying := strings.ToUpper(strings.TrimSpace(row[0]))
		interval, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}

		intervals[underlying] = interval
	}

	if val, ok := intervals[strings.ToUpper(underlying)]; ok {
		return float64(val)
	}

	if localFileDataProv.secondary != nil {
		return localFileDataProv.secondary.getIntervals(underlying)
	}

	return 0
}

// RoundToNearestStrike rounds `price` using the interval for the underlying,
// doubling the interval and retrying if no bars exist on openDate (a thin
// trading day where the configured interval is too fine to have data).
func (localFileDataProv *localFileDataProvider) RoundToNearestStrike(underlying string, price float64, openDate, expiryDate time.Time) float64 {
	intervals := localFileDataProv.getIntervals(underlying)
	if intervals == 0.0 {
		return price
	}

	strike := price
	for {
		strike = math.Round(price/intervals) * intervals

		bars, err := localFileDataProv.GetDailyBars(underlying, openDate, openDate)
		if err != nil {
			return price
		}
		if len(bars) == 0 {
			intervals += intervals
			continue
		}
		break
	}
	return strike
}
