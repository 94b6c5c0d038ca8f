package data

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// polygonDataProvider implements Data Provider using Polygon.io API.
type polygonDataProvider struct {
	apiKey    string
	client    *resty.Client
	secondary Provider
}

func NewPolygonDataProvider(apiKey string) Provider {
	return &polygonDataProvider{
		apiKey: apiKey,
		client: resty.New().
			SetBaseURL("https://api.polygon.io").
			SetTimeout(30 * time.Second).
			SetRetryCount(2),
	}
}

func (polygonDataProv *polygonDataProvider) Secondary() Provider {
	return polygonDataProv.secondary
}

func (polygonDataProv *polygonDataProvider) GetContracts(underlying string, strike float64, expiryDate, fromDate, toDate time.Time) ([]OptionContract, error) {
	// Polygon does not provide an endpoint to list option contracts by strike.
	// This method is not implemented.
	return nil, fmt.Errorf("GetContracts not implemented for PolygonProvider")
}

func (polygonDataProv *polygonDataProvider) GetDailyBars(symbol string, from, to time.Time) ([]Bar, error) {
	var body struct {
		Results []struct {
			T int64   `json:"t"`
			O float64 `json:"o"`
			H float64 `json:"h"`
			L float64 `json:"l"`
			C float64 `json:"c"`
			V float64 `json:"v"`
		} `json:"results"`
	}

	resp, err := polygonDataProv.client.R().
		SetPathParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
		}).
		SetQueryParams(map[string]string{
			"adjusted": "true",
			"sort":     "asc",
			"limit":    "50000",
			"apiKey":   polygonDataProv.apiKey,
		}).
		SetResult(&body).
		Get("/v2/aggs/ticker/{symbol}/range/1/day/{from}/{to}")
	if err != nil {
		return nil, fmt.Errorf("polygon aggs request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("polygon aggs status %d", resp.StatusCode())
	}

	out := make([]Bar, 0, len(body.Results))
	for _, r := range body.Results {
		out = append(out, Bar{Date: time.UnixMilli(r.T).UTC(), Open: r.O, High: r.H, Low: r.L, Close: r.C, Vol: r.V})
	}
	return out, nil
}

// GetOptionMidPrice returns Polygon's current snapshot mid-price for an
// option contract. Polygon's snapshot endpoint has no historical
// counterpart, so asOf is accepted for interface symmetry with other
// providers but not used to backdate the quote.
func (polygonDataProv *polygonDataProvider) GetOptionMidPrice(symbol string, strike float64, expiry time.Time, optType string, asOf time.Time) (float64, error) {
	sym := OptionSymbolFromParts(symbol, expiry, optType, strike)

	var res struct {
		Min struct {
			Ask float64 `json:"ask"`
			Bid float64 `json:"bid"`
		} `json:"min"`
		Last struct {
			Price float64 `json:"price"`
		} `json:"last"`
	}

	resp, err := polygonDataProv.client.R().
		SetPathParam("symbol", sym).
		SetQueryParam("apiKey", polygonDataProv.apiKey).
		SetResult(&res).
		Get("/v3/snapshot/options/{symbol}")
	if err != nil {
		return 0, fmt.Errorf("polygon options snapshot request: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("polygon options snapshot status %d", resp.StatusCode())
	}

	if res.Min.Ask > 0 && res.Min.Bid > 0 {
		return (res.Min.Ask + res.Min.Bid) / 2.0, nil
	}
	if res.Last.Price > 0 {
		return res.Last.Price, nil
	}
	return 0, fmt.Errorf("no usable option price for %s", sym)
}

func (polygonDataProv *polygonDataProvider) GetRelevantExpiries(ticker string, start, end time.Time) ([]time.Time, error) {
	if polygonDataProv.secondary != nil {
		return polygonDataProv.secondary.GetRelevantExpiries(ticker, start, end)
	}
	return nil, fmt.Errorf("GetRelevantExpiries not implemented for PolygonProvider")
}

func (polygonDataProv *polygonDataProvider) RoundToNearestStrike(underlying string, price float64, openDate, expiryDate time.Time) float64 {
	intervals := polygonDataProv.getIntervals(underlying)
	return math.Round(price/intervals) * intervals
}

func (polygonDataProv *polygonDataProvider) getIntervals(underlying string) float64 {
	return 50.0 // TODO: implement proper intervals reading
}

// OptionSymbolFromParts: improved OCC-like formatter (best-effort)
func OptionSymbolFromParts(underlying string, expiration time.Time, optType string, strike float64) string {
	// OCC: O:<root><YYMMDD><C|P><strike*1000 padded to 8 digits>
	y := expiration.UTC().Format("060102")
	t := "C"
	if strings.ToLower(optType) == "put" {
		t = "P"
	}
	strikeInt := int(math.Round(strike * 1000))
	strFmt := fmt.Sprintf("%08d", strikeInt)
	return fmt.Sprintf("O:%s%s%s%s", strings.ToUpper(underlying), y, t, strFmt)
}
