package metrics

import (
	"fmt"
	"testing"

	"github.com/contactkeval/option-replay/internal/testutil"
)

// roundedMetrics mirrors engine.PerformanceMetrics but with every value
// formatted to a fixed precision, so the golden fixture compares stable
// decimal text rather than depending on Go's shortest-round-trip float
// formatting.
type roundedMetrics struct {
	Sharpe        string `json:"sharpe"`
	Sortino       string `json:"sortino"`
	MaxDrawdown   string `json:"max_drawdown"`
	WinRate       string `json:"win_rate"`
	ProfitFactor  string `json:"profit_factor"`
	Calmar        string `json:"calmar"`
	VaR95         string `json:"var_95"`
	TotalReturnPc string `json:"total_return_pct"`
}

func TestKnownEquityCurveMetricsGolden(t *testing.T) {
	curve := makeEquityCurve([]float64{10100.0, 10050.0, 10200.0, 10150.0, 10300.0})
	m := Calculate(curve, 10000.0)

	rounded := roundedMetrics{
		Sharpe:        fmt.Sprintf("%.6f", m.Sharpe),
		Sortino:       fmt.Sprintf("%.6f", m.Sortino),
		MaxDrawdown:   fmt.Sprintf("%.6f", m.MaxDrawdown),
		WinRate:       fmt.Sprintf("%.6f", m.WinRate),
		ProfitFactor:  fmt.Sprintf("%.6f", m.ProfitFactor),
		Calmar:        fmt.Sprintf("%.6f", m.Calmar),
		VaR95:         fmt.Sprintf("%.6f", m.VaR95),
		TotalReturnPc: fmt.Sprintf("%.6f", m.TotalReturnPc),
	}

	testutil.CompareWithGolden(t, "known_equity_curve", rounded)
}
