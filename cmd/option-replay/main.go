package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/contactkeval/option-replay/internal/backtest"
	"github.com/contactkeval/option-replay/internal/data"
	"github.com/contactkeval/option-replay/internal/engine"
	"github.com/contactkeval/option-replay/internal/engineerr"
	"github.com/contactkeval/option-replay/internal/logger"
	"github.com/contactkeval/option-replay/internal/params"
	"github.com/contactkeval/option-replay/internal/report"
	"github.com/contactkeval/option-replay/internal/strategy"
	"github.com/contactkeval/option-replay/internal/tablestore"
)

func main() {
	configPath := flag.String("config", filepath.Join("..", "..", "strategies", "covered_call.json"), "path to JSON config")
	rest := flag.Bool("rest", false, "run as REST server instead of a single run")
	port := flag.String("port", ":8080", "REST server listen address")
	listStrategies := flag.Bool("list-strategies", false, "print the strategy catalog and exit")
	download := flag.String("download", "", "fetch daily bars for TICKER via the configured data provider and write them as CSV")
	from := flag.String("from", "", "download range start, YYYY-MM-DD (required with -download)")
	to := flag.String("to", "", "download range end, YYYY-MM-DD (required with -download)")
	out := flag.String("out", "", "CSV path to write the downloaded bars to (required with -download)")
	flag.Parse()

	if *listStrategies {
		printStrategyCatalog()
		return
	}

	if *download != "" {
		if err := downloadBars(*download, *from, *to, *out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store := tablestore.New()
	if err := loadStore(store, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *rest {
		serveREST(*port, store)
		return
	}

	start := time.Now()
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "could not create output dir %s: %v\n", cfg.OutputDir, err)
		os.Exit(1)
	}

	switch cfg.Mode {
	case "backtest":
		res, err := runBacktest(store, cfg.Backtest)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := report.WriteJSON(&res, cfg.OutputDir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := report.WriteCSV(res.Trades, cfg.OutputDir); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Infof("finished in %v, wrote %d trades to %s", time.Since(start), len(res.Trades), cfg.OutputDir)
	case "evaluate":
		groups, err := runEvaluate(store, cfg.Evaluate)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		b, _ := json.MarshalIndent(groups, "", "  ")
		if err := os.WriteFile(filepath.Join(cfg.OutputDir, "evaluate.json"), b, 0644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Infof("finished in %v, wrote %d buckets to %s", time.Since(start), len(groups), cfg.OutputDir)
	case "compare":
		results, err := runCompare(store, cfg.Compare)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		b, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(filepath.Join(cfg.OutputDir, "compare.json"), b, 0644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Infof("finished in %v, compared %d strategies to %s", time.Since(start), len(results), cfg.OutputDir)
	}
}

// downloadBars fetches daily OHLCV bars for ticker over [from, to] from
// whichever provider the environment selects (Polygon if POLYGON_API_KEY is
// set, a synthetic generator otherwise) and writes them as a CSV LoadBars
// can read back.
func downloadBars(ticker, from, to, out string) error {
	if from == "" || to == "" || out == "" {
		return fmt.Errorf("-download requires -from, -to, and -out")
	}
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return fmt.Errorf("parsing -from: %w", err)
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return fmt.Errorf("parsing -to: %w", err)
	}

	prov := selectProvider()
	bars, err := prov.GetDailyBars(ticker, fromDate, toDate)
	if err != nil {
		return fmt.Errorf("downloading bars for %s: %w", ticker, err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Date.Format("2006-01-02"),
			fmt.Sprintf("%.4f", b.Open),
			fmt.Sprintf("%.4f", b.High),
			fmt.Sprintf("%.4f", b.Low),
			fmt.Sprintf("%.4f", b.Close),
			fmt.Sprintf("%.0f", b.Vol),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	logger.Infof("downloaded %d bars for %s to %s", len(bars), ticker, out)
	return nil
}

// selectProvider picks a live data.Provider from the environment: Polygon
// when POLYGON_API_KEY is set, a synthetic generator otherwise. The core
// itself never reads these environment variables; only this collaborator
// selection step does.
func selectProvider() data.Provider {
	if key := os.Getenv("POLYGON_API_KEY"); key != "" {
		return data.NewPolygonDataProvider(key)
	}
	return data.NewSyntheticProvider()
}

// loadStore reads the quote table (and, if configured, the bar series) off
// disk into the single shared slot the REST handlers and the single-run
// path both read from.
func loadStore(store *tablestore.Store, cfg *Config) error {
	quotes, err := data.LoadQuoteTable(cfg.QuotesPath)
	if err != nil {
		return fmt.Errorf("loading quotes: %w", err)
	}
	var bars []engine.Bar
	if cfg.BarsPath != "" {
		bars, err = data.LoadBars(cfg.BarsPath)
		if err != nil {
			return fmt.Errorf("loading bars: %w", err)
		}
	}
	store.Load(quotes, bars)
	logger.Infof("loaded %d quotes, %d bars", len(quotes), len(bars))
	return nil
}

func legCount(strategyName string) (int, bool) {
	def, ok := strategy.FindByName(strategyName)
	if !ok {
		return 0, false
	}
	return len(def.Legs), true
}

func runBacktest(store *tablestore.Store, p *engine.BacktestParams) (engine.BacktestResult, error) {
	quotes, err := store.Quotes()
	if err != nil {
		return engine.BacktestResult{}, err
	}
	n, ok := legCount(p.Strategy)
	if !ok {
		return engine.BacktestResult{}, engineerr.New(engineerr.UnknownStrategy, fmt.Sprintf("unknown strategy %q", p.Strategy))
	}
	if err := params.ValidateBacktestParams(p, n); err != nil {
		return engine.BacktestResult{}, err
	}
	return backtest.RunBacktest(quotes, store.Bars(), *p)
}

func runEvaluate(store *tablestore.Store, p *engine.EvaluateParams) ([]engine.GroupStats, error) {
	quotes, err := store.Quotes()
	if err != nil {
		return nil, err
	}
	n, ok := legCount(p.Strategy)
	if !ok {
		return nil, engineerr.New(engineerr.UnknownStrategy, fmt.Sprintf("unknown strategy %q", p.Strategy))
	}
	if err := params.ValidateEvaluateParams(p, n); err != nil {
		return nil, err
	}
	return backtest.EvaluateStrategy(quotes, *p)
}

func runCompare(store *tablestore.Store, p *engine.CompareParams) ([]engine.CompareResult, error) {
	quotes, err := store.Quotes()
	if err != nil {
		return nil, err
	}
	legCounts := make(map[string]int, len(p.Entries))
	for _, e := range p.Entries {
		n, ok := legCount(e.StrategyName)
		if !ok {
			return nil, engineerr.New(engineerr.UnknownStrategy, fmt.Sprintf("unknown strategy %q", e.StrategyName))
		}
		legCounts[e.StrategyName] = n
	}
	if err := params.ValidateCompareParams(p, legCounts); err != nil {
		return nil, err
	}
	return backtest.CompareStrategies(quotes, store.Bars(), *p)
}

func printStrategyCatalog() {
	b, _ := json.MarshalIndent(backtest.ListStrategies(), "", "  ")
	fmt.Println(string(b))
}

// serveREST exposes /run, /health, and /strategies over an http.ServeMux.
// Each handler runs against the table currently held in store; errors
// surface as engineerr-shaped JSON rather than plain text.
func serveREST(addr string, store *tablestore.Store) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/strategies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, backtest.ListStrategies())
	})

	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeErr(w, engineerr.New(engineerr.InvalidParameters, "expected POST"))
			return
		}
		var req struct {
			Mode     string                 `json:"mode"`
			Backtest *engine.BacktestParams `json:"backtest,omitempty"`
			Evaluate *engine.EvaluateParams `json:"evaluate,omitempty"`
			Compare  *engine.CompareParams  `json:"compare,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, engineerr.Wrap(engineerr.SchemaMismatch, "invalid request body", err))
			return
		}

		logger.Infof("received /run request mode=%s", req.Mode)
		switch req.Mode {
		case "backtest":
			res, err := runBacktest(store, req.Backtest)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		case "evaluate":
			groups, err := runEvaluate(store, req.Evaluate)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, groups)
		case "compare":
			results, err := runCompare(store, req.Compare)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, results)
		default:
			writeErr(w, engineerr.New(engineerr.InvalidParameters, fmt.Sprintf("unknown mode %q", req.Mode)))
		}
	})

	logger.Infof("starting REST server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("REST server stopped: %v", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var ee *engineerr.Error
	if asEngineErr(err, &ee) {
		switch ee.Kind {
		case engineerr.InvalidParameters, engineerr.SchemaMismatch:
			status = http.StatusBadRequest
		case engineerr.UnknownStrategy, engineerr.NoCandidates:
			status = http.StatusUnprocessableEntity
		case engineerr.DataUnavailable:
			status = http.StatusServiceUnavailable
		}
	} else {
		ee = engineerr.Wrap(engineerr.Internal, "unexpected error", err)
	}
	writeJSON(w, status, ee)
}

func asEngineErr(err error, target **engineerr.Error) bool {
	e, ok := err.(*engineerr.Error)
	if ok {
		*target = e
	}
	return ok
}
