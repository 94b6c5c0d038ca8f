package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/contactkeval/option-replay/internal/engine"
)

// Config is the JSON document the CLI reads to drive one run: where the
// quote table (and, for signal-gated strategies, the bar series) lives on
// disk, which core function to call, and that function's parameters.
type Config struct {
	QuotesPath string `json:"quotes_path" validate:"required"`
	BarsPath   string `json:"bars_path,omitempty"`
	Mode       string `json:"mode" validate:"required,oneof=backtest evaluate compare"`
	OutputDir  string `json:"output_dir" validate:"required"`

	Backtest *engine.BacktestParams `json:"backtest,omitempty"`
	Evaluate *engine.EvaluateParams `json:"evaluate,omitempty"`
	Compare  *engine.CompareParams  `json:"compare,omitempty"`
}

func loadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	switch cfg.Mode {
	case "backtest":
		if cfg.Backtest == nil {
			return nil, fmt.Errorf("config mode %q requires a \"backtest\" block", cfg.Mode)
		}
	case "evaluate":
		if cfg.Evaluate == nil {
			return nil, fmt.Errorf("config mode %q requires an \"evaluate\" block", cfg.Mode)
		}
	case "compare":
		if cfg.Compare == nil {
			return nil, fmt.Errorf("config mode %q requires a \"compare\" block", cfg.Mode)
		}
	default:
		return nil, fmt.Errorf("unknown mode %q: want backtest, evaluate, or compare", cfg.Mode)
	}
	return &cfg, nil
}
