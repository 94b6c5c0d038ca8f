// Package report writes a BacktestResult to the output formats the CLI
// ships: an indented JSON dump of the full result, and a flat CSV of the
// trade log for spreadsheet consumption.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/contactkeval/option-replay/internal/engine"
)

func WriteJSON(res *engine.BacktestResult, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "trades.json"), b, 0644)
}

func WriteCSV(trades []engine.TradeRecord, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "trades.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"trade_id", "entry_datetime", "exit_datetime", "entry_cost", "exit_proceeds", "pnl", "days_held", "exit_type"}
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			fmt.Sprintf("%d", t.TradeID),
			t.EntryDatetime.Format("2006-01-02"),
			t.ExitDatetime.Format("2006-01-02"),
			fmt.Sprintf("%.2f", t.EntryCost),
			fmt.Sprintf("%.2f", t.ExitProceeds),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%d", t.DaysHeld),
			string(t.ExitType),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
