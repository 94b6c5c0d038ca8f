package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadQuoteTableRenamesQuoteDateColumn(t *testing.T) {
	path := writeTempCSV(t, "quotes.csv", "quote_date,expiration,option_type,strike,bid,ask,delta\n"+
		"2024-01-01,2024-03-01,call,100,4.95,5.05,0.50\n")

	quotes, err := LoadQuoteTable(path)
	if err != nil {
		t.Fatalf("LoadQuoteTable: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].Strike != 100 || quotes[0].Delta != 0.50 {
		t.Fatalf("unexpected row: %+v", quotes[0])
	}
}

func TestLoadQuoteTableMissingColumnErrors(t *testing.T) {
	path := writeTempCSV(t, "quotes.csv", "quote_date,expiration,option_type,strike,bid,ask\n"+
		"2024-01-01,2024-03-01,call,100,4.95,5.05\n")

	if _, err := LoadQuoteTable(path); err == nil {
		t.Fatalf("expected error for missing delta column")
	}
}

func TestLoadBarsParsesOHLCV(t *testing.T) {
	path := writeTempCSV(t, "bars.csv", "date,open,high,low,close,volume\n"+
		"2024-01-02,100,102,99,101,15000\n")

	bars, err := LoadBars(path)
	if err != nil {
		t.Fatalf("LoadBars: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	if bars[0].Close != 101 || bars[0].Volume != 15000 {
		t.Fatalf("unexpected bar: %+v", bars[0])
	}
}
