package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/storage"
	pgstore "backtest-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	ticker := flag.String("ticker", "", "Ticker whose stored runs to report (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (default from config)")
	outputDir := flag.String("output-dir", "", "Write history_<TICKER>.{md,csv} here instead of printing")
	format := flag.String("format", "md", "Stdout format: md or csv")
	flag.Parse()

	// Validate flags
	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "Error: --ticker is required")
		os.Exit(1)
	}
	if *format != "md" && *format != "csv" {
		fmt.Fprintf(os.Stderr, "Error: --format must be md or csv, got %q\n", *format)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	dsn := cfg.Data.PostgresDSN
	if *postgresDSN != "" {
		dsn = *postgresDSN
	}
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn (or BACKTEST_DATA_POSTGRES_DSN) is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	symbol := strings.ToUpper(*ticker)
	runs, err := loadRuns(ctx, pgstore.NewRunStore(pool), symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading runs: %v\n", err)
		os.Exit(1)
	}

	md := reporting.RenderHistoryMarkdown(symbol, runs, time.Now().UTC())
	csv := reporting.RenderHistoryCSV(runs)

	if *outputDir == "" {
		if *format == "csv" {
			fmt.Print(csv)
		} else {
			fmt.Print(md)
		}
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	files := map[string]string{
		filepath.Join(*outputDir, "history_"+symbol+".md"):  md,
		filepath.Join(*outputDir, "history_"+symbol+".csv"): csv,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Run history for %s (%d runs) written:\n", symbol, len(runs))
	fmt.Printf("  - %s/history_%s.md\n", *outputDir, symbol)
	fmt.Printf("  - %s/history_%s.csv\n", *outputDir, symbol)
}

// loadRuns returns runs for ticker, newest first.
func loadRuns(ctx context.Context, store storage.RunStore, ticker string) ([]*domain.RunRecord, error) {
	runs, err := store.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}
