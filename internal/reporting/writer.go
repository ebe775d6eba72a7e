package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFiles writes the report in every format to dir and returns the written paths.
// Files are named comparison_<TICKER>.{md,csv,json} and equity_<TICKER>.csv.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	data, err := RenderJSON(r)
	if err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}

	files := []struct {
		name    string
		content []byte
	}{
		{fmt.Sprintf("comparison_%s.md", r.Ticker), []byte(RenderMarkdown(r))},
		{fmt.Sprintf("comparison_%s.csv", r.Ticker), []byte(RenderCSV(r.Strategies))},
		{fmt.Sprintf("comparison_%s.json", r.Ticker), data},
		{fmt.Sprintf("equity_%s.csv", r.Ticker), []byte(RenderEquityCSV(r.Equity))},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.content, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
