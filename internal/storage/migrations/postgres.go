package migrations

import (
	"context"
	"fmt"

	"backtest-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the backtest_runs schema.
// Returns the names of the applied files.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(files))
	for _, m := range files {
		// pgx runs multi-statement text through the simple protocol when no args are given
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		applied = append(applied, m.name)
	}
	return applied, nil
}
