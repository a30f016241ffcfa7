package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const ReportRunsSchema = `
	CREATE TABLE IF NOT EXISTS report_runs (
		id VARCHAR PRIMARY KEY,
		report VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		error VARCHAR NULL,
		params JSON,
		result JSON NULL,
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP NULL
	);
`

const reportRunsStatusIndex = `
	CREATE INDEX IF NOT EXISTS report_runs_status_idx ON report_runs (status);
`

var bootQueries = []string{
	ReportRunsSchema,
	reportRunsStatusIndex,
}

const defaultThreads = 4

type Settings struct {
	DbPath string
	// Threads caps DuckDB worker threads; zero uses the default of 4.
	Threads int
}

// NewDB opens the run database and creates its tables on every new
// connection.
func NewDB(settings Settings) (*sql.DB, error) {
	threads := settings.Threads
	if threads <= 0 {
		threads = defaultThreads
	}

	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=%d", settings.DbPath, threads), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			if _, err := exec.ExecContext(context.Background(), query, nil); err != nil {
				return fmt.Errorf("bootstrap run database: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", settings.DbPath, err)
	}

	return sql.OpenDB(c), nil
}
