package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
)

var ErrRunNotFound = errors.New("run not found")

type Store interface {
	CreateRun(ctx context.Context, run *store.Run) error
	FinishRun(ctx context.Context, id string, status string, errMsg *string, result json.RawMessage) error
	GetRun(ctx context.Context, id string) (*store.Run, error)
	ListRuns(ctx context.Context, statuses []string) ([]*store.Run, error)
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{
		db: db,
	}, nil
}

const selectRuns = `
	SELECT id, report, status, error, CAST(params AS VARCHAR), CAST(result AS VARCHAR), started_at, finished_at
	FROM report_runs`

func (s *defaultStore) CreateRun(ctx context.Context, run *store.Run) error {
	if run.ID == "" || run.Report == "" {
		return fmt.Errorf("run id and report are required")
	}
	if run.Status == "" {
		run.Status = store.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	_, err = duckdb.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO report_runs (id, report, status, params, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Report, run.Status, string(params), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *defaultStore) FinishRun(
	ctx context.Context,
	id string,
	status string,
	errMsg *string,
	result json.RawMessage,
) error {
	var resultArg any
	if len(result) > 0 {
		resultArg = string(result)
	}

	res, err := duckdb.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE report_runs SET status = ?, error = ?, result = ?, finished_at = ? WHERE id = ?`,
		status, errMsg, resultArg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (s *defaultStore) GetRun(ctx context.Context, id string) (*store.Run, error) {
	row := duckdb.Conn(ctx, s.db).QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *defaultStore) ListRuns(ctx context.Context, statuses []string) ([]*store.Run, error) {
	query := selectRuns
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, st := range statuses {
			placeholders = append(placeholders, "?")
			args = append(args, st)
		}
		query += fmt.Sprintf(` WHERE status IN (%s)`, strings.Join(placeholders, ","))
	}
	query += ` ORDER BY started_at, id`

	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*store.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*store.Run, error) {
	var (
		run      store.Run
		errMsg   sql.NullString
		params   sql.NullString
		result   sql.NullString
		finished sql.NullTime
	)
	if err := sc.Scan(&run.ID, &run.Report, &run.Status, &errMsg, &params, &result, &run.StartedAt, &finished); err != nil {
		return nil, err
	}

	if errMsg.Valid {
		run.Error = &errMsg.String
	}
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &run.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if result.Valid && result.String != "" {
		run.Result = json.RawMessage(result.String)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
