package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/rs/zerolog"
)

const LoaderType = "sql"

type dataLoader struct {
	dbs DBResolver
}

// NewLoader returns the `sql` loader. Queries reference params as `${name}`;
// the parent band's fields are available as `${<Band>.<field>}`.
func NewLoader(dbs DBResolver) loader.Loader {
	return &dataLoader{dbs: dbs}
}

func (l *dataLoader) Load(
	ctx context.Context,
	q domain.ReportQuery,
	parent domain.BandData,
	params domain.Params,
) ([]domain.Row, error) {
	logger := zerolog.Ctx(ctx)

	if strings.TrimSpace(q.Script) == "" {
		return nil, domain.NewValidationError(q.Name, "sql script is empty")
	}

	db, style, err := l.dbs.DB(ctx, q.DataSource)
	if err != nil {
		return nil, err
	}

	query, args, err := loader.ParseSQLParams(q.Name, q.Script, loader.WithParentFields(parent, params), style)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", q.Name, err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Warn().Err(err).Str("query", q.Name).Msg("failed to close query rows")
		}
	}(rows)

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s columns: %w", q.Name, err)
	}

	var records []domain.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s scan: %w", q.Name, err)
		}

		record := make(domain.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", q.Name, err)
	}

	logger.Debug().
		Str("query", q.Name).
		Str("datasource", q.DataSource).
		Int("rows", len(records)).
		Msg("sql query executed")

	return records, nil
}
