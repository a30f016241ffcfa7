package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLoader(t *testing.T, style loader.PlaceholderStyle) (loader.Loader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pool := NewPool(nil)
	pool.Add(DefaultDataSource, db, style)
	return NewLoader(pool), mock
}

func TestLoader_Load(t *testing.T) {
	t.Run("binds params and maps rows", func(t *testing.T) {
		// Given
		l, mock := setupLoader(t, loader.PlaceholderQuestion)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM customers WHERE region = ?")).
			WithArgs("EU").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), []byte("Acme")).
				AddRow(int64(2), "Globex"))

		q := domain.ReportQuery{
			Name:   "customers",
			Script: "SELECT id, name FROM customers WHERE region = ${region}",
		}

		// When
		rows, err := l.Load(context.Background(), q, domain.BandData{}, domain.Params{"region": "EU"})

		// Then
		require.NoError(t, err)
		assert.Equal(t, []domain.Row{
			{"id": int64(1), "name": "Acme"},
			{"id": int64(2), "name": "Globex"},
		}, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dollar placeholders and parent fields", func(t *testing.T) {
		l, mock := setupLoader(t, loader.PlaceholderDollar)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT sku FROM order_lines WHERE order_id = $1 AND status IN ($2, $3)")).
			WithArgs(int64(7), "open", "paid").
			WillReturnRows(sqlmock.NewRows([]string{"sku"}).AddRow("A-1"))

		q := domain.ReportQuery{
			Name:   "lines",
			Script: "SELECT sku FROM order_lines WHERE order_id = ${Orders.id} AND status IN (${statuses})",
		}
		parent := domain.BandData{Name: "Orders", Data: domain.Row{"id": int64(7)}}

		rows, err := l.Load(context.Background(), q, parent, domain.Params{"statuses": []string{"open", "paid"}})

		require.NoError(t, err)
		assert.Equal(t, []domain.Row{{"sku": "A-1"}}, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows", func(t *testing.T) {
		l, mock := setupLoader(t, loader.PlaceholderQuestion)
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}))

		rows, err := l.Load(context.Background(), domain.ReportQuery{Name: "q", Script: "SELECT 1"}, domain.BandData{}, nil)

		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("missing param is a validation error", func(t *testing.T) {
		l, _ := setupLoader(t, loader.PlaceholderQuestion)

		_, err := l.Load(context.Background(), domain.ReportQuery{Name: "q", Script: "SELECT ${x}"}, domain.BandData{}, nil)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "q", verr.Query)
	})

	t.Run("empty script", func(t *testing.T) {
		l, _ := setupLoader(t, loader.PlaceholderQuestion)

		_, err := l.Load(context.Background(), domain.ReportQuery{Name: "q", Script: "  "}, domain.BandData{}, nil)

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		l, mock := setupLoader(t, loader.PlaceholderQuestion)
		boom := errors.New("connection reset")
		mock.ExpectQuery("SELECT 1").WillReturnError(boom)

		_, err := l.Load(context.Background(), domain.ReportQuery{Name: "q", Script: "SELECT 1"}, domain.BandData{}, nil)

		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown data source", func(t *testing.T) {
		l, _ := setupLoader(t, loader.PlaceholderQuestion)

		_, err := l.Load(context.Background(), domain.ReportQuery{Name: "q", Script: "SELECT 1", DataSource: "other"}, domain.BandData{}, nil)

		assert.ErrorContains(t, err, `data source "other" is not configured`)
	})
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		driver string
		name   string
		style  loader.PlaceholderStyle
	}{
		{"duckdb", "duckdb", loader.PlaceholderQuestion},
		{"postgres", "postgres", loader.PlaceholderDollar},
		{"mysql", "mysql", loader.PlaceholderQuestion},
		{"sqlite", "sqlite", loader.PlaceholderQuestion},
		{"snowflake", "snowflake", loader.PlaceholderQuestion},
		{"databricks", "databricks", loader.PlaceholderQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			name, style, err := driverFor(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.style, style)
		})
	}

	_, _, err := driverFor("oracle")
	assert.Error(t, err)
}
