package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/store/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	// Given
	path := filepath.Join(t.TempDir(), "sales.csv")
	content := "region;amount;share;active\nEU;100;0.25;true\nUS;;0.75;false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l := NewLoader(blob.NewOpener())
	q := domain.ReportQuery{
		Name:    "sales",
		Options: map[string]string{OptionPath: path, OptionDelimiter: ";"},
	}

	// When
	rows, err := l.Load(context.Background(), q, domain.BandData{}, nil)

	// Then
	require.NoError(t, err)
	assert.Equal(t, []domain.Row{
		{"region": "EU", "amount": int64(100), "share": 0.25, "active": true},
		{"region": "US", "amount": "", "share": 0.75, "active": false},
	}, rows)
}

func TestLoader_Errors(t *testing.T) {
	l := NewLoader(blob.NewOpener())

	t.Run("missing path", func(t *testing.T) {
		_, err := l.Load(context.Background(), domain.ReportQuery{Name: "q"}, domain.BandData{}, nil)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("bad delimiter", func(t *testing.T) {
		q := domain.ReportQuery{Name: "q", Options: map[string]string{OptionPath: "x.csv", OptionDelimiter: ";;"}}
		_, err := l.Load(context.Background(), q, domain.BandData{}, nil)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestRead(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		rows, err := Read(strings.NewReader("a,b\n"), ',')
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Read(strings.NewReader(""), ',')
		assert.ErrorContains(t, err, "missing header row")
	})

	t.Run("ragged record", func(t *testing.T) {
		_, err := Read(strings.NewReader("a,b\n1\n"), ',')
		assert.Error(t, err)
	})

	t.Run("tab delimiter", func(t *testing.T) {
		d, err := delimiter(`\t`)
		require.NoError(t, err)
		rows, err := Read(strings.NewReader("a\tb\nx\ty\n"), d)
		require.NoError(t, err)
		assert.Equal(t, []domain.Row{{"a": "x", "b": "y"}}, rows)
	})
}
