package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/de-tools/report-atlas/pkg/store/blob"
	"github.com/rs/zerolog"
)

const (
	LoaderType = "csv"

	OptionPath      = "path"
	OptionDelimiter = "delimiter"
)

type dataLoader struct {
	blobs blob.Opener
}

func NewLoader(blobs blob.Opener) loader.Loader {
	return &dataLoader{blobs: blobs}
}

func (l *dataLoader) Load(
	ctx context.Context,
	q domain.ReportQuery,
	_ domain.BandData,
	_ domain.Params,
) ([]domain.Row, error) {
	path := q.Option(OptionPath, "")
	if path == "" {
		return nil, domain.NewValidationError(q.Name, "csv query needs a %q option", OptionPath)
	}
	delim, err := delimiter(q.Option(OptionDelimiter, ","))
	if err != nil {
		return nil, domain.NewValidationError(q.Name, "%v", err)
	}

	rc, err := l.blobs.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to close csv source")
		}
	}()

	rows, err := Read(rc, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", q.Name, path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("query", q.Name).Int("rows", len(rows)).Msg("csv file loaded")
	return rows, nil
}

// Read parses a CSV stream with a mandatory header row.
func Read(r io.Reader, delim rune) ([]domain.Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}

	var rows []domain.Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(domain.Row, len(header))
		for i, col := range header {
			row[col] = infer(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func infer(s string) any {
	if s == "" {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func delimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r, nil
}
