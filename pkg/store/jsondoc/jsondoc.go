package jsondoc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/de-tools/report-atlas/pkg/store/blob"
	"github.com/rs/zerolog"
)

const (
	LoaderType = "json"

	OptionPath     = "path"
	OptionDataPath = "data_path"

	// ValueKey holds non-object array elements.
	ValueKey = "value"
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
	var doc any
	if path := q.Option(OptionPath, ""); path != "" {
		rc, err := l.blobs.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := rc.Close(); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to close json source")
			}
		}()

		doc, err = Decode(rc)
		if err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", q.Name, path, err)
		}
	} else {
		if strings.TrimSpace(q.Script) == "" {
			return nil, domain.NewValidationError(q.Name, "json query needs an inline document or a %q option", OptionPath)
		}
		var err error
		doc, err = Decode(strings.NewReader(q.Script))
		if err != nil {
			return nil, domain.NewValidationError(q.Name, "invalid inline json: %v", err)
		}
	}

	rows, err := Rows(doc, q.Option(OptionDataPath, ""))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}

	zerolog.Ctx(ctx).Debug().Str("query", q.Name).Int("rows", len(rows)).Msg("json document loaded")
	return rows, nil
}

func Decode(r io.Reader) (any, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Rows navigates a dotted path (object keys or array indexes) and turns the
// node it reaches into rows.
func Rows(doc any, dataPath string) ([]domain.Row, error) {
	node, err := navigate(doc, dataPath)
	if err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case nil:
		return nil, nil
	case []any:
		rows := make([]domain.Row, 0, len(n))
		for _, item := range n {
			rows = append(rows, toRow(item))
		}
		return rows, nil
	default:
		return []domain.Row{toRow(n)}, nil
	}
}

func navigate(doc any, dataPath string) (any, error) {
	if dataPath == "" {
		return doc, nil
	}

	node := doc
	for _, seg := range strings.Split(dataPath, ".") {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, fmt.Errorf("data path %q: key %q not found", dataPath, seg)
			}
			node = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil, fmt.Errorf("data path %q: invalid index %q", dataPath, seg)
			}
			node = n[idx]
		default:
			return nil, fmt.Errorf("data path %q: cannot descend into %T at %q", dataPath, node, seg)
		}
	}
	return node, nil
}

func toRow(v any) domain.Row {
	if m, ok := v.(map[string]any); ok {
		return domain.Row(m)
	}
	return domain.Row{ValueKey: v}
}
