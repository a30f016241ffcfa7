package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

const (
	DynamicHeaderSuffix = "_dynamic_header"
	MasterDataSuffix    = "_master_data"

	dynamicHeaderQuery = "dynamic_header"
	masterDataQuery    = "master_data"
)

// IsAxisQuery reports whether a crosstab query feeds one of the pivot axes
// rather than the cells.
func IsAxisQuery(name string) bool {
	return strings.HasSuffix(name, masterDataQuery) || strings.HasSuffix(name, dynamicHeaderQuery)
}

// CrosstabSQLPreprocessor rewrites `${<axis>.<field>}` references in SQL
// crosstab cell queries. The axis parameter holds the rows of an axis query;
// the reference is replaced by `${<axis>__<field>}`, bound to the ordered,
// distinct list of that field's values across the axis rows.
type CrosstabSQLPreprocessor struct{}

func (CrosstabSQLPreprocessor) Preprocess(
	ctx context.Context,
	q domain.ReportQuery,
	params domain.Params,
	next Callback,
) ([]domain.Row, error) {
	extra := make(map[string]any)
	var verr error

	script := paramPattern.ReplaceAllStringFunc(q.Script, func(m string) string {
		name := paramPattern.FindStringSubmatch(m)[1]
		if _, direct := params[name]; direct {
			return m
		}
		axis, field, ok := strings.Cut(name, ".")
		if !ok || !isAxisName(axis) {
			return m
		}
		rows, err := axisRows(params[axis])
		if err != nil {
			if verr == nil {
				verr = domain.NewValidationError(q.Name, "crosstab reference %q: %v", name, err)
			}
			return m
		}

		flat := axis + "__" + field
		if _, done := extra[flat]; !done {
			extra[flat] = distinctValues(rows, field)
		}
		return "${" + flat + "}"
	})
	if verr != nil {
		return nil, verr
	}

	q.Script = script
	return next(ctx, q, params.Merge(extra))
}

func isAxisName(name string) bool {
	return strings.HasSuffix(name, DynamicHeaderSuffix) || strings.HasSuffix(name, MasterDataSuffix)
}

func axisRows(v any) ([]domain.Row, error) {
	switch rows := v.(type) {
	case []domain.Row:
		return rows, nil
	case []map[string]any:
		out := make([]domain.Row, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("axis rows are not loaded")
	default:
		return nil, fmt.Errorf("axis parameter holds %T, not rows", v)
	}
}

func distinctValues(rows []domain.Row, field string) []any {
	seen := make(map[string]struct{}, len(rows))
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		v, ok := r[field]
		if !ok {
			continue
		}
		key := fmt.Sprintf("%T:%v", v, v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
