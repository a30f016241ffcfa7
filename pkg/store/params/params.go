package params

import (
	"context"
	"reflect"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
)

const (
	LoaderType = "params"

	OptionParam = "param"
)

type dataLoader struct{}

// NewLoader returns the loader that serves rows handed in by the caller as a
// report parameter.
func NewLoader() loader.Loader {
	return dataLoader{}
}

func (dataLoader) Load(
	_ context.Context,
	q domain.ReportQuery,
	_ domain.BandData,
	params domain.Params,
) ([]domain.Row, error) {
	name := q.Option(OptionParam, q.Script)
	if name == "" {
		return nil, domain.NewValidationError(q.Name, "params query needs a %q option", OptionParam)
	}

	v, ok := params[name]
	if !ok {
		return nil, domain.NewValidationError(q.Name, "parameter %q is not set", name)
	}
	return toRows(q.Name, name, v)
}

func toRows(queryName, name string, v any) ([]domain.Row, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []domain.Row:
		return t, nil
	case []map[string]any:
		rows := make([]domain.Row, 0, len(t))
		for _, m := range t {
			rows = append(rows, domain.Row(m))
		}
		return rows, nil
	case domain.Row:
		return []domain.Row{t}, nil
	case map[string]any:
		return []domain.Row{domain.Row(t)}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, domain.NewValidationError(queryName, "parameter %q is %T, not a list of rows", name, v)
	}

	rows := make([]domain.Row, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		switch item := rv.Index(i).Interface().(type) {
		case domain.Row:
			rows = append(rows, item)
		case map[string]any:
			rows = append(rows, domain.Row(item))
		default:
			return nil, domain.NewValidationError(queryName, "parameter %q item %d is %T, not a row", name, i, item)
		}
	}
	return rows, nil
}
