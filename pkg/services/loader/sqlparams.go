package loader

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

type PlaceholderStyle int

const (
	// PlaceholderQuestion renders positional args as `?` (duckdb, mysql, sqlite, snowflake, databricks).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar renders positional args as `$1, $2, ...` (postgres).
	PlaceholderDollar
)

var paramPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.@]*)\}`)

// ParseSQLParams replaces `${name}` references in script with positional
// placeholders and returns the bound args in order. List values expand to one
// placeholder per element; an empty list renders as NULL.
func ParseSQLParams(queryName, script string, params domain.Params, style PlaceholderStyle) (string, []any, error) {
	var (
		args    []any
		missing string
	)

	next := func() string {
		if style == PlaceholderDollar {
			return "$" + strconv.Itoa(len(args))
		}
		return "?"
	}

	out := paramPattern.ReplaceAllStringFunc(script, func(m string) string {
		name := paramPattern.FindStringSubmatch(m)[1]
		v, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}

		values, isList := listValues(v)
		if !isList {
			args = append(args, v)
			return next()
		}
		if len(values) == 0 {
			return "NULL"
		}
		holders := make([]string, 0, len(values))
		for _, item := range values {
			args = append(args, item)
			holders = append(holders, next())
		}
		return strings.Join(holders, ", ")
	})

	if missing != "" {
		return "", nil, domain.NewValidationError(queryName, "parameter %q is not set", missing)
	}
	return out, args, nil
}

// SubstituteParams replaces `${name}` references with the textual value of the
// parameter, passing each value through escape.
func SubstituteParams(queryName, text string, params domain.Params, escape func(string) string) (string, error) {
	var missing string
	out := paramPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := paramPattern.FindStringSubmatch(m)[1]
		v, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		s := formatValue(v)
		if escape != nil {
			s = escape(s)
		}
		return s
	})
	if missing != "" {
		return "", domain.NewValidationError(queryName, "parameter %q is not set", missing)
	}
	return out, nil
}

func listValues(v any) ([]any, bool) {
	if v == nil || domain.IsScalar(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	if values, ok := listValues(v); ok {
		parts := make([]string, len(values))
		for i, item := range values {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}
