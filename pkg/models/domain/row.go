package domain

import "reflect"

// Row is a single flat key-value record produced by a data loader.
type Row map[string]any

// Params is the accumulated parameter mapping visible to a band's queries.
type Params map[string]any

func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a new mapping holding p overlaid with extra.
func (p Params) Merge(extra map[string]any) Params {
	out := make(Params, len(p)+len(extra))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// IsScalar reports whether v is neither a collection nor a mapping.
func IsScalar(v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case string, []byte:
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return false
	default:
		return true
	}
}
