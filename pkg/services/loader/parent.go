package loader

import "github.com/de-tools/report-atlas/pkg/models/domain"

// WithParentFields exposes the parent band's row as `<Band>.<field>` params,
// so queries can reference the enclosing band explicitly.
func WithParentFields(parent domain.BandData, params domain.Params) domain.Params {
	if parent.Name == "" || len(parent.Data) == 0 {
		return params
	}
	extra := make(map[string]any, len(parent.Data))
	for k, v := range parent.Data {
		extra[parent.Name+"."+k] = v
	}
	return params.Merge(extra)
}
