package adapters

import (
	"maps"

	"github.com/de-tools/report-atlas/pkg/models/api"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/models/store"
)

// MapBandTreeDomainToApi nests the flat band arena starting at the root.
func MapBandTreeDomainToApi(tree *domain.BandTree) api.Band {
	return mapBand(tree, tree.Root())
}

func mapBand(tree *domain.BandTree, id domain.BandID) api.Band {
	b := tree.Band(id)
	res := api.Band{
		Name:        b.Name,
		Orientation: string(b.Orientation),
		Empty:       b.State == domain.DataEmpty,
		Data:        maps.Clone(map[string]any(b.Data)),
	}
	if res.Data == nil {
		res.Data = map[string]any{}
	}
	for _, child := range b.Children {
		res.Children = append(res.Children, mapBand(tree, child))
	}
	return res
}

func MapReportDefinitionDomainToApi(def domain.ReportDefinition) api.Report {
	res := api.Report{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  make([]api.Parameter, 0, len(def.Parameters)),
		Bands:       make([]string, 0, len(def.Root.Children)),
	}
	for _, p := range def.Parameters {
		res.Parameters = append(res.Parameters, api.Parameter{
			Name:     p.Name,
			Required: p.Required,
			Default:  p.Default,
		})
	}
	for _, b := range def.Root.Children {
		res.Bands = append(res.Bands, b.Name)
	}
	return res
}

func MapRunStoreToApi(r *store.Run) api.Run {
	return api.Run{
		ID:         r.ID,
		Report:     r.Report,
		Status:     r.Status,
		Error:      r.Error,
		Params:     r.Params,
		Result:     r.Result,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
