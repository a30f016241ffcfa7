package extraction

import (
	"context"
	"sort"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/rs/zerolog"
)

const headerBandSuffix = "_header"

// CrossTabController builds pivot bands: a header band with one column per
// horizontal-axis row, followed by one band per vertical-axis row holding one
// cell per column.
type CrossTabController struct {
	*DefaultController
}

func NewCrossTabController(
	controllers ControllerResolver,
	loaders loader.Registry,
	preprocessors *loader.PreprocessorRegistry,
) *CrossTabController {
	pp := preprocessors.Clone()
	pp.Register("sql", loader.CrosstabSQLPreprocessor{})
	return &CrossTabController{
		DefaultController: NewDefaultController(controllers, loaders, pp),
	}
}

// Extract always yields the header band. Under a DataEmpty parent no query is
// run and the header is followed by a single empty master band.
func (c *CrossTabController) Extract(ctx context.Context, s Scope) ([]domain.BandID, error) {
	var cellQueries []domain.ReportQuery
	if !s.parentIsEmpty() {
		var err error
		s, cellQueries, err = c.loadAxes(ctx, s)
		if err != nil {
			return nil, err
		}
	}

	rows, err := c.extractData(ctx, s, cellQueries)
	if err != nil {
		return nil, err
	}
	return c.traverseData(ctx, s, rows)
}

// loadAxes runs the axis queries and exposes their rows as params under the
// query name. The remaining cell queries are returned in definition order.
func (c *CrossTabController) loadAxes(ctx context.Context, s Scope) (Scope, []domain.ReportQuery, error) {
	axes := make(map[string]any)
	var cells []domain.ReportQuery
	for _, q := range s.Band.Queries {
		if !loader.IsAxisQuery(q.Name) {
			cells = append(cells, q)
			continue
		}
		rows, err := c.loadQuery(ctx, s, q)
		if err != nil {
			return s, nil, err
		}
		axes[q.Name] = rows
	}
	return s.Extend(axes), cells, nil
}

func (c *CrossTabController) traverseData(ctx context.Context, s Scope, rows []domain.Row) ([]domain.BandID, error) {
	name := s.Band.Name
	hKey := name + loader.DynamicHeaderSuffix
	vKey := name + loader.MasterDataSuffix

	hRows := paramRows(s.Params[hKey])
	vRows := paramRows(s.Params[vKey])

	var hCell, hField, vCell, vField string
	if first := firstRow(rows); first != nil {
		hCell, hField = discoverLink(first, hKey)
		vCell, vField = discoverLink(first, vKey)
	}
	linked := hCell != "" && vCell != ""

	tree := s.Tree
	header := tree.Add(name+headerBandSuffix, domain.OrientationHorizontal, s.Parent, domain.Row{})
	columns := make([]domain.BandID, 0, len(hRows))
	for _, r := range hRows {
		columns = append(columns, tree.Add(hKey, domain.OrientationVertical, header, r.Clone()))
	}
	tree.AppendChildren(header, columns...)

	cells := make(map[axisKey]domain.Row)
	if linked {
		for _, r := range rows {
			if r == nil {
				continue
			}
			cells[newAxisKey(r[hCell], r[vCell])] = r
		}
	}

	bands := []domain.BandID{header}
	for _, vRow := range vRows {
		if err := ctx.Err(); err != nil {
			return nil, &domain.ReportingInterruptedError{Band: name, Cause: err}
		}

		master := tree.Add(vKey, domain.OrientationHorizontal, s.Parent, vRow.Clone())
		for _, col := range columns {
			var data domain.Row
			if linked {
				if cell, ok := cells[newAxisKey(tree.Band(col).Data[hField], vRow[vField])]; ok {
					data = cell.Clone()
				}
			}
			tree.AppendChildren(master, tree.Add(name, domain.OrientationVertical, master, data))
		}
		bands = append(bands, master)
	}

	if len(vRows) == 0 {
		bands = append(bands, tree.Add(vKey, domain.OrientationHorizontal, s.Parent, nil))
	}

	zerolog.Ctx(ctx).Debug().
		Str("band", name).
		Int("columns", len(columns)).
		Int("rows", len(vRows)).
		Int("cells", len(cells)).
		Msg("crosstab band built")

	return bands, nil
}

func paramRows(v any) []domain.Row {
	switch rows := v.(type) {
	case []domain.Row:
		return rows
	case []map[string]any:
		out := make([]domain.Row, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out
	default:
		return nil
	}
}

func firstRow(rows []domain.Row) domain.Row {
	for _, r := range rows {
		if r != nil {
			return r
		}
	}
	return nil
}

// discoverLink finds the key of row that refers to the given axis and returns
// it together with the raw field name used in the axis rows, e.g.
// "sales_dynamic_header.quarter" -> "quarter".
func discoverLink(row domain.Row, axis string) (key, field string) {
	keys := make([]string, 0, len(row))
	for k := range row {
		if strings.HasPrefix(k, axis) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", ""
	}
	sort.Strings(keys)
	key = keys[0]
	field = strings.TrimPrefix(key, axis)
	if len(field) > 0 && (field[0] == '.' || field[0] == '@') {
		field = field[1:]
	}
	return key, field
}
