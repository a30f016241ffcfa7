package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesYAML = `name: sales
description: Sales by region and month
put_empty_row_if_no_data: false
parameters:
  - name: year
    required: true
  - name: currency
    default: EUR
bands:
  - name: Regions
    orientation: horizontal
    queries:
      - name: regions
        loader: sql
        datasource: warehouse
        script: SELECT id, name FROM regions
      - name: managers
        loader: json
        link: id
        options:
          path: s3://reports/managers.json
    bands:
      - name: Sales
        orientation: cross
        queries:
          - name: Sales_dynamic_header
            loader: sql
            script: SELECT month FROM months
          - name: Sales_master_data
            loader: sql
            script: SELECT product FROM products
          - name: cells
            loader: sql
            script: SELECT product, month, amount FROM sales WHERE region = ${Regions.id}
`

func writeReport(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(salesYAML))
	require.NoError(t, err)

	assert.Equal(t, "sales", def.Name)
	assert.Equal(t, "Sales by region and month", def.Description)
	require.NotNil(t, def.PutEmptyRowIfNoData)
	assert.False(t, *def.PutEmptyRowIfNoData)
	assert.Equal(t, []domain.ParameterDef{
		{Name: "year", Required: true},
		{Name: "currency", Default: "EUR"},
	}, def.Parameters)

	assert.Equal(t, domain.RootBandName, def.Root.Name)
	require.Len(t, def.Root.Children, 1)

	regions := def.Root.Children[0]
	assert.Equal(t, domain.OrientationHorizontal, regions.Orientation)
	require.Len(t, regions.Queries, 2)
	assert.Equal(t, domain.ReportQuery{
		Name:          "managers",
		LoaderType:    "json",
		LinkParameter: "id",
		Options:       map[string]string{"path": "s3://reports/managers.json"},
	}, regions.Queries[1])
	assert.Equal(t, "warehouse", regions.Queries[0].DataSource)

	require.Len(t, regions.Children, 1)
	assert.Equal(t, domain.OrientationCross, regions.Children[0].Orientation)

	assert.NoError(t, Validate(def))
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "sales.yaml", salesYAML)
	writeReport(t, dir, "title.yml", "name: title\nbands:\n  - name: Header\n")
	writeReport(t, dir, "README.md", "not a report")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	catalog, err := LoadCatalog(dir)
	require.NoError(t, err)

	var names []string
	for _, def := range catalog.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"sales", "title"}, names)

	def, err := catalog.Get("title")
	require.NoError(t, err)
	assert.Equal(t, domain.OrientationHorizontal, def.Root.Children[0].Orientation)

	_, err = catalog.Get("missing")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestLoadCatalog_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "a.yaml", "name: same\n")
	writeReport(t, dir, "b.yaml", "name: same\n")

	_, err := LoadCatalog(dir)
	assert.ErrorContains(t, err, `report "same" is already defined`)
}

func TestLoadCatalog_MissingDir(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestParseDefinition_BadOrientation(t *testing.T) {
	_, err := ParseDefinition([]byte("name: x\nbands:\n  - name: B\n    orientation: diagonal\n"))
	assert.ErrorContains(t, err, "unknown band orientation")
}

func TestValidate(t *testing.T) {
	band := func(name string, o domain.Orientation, queries ...domain.ReportQuery) domain.ReportBand {
		return domain.ReportBand{Name: name, Orientation: o, Queries: queries}
	}
	q := func(name string) domain.ReportQuery {
		return domain.ReportQuery{Name: name, LoaderType: "sql"}
	}
	report := func(bands ...domain.ReportBand) domain.ReportDefinition {
		return domain.ReportDefinition{
			Name: "r",
			Root: domain.ReportBand{Name: domain.RootBandName, Children: bands},
		}
	}

	tests := []struct {
		name string
		def  domain.ReportDefinition
		want string
	}{
		{"no name", domain.ReportDefinition{}, "report name is required"},
		{"duplicate band", report(band("A", domain.OrientationVertical), band("A", domain.OrientationVertical)), "duplicate band [A]"},
		{"unnamed band", report(band("", domain.OrientationVertical)), "band name is required"},
		{"duplicate query", report(band("A", domain.OrientationVertical, q("a"), q("a"))), `duplicate query "a"`},
		{"unnamed query", report(band("A", domain.OrientationVertical, q(""))), "has no name"},
		{"no loader", report(band("A", domain.OrientationVertical, domain.ReportQuery{Name: "a"})), "has no loader"},
		{"cross without axes", report(band("X", domain.OrientationCross, q("cells"))), "missing axis query"},
		{"cross without cells", report(band("X", domain.OrientationCross, q("X_dynamic_header"), q("X_master_data"))), "no cell query"},
		{"cross with only axis queries", report(band("X", domain.OrientationCross, q("X_dynamic_header"), q("X_master_data"), q("other_master_data"))), "no cell query"},
		{
			"duplicate parameter",
			domain.ReportDefinition{Name: "r", Parameters: []domain.ParameterDef{{Name: "p"}, {Name: "p"}}},
			`duplicate parameter "p"`,
		},
		{
			"root queries",
			domain.ReportDefinition{Name: "r", Root: domain.ReportBand{Queries: []domain.ReportQuery{q("a")}}},
			"root band cannot carry queries",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, Validate(tt.def), tt.want)
		})
	}

	nested := report(band("A", domain.OrientationVertical))
	nested.Root.Children[0].Children = []domain.ReportBand{band("B", domain.OrientationVertical), band("B", domain.OrientationVertical)}
	assert.ErrorContains(t, Validate(nested), "band [A]: duplicate band [B]")

	assert.NoError(t, Validate(report(band("A", domain.OrientationVertical, q("a")), band("B", domain.OrientationHorizontal))))
}
