package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/de-tools/report-atlas/pkg/adapters"
	"github.com/de-tools/report-atlas/pkg/models/domain"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

const bandTemplate = `{{range .}}{{indent .Depth}}{{.Name}} [{{.Orientation}}]{{if .Empty}} (empty){{end}}{{range .Fields}} {{.Key}}={{formatValue .Value}}{{end}}
{{end}}`

const reportsTemplate = `{{range .}}{{.Name}}{{if .Description}} - {{.Description}}{{end}}
{{range .Parameters}}  param {{.Name}}{{if .Required}} (required){{end}}{{if .Default}} default={{.Default}}{{end}}
{{end}}{{end}}`

type field struct {
	Key   string
	Value any
}

type bandLine struct {
	Depth       int
	Name        string
	Orientation domain.Orientation
	Empty       bool
	Fields      []field
}

type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

// Handle prints the band tree as indented text or as nested JSON.
func (c *Reporter) Handle(tree *domain.BandTree, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(c.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(adapters.MapBandTreeDomainToApi(tree))
	case FormatText, "":
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}

	var lines []bandLine
	err := tree.Walk(tree.Root(), func(b domain.BandData, depth int) error {
		lines = append(lines, bandLine{
			Depth:       depth,
			Name:        b.Name,
			Orientation: b.Orientation,
			Empty:       b.State == domain.DataEmpty,
			Fields:      sortedFields(b.Data),
		})
		return nil
	})
	if err != nil {
		return err
	}

	funcMap := template.FuncMap{
		"indent": func(depth int) string {
			return strings.Repeat("  ", depth)
		},
		"formatValue": func(v any) string {
			if s, ok := v.(string); ok {
				return fmt.Sprintf("%q", s)
			}
			if domain.IsScalar(v) {
				return fmt.Sprint(v)
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Sprint(v)
			}
			return string(raw)
		},
	}

	t, err := template.New("bands").Funcs(funcMap).Parse(bandTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, lines)
}

func (c *Reporter) HandleReports(defs []domain.ReportDefinition) error {
	t, err := template.New("reports").Parse(reportsTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, defs)
}

func sortedFields(row domain.Row) []field {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fields := make([]field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, field{Key: k, Value: row[k]})
	}
	return fields
}
