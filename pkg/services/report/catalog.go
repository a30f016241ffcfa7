package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"gopkg.in/yaml.v3"
)

var ErrReportNotFound = errors.New("report not found")

type queryDoc struct {
	Name       string            `yaml:"name"`
	Loader     string            `yaml:"loader"`
	DataSource string            `yaml:"datasource"`
	Link       string            `yaml:"link"`
	Script     string            `yaml:"script"`
	Options    map[string]string `yaml:"options"`
}

type bandDoc struct {
	Name        string     `yaml:"name"`
	Orientation string     `yaml:"orientation"`
	Queries     []queryDoc `yaml:"queries"`
	Bands       []bandDoc  `yaml:"bands"`
}

type parameterDoc struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	Default  any    `yaml:"default"`
}

type definitionDoc struct {
	Name                string         `yaml:"name"`
	Description         string         `yaml:"description"`
	PutEmptyRowIfNoData *bool          `yaml:"put_empty_row_if_no_data"`
	Parameters          []parameterDoc `yaml:"parameters"`
	Bands               []bandDoc      `yaml:"bands"`
}

// Catalog holds validated report definitions by name.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]domain.ReportDefinition
}

func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]domain.ReportDefinition)}
}

// LoadCatalog reads every *.yaml and *.yml file in dir.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	c := NewCatalog()
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := c.Add(def); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return c, nil
}

func (c *Catalog) Add(def domain.ReportDefinition) error {
	if err := Validate(def); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.defs[def.Name]; ok {
		return fmt.Errorf("report %q is already defined", def.Name)
	}
	c.defs[def.Name] = def
	return nil
}

func (c *Catalog) Get(name string) (domain.ReportDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[name]
	if !ok {
		return domain.ReportDefinition{}, fmt.Errorf("%w: %s", ErrReportNotFound, name)
	}
	return def, nil
}

// List returns definitions sorted by name.
func (c *Catalog) List() []domain.ReportDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]domain.ReportDefinition, 0, len(c.defs))
	for _, def := range c.defs {
		defs = append(defs, def)
	}
	slices.SortFunc(defs, func(a, b domain.ReportDefinition) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

func ParseDefinition(data []byte) (domain.ReportDefinition, error) {
	var doc definitionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.ReportDefinition{}, fmt.Errorf("failed to parse report definition: %w", err)
	}

	children, err := mapBands(doc.Bands)
	if err != nil {
		return domain.ReportDefinition{}, err
	}

	def := domain.ReportDefinition{
		Name:                doc.Name,
		Description:         doc.Description,
		PutEmptyRowIfNoData: doc.PutEmptyRowIfNoData,
		Root: domain.ReportBand{
			Name:        domain.RootBandName,
			Orientation: domain.OrientationHorizontal,
			Children:    children,
		},
	}
	for _, p := range doc.Parameters {
		def.Parameters = append(def.Parameters, domain.ParameterDef{
			Name:     p.Name,
			Required: p.Required,
			Default:  p.Default,
		})
	}
	return def, nil
}

func mapBands(docs []bandDoc) ([]domain.ReportBand, error) {
	var bands []domain.ReportBand
	for _, d := range docs {
		orientation, err := domain.ParseOrientation(d.Orientation)
		if err != nil {
			return nil, fmt.Errorf("band [%s]: %w", d.Name, err)
		}
		children, err := mapBands(d.Bands)
		if err != nil {
			return nil, err
		}

		band := domain.ReportBand{
			Name:        d.Name,
			Orientation: orientation,
			Children:    children,
		}
		for _, q := range d.Queries {
			band.Queries = append(band.Queries, domain.ReportQuery{
				Name:          q.Name,
				LoaderType:    q.Loader,
				LinkParameter: q.Link,
				Script:        q.Script,
				DataSource:    q.DataSource,
				Options:       q.Options,
			})
		}
		bands = append(bands, band)
	}
	return bands, nil
}

// Validate checks the structural rules every definition must satisfy before
// it can be extracted.
func Validate(def domain.ReportDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return errors.New("report name is required")
	}

	seen := make(map[string]struct{}, len(def.Parameters))
	for _, p := range def.Parameters {
		if p.Name == "" {
			return fmt.Errorf("report %q: parameter name is required", def.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("report %q: duplicate parameter %q", def.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	if len(def.Root.Queries) > 0 {
		return fmt.Errorf("report %q: the root band cannot carry queries", def.Name)
	}
	if err := validateBands(def.Root.Children); err != nil {
		return fmt.Errorf("report %q: %w", def.Name, err)
	}
	return nil
}

func validateBands(bands []domain.ReportBand) error {
	names := make(map[string]struct{}, len(bands))
	for _, b := range bands {
		if strings.TrimSpace(b.Name) == "" {
			return errors.New("band name is required")
		}
		if _, dup := names[b.Name]; dup {
			return fmt.Errorf("duplicate band [%s]", b.Name)
		}
		names[b.Name] = struct{}{}

		if _, err := domain.ParseOrientation(string(b.Orientation)); err != nil {
			return fmt.Errorf("band [%s]: %w", b.Name, err)
		}

		queries := make(map[string]struct{}, len(b.Queries))
		for i, q := range b.Queries {
			if q.Name == "" {
				return fmt.Errorf("band [%s]: query #%d has no name", b.Name, i)
			}
			if _, dup := queries[q.Name]; dup {
				return fmt.Errorf("band [%s]: duplicate query %q", b.Name, q.Name)
			}
			queries[q.Name] = struct{}{}
			if q.LoaderType == "" {
				return fmt.Errorf("band [%s]: query %q has no loader", b.Name, q.Name)
			}
		}

		if b.Orientation == domain.OrientationCross {
			if err := validateCross(b, queries); err != nil {
				return err
			}
		}

		if err := validateBands(b.Children); err != nil {
			return fmt.Errorf("band [%s]: %w", b.Name, err)
		}
	}
	return nil
}

func validateCross(b domain.ReportBand, queries map[string]struct{}) error {
	for _, axis := range []string{b.Name + loader.DynamicHeaderSuffix, b.Name + loader.MasterDataSuffix} {
		if _, ok := queries[axis]; !ok {
			return fmt.Errorf("cross band [%s]: missing axis query %q", b.Name, axis)
		}
	}
	for _, q := range b.Queries {
		if !loader.IsAxisQuery(q.Name) {
			return nil
		}
	}
	return fmt.Errorf("cross band [%s]: no cell query", b.Name)
}
