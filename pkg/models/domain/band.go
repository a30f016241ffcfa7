package domain

import (
	"fmt"
	"strings"
)

type Orientation string

const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
	OrientationCross      Orientation = "cross"
)

func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(strings.ToLower(strings.TrimSpace(s))); o {
	case OrientationVertical, OrientationHorizontal, OrientationCross:
		return o, nil
	case "":
		return OrientationHorizontal, nil
	default:
		return "", fmt.Errorf("unknown band orientation: %q", s)
	}
}

// ReportQuery is a single data query attached to a band definition.
type ReportQuery struct {
	Name          string
	LoaderType    string // sql, json, csv, rest, mongo, params
	LinkParameter string // joins this query's rows to the band's first query
	Script        string
	DataSource    string
	Options       map[string]string
}

func (q ReportQuery) Option(key, def string) string {
	if v, ok := q.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// ReportBand is an immutable band template. Definitions form a tree rooted at
// ReportDefinition.Root.
type ReportBand struct {
	Name        string
	Orientation Orientation
	Queries     []ReportQuery
	Children    []ReportBand
}

type ParameterDef struct {
	Name     string
	Required bool
	Default  any
}

type ReportDefinition struct {
	Name        string
	Description string
	Root        ReportBand
	Parameters  []ParameterDef

	// PutEmptyRowIfNoData overrides the engine default when set.
	PutEmptyRowIfNoData *bool
}
