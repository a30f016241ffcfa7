package extraction

import "github.com/de-tools/report-atlas/pkg/models/domain"

// Scope is the transient state of one band extraction: the band definition
// being processed, the parent band and the accumulated parameters.
type Scope struct {
	Band   domain.ReportBand
	Parent domain.BandID
	Tree   *domain.BandTree
	Params domain.Params

	// PutEmptyRowIfNoData substitutes a single DataEmpty placeholder when the
	// band's queries selected no rows.
	PutEmptyRowIfNoData bool
}

func NewScope(tree *domain.BandTree, band domain.ReportBand, parent domain.BandID, params domain.Params) Scope {
	if params == nil {
		params = domain.Params{}
	}
	return Scope{
		Band:                band,
		Parent:              parent,
		Tree:                tree,
		Params:              params,
		PutEmptyRowIfNoData: true,
	}
}

// Extend returns a copy of the scope whose params are overlaid with extra.
// The receiver's params are left untouched.
func (s Scope) Extend(extra map[string]any) Scope {
	s.Params = s.Params.Merge(extra)
	return s
}

// ForChild derives the scope of a child band definition expanded under the
// given parent band, with the parent's row overlaid on the accumulated params.
func (s Scope) ForChild(band domain.ReportBand, parent domain.BandID, row domain.Row) Scope {
	s.Band = band
	s.Parent = parent
	s.Params = s.Params.Merge(row)
	return s
}

func (s Scope) ParentBand() domain.BandData {
	if s.Parent == domain.NoBand || s.Tree == nil {
		return domain.BandData{ID: domain.NoBand, Parent: domain.NoBand, Data: domain.Row{}}
	}
	return s.Tree.Band(s.Parent)
}

func (s Scope) parentIsEmpty() bool {
	return s.Tree != nil && s.Tree.IsEmpty(s.Parent)
}
