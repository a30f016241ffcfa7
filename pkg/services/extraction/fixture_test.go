package extraction

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/stretchr/testify/require"
)

// stubLoader returns canned rows per query name and records every call.
type stubLoader struct {
	mu      sync.Mutex
	results map[string][]domain.Row
	errs    map[string]error
	calls   []stubCall
}

type stubCall struct {
	Query  domain.ReportQuery
	Parent domain.BandData
	Params domain.Params
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		results: make(map[string][]domain.Row),
		errs:    make(map[string]error),
	}
}

func (s *stubLoader) with(query string, rows ...domain.Row) *stubLoader {
	s.results[query] = rows
	return s
}

func (s *stubLoader) failing(query string, err error) *stubLoader {
	s.errs[query] = err
	return s
}

func (s *stubLoader) Load(
	_ context.Context,
	q domain.ReportQuery,
	parent domain.BandData,
	params domain.Params,
) ([]domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stubCall{Query: q, Parent: parent, Params: params})
	if err := s.errs[q.Name]; err != nil {
		return nil, err
	}
	return s.results[q.Name], nil
}

func (s *stubLoader) callsFor(query string) []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stubCall
	for _, c := range s.calls {
		if c.Query.Name == query {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	loader  *stubLoader
	factory *Factory
}

func setupFixture(t *testing.T, l *stubLoader) *fixture {
	t.Helper()
	registry := loader.NewRegistry()
	require.NoError(t, registry.Register("stub", l))
	return &fixture{
		loader:  l,
		factory: NewFactory(registry, nil),
	}
}

// extract runs a single top-level band below a fresh report root.
func (f *fixture) extract(ctx context.Context, band domain.ReportBand, params domain.Params) (*domain.BandTree, []domain.BandID, error) {
	tree := domain.NewBandTree(domain.RootBandName, params)
	ctrl, err := f.factory.ControllerBy(band.Orientation)
	if err != nil {
		return nil, nil, err
	}
	ids, err := ctrl.Extract(ctx, NewScope(tree, band, tree.Root(), params))
	if err != nil {
		return nil, nil, err
	}
	tree.AppendChildren(tree.Root(), ids...)
	return tree, ids, nil
}

func query(name string) domain.ReportQuery {
	return domain.ReportQuery{Name: name, LoaderType: "stub"}
}

func linkedQuery(name, link string) domain.ReportQuery {
	return domain.ReportQuery{Name: name, LoaderType: "stub", LinkParameter: link}
}

type snapshot struct {
	Name        string
	Orientation domain.Orientation
	State       domain.DataState
	Data        domain.Row
	Children    []snapshot
}

func snap(tree *domain.BandTree, id domain.BandID) snapshot {
	b := tree.Band(id)
	s := snapshot{Name: b.Name, Orientation: b.Orientation, State: b.State, Data: b.Data}
	for _, c := range b.Children {
		s.Children = append(s.Children, snap(tree, c))
	}
	return s
}

func dataOf(tree *domain.BandTree, ids []domain.BandID) []domain.Row {
	out := make([]domain.Row, len(ids))
	for i, id := range ids {
		out[i] = tree.Band(id).Data
	}
	return out
}

func errLoader(msg string) error {
	return fmt.Errorf("%s", msg)
}
