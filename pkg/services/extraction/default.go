package extraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/rs/zerolog"
)

// DefaultController extracts vertical and horizontal bands: one band per
// joined query row, each expanded recursively into its child definitions.
type DefaultController struct {
	controllers   ControllerResolver
	loaders       loader.Registry
	preprocessors *loader.PreprocessorRegistry
}

func NewDefaultController(
	controllers ControllerResolver,
	loaders loader.Registry,
	preprocessors *loader.PreprocessorRegistry,
) *DefaultController {
	return &DefaultController{
		controllers:   controllers,
		loaders:       loaders,
		preprocessors: preprocessors,
	}
}

func (c *DefaultController) Extract(ctx context.Context, s Scope) ([]domain.BandID, error) {
	rows, err := c.extractData(ctx, s, s.Band.Queries)
	if err != nil {
		return nil, err
	}
	return c.traverseData(ctx, s, rows)
}

// extractData returns the rows a band is expanded from. A nil row in the
// result is the no-data placeholder.
func (c *DefaultController) extractData(ctx context.Context, s Scope, queries []domain.ReportQuery) ([]domain.Row, error) {
	if len(s.Band.Queries) == 0 {
		return []domain.Row{domain.Row(s.Params.Clone())}, nil
	}
	if s.parentIsEmpty() {
		return nil, nil
	}

	rows, err := c.queriesResult(ctx, s, queries)
	if err != nil {
		return nil, err
	}

	mergeScalarParams(rows, s.Params)

	if s.PutEmptyRowIfNoData && len(rows) == 0 {
		rows = []domain.Row{nil}
	}

	zerolog.Ctx(ctx).Debug().
		Str("band", s.Band.Name).
		Str("orientation", string(s.Band.Orientation)).
		Int("rows", len(rows)).
		Msg("band data extracted")

	return rows, nil
}

func (c *DefaultController) traverseData(ctx context.Context, s Scope, rows []domain.Row) ([]domain.BandID, error) {
	bands := make([]domain.BandID, 0, len(rows))
	for _, row := range rows {
		band := c.wrapData(s, row)

		for _, def := range s.Band.Children {
			ctrl, err := c.controllers.ControllerBy(def.Orientation)
			if err != nil {
				return nil, fmt.Errorf("band [%s]: %w", def.Name, err)
			}
			children, err := ctrl.Extract(ctx, s.ForChild(def, band, row))
			if err != nil {
				return nil, err
			}
			s.Tree.AppendChildren(band, children...)
		}

		bands = append(bands, band)
	}
	return bands, nil
}

func (c *DefaultController) wrapData(s Scope, row domain.Row) domain.BandID {
	return s.Tree.Add(s.Band.Name, s.Band.Orientation, s.Parent, row)
}

// loadQuery runs one query through its preprocessor and loader. Validation
// and interruption errors are returned unchanged; other failures are wrapped
// in a DataLoadingError naming the band and the query.
func (c *DefaultController) loadQuery(ctx context.Context, s Scope, q domain.ReportQuery) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.ReportingInterruptedError{Band: s.Band.Name, Cause: err}
	}

	l, err := c.loaders.Get(q.LoaderType)
	if err != nil {
		return nil, &domain.DataLoadingError{Band: s.Band.Name, Query: q.Name, Err: err}
	}

	parent := s.ParentBand()
	rows, err := c.preprocessors.ProcessorBy(q.LoaderType).Preprocess(ctx, q, s.Params,
		func(ctx context.Context, q domain.ReportQuery, params domain.Params) ([]domain.Row, error) {
			return l.Load(ctx, q, parent, params)
		})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr), errors.Is(err, domain.ErrReportingInterrupted):
			return nil, err
		case ctx.Err() != nil:
			return nil, &domain.ReportingInterruptedError{Band: s.Band.Name, Cause: err}
		default:
			return nil, &domain.DataLoadingError{Band: s.Band.Name, Query: q.Name, Err: err}
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("band", s.Band.Name).
		Str("query", q.Name).
		Str("loader", q.LoaderType).
		Int("rows", len(rows)).
		Msg("query loaded")

	return cloneRows(rows), nil
}

func cloneRows(rows []domain.Row) []domain.Row {
	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		if r == nil {
			out[i] = domain.Row{}
			continue
		}
		out[i] = r.Clone()
	}
	return out
}

// mergeScalarParams copies scalar params into every row that does not carry
// the key already.
func mergeScalarParams(rows []domain.Row, params domain.Params) {
	for k, v := range params {
		if !domain.IsScalar(v) {
			continue
		}
		for _, row := range rows {
			if row == nil {
				continue
			}
			if _, exists := row[k]; !exists {
				row[k] = v
			}
		}
	}
}
