package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/report-atlas/pkg/metrics"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/extraction"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/rs/zerolog"
)

type Runner interface {
	Run(ctx context.Context, def domain.ReportDefinition, params domain.Params) (*domain.BandTree, error)
}

type Option func(*Engine)

func WithPutEmptyRowIfNoData(v bool) Option {
	return func(e *Engine) {
		e.putEmptyRowIfNoData = v
	}
}

func WithPreprocessors(p *loader.PreprocessorRegistry) Option {
	return func(e *Engine) {
		e.preprocessors = p
	}
}

// Engine extracts report definitions into band trees. It is safe for
// concurrent use; every Run owns its tree.
type Engine struct {
	factory             *extraction.Factory
	preprocessors       *loader.PreprocessorRegistry
	putEmptyRowIfNoData bool
}

func NewEngine(loaders loader.Registry, opts ...Option) *Engine {
	e := &Engine{putEmptyRowIfNoData: true}
	for _, opt := range opts {
		opt(e)
	}
	e.factory = extraction.NewFactory(loaders, e.preprocessors)
	return e
}

func (e *Engine) Run(ctx context.Context, def domain.ReportDefinition, params domain.Params) (*domain.BandTree, error) {
	logger := zerolog.Ctx(ctx).With().Str("report", def.Name).Logger()
	started := time.Now()

	tree, err := e.run(logger.WithContext(ctx), def, params)
	if err != nil {
		status := metrics.StatusFailed
		if errors.Is(err, domain.ErrReportingInterrupted) {
			status = metrics.StatusCancelled
		}
		metrics.Extractions.WithLabelValues(status).Inc()
		logger.Warn().Err(err).Str("status", status).Msg("report extraction did not complete")
		return nil, err
	}

	metrics.Extractions.WithLabelValues(metrics.StatusSucceeded).Inc()
	metrics.Bands.Add(float64(tree.Len()))
	logger.Info().
		Int("bands", tree.Len()).
		Dur("elapsed", time.Since(started)).
		Msg("report extracted")

	return tree, nil
}

func (e *Engine) run(ctx context.Context, def domain.ReportDefinition, params domain.Params) (*domain.BandTree, error) {
	resolved, err := ResolveParams(def.Parameters, params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.ReportingInterruptedError{Cause: err}
	}

	putEmpty := e.putEmptyRowIfNoData
	if def.PutEmptyRowIfNoData != nil {
		putEmpty = *def.PutEmptyRowIfNoData
	}

	tree := domain.NewBandTree(domain.RootBandName, resolved)
	root := tree.Root()
	for _, band := range def.Root.Children {
		ctrl, err := e.factory.ControllerBy(band.Orientation)
		if err != nil {
			return nil, fmt.Errorf("band [%s]: %w", band.Name, err)
		}

		s := extraction.NewScope(tree, band, root, resolved)
		s.PutEmptyRowIfNoData = putEmpty

		children, err := ctrl.Extract(ctx, s)
		if err != nil {
			return nil, err
		}
		tree.AppendChildren(root, children...)
	}
	return tree, nil
}

// ResolveParams applies parameter defaults and rejects missing required
// parameters. Undeclared parameters are passed through.
func ResolveParams(defs []domain.ParameterDef, params domain.Params) (domain.Params, error) {
	resolved := params.Clone()
	for _, def := range defs {
		if v, ok := resolved[def.Name]; ok && v != nil {
			continue
		}
		if def.Default != nil {
			resolved[def.Name] = def.Default
			continue
		}
		if def.Required {
			return nil, domain.NewValidationError("", "parameter %q is required", def.Name)
		}
	}
	return resolved, nil
}
