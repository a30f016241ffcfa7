package extraction

import (
	"context"
	"fmt"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/loader"
)

// Controller turns a band definition into bands of the scope's tree. The
// returned bands are attached to the scope's parent by the caller.
type Controller interface {
	Extract(ctx context.Context, s Scope) ([]domain.BandID, error)
}

type ControllerResolver interface {
	ControllerBy(orientation domain.Orientation) (Controller, error)
}

// Factory dispatches band extraction by orientation. The dispatch table is
// fixed at construction.
type Factory struct {
	controllers map[domain.Orientation]Controller
}

func NewFactory(loaders loader.Registry, preprocessors *loader.PreprocessorRegistry) *Factory {
	if preprocessors == nil {
		preprocessors = loader.NewPreprocessorRegistry()
	}

	f := &Factory{controllers: make(map[domain.Orientation]Controller, 3)}
	def := NewDefaultController(f, loaders, preprocessors)
	f.controllers[domain.OrientationVertical] = def
	f.controllers[domain.OrientationHorizontal] = def
	f.controllers[domain.OrientationCross] = NewCrossTabController(f, loaders, preprocessors)
	return f
}

func (f *Factory) ControllerBy(orientation domain.Orientation) (Controller, error) {
	c, ok := f.controllers[orientation]
	if !ok {
		return nil, fmt.Errorf("no extraction controller for orientation %q", orientation)
	}
	return c, nil
}
