package loader

import (
	"context"
	"sync"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// Callback runs the (possibly rewritten) query.
type Callback func(ctx context.Context, q domain.ReportQuery, params domain.Params) ([]domain.Row, error)

// Preprocessor may rewrite a query and its parameters before the callback
// loads the data.
type Preprocessor interface {
	Preprocess(ctx context.Context, q domain.ReportQuery, params domain.Params, next Callback) ([]domain.Row, error)
}

type passThrough struct{}

func (passThrough) Preprocess(
	ctx context.Context,
	q domain.ReportQuery,
	params domain.Params,
	next Callback,
) ([]domain.Row, error) {
	return next(ctx, q, params)
}

// PreprocessorRegistry maps loader types to preprocessors. Loader types
// without a registered preprocessor get a pass-through one.
type PreprocessorRegistry struct {
	mu         sync.RWMutex
	processors map[string]Preprocessor
}

func NewPreprocessorRegistry() *PreprocessorRegistry {
	return &PreprocessorRegistry{processors: make(map[string]Preprocessor)}
}

func (r *PreprocessorRegistry) Register(loaderType string, p Preprocessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[loaderType] = p
}

func (r *PreprocessorRegistry) ProcessorBy(loaderType string) Preprocessor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.processors[loaderType]; ok && p != nil {
		return p
	}
	return passThrough{}
}

func (r *PreprocessorRegistry) Clone() *PreprocessorRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewPreprocessorRegistry()
	for k, v := range r.processors {
		c.processors[k] = v
	}
	return c
}
