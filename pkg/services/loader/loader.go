package loader

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// Loader executes a single report query and returns its rows.
type Loader interface {
	Load(ctx context.Context, q domain.ReportQuery, parent domain.BandData, params domain.Params) ([]domain.Row, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, q domain.ReportQuery, parent domain.BandData, params domain.Params) ([]domain.Row, error)

func (f LoaderFunc) Load(
	ctx context.Context,
	q domain.ReportQuery,
	parent domain.BandData,
	params domain.Params,
) ([]domain.Row, error) {
	return f(ctx, q, parent, params)
}

// Registry resolves loaders by loader type
type Registry interface {
	// Register adds a loader for the given loader type
	Register(loaderType string, l Loader) error
	// Get returns the loader registered for the loader type
	Get(loaderType string) (Loader, error)
	// ListTypes returns the registered loader types, sorted
	ListTypes() []string
}

type registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

func NewRegistry() Registry {
	return &registry{
		loaders: make(map[string]Loader),
	}
}

func (r *registry) Register(loaderType string, l Loader) error {
	if loaderType == "" {
		return fmt.Errorf("loader type cannot be empty")
	}
	if l == nil {
		return fmt.Errorf("loader cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.loaders[loaderType]; exists {
		return fmt.Errorf("loader %q is already registered", loaderType)
	}

	r.loaders[loaderType] = l
	return nil
}

func (r *registry) Get(loaderType string) (Loader, error) {
	r.mu.RLock()
	l, exists := r.loaders[loaderType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("loader %q is not registered", loaderType)
	}
	return l, nil
}

func (r *registry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
