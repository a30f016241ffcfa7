package registry

import (
	"context"
	"errors"

	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/de-tools/report-atlas/pkg/store/blob"
	"github.com/de-tools/report-atlas/pkg/store/csvfile"
	"github.com/de-tools/report-atlas/pkg/store/jsondoc"
	"github.com/de-tools/report-atlas/pkg/store/mongodb"
	"github.com/de-tools/report-atlas/pkg/store/params"
	"github.com/de-tools/report-atlas/pkg/store/rest"
	sqlstore "github.com/de-tools/report-atlas/pkg/store/sql"
)

type Dependencies struct {
	DataSources config.DataSourceRegistry
	Blobs       blob.Opener
	Rest        rest.Settings
}

// Loaders holds the built-in loader registry and the connections it owns.
type Loaders struct {
	Registry loader.Registry

	pool  *sqlstore.Pool
	mongo *mongodb.DataLoader
}

func NewLoaders(deps Dependencies) (*Loaders, error) {
	if deps.Blobs == nil {
		deps.Blobs = blob.NewOpener()
	}

	l := &Loaders{
		Registry: loader.NewRegistry(),
		pool:     sqlstore.NewPool(deps.DataSources),
		mongo:    mongodb.NewLoader(deps.DataSources),
	}

	builtins := map[string]loader.Loader{
		sqlstore.LoaderType: sqlstore.NewLoader(l.pool),
		jsondoc.LoaderType:  jsondoc.NewLoader(deps.Blobs),
		csvfile.LoaderType:  csvfile.NewLoader(deps.Blobs),
		rest.LoaderType:     rest.NewLoader(deps.Rest),
		mongodb.LoaderType:  l.mongo,
		params.LoaderType:   params.NewLoader(),
	}
	for name, ld := range builtins {
		if err := l.Registry.Register(name, loader.Instrumented(name, ld)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// SQLPool exposes the sql data source pool, mainly to bind databases opened
// elsewhere.
func (l *Loaders) SQLPool() *sqlstore.Pool {
	return l.pool
}

func (l *Loaders) Close(ctx context.Context) error {
	return errors.Join(l.pool.Close(), l.mongo.Close(ctx))
}
