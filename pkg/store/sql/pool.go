package sql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/rs/zerolog"
)

const DefaultDataSource = "default"

type DBResolver interface {
	DB(ctx context.Context, name string) (*sql.DB, loader.PlaceholderStyle, error)
}

type pooled struct {
	db    *sql.DB
	style loader.PlaceholderStyle
}

// Pool opens one *sql.DB per configured data source on first use.
type Pool struct {
	sources config.DataSourceRegistry

	mu  sync.Mutex
	dbs map[string]pooled
}

func NewPool(sources config.DataSourceRegistry) *Pool {
	return &Pool{
		sources: sources,
		dbs:     make(map[string]pooled),
	}
}

// Add binds an already opened database to a data source name.
func (p *Pool) Add(name string, db *sql.DB, style loader.PlaceholderStyle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dbs[name] = pooled{db: db, style: style}
}

func (p *Pool) DB(ctx context.Context, name string) (*sql.DB, loader.PlaceholderStyle, error) {
	if name == "" {
		name = DefaultDataSource
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if d, ok := p.dbs[name]; ok {
		return d.db, d.style, nil
	}
	if p.sources == nil {
		return nil, 0, fmt.Errorf("data source %q is not configured", name)
	}

	ds, err := p.sources.GetDataSource(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	driverName, style, err := driverFor(ds.Driver)
	if err != nil {
		return nil, 0, fmt.Errorf("data source %q: %w", name, err)
	}

	db, err := sql.Open(driverName, ds.DSN)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s data source %q: %w", ds.Driver, name, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	zerolog.Ctx(ctx).Info().
		Str("datasource", name).
		Str("driver", ds.Driver).
		Msg("opened sql data source")

	p.dbs[name] = pooled{db: db, style: style}
	return db, style, nil
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for name, d := range p.dbs {
		if err := d.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close data source %q: %w", name, err)
		}
	}
	p.dbs = make(map[string]pooled)
	return firstErr
}
