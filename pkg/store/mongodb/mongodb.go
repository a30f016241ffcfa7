package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/loader"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	LoaderType = "mongo"

	DefaultDataSource = "default"
)

var exactParam = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_.@]*)\}$`)

// FindSpec is the query script of a mongo band query.
type FindSpec struct {
	Collection string `bson:"collection"`
	Filter     bson.D `bson:"filter,omitempty"`
	Sort       bson.D `bson:"sort,omitempty"`
	Projection bson.D `bson:"projection,omitempty"`
	Limit      int64  `bson:"limit,omitempty"`
}

type source struct {
	client   *mongo.Client
	database string
}

// DataLoader runs find specs against mongo data sources, connecting lazily.
type DataLoader struct {
	sources config.DataSourceRegistry

	mu      sync.Mutex
	clients map[string]source
}

func NewLoader(sources config.DataSourceRegistry) *DataLoader {
	return &DataLoader{
		sources: sources,
		clients: make(map[string]source),
	}
}

func (l *DataLoader) Load(
	ctx context.Context,
	q domain.ReportQuery,
	parent domain.BandData,
	params domain.Params,
) ([]domain.Row, error) {
	spec, err := ParseFindSpec(q.Name, q.Script, loader.WithParentFields(parent, params))
	if err != nil {
		return nil, err
	}

	src, err := l.source(ctx, q.DataSource)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if len(spec.Sort) > 0 {
		opts.SetSort(spec.Sort)
	}
	if len(spec.Projection) > 0 {
		opts.SetProjection(spec.Projection)
	}
	if spec.Limit > 0 {
		opts.SetLimit(spec.Limit)
	}

	filter := spec.Filter
	if filter == nil {
		filter = bson.D{}
	}

	cur, err := src.client.Database(src.database).Collection(spec.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find in %s: %w", q.Name, spec.Collection, err)
	}

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: read cursor: %w", q.Name, err)
	}

	rows := make([]domain.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, toRow(doc))
	}

	zerolog.Ctx(ctx).Debug().
		Str("query", q.Name).
		Str("collection", spec.Collection).
		Int("rows", len(rows)).
		Msg("mongo find executed")

	return rows, nil
}

func (l *DataLoader) source(ctx context.Context, name string) (source, error) {
	if name == "" {
		name = DefaultDataSource
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.clients[name]; ok {
		return s, nil
	}
	if l.sources == nil {
		return source{}, fmt.Errorf("data source %q is not configured", name)
	}

	ds, err := l.sources.GetDataSource(ctx, name)
	if err != nil {
		return source{}, err
	}
	if ds.Driver != LoaderType {
		return source{}, fmt.Errorf("data source %q has driver %q, want %q", name, ds.Driver, LoaderType)
	}
	if ds.Database == "" {
		return source{}, fmt.Errorf("data source %q has no database", name)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(ds.DSN))
	if err != nil {
		return source{}, fmt.Errorf("connect data source %q: %w", name, err)
	}

	s := source{client: client, database: ds.Database}
	l.clients[name] = s
	return s, nil
}

func (l *DataLoader) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for name, s := range l.clients {
		if err := s.client.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("disconnect data source %q: %w", name, err)
		}
	}
	l.clients = make(map[string]source)
	return firstErr
}

// ParseFindSpec decodes an extended-JSON find spec. String values that are
// exactly `${name}` are replaced by the typed param value.
func ParseFindSpec(queryName, script string, params domain.Params) (*FindSpec, error) {
	if strings.TrimSpace(script) == "" {
		return nil, domain.NewValidationError(queryName, "mongo find spec is empty")
	}

	var spec FindSpec
	if err := bson.UnmarshalExtJSON([]byte(script), false, &spec); err != nil {
		return nil, domain.NewValidationError(queryName, "invalid mongo find spec: %v", err)
	}
	if spec.Collection == "" {
		return nil, domain.NewValidationError(queryName, "mongo find spec has no collection")
	}

	filter, err := substitute(queryName, spec.Filter, params)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		spec.Filter = filter.(bson.D)
	}
	return &spec, nil
}

func substitute(queryName string, v any, params domain.Params) (any, error) {
	switch t := v.(type) {
	case bson.D:
		if t == nil {
			return nil, nil
		}
		out := make(bson.D, len(t))
		for i, e := range t {
			val, err := substitute(queryName, e.Value, params)
			if err != nil {
				return nil, err
			}
			out[i] = bson.E{Key: e.Key, Value: val}
		}
		return out, nil
	case bson.A:
		out := make(bson.A, len(t))
		for i, e := range t {
			val, err := substitute(queryName, e, params)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case string:
		m := exactParam.FindStringSubmatch(t)
		if m == nil {
			return t, nil
		}
		val, ok := params[m[1]]
		if !ok {
			return nil, domain.NewValidationError(queryName, "parameter %q is not set", m[1])
		}
		return val, nil
	default:
		return v, nil
	}
}

func toRow(doc bson.M) domain.Row {
	row := make(domain.Row, len(doc))
	for k, v := range doc {
		if oid, ok := v.(bson.ObjectID); ok {
			row[k] = oid.Hex()
			continue
		}
		row[k] = v
	}
	return row
}
