package loader

import (
	"context"
	"time"

	"github.com/de-tools/report-atlas/pkg/metrics"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

type instrumented struct {
	loaderType string
	next       Loader
}

// Instrumented records duration and failures of every Load call and logs
// each call at debug level.
func Instrumented(loaderType string, l Loader) Loader {
	return &instrumented{loaderType: loaderType, next: l}
}

func (i *instrumented) Load(
	ctx context.Context,
	q domain.ReportQuery,
	parent domain.BandData,
	params domain.Params,
) ([]domain.Row, error) {
	start := time.Now()
	rows, err := i.next.Load(ctx, q, parent, params)
	elapsed := time.Since(start)

	metrics.LoaderDuration.WithLabelValues(i.loaderType).Observe(elapsed.Seconds())
	if err != nil {
		metrics.LoaderErrors.WithLabelValues(i.loaderType).Inc()
	}

	zerolog.Ctx(ctx).Debug().
		Str("loader", i.loaderType).
		Str("query", q.Name).
		Int("rows", len(rows)).
		Dur("elapsed", elapsed).
		Err(err).
		Msg("loader call")
	return rows, err
}
