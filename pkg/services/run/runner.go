package run

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/de-tools/report-atlas/pkg/adapters"
	"github.com/de-tools/report-atlas/pkg/metrics"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/services/report"
	runstore "github.com/de-tools/report-atlas/pkg/store/duckdb/run"
	"github.com/rs/zerolog"
)

// Runner executes one report run and records its outcome.
type Runner struct {
	run    *store.Run
	def    domain.ReportDefinition
	engine report.Runner
	store  runstore.Store
	done   chan struct{}
}

func NewRunner(
	run *store.Run,
	def domain.ReportDefinition,
	engine report.Runner,
	store runstore.Store,
) *Runner {
	return &Runner{
		run:    run,
		def:    def,
		engine: engine,
		store:  store,
		done:   make(chan struct{}),
	}
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	logger := zerolog.Ctx(ctx).With().
		Str("run", r.run.ID).
		Str("report", r.run.Report).
		Logger()
	ctx = logger.WithContext(ctx)
	started := time.Now()

	status, errMsg, result := r.execute(ctx)

	// the run context may be cancelled at this point
	if err := r.store.FinishRun(context.WithoutCancel(ctx), r.run.ID, status, errMsg, result); err != nil {
		logger.Error().Err(err).Msg("failed to record run outcome")
	}
	metrics.Runs.WithLabelValues(status).Inc()

	logger.Info().
		Str("status", status).
		Dur("elapsed", time.Since(started)).
		Msg("report run finished")
}

func (r *Runner) execute(ctx context.Context) (string, *string, json.RawMessage) {
	tree, err := r.engine.Run(ctx, r.def, domain.Params(r.run.Params))
	if err != nil {
		msg := err.Error()
		if errors.Is(err, domain.ErrReportingInterrupted) {
			return store.RunStatusCancelled, &msg, nil
		}
		return store.RunStatusFailed, &msg, nil
	}

	result, err := json.Marshal(adapters.MapBandTreeDomainToApi(tree))
	if err != nil {
		msg := "encode result: " + err.Error()
		return store.RunStatusFailed, &msg, nil
	}
	return store.RunStatusSucceeded, nil, result
}
