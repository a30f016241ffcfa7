package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/services/report"
	runstore "github.com/de-tools/report-atlas/pkg/store/duckdb/run"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const interruptedByRestart = "interrupted by restart"

// ErrRunNotRunning is returned when cancelling a run that is not in flight.
var ErrRunNotRunning = errors.New("run not running")

type Catalog interface {
	Get(name string) (domain.ReportDefinition, error)
}

type Controller interface {
	Start(ctx context.Context, report string, params domain.Params, timeout time.Duration) (string, error)
	Cancel(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*store.Run, error)
	Wait(ctx context.Context, id string) error
}

type runDescriptor struct {
	cancelFunc context.CancelFunc
	runner     *Runner
}

type DefaultController struct {
	catalog Catalog
	engine  report.Runner
	store   runstore.Store

	mu   sync.Mutex
	runs map[string]runDescriptor
}

func NewController(
	catalog Catalog,
	engine report.Runner,
	runStore runstore.Store,
) *DefaultController {
	ctrl := &DefaultController{
		catalog: catalog,
		engine:  engine,
		store:   runStore,
		runs:    make(map[string]runDescriptor),
	}

	return ctrl
}

// Init marks runs left in the running state by a previous process as failed.
func (ctrl *DefaultController) Init(ctx context.Context) error {
	runs, err := ctrl.store.ListRuns(ctx, []string{store.RunStatusRunning})
	if err != nil {
		return err
	}

	msg := interruptedByRestart
	for _, r := range runs {
		if err := ctrl.store.FinishRun(ctx, r.ID, store.RunStatusFailed, &msg, nil); err != nil {
			return err
		}
		zerolog.Ctx(ctx).Warn().Str("run", r.ID).Msg("stale run marked as failed")
	}

	return nil
}

func (ctrl *DefaultController) Start(
	ctx context.Context,
	reportName string,
	params domain.Params,
	timeout time.Duration,
) (string, error) {
	def, err := ctrl.catalog.Get(reportName)
	if err != nil {
		return "", err
	}
	if _, err := report.ResolveParams(def.Parameters, params); err != nil {
		return "", err
	}

	r := &store.Run{
		ID:     uuid.NewString(),
		Report: def.Name,
		Status: store.RunStatusRunning,
		Params: params,
	}
	if err := ctrl.store.CreateRun(ctx, r); err != nil {
		return "", err
	}

	ctrl.startRun(ctx, r, def, timeout)
	return r.ID, nil
}

func (ctrl *DefaultController) Cancel(_ context.Context, id string) error {
	ctrl.mu.Lock()
	desc, ok := ctrl.runs[id]
	ctrl.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotRunning, id)
	}

	desc.cancelFunc()
	<-desc.runner.Done()
	return nil
}

func (ctrl *DefaultController) Get(ctx context.Context, id string) (*store.Run, error) {
	return ctrl.store.GetRun(ctx, id)
}

// Wait blocks until the run finishes or ctx is done. Runs that are not
// in flight return immediately.
func (ctrl *DefaultController) Wait(ctx context.Context, id string) error {
	ctrl.mu.Lock()
	desc, ok := ctrl.runs[id]
	ctrl.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-desc.runner.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every in-flight run and waits for them to stop.
func (ctrl *DefaultController) Shutdown(ctx context.Context) error {
	ctrl.mu.Lock()
	descs := make([]runDescriptor, 0, len(ctrl.runs))
	for _, desc := range ctrl.runs {
		descs = append(descs, desc)
	}
	ctrl.mu.Unlock()

	for _, desc := range descs {
		desc.cancelFunc()
	}
	for _, desc := range descs {
		select {
		case <-desc.runner.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (ctrl *DefaultController) startRun(ctx context.Context, r *store.Run, def domain.ReportDefinition, timeout time.Duration) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	// runs outlive the request that started them
	ctx = context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	runner := NewRunner(r, def, ctrl.engine, ctrl.store)
	ctrl.runs[r.ID] = runDescriptor{
		cancelFunc: cancel,
		runner:     runner,
	}

	go func() {
		defer cancel()
		runner.Run(ctx)

		ctrl.mu.Lock()
		delete(ctrl.runs, r.ID)
		ctrl.mu.Unlock()
	}()
}
