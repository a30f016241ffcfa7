package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type RunStarter interface {
	Start(ctx context.Context, report string, params domain.Params, timeout time.Duration) (string, error)
	Cancel(ctx context.Context, id string) error
	Wait(ctx context.Context, id string) error
}

// Scheduler starts report runs on cron expressions.
type Scheduler struct {
	cron *cron.Cron
	runs RunStarter
	ctx  context.Context

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewScheduler(ctx context.Context, runs RunStarter, schedules []config.ScheduleConfig) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		runs:     runs,
		ctx:      ctx,
		inFlight: make(map[string]struct{}),
	}

	for _, sc := range schedules {
		if sc.Report == "" {
			return nil, fmt.Errorf("schedule %q has no report", sc.Cron)
		}
		job := sc
		if _, err := s.cron.AddFunc(sc.Cron, func() { s.fire(job) }); err != nil {
			return nil, fmt.Errorf("invalid cron expression %q for report %s: %w", sc.Cron, sc.Report, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	zerolog.Ctx(s.ctx).Info().Int("schedules", s.Len()).Msg("scheduler started")
	s.cron.Start()
}

// Stop halts the cron loop, waits for firing jobs and cancels the runs they
// started that are still in flight.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	pending := s.inFlight
	s.inFlight = make(map[string]struct{})
	s.mu.Unlock()

	for id := range pending {
		// finished runs report an error here
		if err := s.runs.Cancel(ctx, id); err != nil {
			zerolog.Ctx(s.ctx).Debug().Err(err).Str("run", id).Msg("scheduled run not cancelled")
		}
	}
	return nil
}

func (s *Scheduler) fire(sc config.ScheduleConfig) {
	logger := zerolog.Ctx(s.ctx).With().Str("report", sc.Report).Str("cron", sc.Cron).Logger()

	id, err := s.runs.Start(s.ctx, sc.Report, domain.Params(sc.Params).Clone(), sc.Timeout)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled run failed to start")
		return
	}

	s.mu.Lock()
	s.inFlight[id] = struct{}{}
	s.mu.Unlock()
	go s.forget(id)

	logger.Info().Str("run", id).Msg("scheduled run started")
}

// forget drops id from the in-flight set once its run has finished.
func (s *Scheduler) forget(id string) {
	if err := s.runs.Wait(s.ctx, id); err != nil {
		return
	}
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Scheduler) inFlightIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.inFlight))
	for id := range s.inFlight {
		ids = append(ids, id)
	}
	return ids
}
