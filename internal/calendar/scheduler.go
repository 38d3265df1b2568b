package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tour-dashboard/backend/internal/logging"
	"github.com/tour-dashboard/backend/internal/storage/models"
)

// Reloader re-fetches the dashboard. *dashboard.Dashboard implements it.
type Reloader interface {
	Reload(ctx context.Context, trigger string) error
}

// Scheduler periodically reloads the dashboard on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	reloader Reloader
	spec     string
	logger   zerolog.Logger

	entryID cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc

	// inflight tracks manual reloads so Stop can wait for them.
	inflight sync.WaitGroup
}

// NewScheduler creates a scheduler for spec, a standard five-field cron
// expression or descriptor such as "@every 15m". An empty spec disables
// periodic reloads; TriggerReload still works.
func NewScheduler(reloader Reloader, spec string) (*Scheduler, error) {
	logger := logging.Component("scheduler")
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		reloader: reloader,
		spec:     spec,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if spec != "" {
		id, err := s.cron.AddFunc(spec, func() {
			s.reload(models.TriggerSchedule)
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("scheduling reload %q: %w", spec, err)
		}
		s.entryID = id
	}
	return s, nil
}

// Start begins running scheduled reloads.
func (s *Scheduler) Start() {
	s.cron.Start()
	if s.spec == "" {
		s.logger.Info().Msg("Periodic reload disabled")
		return
	}
	s.logger.Info().Str("schedule", s.spec).Msg("Reload scheduler started")
}

// Stop waits for running reloads to finish and shuts down the scheduler.
// In-flight remote calls are cancelled.
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping reload scheduler...")
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.inflight.Wait()
	s.logger.Info().Msg("Reload scheduler stopped")
}

// TriggerReload starts a reload in the background.
func (s *Scheduler) TriggerReload(trigger string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.reload(trigger)
	}()
}

// NextRun returns the next scheduled reload, or nil when none is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	if s.entryID == 0 {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

// Schedule returns the configured cron spec.
func (s *Scheduler) Schedule() string {
	return s.spec
}

func (s *Scheduler) reload(trigger string) {
	if s.ctx.Err() != nil {
		return
	}
	if err := s.reloader.Reload(s.ctx, trigger); err != nil {
		// The dashboard already logged and recorded the failure.
		s.logger.Debug().Err(err).Str("trigger", trigger).Msg("Reload failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
