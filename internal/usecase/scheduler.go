package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"HypeRadar/internal/domain/models"
	applogger "HypeRadar/pkg/logger"
)

// CycleRunner is the slice of RefreshCycle the scheduler needs.
type CycleRunner interface {
	Run(ctx context.Context) (*models.CycleReport, error)
}

// Scheduler triggers refresh cycles on a cron spec such as "@every 1h".
type Scheduler struct {
	runner     CycleRunner
	cron       *cron.Cron
	spec       string
	runOnStart bool
	maxRun     time.Duration
	l          *applogger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	startup sync.WaitGroup
}

func NewScheduler(runner CycleRunner, spec string, runOnStart bool, maxRun time.Duration, l *applogger.Logger) *Scheduler {
	if spec == "" {
		spec = "@every 1h"
	}
	if maxRun <= 0 {
		maxRun = 30 * time.Minute
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Scheduler{
		runner:     runner,
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:       spec,
		runOnStart: runOnStart,
		maxRun:     maxRun,
		l:          l.With(applogger.String("component", "scheduler")),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.l.Info("scheduler started", applogger.String("schedule", s.spec), applogger.Bool("run_on_start", s.runOnStart))
	if s.runOnStart {
		s.startup.Add(1)
		go func() {
			defer s.startup.Done()
			s.tick()
		}()
	}
	return nil
}

// Stop prevents new runs and waits for running ones, including the
// run-on-start cycle, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.startup.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.maxRun)
	defer cancel()

	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		s.l.Info("cycle skipped, another one is running")
	case err != nil:
		s.l.Error("scheduled cycle failed", applogger.Error(err))
	default:
		s.l.Info("scheduled cycle done",
			applogger.String("cycle_id", report.CycleID),
			applogger.Int("critical", len(report.Critical)),
		)
	}
}
