package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
)

type countingRunner struct {
	runs int32
	err  error
}

func (r *countingRunner) Run(context.Context) (*models.CycleReport, error) {
	atomic.AddInt32(&r.runs, 1)
	if r.err != nil {
		return nil, r.err
	}
	return &models.CycleReport{CycleID: "c"}, nil
}

func TestSchedulerRunsOnStart(t *testing.T) {
	r := &countingRunner{}
	s := NewScheduler(r, "@every 1h", true, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&r.runs) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

// blockingRunner holds Run until its context is cancelled.
type blockingRunner struct {
	started  chan struct{}
	finished int32
}

func (r *blockingRunner) Run(ctx context.Context) (*models.CycleReport, error) {
	close(r.started)
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	atomic.StoreInt32(&r.finished, 1)
	return nil, ctx.Err()
}

func TestSchedulerStopWaitsForStartupRun(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{})}
	s := NewScheduler(r, "@every 1h", true, time.Minute, nil)
	require.NoError(t, s.Start(context.Background()))
	<-r.started

	require.NoError(t, s.Stop(context.Background()))
	assert.EqualValues(t, 1, atomic.LoadInt32(&r.finished))
}

func TestSchedulerStopHonoursDeadline(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{})}
	s := NewScheduler(r, "@every 1h", true, time.Minute, nil)
	require.NoError(t, s.Start(context.Background()))
	<-r.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.Canceled)
}

func TestSchedulerToleratesBusyCycle(t *testing.T) {
	r := &countingRunner{err: ErrCycleInProgress}
	s := NewScheduler(r, "@every 1h", false, time.Second, nil)
	require.NoError(t, s.Start(context.Background()))
	s.tick()
	assert.EqualValues(t, 1, atomic.LoadInt32(&r.runs))
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingRunner{}, "not a cron", false, 0, nil)
	assert.Error(t, s.Start(context.Background()))
}
