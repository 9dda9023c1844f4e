package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	domsvc "HypeRadar/internal/domain/service"
	"HypeRadar/internal/services/scoring"
	pkgcache "HypeRadar/pkg/cache"
	applogger "HypeRadar/pkg/logger"
	pkgmetrics "HypeRadar/pkg/metrics"
)

var ErrCycleInProgress = errors.New("refresh cycle already in progress")

const (
	cycleLockKey   = "cycle:lock"
	cycleLatestKey = "cycle:latest"
)

type CycleOptions struct {
	LockTTL        time.Duration
	PersistTimeout time.Duration
	HistoryWindow  time.Duration
	Recipients     []string
}

// RefreshCycle runs one collect, score, persist, notify pass over the
// whole watchlist. Only one cycle runs at a time across every process
// sharing the lock store.
type RefreshCycle struct {
	watchlist models.Watchlist
	collector *SampleCollector
	scorer    domsvc.SignalScorer
	movers    domsvc.MoverPredictor
	hype      domsvc.HypeAnalyzer
	store     domrepo.ScoreStore
	history   domrepo.HistoryLog
	notifier  domrepo.Notifier
	shared    pkgcache.Service
	metrics   domrepo.Metrics
	l         *applogger.Logger
	opts      CycleOptions
	now       func() time.Time

	mu        sync.RWMutex
	listeners []domrepo.CycleListener
	last      *models.CycleReport
}

func NewRefreshCycle(
	watchlist models.Watchlist,
	collector *SampleCollector,
	scorer domsvc.SignalScorer,
	movers domsvc.MoverPredictor,
	hype domsvc.HypeAnalyzer,
	store domrepo.ScoreStore,
	history domrepo.HistoryLog,
	notifier domrepo.Notifier,
	shared pkgcache.Service,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	opts CycleOptions,
) *RefreshCycle {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 7 * 24 * time.Hour
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &RefreshCycle{
		watchlist: watchlist,
		collector: collector,
		scorer:    scorer,
		movers:    movers,
		hype:      hype,
		store:     store,
		history:   history,
		notifier:  notifier,
		shared:    shared,
		metrics:   metrics,
		l:         l.With(applogger.String("component", "cycle")),
		opts:      opts,
		now:       time.Now,
	}
}

// Subscribe registers a listener for finished cycles.
func (c *RefreshCycle) Subscribe(l domrepo.CycleListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Run executes one cycle. Provider and persistence failures are reported
// inside the CycleReport; the returned error is reserved for the cycle
// not running at all.
func (c *RefreshCycle) Run(ctx context.Context) (*models.CycleReport, error) {
	ok, err := c.shared.TryLock(ctx, cycleLockKey, c.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, ErrCycleInProgress
	}
	defer func() {
		if err := c.shared.Unlock(context.WithoutCancel(ctx), cycleLockKey); err != nil {
			c.l.Error("release cycle lock", applogger.Error(err))
		}
	}()

	report := &models.CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: c.now().UTC(),
		Errors:    map[string]string{},
	}
	l := c.l.With(applogger.String("cycle_id", report.CycleID))
	l.Info("cycle started", applogger.Int("tickers", len(c.watchlist)))

	samples := c.collector.Collect(ctx, c.watchlist)
	now := c.now()

	scores := c.scoreAndPersist(ctx, report, samples, now, l)
	report.Scores = scores
	report.Movers = c.predictMovers(ctx, report, samples, scores, now)
	report.Hype = c.analyzeHype(ctx, report, samples, now)

	levels := make(map[models.AlertLevel]int, len(models.AlertLevels))
	for _, lv := range models.AlertLevels {
		levels[lv] = 0
	}
	for _, s := range scores {
		levels[s.AlertLevel]++
		if s.AlertLevel == models.AlertCritical {
			report.Critical = append(report.Critical, s.Ticker)
		}
	}
	c.metrics.RecordAlertLevels(levels)

	if len(report.Critical) > 0 {
		if err := c.notifier.NotifyCritical(ctx, report.Critical, c.opts.Recipients); err != nil {
			l.Error("notify critical", applogger.Strings("tickers", report.Critical), applogger.Error(err))
		}
	}

	report.FinishedAt = c.now().UTC()
	outcome := "ok"
	if report.Failed() {
		outcome = "partial"
	}
	c.metrics.ObserveCycle(report.FinishedAt.Sub(report.StartedAt), outcome)
	c.publish(ctx, report)

	l.Info("cycle finished",
		applogger.String("outcome", outcome),
		applogger.Int("critical", len(report.Critical)),
		applogger.Int("errors", len(report.Errors)),
		applogger.Duration("duration_ms", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// Latest returns the last finished cycle, from memory or the shared store.
func (c *RefreshCycle) Latest(ctx context.Context) (*models.CycleReport, error) {
	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()
	if last != nil {
		return last, nil
	}
	var r models.CycleReport
	if err := c.shared.Get(ctx, cycleLatestKey, &r); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, fmt.Errorf("latest cycle: %w", domrepo.ErrNotFound)
		}
		return nil, fmt.Errorf("latest cycle: %w", err)
	}
	return &r, nil
}

func (c *RefreshCycle) scoreAndPersist(ctx context.Context, report *models.CycleReport, samples []*models.RawSignalSample, now time.Time, l *applogger.Logger) []*models.SignalScore {
	scores := make([]*models.SignalScore, 0, len(samples))
	for _, sample := range samples {
		score, issues := c.scorer.Score(sample, now)
		for _, is := range issues {
			l.Warn("data quality",
				applogger.String("ticker", is.Ticker),
				applogger.String("signal", is.Signal),
				applogger.String("reason", is.Reason),
			)
			c.metrics.RecordDataQuality(is.Signal, is.Reason)
		}
		scores = append(scores, score)

		if err := c.persist(ctx, func(ctx context.Context) error { return c.store.UpsertScore(ctx, score) }); err != nil {
			c.fail(report, score.Ticker, "upsert_score", err)
			continue
		}
		snap := models.SnapshotFromScore(report.CycleID, score)
		if err := c.persist(ctx, func(ctx context.Context) error { return c.history.AppendHistory(ctx, snap) }); err != nil {
			c.fail(report, score.Ticker, "append_history", err)
		}
	}
	return scores
}

func (c *RefreshCycle) predictMovers(ctx context.Context, report *models.CycleReport, samples []*models.RawSignalSample, scores []*models.SignalScore, now time.Time) []*models.MoverScore {
	inputs := make([]models.MoverInput, 0, len(samples))
	for i, s := range samples {
		in := models.MoverInput{
			Ticker:       s.Ticker,
			AlertScore:   scores[i].AlertScore,
			CurrentPrice: s.CurrentPrice,
			Price52wHigh: s.Price52wHigh,
		}
		in.MomentumPct, in.HasMomentum = c.momentum(ctx, report.CycleID, s)
		inputs = append(inputs, in)
	}

	movers := c.movers.Predict(inputs, now)
	for _, m := range movers {
		if err := c.persist(ctx, func(ctx context.Context) error { return c.store.UpsertMover(ctx, m) }); err != nil {
			c.fail(report, m.Ticker, "upsert_mover", err)
		}
	}
	return movers
}

// momentum prefers the provider's own price series and falls back to the
// oldest snapshot in the history window, excluding the current cycle.
func (c *RefreshCycle) momentum(ctx context.Context, cycleID string, s *models.RawSignalSample) (float64, bool) {
	if s.CurrentPrice <= 0 {
		return 0, false
	}
	if s.Price5dAgo > 0 {
		return scoring.SafeRatio(s.CurrentPrice-s.Price5dAgo, s.Price5dAgo)
	}

	var snaps []*models.Snapshot
	err := c.persist(ctx, func(ctx context.Context) (err error) {
		snaps, err = c.history.ReadHistory(ctx, s.Ticker, c.opts.HistoryWindow)
		return err
	})
	if err != nil {
		c.l.Debug("momentum history unavailable", applogger.String("ticker", s.Ticker), applogger.Error(err))
		return 0, false
	}
	for _, snap := range snaps {
		if snap.CycleID == cycleID || snap.CurrentPrice <= 0 {
			continue
		}
		return scoring.SafeRatio(s.CurrentPrice-snap.CurrentPrice, snap.CurrentPrice)
	}
	return 0, false
}

// analyzeHype scores tickers whose news provider answered; a missing
// sample would otherwise read as zero sentiment and skew the group mean.
func (c *RefreshCycle) analyzeHype(ctx context.Context, report *models.CycleReport, samples []*models.RawSignalSample, now time.Time) []*models.HypeScore {
	inputs := HypeInputs(samples)
	if len(inputs) == 0 {
		return nil
	}
	rows := c.hype.Analyze(inputs, now)
	if err := c.persist(ctx, func(ctx context.Context) error { return c.store.ReplaceHype(ctx, rows) }); err != nil {
		for _, r := range rows {
			c.fail(report, r.Ticker, "replace_hype", err)
		}
	}
	return rows
}

// HypeInputs maps samples with news data onto hype inputs.
func HypeInputs(samples []*models.RawSignalSample) []models.HypeInput {
	out := make([]models.HypeInput, 0, len(samples))
	for _, s := range samples {
		if !s.Available.Has(models.SourceNews) {
			continue
		}
		out = append(out, models.HypeInput{
			Ticker:    s.Ticker,
			Group:     s.Group,
			SocialRaw: s.SentimentPolarity,
			NewsRaw:   float64(s.NewsCount),
		})
	}
	return out
}

func (c *RefreshCycle) persist(ctx context.Context, fn func(context.Context) error) error {
	pctx, cancel := context.WithTimeout(ctx, c.opts.PersistTimeout)
	defer cancel()
	return fn(pctx)
}

func (c *RefreshCycle) fail(report *models.CycleReport, ticker, op string, err error) {
	c.metrics.RecordPersistError(op)
	c.l.Error("persist failed",
		applogger.String("cycle_id", report.CycleID),
		applogger.String("ticker", ticker),
		applogger.String("op", op),
		applogger.Error(err),
	)
	msg := op + ": " + err.Error()
	if prev, ok := report.Errors[ticker]; ok {
		msg = prev + "; " + msg
	}
	report.Errors[ticker] = msg
}

func (c *RefreshCycle) publish(ctx context.Context, report *models.CycleReport) {
	c.mu.Lock()
	c.last = report
	listeners := append([]domrepo.CycleListener(nil), c.listeners...)
	c.mu.Unlock()

	if err := c.shared.Set(context.WithoutCancel(ctx), cycleLatestKey, report, 24*time.Hour); err != nil {
		c.l.Warn("store latest cycle", applogger.Error(err))
	}
	for _, lst := range listeners {
		lst.OnCycle(report)
	}
}
