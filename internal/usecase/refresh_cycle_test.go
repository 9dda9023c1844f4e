package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	"HypeRadar/internal/repository"
	"HypeRadar/internal/services/scoring"
	pkgcache "HypeRadar/pkg/cache"
)

type cycleFixture struct {
	cycle    *RefreshCycle
	store    *repository.MemoryStore
	history  *repository.MemoryHistoryLog
	notifier *fakeNotifier
	shared   *pkgcache.MemoryCache
}

func newCycleFixture(t *testing.T, p Providers, store domrepo.ScoreStore) *cycleFixture {
	t.Helper()
	mem := repository.NewMemoryStore()
	if store == nil {
		store = mem
	}
	history := repository.NewMemoryHistoryLog(7 * 24 * time.Hour)
	notifier := &fakeNotifier{}
	shared := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = shared.Close() })

	cfg := scoring.DefaultConfig()
	cycle := NewRefreshCycle(
		testWatchlist,
		NewSampleCollector(p, 2, time.Second, cfg.Mover.MomentumDays, nil),
		scoring.NewScorer(cfg),
		scoring.NewMoverPredictor(cfg.Mover),
		scoring.NewHypeAnalyzer(cfg.Hype),
		store, history, notifier, shared, nil, nil,
		CycleOptions{Recipients: []string{"ops@example.com"}},
	)
	return &cycleFixture{cycle: cycle, store: mem, history: history, notifier: notifier, shared: shared}
}

func TestRefreshCycleScoresPersistsAndNotifiesOnce(t *testing.T) {
	p, _, _ := hotProviders()
	f := newCycleFixture(t, p, nil)

	var seen *models.CycleReport
	f.cycle.Subscribe(listenerFunc(func(r *models.CycleReport) { seen = r }))

	report, err := f.cycle.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Scores, 2)
	assert.NotEmpty(t, report.CycleID)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []string{"GME"}, report.Critical)
	assert.Same(t, report, seen)

	gme, err := f.store.GetScore(context.Background(), "GME")
	require.NoError(t, err)
	assert.Equal(t, models.AlertCritical, gme.AlertLevel)
	amc, err := f.store.GetScore(context.Background(), "AMC")
	require.NoError(t, err)
	assert.Equal(t, models.AlertLow, amc.AlertLevel)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, []string{"GME"}, f.notifier.calls[0])

	snaps, err := f.history.ReadHistory(context.Background(), "GME", time.Hour)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, report.CycleID, snaps[0].CycleID)

	require.Len(t, report.Movers, 2)
	assert.Equal(t, "GME", report.Movers[0].Ticker)
	assert.True(t, report.Movers[0].MomentumAvailable)
	require.Len(t, report.Hype, 2)
	assert.Equal(t, "GME", report.Hype[0].Ticker)

	movers, err := f.store.ListMovers(context.Background())
	require.NoError(t, err)
	assert.Len(t, movers, 2)
	hype, err := f.store.ListHype(context.Background())
	require.NoError(t, err)
	assert.Len(t, hype, 2)
}

func TestRefreshCycleNoCriticalNoNotification(t *testing.T) {
	p, opts, _ := hotProviders()
	opts.flows["GME"] = &models.OptionsFlow{CallVolume: 100, PutVolume: 100}
	p.Price = &fakePrices{hist: map[string]*models.PriceHistory{"GME": bars(40, 20, 100, 20, 100), "AMC": bars(40, 5, 100, 5, 100)}}
	f := newCycleFixture(t, p, nil)

	report, err := f.cycle.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Critical)
	assert.Empty(t, f.notifier.calls)
}

func TestRefreshCycleRejectsConcurrentRun(t *testing.T) {
	p, _, _ := hotProviders()
	f := newCycleFixture(t, p, nil)

	ok, err := f.shared.TryLock(context.Background(), cycleLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.cycle.Run(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)
}

func TestRefreshCycleReleasesLock(t *testing.T) {
	p, _, _ := hotProviders()
	f := newCycleFixture(t, p, nil)

	_, err := f.cycle.Run(context.Background())
	require.NoError(t, err)
	_, err = f.cycle.Run(context.Background())
	assert.NoError(t, err)
}

func TestRefreshCyclePersistFailureIsPerTicker(t *testing.T) {
	p, _, _ := hotProviders()
	mem := repository.NewMemoryStore()
	f := newCycleFixture(t, p, &failingStore{ScoreStore: mem, fail: map[string]bool{"AMC": true}})

	report, err := f.cycle.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, report.Errors, "AMC")
	assert.Contains(t, report.Errors["AMC"], "upsert_score")
	assert.NotContains(t, report.Errors, "GME")
	assert.True(t, report.Failed())

	_, err = mem.GetScore(context.Background(), "GME")
	assert.NoError(t, err)
	_, err = mem.GetScore(context.Background(), "AMC")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestRefreshCycleProviderFailureScoresWithMissingSignal(t *testing.T) {
	p, opts, _ := hotProviders()
	opts.fail = map[string]bool{"GME": true}
	f := newCycleFixture(t, p, nil)

	report, err := f.cycle.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Scores, 2)

	gme := report.Scores[0]
	assert.Equal(t, "GME", gme.Ticker)
	assert.Equal(t, models.SignalNoData, gme.OptionsLabel)
	assert.Contains(t, gme.MissingSignals, "options")
	assert.Zero(t, gme.OptionsScore)
}

func TestRefreshCycleMomentumFallsBackToHistory(t *testing.T) {
	p, _, _ := hotProviders()
	p.Price = &fakePrices{hist: map[string]*models.PriceHistory{
		"GME": bars(2, 10, 100, 12, 100),
		"AMC": bars(2, 5, 100, 5, 100),
	}}
	f := newCycleFixture(t, p, nil)
	require.NoError(t, f.history.AppendHistory(context.Background(), &models.Snapshot{
		CycleID: "older", Ticker: "GME", CurrentPrice: 8, Timestamp: time.Now().Add(-48 * time.Hour),
	}))

	report, err := f.cycle.Run(context.Background())
	require.NoError(t, err)

	byTicker := map[string]*models.MoverScore{}
	for _, m := range report.Movers {
		byTicker[m.Ticker] = m
	}
	assert.True(t, byTicker["GME"].MomentumAvailable)
	assert.InDelta(t, 0.5, byTicker["GME"].MomentumPct, 1e-9)
	assert.False(t, byTicker["AMC"].MomentumAvailable, "the current cycle's own snapshot is not a reference")
}

func TestRefreshCycleLatest(t *testing.T) {
	p, _, _ := hotProviders()
	f := newCycleFixture(t, p, nil)

	_, err := f.cycle.Latest(context.Background())
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	report, err := f.cycle.Run(context.Background())
	require.NoError(t, err)
	latest, err := f.cycle.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.CycleID, latest.CycleID)

	var shared models.CycleReport
	require.NoError(t, f.shared.Get(context.Background(), cycleLatestKey, &shared))
	assert.Equal(t, report.CycleID, shared.CycleID)
}

func TestRefreshCycleHypeRowsComeFromOneCycle(t *testing.T) {
	p, _, _ := hotProviders()
	f := newCycleFixture(t, p, nil)

	_, err := f.cycle.Run(context.Background())
	require.NoError(t, err)

	delete(p.News.(*fakeNews).news, "AMC")
	report, err := f.cycle.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Hype, 1)

	hype, err := f.store.ListHype(context.Background())
	require.NoError(t, err)
	require.Len(t, hype, 1)
	assert.Equal(t, "GME", hype[0].Ticker)
	assert.Equal(t, report.Hype[0].Timestamp, hype[0].Timestamp)
}
