package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
	"HypeRadar/internal/repository"
	"HypeRadar/internal/services/scoring"
	"HypeRadar/pkg/config"
	applogger "HypeRadar/pkg/logger"
)

func TestScoringConfigDefaultsWithoutOverrides(t *testing.T) {
	sc, err := ProvideScoringConfig(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultConfig(), sc)
}

func TestScoringConfigAppliesOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scoring.Weights.Options = 0.5
	cfg.Scoring.Weights.Volume = 0.5
	cfg.Scoring.TriggerThreshold = 5
	cfg.Scoring.HighAttention = []string{" gme ", "amc"}
	cfg.Scoring.VolumeScale = []config.Point{{X: 1, Y: 0}, {X: 4, Y: 10}}
	cfg.Scoring.Mover.MomentumDays = 3
	cfg.Scoring.RankBoost = []config.Step{{Threshold: 10, Boost: 2}}

	sc, err := ProvideScoringConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, scoring.Weights{Options: 0.5, Volume: 0.5, Social: 0}, sc.Weights)
	assert.Equal(t, 5.0, sc.Normalizer.TriggerThreshold)
	assert.Equal(t, []string{"GME", "AMC"}, sc.Normalizer.HighAttention)
	assert.Equal(t, scoring.Scale{{X: 1, Y: 0}, {X: 4, Y: 10}}, sc.Normalizer.VolumeScale)
	assert.Equal(t, 3, sc.Mover.MomentumDays)
	assert.Equal(t, scoring.Steps{{Threshold: 10, Boost: 2}}, sc.Normalizer.RankBoost)
	assert.Equal(t, scoring.DefaultConfig().Normalizer.SustainedVolumeBoost, sc.Normalizer.SustainedVolumeBoost)
	assert.Equal(t, scoring.DefaultConfig().Tiers, sc.Tiers)
}

func TestScoringConfigRejectsBadWeights(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scoring.Weights.Options = 0.5
	cfg.Scoring.Weights.Volume = 0.2

	_, err := ProvideScoringConfig(cfg)
	assert.ErrorContains(t, err, "sum to 1.0")
}

func TestWatchlistMapsEntries(t *testing.T) {
	cfg := &config.Config{Watchlist: []config.WatchlistEntry{
		{Ticker: "GME", Sector: "Retail", Group: "stocks", Aliases: []string{"gamestop"}},
		{Ticker: "COIN", Group: "crypto"},
	}}
	wl := ProvideWatchlist(cfg)
	require.Len(t, wl, 2)
	assert.Equal(t, models.WatchlistEntry{Ticker: "GME", Sector: "Retail", Group: "stocks", Aliases: []string{"gamestop"}}, wl[0])
	assert.Equal(t, []string{"GME", "COIN"}, wl.Tickers())
}

func TestMemoryBackends(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Type = "memory"
	cfg.Backend.Type = "memory"
	l := applogger.Nop()

	store, closeStore, err := ProvideScoreStore(cfg, l)
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &repository.MemoryStore{}, store)

	ch, closeCH, err := ProvideClickHouseClient(cfg, l)
	require.NoError(t, err)
	defer closeCH()
	assert.Nil(t, ch)
	assert.Nil(t, ProvideCHHistoryLog(ch, l))

	hist, closeHist, err := ProvideHistoryLog(cfg, nil, l)
	require.NoError(t, err)
	defer closeHist()
	assert.IsType(t, &repository.MemoryHistoryLog{}, hist)

	consumer, err := ProvideSnapshotConsumer(cfg, nil, nil, l)
	require.NoError(t, err)
	assert.Nil(t, consumer)

	rc, err := ProvideRedisCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, rc)
	shared, closeShared := ProvideSharedCache(rc, l)
	defer closeShared()
	ok, err := shared.TryLock(context.Background(), "k", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotifierWithoutQueueIsDispatcher(t *testing.T) {
	cfg := &config.Config{}
	d, err := ProvideDispatcher(cfg, nil, applogger.Nop())
	require.NoError(t, err)

	q := ProvideNotifyQueue(cfg, nil, d, applogger.Nop())
	assert.Nil(t, q)
	assert.Same(t, d, ProvideNotifier(d, q))
}

func TestHypeServiceOnlyCallsNewsProvider(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/company-news" {
			_ = json.NewEncoder(w).Encode([]map[string]string{{"headline": "a"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Cycle.Workers = 2
	cfg.Cycle.ProviderTimeout = time.Second
	cfg.Cache.ScoreTTL = time.Minute
	for _, p := range []*config.ProviderConfig{&cfg.Providers.Yahoo, &cfg.Providers.ApeWisdom, &cfg.Providers.Finnhub} {
		p.BaseURL = srv.URL
	}
	cfg.Providers.Finnhub.APIKey = "key"
	l := applogger.Nop()
	sc := scoring.DefaultConfig()
	wl := models.Watchlist{{Ticker: "GME", Group: "stocks"}, {Ticker: "AMC", Group: "stocks"}}

	svc := ProvideHypeService(cfg, wl, ProvideFinnhub(cfg, nil, l, nil), sc,
		ProvideHypeAnalyzer(sc), repository.NewMemoryStore(), l, nil)
	rows, err := svc.Trending(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	mu.Lock()
	defer mu.Unlock()
	for path := range paths {
		assert.Contains(t, []string{"/company-news", "/news-sentiment"}, path)
	}
	assert.Equal(t, 2, paths["/company-news"])
}
