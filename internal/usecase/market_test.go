package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	"HypeRadar/internal/repository"
	"HypeRadar/internal/services/scoring"
)

type countingMacro struct {
	calls  int32
	events []models.MacroEvent
}

func (m *countingMacro) FetchMacroEvents(context.Context) ([]models.MacroEvent, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.events, nil
}

func TestMacroEventsAreCached(t *testing.T) {
	src := &countingMacro{events: []models.MacroEvent{{Question: "Fed cut?", Probability: 0.62, AffectedTickers: []string{}}}}
	svc := NewMacroService(src, time.Minute)

	for i := 0; i < 3; i++ {
		events, err := svc.Events(context.Background())
		require.NoError(t, err)
		require.Len(t, events, 1)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.calls))
}

func TestThemesAttachStoredPrices(t *testing.T) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.UpsertScore(context.Background(), &models.SignalScore{Ticker: "NVDA", CurrentPrice: 120.5}))
	svc := NewThematicService(map[string][]string{"ai": {"NVDA", "SMCI"}}, store, nil, time.Minute)

	themes, err := svc.Themes(context.Background())
	require.NoError(t, err)
	require.Len(t, themes["ai"], 2)
	require.NotNil(t, themes["ai"][0].Price)
	assert.Equal(t, 120.5, *themes["ai"][0].Price)
	assert.Nil(t, themes["ai"][1].Price)
}

func TestHypeTrendingRanksWithinGroup(t *testing.T) {
	p, _, _ := hotProviders()
	cfg := scoring.DefaultConfig()
	svc := NewHypeService(testWatchlist,
		NewSampleCollector(Providers{News: p.News}, 2, time.Second, 0, nil),
		scoring.NewHypeAnalyzer(cfg.Hype), repository.NewMemoryStore(), time.Minute)

	rows, err := svc.Trending(context.Background(), "stocks", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "GME", rows[0].Ticker)
	assert.Greater(t, rows[0].HypeScore, 0.0)
	assert.InDelta(t, 0, rows[0].HypeScore+rows[1].HypeScore, 1e-9)

	rows, err = svc.Trending(context.Background(), "crypto", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHypeTrendingWithoutNewsIsUnavailable(t *testing.T) {
	cfg := scoring.DefaultConfig()
	svc := NewHypeService(testWatchlist,
		NewSampleCollector(Providers{News: &fakeNews{}}, 2, time.Second, 0, nil),
		scoring.NewHypeAnalyzer(cfg.Hype), repository.NewMemoryStore(), time.Minute)

	_, err := svc.Trending(context.Background(), "", 0)
	assert.ErrorIs(t, err, domrepo.ErrUnavailable)
}

func TestHypeCachedReadsStore(t *testing.T) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.ReplaceHype(context.Background(), []*models.HypeScore{
		{Ticker: "GME", Group: "stocks", HypeScore: 1},
		{Ticker: "DOGE", Group: "crypto", HypeScore: 0.5},
	}))
	svc := NewHypeService(testWatchlist, nil, nil, store, time.Minute)

	rows, err := svc.Cached(context.Background(), "crypto", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "DOGE", rows[0].Ticker)
}

type fakeQuotes struct {
	prices map[string]float64
	calls  int32
}

func (f *fakeQuotes) FetchLastPrice(_ context.Context, t string) (float64, error) {
	atomic.AddInt32(&f.calls, 1)
	p, ok := f.prices[t]
	if !ok {
		return 0, domrepo.ErrUnavailable
	}
	return p, nil
}

func TestThemesFallBackToCachedQuotes(t *testing.T) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.UpsertScore(context.Background(), &models.SignalScore{Ticker: "NVDA", CurrentPrice: 120.5}))
	quotes := &fakeQuotes{prices: map[string]float64{"AMD": 150, "NVDA": 1}}
	svc := NewThematicService(map[string][]string{"ai": {"NVDA", "AMD", "SMCI"}}, store, quotes, time.Minute)

	for i := 0; i < 2; i++ {
		themes, err := svc.Themes(context.Background())
		require.NoError(t, err)
		ai := themes["ai"]
		require.Len(t, ai, 3)
		assert.Equal(t, 120.5, *ai[0].Price, "stored price wins")
		assert.Equal(t, 150.0, *ai[1].Price)
		assert.Nil(t, ai[2].Price)
	}
	// AMD is cached after the first pass; SMCI errors are not cached.
	assert.EqualValues(t, 3, atomic.LoadInt32(&quotes.calls))
}

func TestHypeRawReturnsUnnormalizedNews(t *testing.T) {
	p, _, _ := hotProviders()
	svc := NewHypeService(testWatchlist,
		NewSampleCollector(Providers{News: p.News}, 2, time.Second, 0, nil),
		nil, repository.NewMemoryStore(), time.Minute)

	raw, err := svc.Raw(context.Background(), "GME")
	require.NoError(t, err)
	assert.Equal(t, "stocks", raw.Group)
	assert.Equal(t, 30, raw.NewsCount)
	assert.Equal(t, 0.6, raw.Polarity)

	_, err = svc.Raw(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, domrepo.ErrUnavailable)
}

type countingQuotes struct {
	calls int32
}

func (q *countingQuotes) FetchQuote(_ context.Context, ticker string) (*models.StockQuote, error) {
	atomic.AddInt32(&q.calls, 1)
	if ticker == "NOPE" {
		return nil, domrepo.ErrUnavailable
	}
	return &models.StockQuote{Ticker: ticker, Price: 25}, nil
}

func TestStockQuoteIsCachedPerTicker(t *testing.T) {
	src := &countingQuotes{}
	svc := NewStockService(src, time.Minute)

	for i := 0; i < 2; i++ {
		q, err := svc.Quote(context.Background(), "GME")
		require.NoError(t, err)
		assert.Equal(t, 25.0, q.Price)
	}
	_, err := svc.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domrepo.ErrUnavailable)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.calls))
}
