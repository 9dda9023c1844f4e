package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
)

var errBoom = errors.New("boom")

type fakeOptions struct {
	flows map[string]*models.OptionsFlow
	fail  map[string]bool
	block bool
}

func (f *fakeOptions) FetchOptionsFlow(ctx context.Context, t string) (*models.OptionsFlow, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.fail[t] {
		return nil, errBoom
	}
	flow, ok := f.flows[t]
	if !ok {
		return nil, domrepo.ErrUnavailable
	}
	return flow, nil
}

type fakePrices struct {
	hist map[string]*models.PriceHistory
}

func (f *fakePrices) FetchPriceHistory(_ context.Context, t string) (*models.PriceHistory, error) {
	h, ok := f.hist[t]
	if !ok {
		return nil, domrepo.ErrUnavailable
	}
	return h, nil
}

type fakeSocial struct {
	batch    map[string]*models.SocialMention
	batchErr error
	calls    int
	mu       sync.Mutex
}

func (f *fakeSocial) FetchSocialMentions(_ context.Context, t string) (*models.SocialMention, error) {
	if m, ok := f.batch[t]; ok {
		return m, nil
	}
	return &models.SocialMention{Ticker: t}, nil
}

func (f *fakeSocial) FetchSocialMentionsBatch(_ context.Context, _ []string) (map[string]*models.SocialMention, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.batch, nil
}

type fakeNews struct {
	news map[string]*models.NewsSentiment
}

func (f *fakeNews) FetchNewsSentiment(_ context.Context, t string) (*models.NewsSentiment, error) {
	n, ok := f.news[t]
	if !ok {
		return nil, domrepo.ErrUnavailable
	}
	return n, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeNotifier) NotifyCritical(_ context.Context, tickers, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), tickers...))
	return f.err
}

type listenerFunc func(*models.CycleReport)

func (f listenerFunc) OnCycle(r *models.CycleReport) { f(r) }

// failingStore fails score upserts for the listed tickers.
type failingStore struct {
	domrepo.ScoreStore
	fail map[string]bool
}

func (s *failingStore) UpsertScore(ctx context.Context, sc *models.SignalScore) error {
	if s.fail[sc.Ticker] {
		return errBoom
	}
	return s.ScoreStore.UpsertScore(ctx, sc)
}

// bars builds n daily bars at price with flat volume, then one last bar.
func bars(n int, price, volume, lastPrice, lastVolume float64) *models.PriceHistory {
	h := &models.PriceHistory{}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		h.Timestamps = append(h.Timestamps, start.AddDate(0, 0, i))
		h.Prices = append(h.Prices, price)
		h.Volumes = append(h.Volumes, volume)
	}
	h.Timestamps = append(h.Timestamps, start.AddDate(0, 0, n))
	h.Prices = append(h.Prices, lastPrice)
	h.Volumes = append(h.Volumes, lastVolume)
	return h
}

var testWatchlist = models.Watchlist{
	{Ticker: "GME", Sector: "Retail", Group: "stocks"},
	{Ticker: "AMC", Sector: "Entertainment", Group: "stocks"},
}

// hotProviders make GME score CRITICAL and AMC LOW.
func hotProviders() (Providers, *fakeOptions, *fakeSocial) {
	opts := &fakeOptions{flows: map[string]*models.OptionsFlow{
		"GME": {CallVolume: 500, PutVolume: 100, CallOpenInterest: 10000},
		"AMC": {CallVolume: 100, PutVolume: 100, CallOpenInterest: 10000},
	}}
	social := &fakeSocial{batch: map[string]*models.SocialMention{
		"GME": {Ticker: "GME", Mentions: 50, Baseline: 10, Rank: 1},
		"AMC": {Ticker: "AMC", Mentions: 10, Baseline: 10, Rank: 5},
	}}
	return Providers{
		Options: opts,
		Price: &fakePrices{hist: map[string]*models.PriceHistory{
			"GME": bars(40, 20, 100, 22, 500),
			"AMC": bars(40, 5, 100, 5, 100),
		}},
		Social: social,
		News: &fakeNews{news: map[string]*models.NewsSentiment{
			"GME": {Polarity: 0.6, NewsCount: 30},
			"AMC": {Polarity: -0.2, NewsCount: 4},
		}},
	}, opts, social
}
