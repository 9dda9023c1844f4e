package usecase

import (
	"context"
	"fmt"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	domsvc "HypeRadar/internal/domain/service"
	"HypeRadar/internal/service/cache"
)

// HypeService serves the trending hype ranking. Trending runs the whole
// batch since a z-score is only defined against its population.
type HypeService struct {
	watchlist models.Watchlist
	news      *SampleCollector
	analyzer  domsvc.HypeAnalyzer
	store     domrepo.ScoreStore
	trending  *cache.TTL[[]*models.HypeScore]
	now       func() time.Time
}

// NewHypeService expects a collector wired with the news provider only.
func NewHypeService(watchlist models.Watchlist, news *SampleCollector, analyzer domsvc.HypeAnalyzer, store domrepo.ScoreStore, ttl time.Duration, opts ...cache.Option) *HypeService {
	return &HypeService{
		watchlist: watchlist,
		news:      news,
		analyzer:  analyzer,
		store:     store,
		trending:  cache.New[[]*models.HypeScore]("hype_trending", ttl, opts...),
		now:       time.Now,
	}
}

func (s *HypeService) Trending(ctx context.Context, group string, limit int) ([]*models.HypeScore, error) {
	rows, err := s.trending.Get(ctx, "all", func(ctx context.Context) ([]*models.HypeScore, error) {
		inputs := HypeInputs(s.news.Collect(ctx, s.watchlist))
		if len(inputs) == 0 {
			return nil, fmt.Errorf("hype trending: %w", domrepo.ErrUnavailable)
		}
		return s.analyzer.Analyze(inputs, s.now()), nil
	})
	if err != nil {
		return nil, err
	}
	return filterHype(rows, group, limit), nil
}

// Raw fetches the unnormalized news metrics for one ticker. No z-score is
// computed since a single ticker has no population.
func (s *HypeService) Raw(ctx context.Context, ticker string) (*models.HypeRaw, error) {
	entry, ok := s.watchlist.Find(ticker)
	if !ok {
		entry = models.WatchlistEntry{Ticker: ticker, Group: "stocks"}
	}
	sample := s.news.CollectOne(ctx, entry)
	if !sample.Available.Has(models.SourceNews) {
		return nil, fmt.Errorf("hype %s: %w", ticker, domrepo.ErrUnavailable)
	}
	return &models.HypeRaw{
		Ticker:    entry.Ticker,
		Group:     entry.Group,
		NewsCount: sample.NewsCount,
		Polarity:  sample.SentimentPolarity,
		Timestamp: s.now().UTC(),
	}, nil
}

// Cached returns the rows the last refresh cycle stored.
func (s *HypeService) Cached(ctx context.Context, group string, limit int) ([]*models.HypeScore, error) {
	rows, err := s.store.ListHype(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hype: %w", err)
	}
	return filterHype(rows, group, limit), nil
}

func filterHype(rows []*models.HypeScore, group string, limit int) []*models.HypeScore {
	out := make([]*models.HypeScore, 0, len(rows))
	for _, r := range rows {
		if group != "" && r.Group != group {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
