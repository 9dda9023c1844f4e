package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	"HypeRadar/internal/services/features"
	applogger "HypeRadar/pkg/logger"
)

// Providers groups the upstream ports one sample is assembled from.
type Providers struct {
	Options domrepo.OptionsProvider
	Price   domrepo.PriceProvider
	Social  domrepo.SocialProvider
	News    domrepo.NewsProvider
}

// SampleCollector fans provider calls out over the watchlist. A provider
// that errors or times out leaves its source unset on the sample; the
// sample itself is always returned.
type SampleCollector struct {
	p            Providers
	workers      int
	timeout      time.Duration
	momentumDays int
	l            *applogger.Logger
	now          func() time.Time
}

func NewSampleCollector(p Providers, workers int, timeout time.Duration, momentumDays int, l *applogger.Logger) *SampleCollector {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SampleCollector{p: p, workers: workers, timeout: timeout, momentumDays: momentumDays, l: l, now: time.Now}
}

// Collect returns one sample per entry, in watchlist order.
func (c *SampleCollector) Collect(ctx context.Context, watchlist models.Watchlist) []*models.RawSignalSample {
	social := c.socialBatch(ctx, watchlist.Tickers())

	out := make([]*models.RawSignalSample, len(watchlist))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(c.workers, len(watchlist)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				s := c.collectMarket(ctx, watchlist[i])
				if m, ok := social[watchlist[i].Ticker]; ok {
					applySocial(s, m)
				}
				out[i] = s
			}
		}()
	}
	for i := range watchlist {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

// CollectOne builds a sample for a single ticker using the per-ticker
// social lookup.
func (c *SampleCollector) CollectOne(ctx context.Context, entry models.WatchlistEntry) *models.RawSignalSample {
	s := c.collectMarket(ctx, entry)
	if c.p.Social == nil {
		return s
	}
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	m, err := c.p.Social.FetchSocialMentions(cctx, entry.Ticker)
	if err != nil {
		c.missing("social", entry.Ticker, err)
		return s
	}
	applySocial(s, m)
	return s
}

// socialBatch reports nil when the batch itself failed. Tickers absent from
// a successful batch get a zero-mention sample.
func (c *SampleCollector) socialBatch(ctx context.Context, tickers []string) map[string]*models.SocialMention {
	if c.p.Social == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	batch, err := c.p.Social.FetchSocialMentionsBatch(cctx, tickers)
	if err != nil {
		c.l.Warn("social batch unavailable", applogger.Error(err))
		return nil
	}
	out := make(map[string]*models.SocialMention, len(tickers))
	for _, t := range tickers {
		if m, ok := batch[t]; ok {
			out[t] = m
			continue
		}
		out[t] = &models.SocialMention{Ticker: t}
	}
	return out
}

func (c *SampleCollector) collectMarket(ctx context.Context, entry models.WatchlistEntry) *models.RawSignalSample {
	s := &models.RawSignalSample{Ticker: entry.Ticker, Group: entry.Group, Collected: c.now().UTC()}

	var wg sync.WaitGroup
	var mu sync.Mutex
	// fetch runs off the lock; only the returned apply step touches s.
	call := func(name string, fetch func(context.Context) (func(), error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			apply, err := fetch(cctx)
			if err != nil {
				c.missing(name, entry.Ticker, err)
				return
			}
			mu.Lock()
			apply()
			mu.Unlock()
		}()
	}

	if c.p.Options != nil {
		call("options", func(ctx context.Context) (func(), error) {
			flow, err := c.p.Options.FetchOptionsFlow(ctx, entry.Ticker)
			if err != nil {
				return nil, err
			}
			return func() {
				s.CallVolume = flow.CallVolume
				s.PutVolume = flow.PutVolume
				s.CallOpenInterest = flow.CallOpenInterest
				s.Available |= models.SourceOptions
			}, nil
		})
	}
	if c.p.Price != nil {
		call("price", func(ctx context.Context) (func(), error) {
			hist, err := c.p.Price.FetchPriceHistory(ctx, entry.Ticker)
			if err != nil {
				return nil, err
			}
			return func() { applyPrice(s, hist, c.momentumDays) }, nil
		})
	}
	if c.p.News != nil {
		call("news", func(ctx context.Context) (func(), error) {
			news, err := c.p.News.FetchNewsSentiment(ctx, entry.Ticker)
			if err != nil {
				return nil, err
			}
			return func() {
				s.SentimentPolarity = news.Polarity
				s.NewsCount = news.NewsCount
				s.Available |= models.SourceNews
			}, nil
		})
	}
	wg.Wait()
	return s
}

func (c *SampleCollector) missing(source, ticker string, err error) {
	fields := []applogger.Field{
		applogger.String("source", source),
		applogger.String("ticker", ticker),
		applogger.Error(err),
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domrepo.ErrUnavailable) {
		c.l.Debug("source missing", fields...)
		return
	}
	c.l.Warn("source failed", fields...)
}

func applyPrice(s *models.RawSignalSample, h *models.PriceHistory, momentumDays int) {
	f := features.Extract(h, momentumDays)
	s.CurrentPrice = f.CurrentPrice
	s.Price52wHigh = f.Price52wHigh
	s.PriceChangePct = h.ChangePct
	if f.HasPrice5dAgo {
		s.Price5dAgo = f.Price5dAgo
	}
	if f.CurrentPrice > 0 {
		s.Available |= models.SourcePrice
	}
	if len(h.Volumes) > 0 {
		s.VolumeToday = f.VolumeToday
		s.VolumeBaseline30d = f.VolumeBaseline30d
		s.Volume5dAvg = f.Volume5dAvg
		s.VolatilityRatio = f.VolatilityRatio
		s.Available |= models.SourceVolume
	}
}

func applySocial(s *models.RawSignalSample, m *models.SocialMention) {
	s.MentionCount = m.Mentions
	s.MentionBaseline = m.Baseline
	s.MentionRank = m.Rank
	s.Available |= models.SourceSocial
}
