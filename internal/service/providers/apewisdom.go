package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"HypeRadar/internal/domain/models"
	"HypeRadar/internal/service/cache"
	"HypeRadar/pkg/logger"
)

const apeWisdomFilter = "all-stocks"

// ApeWisdom reads Reddit mention counts. The full trending list is fetched
// once and shared by every ticker lookup until it goes stale.
type ApeWisdom struct {
	*base
	maxPages int
	trending *cache.TTL[map[string]*models.SocialMention]
}

func NewApeWisdom(baseURL string, maxPages int, ttl time.Duration, opts ...Option) *ApeWisdom {
	b := newBase("apewisdom", baseURL, opts)
	if maxPages <= 0 {
		maxPages = 1
	}
	return &ApeWisdom{
		base:     b,
		maxPages: maxPages,
		trending: cache.New[map[string]*models.SocialMention]("apewisdom_trending", ttl, b.cacheOpts...),
	}
}

type apeWisdomPage struct {
	Count       int `json:"count"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"currentPage"`
	Results     []struct {
		Rank           flexFloat `json:"rank"`
		Ticker         string    `json:"ticker"`
		Name           string    `json:"name"`
		Mentions       flexFloat `json:"mentions"`
		Upvotes        flexFloat `json:"upvotes"`
		Rank24hAgo     flexFloat `json:"rank_24h_ago"`
		Mentions24hAgo flexFloat `json:"mentions_24h_ago"`
	} `json:"results"`
}

// FetchSocialMentionsBatch returns mentions for the tickers ApeWisdom lists.
// Tickers absent from the list are absent from the result.
func (a *ApeWisdom) FetchSocialMentionsBatch(ctx context.Context, tickers []string) (map[string]*models.SocialMention, error) {
	all, err := a.trending.Get(ctx, apeWisdomFilter, a.fetchAll)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.SocialMention, len(tickers))
	for _, t := range tickers {
		if m, ok := all[strings.ToUpper(t)]; ok {
			cp := *m
			out[cp.Ticker] = &cp
		}
	}
	return out, nil
}

// FetchSocialMentions reports zero mentions for a ticker the list does not
// contain; only a failed fetch is an error.
func (a *ApeWisdom) FetchSocialMentions(ctx context.Context, ticker string) (*models.SocialMention, error) {
	ticker = strings.ToUpper(ticker)
	batch, err := a.FetchSocialMentionsBatch(ctx, []string{ticker})
	if err != nil {
		return nil, err
	}
	if m, ok := batch[ticker]; ok {
		return m, nil
	}
	return &models.SocialMention{Ticker: ticker}, nil
}

func (a *ApeWisdom) fetchAll(ctx context.Context) (map[string]*models.SocialMention, error) {
	out := make(map[string]*models.SocialMention)
	pages := a.maxPages
	for page := 1; page <= pages; page++ {
		var resp apeWisdomPage
		path := fmt.Sprintf("/filter/%s/page/%d", apeWisdomFilter, page)
		if err := a.getJSON(ctx, path, nil, &resp); err != nil {
			if page == 1 {
				return nil, err
			}
			a.log.Warn("apewisdom page failed, keeping partial list", logger.Int("page", page), logger.Error(err))
			break
		}
		if page == 1 && resp.Pages > 0 && resp.Pages < pages {
			pages = resp.Pages
		}
		for _, r := range resp.Results {
			t := strings.ToUpper(strings.TrimSpace(r.Ticker))
			if t == "" {
				continue
			}
			if _, seen := out[t]; seen {
				continue
			}
			out[t] = &models.SocialMention{
				Ticker:   t,
				Mentions: float64(r.Mentions),
				Baseline: float64(r.Mentions24hAgo),
				Rank:     int(r.Rank),
			}
		}
		if len(resp.Results) == 0 {
			break
		}
	}
	if len(out) == 0 {
		a.log.Warn("apewisdom returned an empty trending list")
	}
	return out, nil
}
