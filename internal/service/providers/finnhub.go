package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"HypeRadar/internal/domain/models"
	"HypeRadar/internal/services/scoring"
	xhttp "HypeRadar/pkg/http"
	"HypeRadar/pkg/logger"
)

// Finnhub provides the company-news count and a polarity, read from the
// news-sentiment endpoint or, on keys without access to it, scored from
// the fetched headlines.
type Finnhub struct {
	*base
	days int

	// set once the key is refused on news-sentiment; later calls skip it
	sentimentDenied atomic.Bool
}

// NewFinnhub sends apiKey in the X-Finnhub-Token header. Without a key
// every call reports the provider unavailable.
func NewFinnhub(baseURL, apiKey string, days int, opts ...Option) *Finnhub {
	b := newBase("finnhub", baseURL, opts)
	if apiKey != "" {
		b.headers = map[string]string{"X-Finnhub-Token": apiKey}
	}
	if days <= 0 {
		days = 7
	}
	if b.headlines == nil {
		b.headlines = &BayesScorer{}
	}
	return &Finnhub{base: b, days: days}
}

type finnhubArticle struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Datetime int64  `json:"datetime"`
}

type finnhubSentiment struct {
	Symbol    string `json:"symbol"`
	Sentiment struct {
		BullishPercent float64 `json:"bullishPercent"`
		BearishPercent float64 `json:"bearishPercent"`
	} `json:"sentiment"`
	CompanyNewsScore float64 `json:"companyNewsScore"`
}

// FetchNewsSentiment counts articles over the configured window and reads
// the bullish/bearish split. When the sentiment endpoint fails the
// polarity comes from the article headlines and summaries instead.
func (f *Finnhub) FetchNewsSentiment(ctx context.Context, ticker string) (*models.NewsSentiment, error) {
	if f.headers == nil {
		return nil, f.unavailable("api key not configured")
	}
	ticker = strings.ToUpper(ticker)

	now := f.now().UTC()
	q := url.Values{
		"symbol": {ticker},
		"from":   {now.AddDate(0, 0, -f.days).Format("2006-01-02")},
		"to":     {now.Format("2006-01-02")},
	}
	var articles []finnhubArticle
	if err := f.getJSON(ctx, "/company-news", q, &articles); err != nil {
		return nil, err
	}
	out := &models.NewsSentiment{NewsCount: len(articles)}

	if f.sentimentDenied.Load() {
		out.Polarity = scoring.Clamp(headlinePolarity(f.headlines, articles), -1, 1)
		return out, nil
	}
	var s finnhubSentiment
	if err := f.getJSON(ctx, "/news-sentiment", url.Values{"symbol": {ticker}}, &s); err != nil {
		if denied(err) && !f.sentimentDenied.Swap(true) {
			f.log.Info("news-sentiment refused for this key, scoring headlines from now on")
		}
		f.log.Debug("news sentiment unavailable, scoring headlines", logger.String("ticker", ticker), logger.Error(err))
		out.Polarity = scoring.Clamp(headlinePolarity(f.headlines, articles), -1, 1)
		return out, nil
	}
	out.Polarity = scoring.Clamp(s.Sentiment.BullishPercent-s.Sentiment.BearishPercent, -1, 1)
	return out, nil
}

func denied(err error) bool {
	var se *xhttp.StatusError
	return errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden)
}
