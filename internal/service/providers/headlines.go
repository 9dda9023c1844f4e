package providers

import (
	"strings"
	"sync"

	"github.com/cdipaolo/sentiment"
)

// HeadlineScorer rates the text of one article in [-1, 1].
type HeadlineScorer interface {
	Polarity(text string) float64
}

// WithHeadlineScorer replaces the classifier used when Finnhub's
// aggregate sentiment endpoint is not available.
func WithHeadlineScorer(s HeadlineScorer) Option {
	return func(b *base) { b.headlines = s }
}

// BayesScorer classifies text with the pretrained naive Bayes model
// shipped with cdipaolo/sentiment. The model loads on first use.
type BayesScorer struct {
	once  sync.Once
	model sentiment.Models
	err   error
}

func (s *BayesScorer) Polarity(text string) float64 {
	s.once.Do(func() { s.model, s.err = sentiment.Restore() })
	if s.err != nil || strings.TrimSpace(text) == "" {
		return 0
	}
	a := s.model.SentimentAnalysis(text, sentiment.English)
	return float64(a.Score)*2 - 1
}

// headlinePolarity averages the per-article polarity over articles that
// carry a headline.
func headlinePolarity(s HeadlineScorer, articles []finnhubArticle) float64 {
	var sum float64
	var n int
	for _, a := range articles {
		if a.Headline == "" {
			continue
		}
		sum += s.Polarity(a.Headline + " " + a.Summary)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
