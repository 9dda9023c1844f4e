package scoring

import (
	"sort"
	"time"

	"HypeRadar/internal/domain/models"
)

// HypeAnalyzer scores a whole batch at once. There is deliberately no
// single-ticker entry point: a hype score only exists relative to its batch.
type HypeAnalyzer struct {
	weights HypeWeights
}

func NewHypeAnalyzer(w HypeWeights) *HypeAnalyzer {
	return &HypeAnalyzer{weights: w}
}

// Analyze z-scores social and news metrics within each group and combines
// them. Results are sorted by hype score, highest first.
func (a *HypeAnalyzer) Analyze(batch []models.HypeInput, now time.Time) []*models.HypeScore {
	groups := make(map[string][]models.HypeInput)
	for _, in := range batch {
		groups[in.Group] = append(groups[in.Group], in)
	}

	out := make([]*models.HypeScore, 0, len(batch))
	for group, members := range groups {
		social := make(map[string]float64, len(members))
		news := make(map[string]float64, len(members))
		for _, m := range members {
			social[m.Ticker] = m.SocialRaw
			news[m.Ticker] = m.NewsRaw
		}
		socialPop, newsPop := NewPopulation(social), NewPopulation(news)

		for _, m := range members {
			sz, _ := socialPop.Z(m.Ticker)
			nz, _ := newsPop.Z(m.Ticker)
			out = append(out, &models.HypeScore{
				Ticker:    m.Ticker,
				Group:     group,
				HypeScore: a.weights.Social*sz + a.weights.News*nz,
				SocialRaw: m.SocialRaw,
				NewsRaw:   m.NewsRaw,
				Timestamp: now.UTC(),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HypeScore == out[j].HypeScore {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].HypeScore > out[j].HypeScore
	})
	return out
}
