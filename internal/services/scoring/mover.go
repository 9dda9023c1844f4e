package scoring

import (
	"math"
	"sort"
	"time"

	"HypeRadar/internal/domain/models"
)

// MoverPredictor blends the alert score, cross-sectional momentum and
// price-level flags into a breakout score.
type MoverPredictor struct {
	cfg MoverConfig
}

func NewMoverPredictor(cfg MoverConfig) *MoverPredictor {
	return &MoverPredictor{cfg: cfg}
}

// MomentumPct is (now - then) / then over the last `days` bars of prices
// (oldest first). It reports false when the series is too short or the
// reference price is unusable.
func MomentumPct(prices []float64, days int) (float64, bool) {
	if days < 1 || len(prices) < days+1 {
		return 0, false
	}
	now := prices[len(prices)-1]
	then := prices[len(prices)-1-days]
	if now <= 0 {
		return 0, false
	}
	return SafeRatio(now-then, then)
}

// Predict scores the full batch. Momentum is z-scored across the tickers
// that have it; tickers without momentum use the fallback weighting.
func (p *MoverPredictor) Predict(batch []models.MoverInput, now time.Time) []*models.MoverScore {
	momentum := make(map[string]float64, len(batch))
	for _, in := range batch {
		if in.HasMomentum {
			momentum[in.Ticker] = in.MomentumPct
		}
	}
	pop := NewPopulation(momentum)

	out := make([]*models.MoverScore, 0, len(batch))
	for _, in := range batch {
		nearHigh := p.NearHigh(in.CurrentPrice, in.Price52wHigh)
		nearRound := p.NearRound(in.CurrentPrice)

		z, hasZ := pop.Z(in.Ticker)
		score := p.Score(in.AlertScore, z, hasZ, nearHigh || nearRound)

		out = append(out, &models.MoverScore{
			Ticker:            in.Ticker,
			MoverScore:        score,
			Label:             p.Label(score),
			MomentumPct:       in.MomentumPct,
			MomentumAvailable: hasZ,
			Near52wHigh:       nearHigh,
			NearRoundNumber:   nearRound,
			CurrentPrice:      in.CurrentPrice,
			Timestamp:         now.UTC(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].MoverScore > out[j].MoverScore })
	return out
}

// Score combines the three terms. Only upward momentum contributes. When
// momentum is absent its weight is dropped and the rest renormalized.
func (p *MoverPredictor) Score(alert, momentumZ float64, hasMomentum, levelHit bool) float64 {
	c := p.cfg
	bonus := 0.0
	if levelHit {
		bonus = c.LevelBonus
	}
	alert = Clamp(alert, 0, MaxScore)

	if !hasMomentum {
		den := c.AlertWeight + c.LevelWeight
		if den <= 0 {
			return 0
		}
		return Clamp((c.AlertWeight*alert+c.LevelWeight*bonus)/den, 0, MaxScore)
	}

	m := Clamp(momentumZ*c.MomentumScale, 0, MaxScore)
	return Clamp(c.AlertWeight*alert+c.MomentumWeight*m+c.LevelWeight*bonus, 0, MaxScore)
}

func (p *MoverPredictor) Label(score float64) models.MoverLabel {
	switch {
	case score >= p.cfg.Breakout:
		return models.MoverBreakout
	case score >= p.cfg.Watch:
		return models.MoverWatch
	default:
		return models.MoverNeutral
	}
}

// NearHigh reports price within NearHighPct below (or above) the 52-week high.
func (p *MoverPredictor) NearHigh(price, high float64) bool {
	if price <= 0 || high <= 0 {
		return false
	}
	return price >= high*(1-p.cfg.NearHighPct)
}

// NearRound reports price within NearRoundPct of a non-zero multiple of
// any configured round level.
func (p *MoverPredictor) NearRound(price float64) bool {
	if price <= 0 {
		return false
	}
	for _, level := range p.cfg.RoundLevels {
		if level <= 0 {
			continue
		}
		nearest := math.Round(price/level) * level
		if nearest == 0 {
			nearest = level
		}
		if math.Abs(price-nearest)/price <= p.cfg.NearRoundPct {
			return true
		}
	}
	return false
}
