package scoring

import (
	"HypeRadar/internal/domain/models"
)

// MaxScore is the ceiling of every sub-score and of the composite.
const MaxScore = 10.0

// Normalizer turns a raw sample into three 0..10 sub-scores.
type Normalizer struct {
	cfg           NormalizerConfig
	highAttention map[string]struct{}
}

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	ha := make(map[string]struct{}, len(cfg.HighAttention))
	for _, t := range cfg.HighAttention {
		ha[t] = struct{}{}
	}
	return &Normalizer{cfg: cfg, highAttention: ha}
}

// Normalize never fails. Missing providers and unusable denominators score
// 0 and are reported in SubScores.Issues.
func (n *Normalizer) Normalize(s *models.RawSignalSample) models.SubScores {
	var out models.SubScores
	issue := func(signal, reason string) {
		out.Issues = append(out.Issues, models.DataQualityIssue{Ticker: s.Ticker, Signal: signal, Reason: reason})
	}

	var reason string
	out.Options, reason = n.options(s)
	if reason != "" {
		issue("options", reason)
	}
	out.Volume, reason = n.volume(s)
	if reason != "" {
		issue("volume", reason)
	}
	out.Social, reason = n.social(s)
	if reason != "" {
		issue("social", reason)
	}
	if out.Social == 0 && n.isHighAttention(s.Ticker) {
		issue("social", models.ReasonHighAttentionZero)
	}

	for _, v := range []float64{out.Options, out.Volume, out.Social} {
		if v >= n.cfg.TriggerThreshold {
			out.SignalsTriggered++
		}
	}
	return out
}

func (n *Normalizer) isHighAttention(ticker string) bool {
	_, ok := n.highAttention[ticker]
	return ok
}

func (n *Normalizer) options(s *models.RawSignalSample) (float64, string) {
	if !s.Available.Has(models.SourceOptions) {
		return 0, models.ReasonUnavailable
	}
	r, ok := SafeRatio(s.CallVolume, s.PutVolume)
	if !ok || r == 0 {
		return 0, models.ReasonZeroDenominator
	}

	var score float64
	if r >= 1 {
		score = n.cfg.OptionsScale.At(r)
	} else {
		// put-heavy skew counts, but at a discount
		inv, _ := SafeRatio(s.PutVolume, s.CallVolume)
		score = n.cfg.PutSkewFactor * n.cfg.OptionsScale.At(inv)
	}

	if oi, ok := SafeRatio(s.CallVolume, s.CallOpenInterest); ok && oi > n.cfg.UnusualCallOIRatio {
		score += n.cfg.UnusualCallOIBoost
	}
	return Clamp(score, 0, MaxScore), ""
}

func (n *Normalizer) volume(s *models.RawSignalSample) (float64, string) {
	if !s.Available.Has(models.SourceVolume) {
		return 0, models.ReasonUnavailable
	}
	r, ok := SafeRatio(s.VolumeToday, s.VolumeBaseline30d)
	if !ok {
		return 0, models.ReasonZeroDenominator
	}
	score := n.cfg.VolumeScale.At(r)
	if sustained, ok := SafeRatio(s.Volume5dAvg, s.VolumeBaseline30d); ok {
		score += n.cfg.SustainedVolumeBoost.Above(sustained)
	}
	if s.VolatilityRatio > n.cfg.VolatilityThreshold {
		score += n.cfg.VolatilityBoost
	}
	return Clamp(score, 0, MaxScore), ""
}

func (n *Normalizer) social(s *models.RawSignalSample) (float64, string) {
	if !s.Available.Has(models.SourceSocial) {
		return 0, models.ReasonUnavailable
	}
	var rank float64
	if s.MentionRank > 0 {
		rank = n.cfg.RankBoost.AtOrBelow(float64(s.MentionRank))
	}
	if r, ok := SafeRatio(s.MentionCount, s.MentionBaseline); ok {
		return Clamp(n.cfg.SocialRatioScale.At(r)+rank, 0, MaxScore), ""
	}
	return Clamp(n.cfg.SocialAbsoluteScale.At(s.MentionCount)+rank, 0, MaxScore), models.ReasonNoBaseline
}
