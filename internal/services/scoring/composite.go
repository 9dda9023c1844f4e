package scoring

import (
	"time"

	"HypeRadar/internal/domain/models"
)

// Combine is the weighted sum of the three sub-scores.
func (w Weights) Combine(options, volume, social float64) float64 {
	return w.Options*options + w.Volume*volume + w.Social*social
}

// Classify maps a composite score to its tier. Bounds are inclusive on the
// lower side, so a score equal to a threshold takes the higher tier.
func (t Tiers) Classify(score float64) models.AlertLevel {
	switch {
	case score >= t.Critical:
		return models.AlertCritical
	case score >= t.High:
		return models.AlertHigh
	case score >= t.Medium:
		return models.AlertMedium
	default:
		return models.AlertLow
	}
}

func (l LabelThresholds) label(score float64, available bool) models.SignalLabel {
	switch {
	case !available:
		return models.SignalNoData
	case score >= l.Strong:
		return models.SignalStrong
	case score >= l.Moderate:
		return models.SignalModerate
	default:
		return models.SignalWeak
	}
}

// Scorer is the pure early-warning pipeline for one sample.
type Scorer struct {
	normalizer *Normalizer
	weights    Weights
	tiers      Tiers
	labels     LabelThresholds
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{
		normalizer: NewNormalizer(cfg.Normalizer),
		weights:    cfg.Weights,
		tiers:      cfg.Tiers,
		labels:     cfg.Labels,
	}
}

// Score normalizes and combines one sample. Identical inputs always give
// identical outputs.
func (s *Scorer) Score(sample *models.RawSignalSample, now time.Time) (*models.SignalScore, []models.DataQualityIssue) {
	sub := s.normalizer.Normalize(sample)
	alert := Clamp(s.weights.Combine(sub.Options, sub.Volume, sub.Social), 0, MaxScore)

	var missing models.StringList
	for _, src := range []models.Source{models.SourceOptions, models.SourceVolume, models.SourceSocial, models.SourceNews, models.SourcePrice} {
		if !sample.Available.Has(src) {
			missing = append(missing, src.String())
		}
	}

	return &models.SignalScore{
		Ticker:           sample.Ticker,
		OptionsScore:     sub.Options,
		VolumeScore:      sub.Volume,
		SocialScore:      sub.Social,
		SignalsTriggered: sub.SignalsTriggered,
		AlertScore:       alert,
		AlertLevel:       s.tiers.Classify(alert),
		OptionsLabel:     s.labels.label(sub.Options, sample.Available.Has(models.SourceOptions)),
		VolumeLabel:      s.labels.label(sub.Volume, sample.Available.Has(models.SourceVolume)),
		SocialLabel:      s.labels.label(sub.Social, sample.Available.Has(models.SourceSocial)),
		MissingSignals:   missing,
		SentimentScore:   sample.SentimentPolarity,
		NewsCount:        sample.NewsCount,
		CurrentPrice:     sample.CurrentPrice,
		PriceChangePct:   sample.PriceChangePct,
		Timestamp:        now.UTC(),
	}, sub.Issues
}
