package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Config holds every tunable constant of the scoring pipeline. The values
// in DefaultConfig are empirical; override them through configuration
// rather than editing code.
type Config struct {
	Normalizer NormalizerConfig
	Weights    Weights
	Tiers      Tiers
	Labels     LabelThresholds
	Hype       HypeWeights
	Mover      MoverConfig
}

type NormalizerConfig struct {
	OptionsScale       Scale
	PutSkewFactor      float64
	UnusualCallOIRatio float64
	UnusualCallOIBoost float64

	VolumeScale         Scale
	VolatilityThreshold float64
	VolatilityBoost     float64
	// keyed on the 5-day average volume over the 30-day baseline, highest first
	SustainedVolumeBoost Steps

	SocialRatioScale    Scale
	SocialAbsoluteScale Scale
	// keyed on the ApeWisdom rank, best rank first; rank 0 means unranked
	RankBoost Steps

	TriggerThreshold float64
	HighAttention    []string
}

// Weights is the composite weight vector. It must sum to 1.
type Weights struct {
	Options float64
	Volume  float64
	Social  float64
}

// Tiers are closed lower bounds for HIGH/MEDIUM/CRITICAL.
type Tiers struct {
	Critical float64
	High     float64
	Medium   float64
}

type LabelThresholds struct {
	Strong   float64
	Moderate float64
}

type HypeWeights struct {
	Social float64
	News   float64
}

type MoverConfig struct {
	AlertWeight    float64
	MomentumWeight float64
	LevelWeight    float64
	MomentumScale  float64
	LevelBonus     float64
	NearHighPct    float64
	NearRoundPct   float64
	RoundLevels    []float64
	Breakout       float64
	Watch          float64
	MomentumDays   int
}

const weightTolerance = 1e-9

func DefaultConfig() Config {
	return Config{
		Normalizer: NormalizerConfig{
			OptionsScale:         Scale{{1, 1}, {2, 4}, {3, 7}, {4, 8.5}, {5, 10}},
			PutSkewFactor:        0.5,
			UnusualCallOIRatio:   0.5,
			UnusualCallOIBoost:   1,
			VolumeScale:          Scale{{1, 0}, {1.5, 2}, {2, 4}, {3, 6}, {5, 10}},
			VolatilityThreshold:  2,
			VolatilityBoost:      1,
			SustainedVolumeBoost: Steps{{Threshold: 2, Boost: 3}, {Threshold: 1.5, Boost: 2}},
			SocialRatioScale:     Scale{{1, 0}, {1.5, 2}, {2, 4}, {3, 6}, {5, 10}},
			SocialAbsoluteScale:  Scale{{0, 0}, {10, 1}, {20, 2}, {50, 4}, {100, 6}, {200, 10}},
			RankBoost:            Steps{{Threshold: 5, Boost: 5}, {Threshold: 15, Boost: 3}, {Threshold: 30, Boost: 2}, {Threshold: 50, Boost: 1}},
			TriggerThreshold:     6,
			HighAttention:        []string{"GME", "AMC", "TSLA", "NVDA", "AAPL", "COIN", "PLTR", "HOOD"},
		},
		Weights: Weights{Options: 0.40, Volume: 0.35, Social: 0.25},
		Tiers:   Tiers{Critical: 7, High: 5, Medium: 3},
		Labels:  LabelThresholds{Strong: 7, Moderate: 4},
		Hype:    HypeWeights{Social: 0.7, News: 0.3},
		Mover: MoverConfig{
			AlertWeight:    0.40,
			MomentumWeight: 0.40,
			LevelWeight:    0.20,
			MomentumScale:  2.5,
			LevelBonus:     10,
			NearHighPct:    0.02,
			NearRoundPct:   0.01,
			RoundLevels:    []float64{10, 50, 100},
			Breakout:       4,
			Watch:          2,
			MomentumDays:   5,
		},
	}
}

func (w Weights) Validate() error {
	if w.Options < 0 || w.Volume < 0 || w.Social < 0 {
		return errors.New("weights must be non-negative")
	}
	if sum := w.Options + w.Volume + w.Social; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %.12f", sum)
	}
	return nil
}

func (t Tiers) Validate() error {
	if !(t.Medium > 0 && t.Medium < t.High && t.High < t.Critical && t.Critical <= MaxScore) {
		return fmt.Errorf("tiers must satisfy 0 < medium < high < critical <= %v", MaxScore)
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Tiers.Validate(); err != nil {
		return err
	}
	n := c.Normalizer
	for name, s := range map[string]Scale{
		"options":         n.OptionsScale,
		"volume":          n.VolumeScale,
		"social_ratio":    n.SocialRatioScale,
		"social_absolute": n.SocialAbsoluteScale,
	} {
		if !s.validate() {
			return fmt.Errorf("%s scale must be non-empty and sorted by x", name)
		}
	}
	for name, steps := range map[string]Steps{"sustained_volume_boost": n.SustainedVolumeBoost, "rank_boost": n.RankBoost} {
		for _, st := range steps {
			if st.Boost < 0 {
				return fmt.Errorf("%s boosts must be non-negative", name)
			}
		}
	}
	m := c.Mover
	if m.AlertWeight < 0 || m.MomentumWeight < 0 || m.LevelWeight < 0 {
		return errors.New("mover weights must be non-negative")
	}
	if m.AlertWeight+m.LevelWeight <= 0 {
		return errors.New("mover alert and level weights cannot both be zero")
	}
	if m.Watch <= 0 || m.Watch >= m.Breakout {
		return errors.New("mover thresholds must satisfy 0 < watch < breakout")
	}
	if m.MomentumDays < 1 {
		return errors.New("mover momentum_days must be >= 1")
	}
	return nil
}
