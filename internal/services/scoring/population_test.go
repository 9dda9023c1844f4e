package scoring

import (
	"math"
	"testing"

	"HypeRadar/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulationUniformSampleIsZero(t *testing.T) {
	for size := 1; size <= 5; size++ {
		values := map[string]float64{}
		for i := 0; i < size; i++ {
			values[string(rune('A'+i))] = 10
		}
		p := NewPopulation(values)
		for k := range values {
			z, ok := p.Z(k)
			require.True(t, ok)
			assert.Equal(t, 0.0, z)
			assert.False(t, math.IsNaN(z))
		}
	}
}

func TestPopulationZScores(t *testing.T) {
	p := NewPopulation(map[string]float64{"A": 1, "B": 2, "C": 3})
	assert.InDelta(t, 2.0, p.Mean(), 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), p.StdDev(), 1e-12)

	z := p.ZScores()
	assert.InDelta(t, -1.224744871, z["A"], 1e-9)
	assert.InDelta(t, 0.0, z["B"], 1e-12)
	assert.InDelta(t, 1.224744871, z["C"], 1e-9)

	_, ok := p.Z("MISSING")
	assert.False(t, ok)
}

func TestPopulationDropsNonFinite(t *testing.T) {
	p := NewPopulation(map[string]float64{"A": 1, "B": math.NaN(), "C": math.Inf(1)})
	assert.Equal(t, 1, p.Len())
	z, ok := p.Z("A")
	assert.True(t, ok)
	assert.Equal(t, 0.0, z)
}

func TestPopulationEmpty(t *testing.T) {
	p := NewPopulation(nil)
	assert.Equal(t, 0, p.Len())
	assert.True(t, p.Degenerate())
	assert.Empty(t, p.ZScores())
}

func TestHypeUniformInputsScoreZero(t *testing.T) {
	a := NewHypeAnalyzer(DefaultConfig().Hype)
	out := a.Analyze([]models.HypeInput{
		{Ticker: "A", Group: "stocks", SocialRaw: 10, NewsRaw: 10},
		{Ticker: "B", Group: "stocks", SocialRaw: 10, NewsRaw: 10},
		{Ticker: "C", Group: "stocks", SocialRaw: 10, NewsRaw: 10},
	}, fixedNow)

	require.Len(t, out, 3)
	for _, h := range out {
		assert.Equal(t, 0.0, h.HypeScore)
	}
}

func TestHypeWeightsAndOrdering(t *testing.T) {
	a := NewHypeAnalyzer(DefaultConfig().Hype)
	out := a.Analyze([]models.HypeInput{
		{Ticker: "LOW", Group: "stocks", SocialRaw: -0.5, NewsRaw: 1},
		{Ticker: "MID", Group: "stocks", SocialRaw: 0, NewsRaw: 5},
		{Ticker: "TOP", Group: "stocks", SocialRaw: 0.5, NewsRaw: 9},
	}, fixedNow)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"TOP", "MID", "LOW"}, []string{out[0].Ticker, out[1].Ticker, out[2].Ticker})
	// both metrics are symmetric around the middle ticker, so z = +-1.2247
	assert.InDelta(t, 1.224744871, out[0].HypeScore, 1e-9)
	assert.InDelta(t, 0, out[1].HypeScore, 1e-12)
}

func TestHypeGroupsAreIndependent(t *testing.T) {
	a := NewHypeAnalyzer(DefaultConfig().Hype)
	out := a.Analyze([]models.HypeInput{
		{Ticker: "GME", Group: "stocks", SocialRaw: 0.9, NewsRaw: 40},
		{Ticker: "BTC", Group: "crypto", SocialRaw: 0.1, NewsRaw: 2},
	}, fixedNow)

	for _, h := range out {
		// each group has one member, so every z collapses to 0
		assert.Equal(t, 0.0, h.HypeScore, h.Ticker)
	}
}
