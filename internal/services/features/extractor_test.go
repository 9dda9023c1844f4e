package features

import (
	"testing"

	"HypeRadar/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVolumeAndPrices(t *testing.T) {
	vols := make([]float64, 0, 31)
	prices := make([]float64, 0, 31)
	for i := 0; i < 30; i++ {
		vols = append(vols, 1_000)
		prices = append(prices, 100)
	}
	vols = append(vols, 3_000)
	prices = append(prices, 110)

	f := Extract(&models.PriceHistory{Prices: prices, Volumes: vols, High52w: 120}, 5)

	assert.Equal(t, 3_000.0, f.VolumeToday)
	assert.Equal(t, 1_000.0, f.VolumeBaseline30d)
	assert.Equal(t, 1_400.0, f.Volume5dAvg)
	assert.Equal(t, 110.0, f.CurrentPrice)
	assert.Equal(t, 100.0, f.Price5dAgo)
	assert.True(t, f.HasPrice5dAgo)
	assert.Equal(t, 120.0, f.Price52wHigh)
	assert.Zero(t, f.VolatilityRatio, "a flat baseline has no volatility to compare against")
}

func TestExtractVolatilityBaselinePrecedesShortWindow(t *testing.T) {
	prices := make([]float64, 0, 40)
	for i := 0; i < 31; i++ {
		prices = append(prices, 100+float64(i%2))
	}
	prices = append(prices, 120, 100, 120, 100, 120)
	volumes := make([]float64, len(prices))

	returns := ComputeLogReturns(prices)
	require.Len(t, returns, 35)
	want := StdDev(returns[30:]) / StdDev(returns[:30])

	f := Extract(&models.PriceHistory{Prices: prices, Volumes: volumes}, 5)
	assert.InDelta(t, want, f.VolatilityRatio, 1e-12)
	assert.Greater(t, f.VolatilityRatio, 2.0)
}

func TestExtractShortHistory(t *testing.T) {
	f := Extract(&models.PriceHistory{Prices: []float64{10, 11}, Volumes: []float64{5}}, 5)
	assert.False(t, f.HasPrice5dAgo)
	assert.Zero(t, f.VolumeBaseline30d)
	assert.Zero(t, f.VolatilityRatio)
	assert.Equal(t, 11.0, f.Price52wHigh)
}

func TestExtractNil(t *testing.T) {
	assert.Equal(t, PriceFeatures{}, Extract(nil, 5))
}
