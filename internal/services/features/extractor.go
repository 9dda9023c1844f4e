package features

import (
	"math"

	"HypeRadar/internal/domain/models"
)

// PriceFeatures are the per-ticker values derived from daily bars.
type PriceFeatures struct {
	VolumeToday       float64
	VolumeBaseline30d float64
	Volume5dAvg       float64
	VolatilityRatio   float64
	CurrentPrice      float64
	Price5dAgo        float64
	Price52wHigh      float64
	HasPrice5dAgo     bool
}

const (
	shortWindow    = 5
	baselineWindow = 30
)

// Extract derives volume baselines, the short/long volatility ratio and the
// reference prices from h. Bars are oldest first; the last bar is "today".
// The 5-day volume average includes today; the 30-day baseline does not.
// The volatility baseline is the 30 returns preceding the short window.
func Extract(h *models.PriceHistory, momentumDays int) PriceFeatures {
	var f PriceFeatures
	if h == nil {
		return f
	}

	if n := len(h.Volumes); n > 0 {
		f.VolumeToday = h.Volumes[n-1]
		f.VolumeBaseline30d = mean(window(h.Volumes[:n-1], baselineWindow))
		f.Volume5dAvg = mean(window(h.Volumes, shortWindow))
	}

	if n := len(h.Prices); n > 0 {
		f.CurrentPrice = h.Prices[n-1]
		if momentumDays > 0 && n > momentumDays {
			f.Price5dAgo = h.Prices[n-1-momentumDays]
			f.HasPrice5dAgo = f.Price5dAgo > 0
		}
		f.VolatilityRatio = volatilityRatio(ComputeLogReturns(h.Prices))
	}

	f.Price52wHigh = h.High52w
	if f.Price52wHigh <= 0 {
		for _, p := range h.Prices {
			f.Price52wHigh = math.Max(f.Price52wHigh, p)
		}
	}
	return f
}

func volatilityRatio(returns []float64) float64 {
	if len(returns) <= shortWindow {
		return 0
	}
	split := len(returns) - shortWindow
	long := StdDev(window(returns[:split], baselineWindow))
	if long <= 0 {
		return 0
	}
	return StdDev(returns[split:]) / long
}

// ComputeLogReturns computes r_t = ln(P_t / P_{t-1}). Non-positive prices
// yield a zero return.
func ComputeLogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// StdDev is the sample standard deviation; fewer than two values give 0.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func window(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
