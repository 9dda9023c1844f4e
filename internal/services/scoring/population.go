package scoring

import (
	"math"
	"sort"
)

// zeroStd treats floating noise around a uniform sample as zero spread.
const zeroStd = 1e-12

// Population is the cross-sectional sample of one metric for one cycle.
// It is built once from the full batch and is read-only afterwards, so every
// ticker in the cycle sees the same mean and standard deviation.
type Population struct {
	values map[string]float64
	mean   float64
	std    float64
}

// NewPopulation computes mean and population standard deviation with
// Welford's online update. Non-finite values are dropped.
func NewPopulation(values map[string]float64) *Population {
	p := &Population{values: make(map[string]float64, len(values))}

	// iterate in key order so the float sums are reproducible
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var n int
	var mean, m2 float64
	for _, k := range keys {
		v := values[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		p.values[k] = v
		n++
		delta := v - mean
		mean += delta / float64(n)
		m2 += delta * (v - mean)
	}
	if n > 0 {
		p.mean = mean
		p.std = math.Sqrt(m2 / float64(n))
	}
	return p
}

func (p *Population) Len() int         { return len(p.values) }
func (p *Population) Mean() float64    { return p.mean }
func (p *Population) StdDev() float64  { return p.std }
func (p *Population) Degenerate() bool { return p.std <= zeroStd }

// Z returns the z-score of a member. Non-members report false. A degenerate
// population (zero spread, one member) gives 0 for every member.
func (p *Population) Z(ticker string) (float64, bool) {
	v, ok := p.values[ticker]
	if !ok {
		return 0, false
	}
	if p.Degenerate() {
		return 0, true
	}
	return (v - p.mean) / p.std, true
}

// ZScores returns the z-score of every member.
func (p *Population) ZScores() map[string]float64 {
	out := make(map[string]float64, len(p.values))
	for k := range p.values {
		out[k], _ = p.Z(k)
	}
	return out
}
