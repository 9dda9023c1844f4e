package scoring

import "math"

// SafeRatio divides num by den. It reports false, with a zero value, when
// den is zero, negative or not finite, or when the result is not finite.
// Every ratio in the normalizer goes through here.
func SafeRatio(num, den float64) (float64, bool) {
	if den <= 0 || math.IsNaN(den) || math.IsInf(den, 0) || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// Clamp bounds v to [lo, hi]. NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Point is one breakpoint of a piecewise-linear Scale.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Scale maps a ratio onto a score by linear interpolation between points
// sorted by X. Inputs left of the first point take its Y; inputs right of
// the last point take the last Y.
type Scale []Point

func (s Scale) At(x float64) float64 {
	if len(s) == 0 || math.IsNaN(x) {
		return 0
	}
	if x <= s[0].X {
		return s[0].Y
	}
	for i := 1; i < len(s); i++ {
		if x <= s[i].X {
			lo, hi := s[i-1], s[i]
			if hi.X == lo.X {
				return hi.Y
			}
			return lo.Y + (x-lo.X)*(hi.Y-lo.Y)/(hi.X-lo.X)
		}
	}
	return s[len(s)-1].Y
}

func (s Scale) validate() bool {
	for i := 1; i < len(s); i++ {
		if s[i].X < s[i-1].X {
			return false
		}
	}
	return len(s) > 0
}

// Step is one rung of a Steps ladder.
type Step struct {
	Threshold float64
	Boost     float64
}

// Steps is a boost ladder checked in order; the first matching rung wins.
type Steps []Step

// Above returns the boost of the first rung whose threshold x exceeds.
func (s Steps) Above(x float64) float64 {
	for _, st := range s {
		if x > st.Threshold {
			return st.Boost
		}
	}
	return 0
}

// AtOrBelow returns the boost of the first rung x does not exceed.
func (s Steps) AtOrBelow(x float64) float64 {
	for _, st := range s {
		if x <= st.Threshold {
			return st.Boost
		}
	}
	return 0
}
