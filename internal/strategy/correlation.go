// Package strategy contains the numeric logic the coordinator applies to price windows.
package strategy

import "math"

// Strength buckets the magnitude of a correlation coefficient.
type Strength string

const (
	StrengthUndefined Strength = "undefined"
	StrengthWeak      Strength = "weak"
	StrengthModerate  Strength = "moderate"
	StrengthStrong    Strength = "strong"
)

// Correlation is a Pearson coefficient together with whether it was computable at all.
// Defined is false when either input had zero variance or the inputs were unusable; Value is 0 then.
type Correlation struct {
	Value   float64
	Defined bool
}

// Strength classifies the coefficient into weak/moderate/strong bands.
func (c Correlation) Strength() Strength {
	if !c.Defined {
		return StrengthUndefined
	}
	return Classify(c.Value)
}

// Classify maps |r| < 0.3 to weak, 0.3 <= |r| < 0.5 to moderate and anything above to strong.
func Classify(r float64) Strength {
	abs := math.Abs(r)
	switch {
	case abs >= 0.5:
		return StrengthStrong
	case abs >= 0.3:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Pearson returns the correlation coefficient of x and y, or 0 when it is undefined.
func Pearson(x, y []float64) float64 {
	return Correlate(x, y).Value
}

// Correlate computes the Pearson coefficient using population moments:
// r = cov(x, y) / (std(x) std(y)), where cov and std divide by n.
// Moments are taken around the mean, algebraically equal to mean(xy) - mean(x)mean(y).
// Inputs must have equal length of at least two.
func Correlate(x, y []float64) Correlation {
	n := len(x)
	if n < 2 || n != len(y) {
		return Correlation{}
	}
	if constant(x) || constant(y) {
		return Correlation{}
	}

	fn := float64(n)
	meanX, meanY := mean(x), mean(y)
	var covXY, varX, varY float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-meanX, y[i]-meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	covXY /= fn
	varX /= fn
	varY /= fn
	if varX <= 0 || varY <= 0 {
		return Correlation{}
	}

	r := covXY / (math.Sqrt(varX) * math.Sqrt(varY))
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Correlation{}
	}
	return Correlation{Value: clamp(r, -1, 1), Defined: true}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
