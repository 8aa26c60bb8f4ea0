// Package statistics implements the pure A/B statistical engine of
// spec.md §4.8: a two-proportion Z-test and a conclusion aggregator.
package statistics

import "math"

// minSampleSize is the central-limit threshold below which the engine
// refuses to declare significance (spec.md §4.8 step 1).
const minSampleSize = 30

// Direction orients which variant a metric favours.
type Direction string

const (
	DirectionLower  Direction = "lower"
	DirectionHigher Direction = "higher"
)

// Variant names a side of the comparison.
type Variant string

const (
	VariantA    Variant = "A"
	VariantB    Variant = "B"
	VariantNone Variant = ""
)

// Result is the output of the two-proportion Z-test.
type Result struct {
	Significant bool
	Confidence  float64
	Winner      Variant
	EffectSize  float64
}

// TwoProportionZTest implements spec.md §4.8: given observed rates and
// sample sizes for variants A and B, decide whether the difference is
// statistically significant at the requested confidence level, and which
// variant direction favours.
func TwoProportionZTest(rateA, rateB float64, nA, nB int, confidence float64, direction Direction) Result {
	if nA < minSampleSize || nB < minSampleSize {
		return Result{EffectSize: effectSize(rateA, rateB)}
	}

	pHat := (rateA*float64(nA) + rateB*float64(nB)) / float64(nA+nB)
	se := math.Sqrt(pHat * (1 - pHat) * (1/float64(nA) + 1/float64(nB)))
	if se == 0 || math.IsNaN(se) || math.IsInf(se, 0) {
		return Result{EffectSize: effectSize(rateA, rateB)}
	}

	z := (rateB - rateA) / se
	p := 2 * (1 - stdNormalCDF(math.Abs(z)))
	achieved := 1 - p

	effect := effectSize(rateA, rateB)
	if achieved < confidence {
		return Result{Significant: false, Confidence: achieved, EffectSize: effect}
	}

	var winner Variant
	switch direction {
	case DirectionLower:
		if rateA <= rateB {
			winner = VariantA
		} else {
			winner = VariantB
		}
	case DirectionHigher:
		if rateA >= rateB {
			winner = VariantA
		} else {
			winner = VariantB
		}
	}

	return Result{Significant: true, Confidence: achieved, Winner: winner, EffectSize: effect}
}

func effectSize(rateA, rateB float64) float64 {
	if rateA > 0 {
		return (rateB - rateA) / rateA
	}
	if rateB > 0 {
		return 1.0
	}
	return 0.0
}

// stdNormalCDF approximates the standard normal CDF Φ(x) for x >= 0 using
// the Abramowitz-Stegun formula 7.1.26, accurate to 7.5e-8 (spec.md §4.8).
func stdNormalCDF(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)
	z := x / math.Sqrt2
	t := 1.0 / (1.0 + p*math.Abs(z))
	poly := ((((a5*t+a4)*t+a3)*t+a2)*t + a1) * t
	erf := 1.0 - poly*math.Exp(-z*z)
	if z < 0 {
		erf = -erf
	}
	return 0.5 * (1.0 + erf)
}
