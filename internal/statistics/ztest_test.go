package statistics

import (
	"math"
	"testing"
)

func TestTwoProportionZTest_BelowMinSampleSize(t *testing.T) {
	r := TwoProportionZTest(0.05, 0.01, 10, 10, 0.95, DirectionLower)
	if r.Significant {
		t.Errorf("expected not significant below min sample size, got %+v", r)
	}
	if r.Winner != VariantNone {
		t.Errorf("expected no winner below min sample size, got %v", r.Winner)
	}
}

func TestTwoProportionZTest_Calibration(t *testing.T) {
	// spec.md §8 "Statistical calibration": equal rates at huge sample
	// sizes must not cross 0.95 confidence (null hypothesis holds).
	r := TwoProportionZTest(0.10, 0.10, 1_000_000, 1_000_000, 0.95, DirectionLower)
	if r.Confidence >= 0.95 {
		t.Errorf("expected achieved confidence < 0.95 for equal rates, got %v", r.Confidence)
	}
	if r.Significant {
		t.Errorf("expected not significant for equal rates, got %+v", r)
	}
}

func TestTwoProportionZTest_ClearWinnerLower(t *testing.T) {
	r := TwoProportionZTest(0.05, 0.02, 5000, 5000, 0.95, DirectionLower)
	if !r.Significant {
		t.Fatalf("expected significant result, got %+v", r)
	}
	if r.Winner != VariantB {
		t.Errorf("expected B to win (lower rate, direction=lower), got %v", r.Winner)
	}
}

func TestTwoProportionZTest_ClearWinnerHigher(t *testing.T) {
	r := TwoProportionZTest(0.30, 0.45, 5000, 5000, 0.95, DirectionHigher)
	if !r.Significant {
		t.Fatalf("expected significant result, got %+v", r)
	}
	if r.Winner != VariantB {
		t.Errorf("expected B to win (higher rate, direction=higher), got %v", r.Winner)
	}
}

func TestTwoProportionZTest_EffectSize(t *testing.T) {
	r := TwoProportionZTest(0, 0.5, 100, 100, 0.95, DirectionLower)
	if r.EffectSize != 1.0 {
		t.Errorf("expected effect size 1.0 when rateA=0 and rateB>0, got %v", r.EffectSize)
	}
	r = TwoProportionZTest(0, 0, 100, 100, 0.95, DirectionLower)
	if r.EffectSize != 0.0 {
		t.Errorf("expected effect size 0.0 when both rates are 0, got %v", r.EffectSize)
	}
}

func TestStdNormalCDF_Accuracy(t *testing.T) {
	// Known values of Φ(x).
	cases := map[float64]float64{
		0.0:  0.5,
		1.0:  0.8413447460685429,
		1.96: 0.9750021048517795,
		2.58: 0.9950599842422294,
	}
	for x, want := range cases {
		got := stdNormalCDF(x)
		if math.Abs(got-want) > 7.5e-8 {
			t.Errorf("stdNormalCDF(%v) = %v, want %v (diff %v)", x, got, want, math.Abs(got-want))
		}
	}
}

func TestAggregate(t *testing.T) {
	sigA := Result{Significant: true, Winner: VariantA}
	sigB := Result{Significant: true, Winner: VariantB}
	notSig := Result{Significant: false}

	tests := []struct {
		name     string
		verdicts []MetricVerdict
		want     ConclusionReason
	}{
		{"no metrics", nil, ReasonNone},
		{"none significant", []MetricVerdict{{"m1", notSig}}, ReasonNone},
		{"unanimous B", []MetricVerdict{{"m1", sigB}, {"m2", sigB}}, ReasonConsensusReached},
		{"mixed winners", []MetricVerdict{{"m1", sigA}, {"m2", sigB}}, ReasonNone},
		{"one significant one not", []MetricVerdict{{"m1", sigB}, {"m2", notSig}}, ReasonConsensusReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Aggregate(tt.verdicts)
			if c.Reason != tt.want {
				t.Errorf("Aggregate(%v) reason = %v, want %v", tt.verdicts, c.Reason, tt.want)
			}
		})
	}
}
