package abeval

import (
	"context"
	"errors"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/false-systems/kulta/api/v1beta1"
)

type fakeQuerier struct {
	sampleCounts map[string]int
	errorRates   map[string]float64
	sampleErr    error
	rateErr      error
}

func (f *fakeQuerier) Evaluate(context.Context, string, string, string) (float64, error) {
	return 0, nil
}
func (f *fakeQuerier) SampleCount(_ context.Context, service string) (int, error) {
	if f.sampleErr != nil {
		return 0, f.sampleErr
	}
	return f.sampleCounts[service], nil
}
func (f *fakeQuerier) ErrorRate(_ context.Context, service string) (float64, error) {
	if f.rateErr != nil {
		return 0, f.rateErr
	}
	return f.errorRates[service], nil
}

func abRollout(ab *v1beta1.ABStrategy, exp *v1beta1.ABExperimentStatus, annotations map[string]string) *v1beta1.Rollout {
	return &v1beta1.Rollout{
		ObjectMeta: metav1.ObjectMeta{Annotations: annotations},
		Spec:       v1beta1.RolloutSpec{Strategy: v1beta1.RolloutStrategy{ABTesting: ab}},
		Status:     v1beta1.RolloutStatus{ABExperiment: exp},
	}
}

func TestEvaluator_ManualConclusionAnnotation(t *testing.T) {
	e := NewEvaluator(&fakeQuerier{})
	r := abRollout(&v1beta1.ABStrategy{}, nil, map[string]string{v1beta1.ConcludeExperimentAnnotation: "true"})
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.ShouldConclude || res.Reason != v1beta1.ReasonManualConclusion {
		t.Errorf("expected manual conclusion, got %+v", res)
	}
}

func TestEvaluator_MaxDurationExceeded(t *testing.T) {
	e := NewEvaluator(&fakeQuerier{})
	start := metav1.NewTime(time.Now().Add(-2 * time.Hour))
	ab := &v1beta1.ABStrategy{MaxDuration: "1h"}
	r := abRollout(ab, &v1beta1.ABExperimentStatus{StartedAt: &start}, nil)
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.ShouldConclude || res.Reason != v1beta1.ReasonMaxDurationExceeded {
		t.Errorf("expected max-duration conclusion, got %+v", res)
	}
}

func TestEvaluator_NoAnalysisConfig_NeverConcludes(t *testing.T) {
	e := NewEvaluator(&fakeQuerier{})
	r := abRollout(&v1beta1.ABStrategy{}, nil, nil)
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil || res.ShouldConclude {
		t.Errorf("expected no conclusion without analysis config, got %+v, err=%v", res, err)
	}
}

func TestEvaluator_MinDurationNotYetElapsed(t *testing.T) {
	e := NewEvaluator(&fakeQuerier{})
	start := metav1.NewTime(time.Now().Add(-10 * time.Second))
	ab := &v1beta1.ABStrategy{Analysis: &v1beta1.ABAnalysisConfig{MinDuration: "1h"}}
	r := abRollout(ab, &v1beta1.ABExperimentStatus{StartedAt: &start}, nil)
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil || res.ShouldConclude {
		t.Errorf("expected no conclusion before minDuration elapses, got %+v, err=%v", res, err)
	}
}

func TestEvaluator_SampleCountQueryError_NeverConcludes(t *testing.T) {
	q := &fakeQuerier{sampleErr: errors.New("prometheus unreachable")}
	e := NewEvaluator(q)
	ab := &v1beta1.ABStrategy{Analysis: &v1beta1.ABAnalysisConfig{}}
	r := abRollout(ab, &v1beta1.ABExperimentStatus{}, nil)
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil || res.ShouldConclude {
		t.Errorf("expected no conclusion on sample-count query error, got %+v, err=%v", res, err)
	}
}

func TestEvaluator_BelowMinSampleSize_NeverConcludes(t *testing.T) {
	q := &fakeQuerier{sampleCounts: map[string]int{"a": 10, "b": 10}}
	e := NewEvaluator(q)
	ab := &v1beta1.ABStrategy{VariantAService: "a", VariantBService: "b", Analysis: &v1beta1.ABAnalysisConfig{}}
	r := abRollout(ab, &v1beta1.ABExperimentStatus{}, nil)
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil || res.ShouldConclude {
		t.Errorf("expected no conclusion below min sample size, got %+v, err=%v", res, err)
	}
}

func TestEvaluator_SignificantDifference_Concludes(t *testing.T) {
	q := &fakeQuerier{
		sampleCounts: map[string]int{"a": 5000, "b": 5000},
		errorRates:   map[string]float64{"a": 0.10, "b": 0.02},
	}
	e := NewEvaluator(q)
	ab := &v1beta1.ABStrategy{VariantAService: "a", VariantBService: "b", Analysis: &v1beta1.ABAnalysisConfig{}}
	r := abRollout(ab, &v1beta1.ABExperimentStatus{}, nil)
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.ShouldConclude {
		t.Fatalf("expected conclusion given a clear error-rate difference, got %+v", res)
	}
	if res.Winner != "B" {
		t.Errorf("expected B (lower error rate) to win, got %q", res.Winner)
	}
}

func TestEvaluator_NoSignificantDifference_DoesNotConclude(t *testing.T) {
	q := &fakeQuerier{
		sampleCounts: map[string]int{"a": 100, "b": 100},
		errorRates:   map[string]float64{"a": 0.05, "b": 0.051},
	}
	e := NewEvaluator(q)
	ab := &v1beta1.ABStrategy{VariantAService: "a", VariantBService: "b", Analysis: &v1beta1.ABAnalysisConfig{}}
	r := abRollout(ab, &v1beta1.ABExperimentStatus{}, nil)
	res, err := e.Evaluate(context.Background(), r, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ShouldConclude {
		t.Errorf("expected no conclusion for a near-identical error rate, got %+v", res)
	}
}
