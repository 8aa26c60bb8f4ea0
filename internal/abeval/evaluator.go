// Package abeval implements the A/B Evaluator (spec.md §4.12): the async
// sequence that decides whether an in-flight A/B experiment should
// conclude, and if so with what winner and reason.
package abeval

import (
	"context"
	"fmt"
	"time"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/analysis"
	"github.com/false-systems/kulta/internal/statistics"
)

const defaultMinSampleSize = int32(30)
const defaultConfidenceLevel = 0.95

// Result is the evaluator's verdict for one reconcile.
type Result struct {
	ShouldConclude bool
	Winner         string
	Reason         v1beta1.ConclusionReason
	Results        []v1beta1.ABMetricResult
	SampleSizeA    *int32
	SampleSizeB    *int32
}

// Evaluator runs the spec.md §4.12 sequence.
type Evaluator struct {
	Querier analysis.MetricsQuerier
}

func NewEvaluator(q analysis.MetricsQuerier) *Evaluator {
	return &Evaluator{Querier: q}
}

// Evaluate returns a Result describing whether the experiment should
// conclude this reconcile. now is the orchestrator's single authoritative
// timestamp.
func (e *Evaluator) Evaluate(ctx context.Context, r *v1beta1.Rollout, now time.Time) (Result, error) {
	ab := r.Spec.Strategy.ABTesting
	exp := r.Status.ABExperiment

	if r.Annotations[v1beta1.ConcludeExperimentAnnotation] == "true" {
		return Result{ShouldConclude: true, Reason: v1beta1.ReasonManualConclusion}, nil
	}

	if ab.MaxDuration != "" && exp != nil && exp.StartedAt != nil {
		dur, err := parseDuration(ab.MaxDuration)
		if err == nil && now.Sub(exp.StartedAt.Time) >= dur {
			return Result{ShouldConclude: true, Reason: v1beta1.ReasonMaxDurationExceeded}, nil
		}
	}

	if ab.Analysis == nil {
		return Result{}, nil
	}

	if ab.Analysis.MinDuration != "" && exp != nil && exp.StartedAt != nil {
		dur, err := parseDuration(ab.Analysis.MinDuration)
		if err == nil && now.Sub(exp.StartedAt.Time) < dur {
			return Result{}, nil
		}
	}

	minSampleSize := defaultMinSampleSize
	if ab.Analysis.MinSampleSize != nil {
		minSampleSize = *ab.Analysis.MinSampleSize
	}

	nA, err := e.Querier.SampleCount(ctx, ab.VariantAService)
	if err != nil {
		return Result{}, nil
	}
	nB, err := e.Querier.SampleCount(ctx, ab.VariantBService)
	if err != nil {
		return Result{}, nil
	}
	if int32(nA) < minSampleSize || int32(nB) < minSampleSize {
		return Result{}, nil
	}

	errA, err := e.Querier.ErrorRate(ctx, ab.VariantAService)
	if err != nil {
		return Result{}, nil
	}
	errB, err := e.Querier.ErrorRate(ctx, ab.VariantBService)
	if err != nil {
		return Result{}, nil
	}

	confidence := defaultConfidenceLevel
	if ab.Analysis.ConfidenceLevel != nil {
		confidence = *ab.Analysis.ConfidenceLevel
	}

	ztest := statistics.TwoProportionZTest(errA, errB, nA, nB, confidence, statistics.DirectionLower)

	verdict := statistics.MetricVerdict{Metric: "error-rate", Result: ztest}
	conclusion := statistics.Aggregate([]statistics.MetricVerdict{verdict})

	sizeA, sizeB := int32(nA), int32(nB)
	abResult := v1beta1.ABMetricResult{
		Metric:      "error-rate",
		Significant: ztest.Significant,
		Confidence:  ztest.Confidence,
		Winner:      string(ztest.Winner),
		EffectSize:  ztest.EffectSize,
	}

	if conclusion.Reason == "" {
		return Result{Results: []v1beta1.ABMetricResult{abResult}, SampleSizeA: &sizeA, SampleSizeB: &sizeB}, nil
	}

	return Result{
		ShouldConclude: true,
		Winner:         string(conclusion.Winner),
		Reason:         v1beta1.ConclusionReason(conclusion.Reason),
		Results:        []v1beta1.ABMetricResult{abResult},
		SampleSizeA:    &sizeA,
		SampleSizeB:    &sizeB,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	unit := s[len(s)-1]
	var scale time.Duration
	switch unit {
	case 's':
		scale = time.Second
	case 'm':
		scale = time.Minute
	case 'h':
		scale = time.Hour
	default:
		return 0, fmt.Errorf("invalid duration unit in %q", s)
	}
	var n int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * scale, nil
}
