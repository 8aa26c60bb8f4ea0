// Package analysis implements the MetricsQuerier capability and the Metric
// Analyzer (spec.md §4.7).
package analysis

import (
	"context"
	"fmt"
	"math"
)

// MetricsQuerier is the capability through which KULTA observes a metrics
// backend. Out of scope per spec.md §1; consumed as an opaque dependency.
type MetricsQuerier interface {
	// Evaluate returns the current observed value of a named metric for a
	// rollout's revision (e.g. "canary", "stable", or an A/B variant
	// label).
	Evaluate(ctx context.Context, metric, rolloutName, revision string) (float64, error)

	// SampleCount returns the number of samples observed for service,
	// used by the A/B evaluator's minimum-sample-size gate
	// (original_source/src/controller/prometheus_ab.rs keeps this as a
	// distinct query from the generic threshold Evaluate).
	SampleCount(ctx context.Context, service string) (int, error)

	// ErrorRate returns the observed error rate for service, used by the
	// A/B evaluator's statistical comparison.
	ErrorRate(ctx context.Context, service string) (float64, error)
}

// ValidateObservedValue rejects NaN and ±Inf per spec.md §4.7 ("Rejected
// metric values: NaN and ±∞ are errors, not healthy by default").
func ValidateObservedValue(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("metric value is NaN")
	}
	if math.IsInf(v, 0) {
		return fmt.Errorf("metric value is not finite: %v", v)
	}
	return nil
}
