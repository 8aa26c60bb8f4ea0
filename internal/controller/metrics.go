package controller

import (
	"time"

	"github.com/false-systems/kulta/api/v1beta1"
)

// MetricsRecorder is the capability through which the orchestrator reports
// outcomes for every reconcile (spec.md §4.11's closing paragraph). The
// production implementation lives in internal/observability/metrics and is
// backed by prometheus/client_golang; tests use NoopMetricsRecorder or a
// hand-rolled recorder that records calls.
type MetricsRecorder interface {
	RecordReconcileSuccess(strategy v1beta1.StrategyKind, duration time.Duration)
	RecordReconcileError(strategy v1beta1.StrategyKind)
	RecordLeaderSkip()
	SetTrafficWeight(namespace, name string, weight float64)
}

// NoopMetricsRecorder discards every call. It is the Reconciler's default
// so constructing one outside of a wired main() never panics on a nil
// interface.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) RecordReconcileSuccess(v1beta1.StrategyKind, time.Duration) {}
func (NoopMetricsRecorder) RecordReconcileError(v1beta1.StrategyKind)                   {}
func (NoopMetricsRecorder) RecordLeaderSkip()                                           {}
func (NoopMetricsRecorder) SetTrafficWeight(string, string, float64)                    {}
