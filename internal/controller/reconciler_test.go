package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/abeval"
	"github.com/false-systems/kulta/internal/advisor"
	"github.com/false-systems/kulta/internal/analysis"
	"github.com/false-systems/kulta/internal/clock"
	"github.com/false-systems/kulta/internal/events"
)

func newTestReconciler(t *testing.T, store *fakeStore, clk clock.Clock, q analysis.MetricsQuerier) *RolloutReconciler {
	t.Helper()
	log := discardEntry()
	return &RolloutReconciler{
		Store:           store,
		Clock:           clk,
		Log:             log,
		Analyzer:        analysis.NewAnalyzer(q, clk, log),
		ABEvaluator:     abeval.NewEvaluator(q),
		Emitter:         events.NewEmitter(events.NoopCDSink{}, events.NewOccurrenceWriter(t.TempDir(), log), clk, "test-cluster", log),
		AdvisorResolver: advisor.NewResolver(log, nil),
		Metrics:         NoopMetricsRecorder{},
	}
}

func TestReconcile_SimpleStrategy_CompletesAndCreatesReplicaSet(t *testing.T) {
	store := newFakeStore()
	r := testRollout("my-app", 3)
	r.Spec.Strategy.Simple = &v1beta1.SimpleStrategy{}
	store.put(r)

	rec := newTestReconciler(t, store, clock.NewFake(time.Now()), stubQuerier{})

	result, err := rec.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "my-app"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequeueAfter != defaultRequeue {
		t.Errorf("expected default requeue interval, got %v", result.RequeueAfter)
	}

	var got v1beta1.Rollout
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app"}, &got); err != nil {
		t.Fatalf("unexpected error reading back rollout: %v", err)
	}
	if got.Status.Phase != v1beta1.PhaseCompleted {
		t.Errorf("expected phase Completed, got %q", got.Status.Phase)
	}
	if len(got.Status.Decisions) != 1 {
		t.Errorf("expected one decision recorded, got %d", len(got.Status.Decisions))
	}

	var rs appsv1.ReplicaSet
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app"}, &rs); err != nil {
		t.Fatalf("expected a bare-named replica set for the simple strategy: %v", err)
	}
	if *rs.Spec.Replicas != 3 {
		t.Errorf("expected 3 replicas, got %d", *rs.Spec.Replicas)
	}
}

func TestReconcile_ValidationFailure_NoStatusPatch(t *testing.T) {
	store := newFakeStore()
	r := testRollout("bad-app", -1)
	r.Spec.Strategy.Simple = &v1beta1.SimpleStrategy{}
	store.put(r)

	rec := newTestReconciler(t, store, clock.NewFake(time.Now()), stubQuerier{})

	_, err := rec.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "bad-app"}})
	if err == nil {
		t.Fatal("expected a validation error")
	}

	var got v1beta1.Rollout
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "bad-app"}, &got); err != nil {
		t.Fatalf("unexpected error reading back rollout: %v", err)
	}
	if got.Status.Phase != "" {
		t.Errorf("expected status untouched on a validation failure, got phase %q", got.Status.Phase)
	}
}

type alwaysFollower struct{}

func (alwaysFollower) IsLeader() bool { return false }

func TestReconcile_LeaderGate_SkipsWhenNotLeader(t *testing.T) {
	store := newFakeStore()
	r := testRollout("my-app", 3)
	r.Spec.Strategy.Simple = &v1beta1.SimpleStrategy{}
	store.put(r)

	rec := newTestReconciler(t, store, clock.NewFake(time.Now()), stubQuerier{})
	var skips int
	rec.Metrics = &countingRecorder{onLeaderSkip: func() { skips++ }}
	rec.Elector = alwaysFollower{}

	result, err := rec.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "my-app"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequeueAfter != leaderSkipRequeue {
		t.Errorf("expected leader-skip requeue interval, got %v", result.RequeueAfter)
	}
	if skips != 1 {
		t.Errorf("expected exactly one leader-skip metric, got %d", skips)
	}

	var got v1beta1.Rollout
	store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app"}, &got)
	if got.Status.Phase != "" {
		t.Errorf("expected no reconciliation to have happened, got phase %q", got.Status.Phase)
	}
}

func TestReconcile_UnhealthyMetric_FailsAndRequeues30s(t *testing.T) {
	store := newFakeStore()
	r := testRollout("canary-app", 10)
	weight := int32(20)
	idx := int32(0)
	r.Status.CurrentStepIndex = &idx
	r.Status.CurrentWeight = &weight
	r.Status.Phase = v1beta1.PhaseProgressing
	r.Spec.Strategy.Canary = &v1beta1.CanaryStrategy{
		StableService: "stable-svc",
		CanaryService: "canary-svc",
		Steps:         []v1beta1.CanaryStep{{SetWeight: &weight}},
		Analysis: &v1beta1.AnalysisConfig{
			Metrics: []v1beta1.MetricConfig{{Name: "error-rate", Threshold: 0.01}},
		},
	}
	store.put(r)

	q := stubQuerier{evaluateValue: 0.5} // above threshold -> unhealthy
	rec := newTestReconciler(t, store, clock.NewFake(time.Now()), q)

	result, err := rec.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "canary-app"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequeueAfter != unhealthyRequeue {
		t.Errorf("expected unhealthy requeue interval, got %v", result.RequeueAfter)
	}

	var got v1beta1.Rollout
	store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "canary-app"}, &got)
	if got.Status.Phase != v1beta1.PhaseFailed {
		t.Errorf("expected phase Failed, got %q", got.Status.Phase)
	}
}

func TestReconcile_MetricQueryError_PauseLeavesRolloutInPlace(t *testing.T) {
	store := newFakeStore()
	r := testRollout("canary-app", 10)
	weight := int32(20)
	idx := int32(0)
	r.Status.CurrentStepIndex = &idx
	r.Status.CurrentWeight = &weight
	r.Status.Phase = v1beta1.PhaseProgressing
	r.Spec.Strategy.Canary = &v1beta1.CanaryStrategy{
		StableService: "stable-svc",
		CanaryService: "canary-svc",
		Steps:         []v1beta1.CanaryStep{{SetWeight: &weight}},
		Analysis: &v1beta1.AnalysisConfig{
			Metrics:       []v1beta1.MetricConfig{{Name: "error-rate", Threshold: 0.01}},
			FailurePolicy: v1beta1.FailurePolicyPause,
		},
	}
	store.put(r)

	q := stubQuerier{evaluateErr: errBackendUnreachable}
	rec := newTestReconciler(t, store, clock.NewFake(time.Now()), q)

	result, err := rec.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "canary-app"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequeueAfter != defaultRequeue {
		t.Errorf("expected default requeue interval on pause, got %v", result.RequeueAfter)
	}

	var got v1beta1.Rollout
	store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "canary-app"}, &got)
	if got.Status.Phase != v1beta1.PhaseProgressing {
		t.Errorf("expected the rollout left untouched at Progressing, got %q", got.Status.Phase)
	}
}

type countingRecorder struct {
	NoopMetricsRecorder
	onLeaderSkip func()
}

func (c *countingRecorder) RecordLeaderSkip() {
	if c.onLeaderSkip != nil {
		c.onLeaderSkip()
	}
}

var errBackendUnreachable = errors.New("metrics backend unreachable")
