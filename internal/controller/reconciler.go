// Package controller implements the Reconcile Orchestrator (spec.md
// §4.11): the controller-runtime Reconciler that drives every Rollout
// through validation, strategy dispatch, metric analysis, and status
// computation, plus the Leader Elector (spec.md §4.15) that gates it in a
// multi-replica deployment.
package controller

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/abeval"
	"github.com/false-systems/kulta/internal/advisor"
	"github.com/false-systems/kulta/internal/analysis"
	"github.com/false-systems/kulta/internal/clock"
	"github.com/false-systems/kulta/internal/events"
	"github.com/false-systems/kulta/internal/objectstore"
	"github.com/false-systems/kulta/internal/observability/logging"
	"github.com/false-systems/kulta/internal/observability/tracing"
	"github.com/false-systems/kulta/internal/status"
	"github.com/false-systems/kulta/internal/strategy"
	"github.com/false-systems/kulta/internal/validation"
)

// LeaderChecker reports whether this process currently holds the write
// lease (spec.md §4.15). A nil LeaderChecker means leader election is not
// configured and this instance always acts as leader.
type LeaderChecker interface {
	IsLeader() bool
}

// RolloutReconciler implements spec.md §4.11's hot path. Every capability
// it consumes is an explicit, injectable field rather than global state, so
// tests wire fakes directly instead of reaching for package-level setup.
type RolloutReconciler struct {
	Store objectstore.Store
	Clock clock.Clock
	Log   *logrus.Entry

	ValidationPolicy validation.Policy

	AdvisorResolver *advisor.Resolver
	// TestAdvisor, when non-nil and not a no-op, overrides advisor
	// resolution for this reconcile (see advisor.Resolver.Resolve).
	TestAdvisor advisor.Advisor

	Analyzer    *analysis.Analyzer
	ABEvaluator *abeval.Evaluator
	Emitter     *events.Emitter

	Elector LeaderChecker
	Metrics MetricsRecorder
}

// NewRolloutReconciler builds a reconciler with the given mandatory
// capabilities and safe defaults for the optional ones (no leader
// election, a discarding metrics recorder, no validation policy
// extension).
func NewRolloutReconciler(store objectstore.Store, c clock.Clock, analyzer *analysis.Analyzer, abEvaluator *abeval.Evaluator, emitter *events.Emitter, advisorResolver *advisor.Resolver, log *logrus.Entry) *RolloutReconciler {
	if log == nil {
		l := logrus.New()
		log = l.WithField("component", "reconciler")
	}
	return &RolloutReconciler{
		Store:           store,
		Clock:           c,
		Log:             log,
		Analyzer:        analyzer,
		ABEvaluator:     abEvaluator,
		Emitter:         emitter,
		AdvisorResolver: advisorResolver,
		Metrics:         NoopMetricsRecorder{},
	}
}

// Reconcile implements the 11-step sequence of spec.md §4.11.
func (r *RolloutReconciler) Reconcile(ctx context.Context, req ctrl.Request) (result ctrl.Result, err error) {
	log := r.Log.WithFields(logging.NewFields().Resource("rollout", req.Name).ToLogrus())

	// Step 1: leader gate.
	if r.Elector != nil && !r.Elector.IsLeader() {
		r.Metrics.RecordLeaderSkip()
		return ctrl.Result{RequeueAfter: leaderSkipRequeue}, nil
	}

	ctx, span := tracing.StartReconcile(ctx, req.Namespace, req.Name)
	defer func() { tracing.End(span, err) }()

	start := r.Clock.Now()

	var rollout v1beta1.Rollout
	if err := r.Store.Get(ctx, req.NamespacedName, &rollout); err != nil {
		if objectstore.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("get rollout: %w", err)
	}

	statusPatch := objectstore.MergeFrom(&rollout)
	oldStatus := rollout.Status.DeepCopy()
	now := r.Clock.Now()

	// Step 2: validate. No status patch on failure, per spec.
	if err := validation.Validate(ctx, &rollout, r.ValidationPolicy); err != nil {
		r.Metrics.RecordReconcileError("")
		return ctrl.Result{}, fmt.Errorf("validate rollout: %w", err)
	}

	kind := rollout.Spec.Strategy.Kind()
	tracing.SetStrategy(span, string(kind))

	// Step 3: dispatch strategy.
	handler, err := strategy.ForStrategy(kind, log)
	if err != nil {
		r.Metrics.RecordReconcileError(kind)
		return ctrl.Result{}, err
	}

	// Step 4: reconcile replica sets.
	if err := handler.ReconcileReplicas(ctx, r.Store, &rollout); err != nil {
		r.Metrics.RecordReconcileError(kind)
		return ctrl.Result{}, fmt.Errorf("reconcile replicas: %w", err)
	}

	// Step 5: reconcile traffic. 404s on the route object are handled as
	// non-fatal inside the handler itself (spec.md §4.6).
	if err := handler.ReconcileTraffic(ctx, r.Store, &rollout); err != nil {
		r.Metrics.RecordReconcileError(kind)
		return ctrl.Result{}, fmt.Errorf("reconcile traffic: %w", err)
	}

	// Step 6: metric analysis, only while actively progressing.
	if cfg := analysisConfigFor(&rollout, kind); cfg != nil && rollout.Status.Phase == v1beta1.PhaseProgressing {
		healthy, consultReasoning, err := r.runAnalysis(ctx, &rollout, kind, cfg, log)
		if err != nil {
			// FailurePolicyPause (the default): leave the rollout exactly
			// as it is and retry, per spec.md §4.7.
			return ctrl.Result{RequeueAfter: defaultRequeue}, nil
		}
		if consultReasoning != "" {
			r.Emitter.EmitAdvisorConsultation(ctx, &rollout, kind, consultReasoning)
		}
		if !healthy {
			rollout.Status.Phase = v1beta1.PhaseFailed
			rollout.Status.Message = "Rollback triggered: metrics exceeded thresholds"
			appendDecision(&rollout.Status, now, "metric analysis failed")
			r.Emitter.EmitTransition(ctx, &rollout, oldStatus, kind)
			if err := r.Store.PatchStatus(ctx, &rollout, statusPatch); err != nil {
				r.Metrics.RecordReconcileError(kind)
				return ctrl.Result{}, fmt.Errorf("patch status: %w", err)
			}
			r.Metrics.RecordReconcileSuccess(kind, r.Clock.Now().Sub(start))
			return ctrl.Result{RequeueAfter: unhealthyRequeue}, nil
		}
	}

	// Step 7: A/B conclusion check.
	if kind == v1beta1.StrategyAB && rollout.Status.Phase == v1beta1.PhaseExperimenting {
		abCtx, abSpan := tracing.StartABEvaluation(ctx, rollout.Name)
		result, err := r.ABEvaluator.Evaluate(abCtx, &rollout, now)
		tracing.End(abSpan, err)
		if err != nil {
			r.Metrics.RecordReconcileError(kind)
			return ctrl.Result{}, fmt.Errorf("evaluate ab experiment: %w", err)
		}
		if result.ShouldConclude {
			startedAt := startedAtOr(oldStatus.ABExperiment, now)
			rollout.Status.Phase = v1beta1.PhaseConcluded
			rollout.Status.ABExperiment = &v1beta1.ABExperimentStatus{
				StartedAt:        startedAt,
				ConclusionReason: result.Reason,
				Winner:           result.Winner,
				Results:          result.Results,
				SampleSizeA:      result.SampleSizeA,
				SampleSizeB:      result.SampleSizeB,
			}
			appendDecision(&rollout.Status, now, "a/b experiment concluded: "+string(result.Reason))
			r.Emitter.EmitTransition(ctx, &rollout, oldStatus, kind)
			if err := r.Store.PatchStatus(ctx, &rollout, statusPatch); err != nil {
				r.Metrics.RecordReconcileError(kind)
				return ctrl.Result{}, fmt.Errorf("patch status: %w", err)
			}
			r.Metrics.RecordReconcileSuccess(kind, r.Clock.Now().Sub(start))
			return ctrl.Result{RequeueAfter: defaultRequeue}, nil
		}
	}

	// Step 8: progress-deadline check.
	if deadline := rollout.Spec.ProgressDeadlineSeconds; deadline != nil {
		phase := rollout.Status.Phase
		if (phase == v1beta1.PhaseProgressing || phase == v1beta1.PhasePreview) && rollout.Status.ProgressStartedAt != nil {
			if now.Sub(rollout.Status.ProgressStartedAt.Time) > time.Duration(*deadline)*time.Second {
				rollout.Status.Phase = v1beta1.PhaseFailed
				rollout.Status.Message = fmt.Sprintf("Progress deadline exceeded: no progress made in %d seconds", *deadline)
				appendDecision(&rollout.Status, now, "progress deadline exceeded")
				r.Emitter.EmitTransition(ctx, &rollout, oldStatus, kind)
				if err := r.Store.PatchStatus(ctx, &rollout, statusPatch); err != nil {
					r.Metrics.RecordReconcileError(kind)
					return ctrl.Result{}, fmt.Errorf("patch status: %w", err)
				}
				r.Metrics.RecordReconcileSuccess(kind, r.Clock.Now().Sub(start))
				return ctrl.Result{}, nil
			}
		}
	}

	// Step 9: compute next status; skip the patch if nothing changed.
	next := status.ForStrategy(kind).Next(&rollout, now)
	changed := !reflect.DeepEqual(rollout.Status, next)
	if changed {
		next.Decisions = rollout.Status.Decisions
		rollout.Status = next
		appendDecision(&rollout.Status, now, decisionReason(oldStatus.Phase, next.Phase))
		r.Emitter.EmitTransition(ctx, &rollout, oldStatus, kind)
		if err := r.Store.PatchStatus(ctx, &rollout, statusPatch); err != nil {
			r.Metrics.RecordReconcileError(kind)
			return ctrl.Result{}, fmt.Errorf("patch status: %w", err)
		}
	}

	// Step 10: clear the promote annotation if this reconcile consumed it.
	if changed && rollout.Annotations[v1beta1.PromoteAnnotation] == "true" {
		annotationPatch := objectstore.MergeFrom(&rollout)
		delete(rollout.Annotations, v1beta1.PromoteAnnotation)
		if err := r.Store.Patch(ctx, &rollout, annotationPatch); err != nil {
			log.WithError(err).Warn("failed to clear promote annotation; it will be reconsumed next reconcile")
		}
	}

	r.Metrics.RecordReconcileSuccess(kind, r.Clock.Now().Sub(start))
	if w := rollout.Status.CurrentWeight; w != nil {
		r.Metrics.SetTrafficWeight(rollout.Namespace, rollout.Name, float64(*w))
	}

	// Step 11: requeue interval.
	paused, dur, elapsed := currentPause(&rollout, now)
	return ctrl.Result{RequeueAfter: nextRequeue(paused, dur, elapsed)}, nil
}

// SetupWithManager wires the reconciler into mgr: it watches Rollouts
// directly and their owned ReplicaSets so a manual scale-down or delete of
// a derived replica set triggers a re-reconcile.
func (r *RolloutReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1beta1.Rollout{}).
		Owns(&appsv1.ReplicaSet{}).
		Complete(r)
}

// runAnalysis runs the Metric Analyzer and, if configured, the advisor
// consultation of spec.md §4.11 step 6. On a query error it interprets
// analysis.FailurePolicy itself, since analysis.Analyzer.Evaluate does not:
// Pause (the default) surfaces the error so the caller leaves the rollout
// untouched and retries; Continue treats the reconcile as healthy; Rollback
// treats it as unhealthy.
func (r *RolloutReconciler) runAnalysis(ctx context.Context, rollout *v1beta1.Rollout, kind v1beta1.StrategyKind, cfg *v1beta1.AnalysisConfig, log *logrus.Entry) (healthy bool, advisorReasoning string, err error) {
	analysisCtx, analysisSpan := tracing.StartMetricAnalysis(ctx, analysisMetricNames(cfg))
	healthy, evalErr := r.Analyzer.Evaluate(analysisCtx, rollout, cfg)
	tracing.End(analysisSpan, evalErr)
	if evalErr != nil {
		switch cfg.FailurePolicy {
		case v1beta1.FailurePolicyContinue:
			healthy, evalErr = true, nil
		case v1beta1.FailurePolicyRollback:
			healthy, evalErr = false, nil
		default:
			log.WithError(evalErr).Warn("metric analysis query failed; pausing rollout in place")
			return false, "", evalErr
		}
	}

	advCfg := rollout.Spec.Advisor
	if r.AdvisorResolver == nil || !demandsConsultation(advCfg) {
		return healthy, "", nil
	}

	a := r.AdvisorResolver.Resolve(ctx, advCfg, r.TestAdvisor)
	reqCtx := advisor.RequestContext{
		RolloutName:    rollout.Name,
		Namespace:      rollout.Namespace,
		Strategy:       kind,
		CurrentStep:    rollout.Status.CurrentStepIndex,
		CurrentWeight:  rollout.Status.CurrentWeight,
		MetricsHealthy: healthy,
		Phase:          rollout.Status.Phase,
		History:        rollout.Status.Decisions,
	}
	advisorCtx, advisorSpan := tracing.StartAdvisorConsultation(ctx, string(advCfg.Level))
	timeoutCtx, cancel := context.WithTimeout(advisorCtx, advisorTimeout(advCfg))
	rec, consultErr := a.Consult(timeoutCtx, reqCtx)
	cancel()
	tracing.End(advisorSpan, consultErr)
	if consultErr != nil {
		return healthy, fmt.Sprintf("advisor consultation failed: %v", consultErr), nil
	}
	return healthy, fmt.Sprintf("recommended %s (confidence %.2f): %s", rec.Action, rec.Confidence, rec.Reasoning), nil
}

// analysisMetricNames joins a config's metric names for the analysis span's
// attribute, so a trace backend can filter reconciles by which metric
// gated them without opening the span.
func analysisMetricNames(cfg *v1beta1.AnalysisConfig) string {
	names := make([]string, len(cfg.Metrics))
	for i, m := range cfg.Metrics {
		names[i] = m.Name
	}
	return strings.Join(names, ",")
}

func analysisConfigFor(r *v1beta1.Rollout, kind v1beta1.StrategyKind) *v1beta1.AnalysisConfig {
	switch kind {
	case v1beta1.StrategyCanary:
		return r.Spec.Strategy.Canary.Analysis
	case v1beta1.StrategyBlueGreen:
		return r.Spec.Strategy.BlueGreen.Analysis
	case v1beta1.StrategySimple:
		return r.Spec.Strategy.Simple.Analysis
	default:
		return nil
	}
}

func demandsConsultation(cfg *v1beta1.AdvisorConfig) bool {
	if cfg == nil || cfg.Endpoint == "" {
		return false
	}
	switch cfg.Level {
	case v1beta1.AdvisorLevelAdvised, v1beta1.AdvisorLevelPlanned, v1beta1.AdvisorLevelDriven:
		return true
	default:
		return false
	}
}

const defaultAdvisorTimeout = 5 * time.Second

func advisorTimeout(cfg *v1beta1.AdvisorConfig) time.Duration {
	if cfg == nil || cfg.TimeoutSeconds == nil {
		return defaultAdvisorTimeout
	}
	return time.Duration(*cfg.TimeoutSeconds) * time.Second
}

func appendDecision(s *v1beta1.RolloutStatus, now time.Time, reason string) {
	s.Decisions = append(s.Decisions, v1beta1.Decision{
		Timestamp: metav1.NewTime(now),
		Phase:     s.Phase,
		Reason:    reason,
	})
}

func decisionReason(oldPhase, newPhase v1beta1.RolloutPhase) string {
	if oldPhase == "" {
		return fmt.Sprintf("initialized to %s", newPhase)
	}
	if oldPhase == newPhase {
		return "step advanced"
	}
	return fmt.Sprintf("transitioned from %s to %s", oldPhase, newPhase)
}

// startedAtOr returns the experiment's existing StartedAt, or now if no
// experiment status has been recorded yet.
func startedAtOr(exp *v1beta1.ABExperimentStatus, now time.Time) *metav1.Time {
	if exp != nil && exp.StartedAt != nil {
		return exp.StartedAt
	}
	t := metav1.NewTime(now)
	return &t
}
