// Package advisor implements the AnalysisAdvisor capability (spec.md §4.9):
// an async, advisory-only consultation that the reconcile orchestrator may
// request once per reconcile. Its recommendation is logged and recorded,
// never authoritative — the controller's own threshold decision always
// prevails.
package advisor

import (
	"context"
	"time"

	"github.com/false-systems/kulta/api/v1beta1"
)

// Action is the advisor's recommended next move. The orchestrator never
// executes it directly; it is recorded for audit.
type Action string

const (
	ActionContinue Action = "Continue"
	ActionRollback Action = "Rollback"
	ActionPause    Action = "Pause"
)

// RequestContext is the compact rollout snapshot sent to the advisor.
type RequestContext struct {
	RolloutName     string
	Namespace       string
	Strategy        v1beta1.StrategyKind
	CurrentStep     *int32
	CurrentWeight   *int32
	MetricsHealthy  bool
	Phase           v1beta1.RolloutPhase
	History         []v1beta1.Decision
}

// Recommendation is the advisor's response.
type Recommendation struct {
	Action     Action
	Confidence float64
	Reasoning  string
}

// Advisor is the capability interface. Implementations must not block
// indefinitely; callers are expected to bound calls with a context
// deadline derived from AdvisorConfig.TimeoutSeconds.
type Advisor interface {
	Consult(ctx context.Context, reqCtx RequestContext) (Recommendation, error)
	// IsNoop reports whether this advisor is the no-op implementation, used
	// by Resolve to decide whether a test-injected advisor should win.
	IsNoop() bool
}

// NoopAdvisor never recommends anything beyond Continue with zero
// confidence; used at AdvisorLevel Off/Context and as the failure fallback.
type NoopAdvisor struct{}

func (NoopAdvisor) Consult(context.Context, RequestContext) (Recommendation, error) {
	return Recommendation{Action: ActionContinue, Confidence: 0, Reasoning: "advisor disabled"}, nil
}

func (NoopAdvisor) IsNoop() bool { return true }

// defaultTimeout is used when AdvisorConfig.TimeoutSeconds is unset.
const defaultTimeout = 5 * time.Second

func timeoutFor(cfg *v1beta1.AdvisorConfig) time.Duration {
	if cfg == nil || cfg.TimeoutSeconds == nil {
		return defaultTimeout
	}
	return time.Duration(*cfg.TimeoutSeconds) * time.Second
}
