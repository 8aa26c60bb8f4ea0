// Package status implements the per-strategy pure status computers of
// spec.md §4.10: each strategy's next(rollout, now) function returns only
// the desired RolloutStatus; applying it is the orchestrator's job.
package status

import (
	"fmt"
	"time"

	"github.com/false-systems/kulta/api/v1beta1"
)

// Computer is the pure per-strategy status function. now is the
// orchestrator's single authoritative timestamp for the reconcile
// (internal/clock.Clock.Now()), passed by value so Next stays pure.
type Computer interface {
	Next(rollout *v1beta1.Rollout, now time.Time) v1beta1.RolloutStatus
}

// ForStrategy returns the Computer matching the rollout's active strategy
// (spec.md §4.10, dispatch precedence mirrors internal/strategy).
func ForStrategy(kind v1beta1.StrategyKind) Computer {
	switch kind {
	case v1beta1.StrategySimple:
		return SimpleComputer{}
	case v1beta1.StrategyBlueGreen:
		return BlueGreenComputer{}
	case v1beta1.StrategyAB:
		return ABComputer{}
	case v1beta1.StrategyCanary:
		return CanaryComputer{}
	default:
		return SimpleComputer{}
	}
}

func isPromoteRequested(r *v1beta1.Rollout) bool {
	return r.Annotations[v1beta1.PromoteAnnotation] == "true"
}

// SimpleComputer implements spec.md §4.10's Simple rule: a constant,
// terminal status with no Progressing phase.
type SimpleComputer struct{}

func (SimpleComputer) Next(r *v1beta1.Rollout, _ time.Time) v1beta1.RolloutStatus {
	return v1beta1.RolloutStatus{
		Phase:   v1beta1.PhaseCompleted,
		Message: fmt.Sprintf("Simple rollout completed: %d replicas updated", r.Spec.Replicas),
	}
}
