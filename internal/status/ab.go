package status

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/false-systems/kulta/api/v1beta1"
)

// ABComputer implements spec.md §4.10's A/B rule. The statistical
// conclusion itself is the orchestrator's/evaluator's job (internal/abeval);
// this computer only reacts to abExperiment.conclusionReason already being
// populated.
type ABComputer struct{}

func (ABComputer) Next(r *v1beta1.Rollout, now time.Time) v1beta1.RolloutStatus {
	prev := r.Status

	switch prev.Phase {
	case "":
		t := metav1.NewTime(now)
		return v1beta1.RolloutStatus{
			Phase:        v1beta1.PhaseExperimenting,
			ABExperiment: &v1beta1.ABExperimentStatus{StartedAt: &t},
		}

	case v1beta1.PhaseExperimenting:
		if prev.ABExperiment != nil && prev.ABExperiment.ConclusionReason != "" {
			next := prev
			next.Phase = v1beta1.PhaseConcluded
			return next
		}
		return prev

	case v1beta1.PhaseConcluded:
		if isPromoteRequested(r) {
			next := prev
			next.Phase = v1beta1.PhaseCompleted
			return next
		}
		return prev

	case v1beta1.PhaseCompleted:
		return prev

	default:
		t := metav1.NewTime(now)
		return v1beta1.RolloutStatus{
			Phase:        v1beta1.PhaseExperimenting,
			ABExperiment: &v1beta1.ABExperimentStatus{StartedAt: &t},
		}
	}
}
