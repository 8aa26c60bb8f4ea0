package status

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/false-systems/kulta/api/v1beta1"
)

// BlueGreenComputer implements spec.md §4.10's blue-green rule.
type BlueGreenComputer struct{}

func (BlueGreenComputer) Next(r *v1beta1.Rollout, now time.Time) v1beta1.RolloutStatus {
	bg := r.Spec.Strategy.BlueGreen
	prev := r.Status

	switch prev.Phase {
	case "":
		t := metav1.NewTime(now)
		return v1beta1.RolloutStatus{Phase: v1beta1.PhasePreview, PauseStartTime: &t}

	case v1beta1.PhasePreview:
		if shouldPromoteBlueGreen(r, bg, now) {
			next := prev
			next.Phase = v1beta1.PhaseCompleted
			return next
		}
		return prev

	case v1beta1.PhaseCompleted, v1beta1.PhaseFailed:
		return prev

	default:
		t := metav1.NewTime(now)
		return v1beta1.RolloutStatus{Phase: v1beta1.PhasePreview, PauseStartTime: &t}
	}
}

func shouldPromoteBlueGreen(r *v1beta1.Rollout, bg *v1beta1.BlueGreenStrategy, now time.Time) bool {
	if isPromoteRequested(r) {
		return true
	}
	if bg.AutoPromotionEnabled == nil || !*bg.AutoPromotionEnabled {
		return false
	}
	if r.Status.PauseStartTime == nil || bg.AutoPromotionSeconds == nil {
		return false
	}
	elapsed := now.Sub(r.Status.PauseStartTime.Time)
	return elapsed >= time.Duration(*bg.AutoPromotionSeconds)*time.Second
}
