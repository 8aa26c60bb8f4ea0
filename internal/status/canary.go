package status

import (
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/false-systems/kulta/api/v1beta1"
)

// CanaryComputer implements spec.md §4.10's Canary rule.
type CanaryComputer struct{}

func (CanaryComputer) Next(r *v1beta1.Rollout, now time.Time) v1beta1.RolloutStatus {
	c := r.Spec.Strategy.Canary
	prev := r.Status

	if prev.Phase == "" {
		return initCanary(c, now)
	}

	if shouldProgress(r, c, now) {
		return advanceCanary(c, prev, now)
	}

	return prev
}

func initCanary(c *v1beta1.CanaryStrategy, now time.Time) v1beta1.RolloutStatus {
	idx := int32(0)
	weight := int32(0)
	if len(c.Steps) > 0 && c.Steps[0].SetWeight != nil {
		weight = *c.Steps[0].SetWeight
	}
	t := metav1.NewTime(now)
	status := v1beta1.RolloutStatus{
		Phase:             v1beta1.PhaseProgressing,
		CurrentStepIndex:  &idx,
		CurrentWeight:     &weight,
		ProgressStartedAt: &t,
	}
	if len(c.Steps) > 0 && c.Steps[0].Pause != nil {
		status.PauseStartTime = &t
	}
	return status
}

func advanceCanary(c *v1beta1.CanaryStrategy, prev v1beta1.RolloutStatus, now time.Time) v1beta1.RolloutStatus {
	next := prev

	newIdx := int32(0)
	if prev.CurrentStepIndex != nil {
		newIdx = *prev.CurrentStepIndex + 1
	}
	next.CurrentStepIndex = &newIdx

	var newWeight int32
	pastLast := int(newIdx) >= len(c.Steps)
	if !pastLast && c.Steps[newIdx].SetWeight != nil {
		newWeight = *c.Steps[newIdx].SetWeight
	} else if pastLast {
		newWeight = 100
	}
	next.CurrentWeight = &newWeight

	if pastLast || newWeight == 100 {
		next.Phase = v1beta1.PhaseCompleted
	} else {
		next.Phase = v1beta1.PhaseProgressing
	}

	if !pastLast && c.Steps[newIdx].Pause != nil {
		t := metav1.NewTime(now)
		next.PauseStartTime = &t
	} else {
		next.PauseStartTime = nil
	}

	return next
}

// shouldProgress implements spec.md §4.10's canary gate.
func shouldProgress(r *v1beta1.Rollout, c *v1beta1.CanaryStrategy, now time.Time) bool {
	if r.Status.Phase == v1beta1.PhasePaused {
		return false
	}

	idx := int32(0)
	if r.Status.CurrentStepIndex != nil {
		idx = *r.Status.CurrentStepIndex
	}
	if int(idx) >= len(c.Steps) {
		return false
	}
	step := c.Steps[idx]

	if step.Pause == nil {
		return true
	}
	if isPromoteRequested(r) {
		return true
	}
	if step.Pause.Duration != "" && r.Status.PauseStartTime != nil {
		dur, err := parseDuration(step.Pause.Duration)
		if err == nil && now.Sub(r.Status.PauseStartTime.Time) >= dur {
			return true
		}
	}
	return false
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
