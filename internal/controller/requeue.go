package controller

import (
	"fmt"
	"time"

	"github.com/false-systems/kulta/api/v1beta1"
)

const (
	leaderSkipRequeue    = 5 * time.Second
	unhealthyRequeue     = 30 * time.Second
	defaultRequeue       = 30 * time.Second
	pausedRequeueFloor   = 5 * time.Second
	pausedRequeueCeiling = 300 * time.Second
)

// nextRequeue implements spec.md §4.11 step 11 / §5's retry discipline: a
// paused step wakes up close to when its pause elapses, clamped so a very
// long or indefinite pause never starves the reconcile loop entirely.
// elapsed is how long the current pause has run; dur is the step's
// configured pause duration (zero means indefinite, only promotion ends
// it).
func nextRequeue(paused bool, dur, elapsed time.Duration) time.Duration {
	if !paused || dur <= 0 {
		return defaultRequeue
	}
	remaining := dur - elapsed
	if remaining < pausedRequeueFloor {
		remaining = pausedRequeueFloor
	}
	if remaining > pausedRequeueCeiling {
		remaining = pausedRequeueCeiling
	}
	return remaining
}

// currentPause reports whether r is sitting in a canary pause step right
// now, and if so the step's configured duration (zero means indefinite)
// and how long the pause has already run. Only canary steps carry a pause;
// every other strategy reports paused=false.
func currentPause(r *v1beta1.Rollout, now time.Time) (paused bool, dur, elapsed time.Duration) {
	c := r.Spec.Strategy.Canary
	if c == nil || r.Status.PauseStartTime == nil {
		return false, 0, 0
	}
	idx := int32(0)
	if r.Status.CurrentStepIndex != nil {
		idx = *r.Status.CurrentStepIndex
	}
	if int(idx) >= len(c.Steps) || c.Steps[idx].Pause == nil {
		return false, 0, 0
	}
	elapsed = now.Sub(r.Status.PauseStartTime.Time)
	if c.Steps[idx].Pause.Duration == "" {
		return true, 0, elapsed
	}
	d, err := parsePauseDuration(c.Steps[idx].Pause.Duration)
	if err != nil {
		return true, 0, elapsed
	}
	return true, d, elapsed
}

func parsePauseDuration(s string) (time.Duration, error) {
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
