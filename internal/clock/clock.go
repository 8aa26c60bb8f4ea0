// Package clock wraps k8s.io/utils/clock so every time-dependent decision in
// KULTA reads through one injectable source of "now" instead of calling
// time.Now directly.
package clock

import (
	"time"

	k8sclock "k8s.io/utils/clock"
	clocktest "k8s.io/utils/clock/testing"
)

// Clock returns the current instant. Production code reads the wall clock;
// tests inject a manually advanced fake. Every component that makes a
// time-dependent decision (progress deadline, pause elapsed, auto-promotion,
// warmup, A/B duration gating) takes a Clock as an explicit argument.
type Clock interface {
	Now() time.Time
}

// real adapts k8s.io/utils/clock's RealClock to Clock.
type real struct {
	k8sclock.Clock
}

// New returns the production Clock backed by the wall clock.
func New() Clock {
	return real{Clock: k8sclock.RealClock{}}
}

// Fake is a manually advanced Clock for tests, backed by
// k8s.io/utils/clock/testing.FakeClock.
type Fake struct {
	*clocktest.FakeClock
}

// NewFake returns a Fake clock set to t.
func NewFake(t time.Time) *Fake {
	return &Fake{FakeClock: clocktest.NewFakeClock(t)}
}

// Now satisfies Clock.
func (f *Fake) Now() time.Time {
	return f.FakeClock.Now()
}
