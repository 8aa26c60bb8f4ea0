package events

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/clock"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type recordingSink struct {
	mu     sync.Mutex
	events []CDEvent
}

func (s *recordingSink) Send(_ context.Context, ev CDEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []CDEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CDEvent, len(s.events))
	copy(out, s.events)
	return out
}

func newTestEmitter(t *testing.T, sink CDSink) (*Emitter, string) {
	dir := t.TempDir()
	w := NewOccurrenceWriter(dir, testLog())
	e := NewEmitter(sink, w, clock.NewFake(time.Now()), "test-cluster", testLog())
	return e, dir
}

func TestEmitter_InitialTransitionEmitsDeployed(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newTestEmitter(t, sink)
	r := &v1beta1.Rollout{Status: v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing}}
	e.EmitTransition(context.Background(), r, nil, v1beta1.StrategyCanary)

	evs := sink.snapshot()
	if len(evs) != 1 || evs[0].Type != EventDeployed {
		t.Fatalf("expected a single service.deployed event, got %+v", evs)
	}
}

func TestEmitter_SimpleInitialAlsoEmitsPublished(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newTestEmitter(t, sink)
	r := &v1beta1.Rollout{Status: v1beta1.RolloutStatus{Phase: v1beta1.PhaseCompleted}}
	e.EmitTransition(context.Background(), r, nil, v1beta1.StrategySimple)

	evs := sink.snapshot()
	if len(evs) != 2 {
		t.Fatalf("expected deployed + published for simple, got %+v", evs)
	}
	types := map[CDEventType]bool{evs[0].Type: true, evs[1].Type: true}
	if !types[EventDeployed] || !types[EventPublished] {
		t.Errorf("expected deployed and published, got %+v", evs)
	}
}

func TestEmitter_StepAdvanceEmitsUpgraded(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newTestEmitter(t, sink)
	idx0, idx1 := int32(0), int32(1)
	old := &v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing, CurrentStepIndex: &idx0}
	r := &v1beta1.Rollout{Status: v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing, CurrentStepIndex: &idx1}}
	e.EmitTransition(context.Background(), r, old, v1beta1.StrategyCanary)

	evs := sink.snapshot()
	if len(evs) != 1 || evs[0].Type != EventUpgraded {
		t.Fatalf("expected service.upgraded, got %+v", evs)
	}
}

func TestEmitter_FailurePhaseEmitsRolledback(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newTestEmitter(t, sink)
	old := &v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing}
	r := &v1beta1.Rollout{Status: v1beta1.RolloutStatus{Phase: v1beta1.PhaseFailed, Message: "metrics unhealthy"}}
	e.EmitTransition(context.Background(), r, old, v1beta1.StrategyCanary)

	evs := sink.snapshot()
	if len(evs) != 1 || evs[0].Type != EventRolledback {
		t.Fatalf("expected service.rolledback, got %+v", evs)
	}
}

func TestEmitter_NoPhaseChange_NoEvents(t *testing.T) {
	sink := &recordingSink{}
	e, _ := newTestEmitter(t, sink)
	old := &v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing}
	r := &v1beta1.Rollout{Status: v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing}}
	e.EmitTransition(context.Background(), r, old, v1beta1.StrategyCanary)

	if len(sink.snapshot()) != 0 {
		t.Errorf("expected no CD events for an unchanged phase/step, got %+v", sink.snapshot())
	}
}

func TestEmitter_WritesOccurrenceOnPhaseChange(t *testing.T) {
	sink := &recordingSink{}
	e, dir := newTestEmitter(t, sink)
	r := &v1beta1.Rollout{Status: v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing}}
	e.EmitTransition(context.Background(), r, nil, v1beta1.StrategyCanary)

	data, err := os.ReadFile(filepath.Join(dir, "occurrence.json"))
	if err != nil {
		t.Fatalf("expected occurrence file to be written: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty occurrence file")
	}
}

func TestNoopCDSink_AlwaysSucceeds(t *testing.T) {
	if err := (NoopCDSink{}).Send(context.Background(), CDEvent{}); err != nil {
		t.Errorf("expected no-op sink to never error, got %v", err)
	}
}
