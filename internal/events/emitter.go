package events

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/clock"
)

// Emitter derives CD events and occurrences from a rollout's phase
// transition and fans their writes out in parallel (spec.md §4.13).
type Emitter struct {
	Sink     CDSink
	Writer   *OccurrenceWriter
	Clock    clock.Clock
	Cluster  string
	Log      *logrus.Entry
}

func NewEmitter(sink CDSink, writer *OccurrenceWriter, c clock.Clock, cluster string, log *logrus.Entry) *Emitter {
	return &Emitter{Sink: sink, Writer: writer, Clock: c, Cluster: cluster, Log: log}
}

// EmitTransition derives and sends the events for a status transition. old
// is nil on the rollout's first-ever reconcile. It never returns an error:
// every failure here is non-fatal to the reconcile path (spec.md §7 item 5).
func (e *Emitter) EmitTransition(ctx context.Context, r *v1beta1.Rollout, old *v1beta1.RolloutStatus, strategy v1beta1.StrategyKind) {
	cdEvents := e.deriveCDEvents(r, old, strategy)
	occ := e.deriveOccurrence(r, old, strategy)

	g, ctx := errgroup.WithContext(ctx)
	for _, ev := range cdEvents {
		ev := ev
		g.Go(func() error {
			if err := e.Sink.Send(ctx, ev); err != nil {
				logCDFailure(e.Log, err)
			}
			return nil
		})
	}
	if occ != nil {
		occ := *occ
		g.Go(func() error {
			e.Writer.Write(occ)
			return nil
		})
	}
	_ = g.Wait()
}

// EmitAdvisorConsultation records an advisor recommendation as an
// occurrence (spec.md §4.13: "additionally for every advisor
// consultation"). The write runs on an errgroup goroutine and the call
// waits for it to finish before returning.
func (e *Emitter) EmitAdvisorConsultation(ctx context.Context, r *v1beta1.Rollout, strategy v1beta1.StrategyKind, reasoning string) {
	id, err := NewULID(e.Clock.Now())
	if err != nil {
		if e.Log != nil {
			e.Log.WithError(err).Warn("failed to generate ULID for advisor occurrence")
		}
		return
	}
	occ := BuildAdvisorOccurrence(id, e.Clock.Now(), r, strategy, reasoning, e.Cluster)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.Writer.Write(occ)
		return nil
	})
	_ = g.Wait()
}

func (e *Emitter) deriveCDEvents(r *v1beta1.Rollout, old *v1beta1.RolloutStatus, strategy v1beta1.StrategyKind) []CDEvent {
	newPhase := r.Status.Phase
	var oldPhase v1beta1.RolloutPhase
	if old != nil {
		oldPhase = old.Phase
	}

	base := func(t CDEventType, reason string) CDEvent {
		ev := CDEvent{Type: t, Timestamp: e.Clock.Now()}
		ev.Subject.ArtifactID = r.Name
		ev.Subject.Environment.ID = r.Namespace
		ev.Subject.Environment.Source = "kulta"
		ev.Data = map[string]any{
			"strategy": string(strategy),
			"step":     r.Status.CurrentStepIndex,
			"weight":   r.Status.CurrentWeight,
			"reason":   reason,
		}
		return ev
	}

	var events []CDEvent

	isInitialTransition := oldPhase == "" && isEarlyPhase(newPhase)
	if isInitialTransition {
		events = append(events, base(EventDeployed, "rollout initiated"))
		if strategy == v1beta1.StrategySimple {
			events = append(events, base(EventPublished, "simple rollout has no intermediate phase"))
		}
		return events
	}

	if oldPhase == v1beta1.PhaseExperimenting && newPhase == v1beta1.PhaseConcluded {
		ev := base(EventPublished, "A/B experiment concluded")
		if r.Status.ABExperiment != nil {
			ev.Data["abExperiment"] = map[string]any{
				"winner":      r.Status.ABExperiment.Winner,
				"reason":      string(r.Status.ABExperiment.ConclusionReason),
				"sampleSizeA": r.Status.ABExperiment.SampleSizeA,
				"sampleSizeB": r.Status.ABExperiment.SampleSizeB,
				"results":     r.Status.ABExperiment.Results,
			}
		}
		return append(events, ev)
	}

	if oldPhase == v1beta1.PhaseProgressing && newPhase == v1beta1.PhaseProgressing && stepChanged(old, r.Status) {
		return append(events, base(EventUpgraded, "canary step advanced"))
	}

	if newPhase == v1beta1.PhaseFailed {
		return append(events, base(EventRolledback, r.Status.Message))
	}

	if newPhase == v1beta1.PhaseCompleted {
		return append(events, base(EventPublished, "rollout completed"))
	}

	return events
}

func isEarlyPhase(p v1beta1.RolloutPhase) bool {
	switch p {
	case v1beta1.PhaseProgressing, v1beta1.PhaseCompleted, v1beta1.PhasePreview, v1beta1.PhaseExperimenting:
		return true
	default:
		return false
	}
}

func stepChanged(old *v1beta1.RolloutStatus, next v1beta1.RolloutStatus) bool {
	if old == nil || old.CurrentStepIndex == nil || next.CurrentStepIndex == nil {
		return old != nil && old.CurrentStepIndex != next.CurrentStepIndex
	}
	return *old.CurrentStepIndex != *next.CurrentStepIndex
}

func (e *Emitter) deriveOccurrence(r *v1beta1.Rollout, old *v1beta1.RolloutStatus, strategy v1beta1.StrategyKind) *Occurrence {
	var oldPhase v1beta1.RolloutPhase
	if old != nil {
		oldPhase = old.Phase
	}
	if oldPhase == r.Status.Phase {
		return nil
	}

	id, err := NewULID(e.Clock.Now())
	if err != nil {
		if e.Log != nil {
			e.Log.WithError(err).Warn("failed to generate ULID for occurrence")
		}
		return nil
	}

	occ := BuildPhaseOccurrence(id, e.Clock.Now(), r, strategy, e.Cluster)
	return &occ
}
