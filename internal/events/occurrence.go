package events

import (
	"strings"
	"time"

	"github.com/false-systems/kulta/api/v1beta1"
)

// Severity is an occurrence's urgency level.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Outcome is an occurrence's terminal status, if any.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeFailure    Outcome = "failure"
	OutcomeInProgress Outcome = "in_progress"
)

// OccurrenceError is the structured failure block of an occurrence,
// mirroring original_source/src/controller/occurrence.rs's ROLLOUT_FAILED
// shape.
type OccurrenceError struct {
	Code           string   `json:"code"`
	WhatFailed     string   `json:"what_failed"`
	WhyItMatters   string   `json:"why_it_matters,omitempty"`
	PossibleCauses []string `json:"possible_causes,omitempty"`
	SuggestedFix   string   `json:"suggested_fix,omitempty"`
}

// Entity identifies the Kubernetes object an occurrence is about.
type Entity struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Version    string `json:"version"`
	ObservedAt string `json:"observed_at"`
}

// OccurrenceContext carries correlation metadata for cross-tool lookups.
type OccurrenceContext struct {
	Cluster         string            `json:"cluster,omitempty"`
	Namespace       string            `json:"namespace,omitempty"`
	CorrelationKeys map[string]string `json:"correlation_keys,omitempty"`
	Entities        []Entity          `json:"entities"`
}

// Occurrence is KULTA's AI-consumable observability record (spec.md §3),
// distinct from and complementary to the plainer CDEvent in cdevent.go.
type Occurrence struct {
	ID              string            `json:"id"`
	ProtocolVersion string            `json:"protocol_version"`
	Timestamp       time.Time         `json:"timestamp"`
	Source          string            `json:"source"`
	Type            string            `json:"type"`
	Severity        Severity          `json:"severity"`
	Outcome         Outcome           `json:"outcome"`
	Context         OccurrenceContext `json:"context"`
	Error           *OccurrenceError  `json:"error,omitempty"`
	Data            map[string]any    `json:"data,omitempty"`
	Reasoning       string            `json:"reasoning,omitempty"`
}

// strategyPrefix maps a StrategyKind to the occurrence type prefix used by
// AHTI-style correlation (spec.md §3), matching
// original_source/src/controller/occurrence.rs's build_occurrence_type.
func strategyPrefix(kind v1beta1.StrategyKind) string {
	switch kind {
	case v1beta1.StrategyBlueGreen:
		return "bluegreen"
	case v1beta1.StrategyAB:
		return "abtesting"
	case v1beta1.StrategySimple:
		return "rolling"
	default:
		return "canary"
	}
}

// phaseToAction maps a new phase to the occurrence type's action suffix.
func phaseToAction(newPhase v1beta1.RolloutPhase) string {
	switch newPhase {
	case v1beta1.PhaseFailed:
		return "failed"
	case v1beta1.PhaseCompleted, v1beta1.PhaseConcluded:
		return "completed"
	case v1beta1.PhasePaused:
		return "paused"
	default:
		return "progressing"
	}
}

func phaseToSeverity(newPhase v1beta1.RolloutPhase) Severity {
	switch newPhase {
	case v1beta1.PhaseFailed:
		return SeverityError
	case v1beta1.PhasePaused:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// causeRule associates a triggering substring of a failed rollout's status
// message with the known root causes behind it, reproducing
// original_source/src/controller/occurrence.rs's concrete possibleCauses
// wording rather than leaving the occurrence with only the raw message.
type causeRule struct {
	trigger string
	causes  []string
}

var rolloutFailedCauseRules = []causeRule{
	{
		trigger: "metrics exceeded thresholds",
		causes: []string{
			"High error rate detected in canary replica set",
			"Upstream metrics backend unreachable",
		},
	},
	{
		trigger: "deadline exceeded",
		causes:  []string{"Pods failing readiness probes"},
	},
}

// possibleCausesFor looks up the known causes for a rollout.failed
// occurrence's triggering message, keyed by occurrence type and trigger
// substring, and appends them after the raw message.
func possibleCausesFor(occType, message string) []string {
	causes := []string{message}
	if !strings.HasSuffix(occType, ".rollout.failed") {
		return causes
	}
	for _, rule := range rolloutFailedCauseRules {
		if strings.Contains(message, rule.trigger) {
			causes = append(causes, rule.causes...)
		}
	}
	return causes
}

func phaseToOutcome(newPhase v1beta1.RolloutPhase) Outcome {
	switch newPhase {
	case v1beta1.PhaseFailed:
		return OutcomeFailure
	case v1beta1.PhaseCompleted, v1beta1.PhaseConcluded:
		return OutcomeSuccess
	default:
		return OutcomeInProgress
	}
}

// BuildPhaseOccurrence constructs the occurrence for a rollout phase
// transition. id and now are supplied by the caller to keep this function
// pure and testable.
func BuildPhaseOccurrence(id string, now time.Time, r *v1beta1.Rollout, strategy v1beta1.StrategyKind, clusterName string) Occurrence {
	occType := strategyPrefix(strategy) + ".rollout." + phaseToAction(r.Status.Phase)

	data := map[string]any{
		"rollout": map[string]any{
			"name":           r.Name,
			"namespace":      r.Namespace,
			"strategy":       string(strategy),
			"replicas":       r.Spec.Replicas,
			"current_weight": r.Status.CurrentWeight,
			"phase":          string(r.Status.Phase),
		},
	}

	occ := Occurrence{
		ID:              id,
		ProtocolVersion: "1.0",
		Timestamp:       now,
		Source:          "kulta",
		Type:            occType,
		Severity:        phaseToSeverity(r.Status.Phase),
		Outcome:         phaseToOutcome(r.Status.Phase),
		Context: OccurrenceContext{
			Cluster:         clusterName,
			Namespace:       r.Namespace,
			CorrelationKeys: map[string]string{"deployment": r.Name, "namespace": r.Namespace},
			Entities: []Entity{{
				Kind:       "rollout",
				ID:         string(r.UID),
				Name:       r.Name,
				Namespace:  r.Namespace,
				Version:    r.ResourceVersion,
				ObservedAt: now.Format(time.RFC3339),
			}},
		},
		Data: data,
	}

	if r.Status.Phase == v1beta1.PhaseFailed {
		message := r.Status.Message
		if message == "" {
			message = "Rollout failed"
		}
		occ.Error = &OccurrenceError{
			Code:           "ROLLOUT_FAILED",
			WhatFailed:     "Rollout " + r.Name + " failed during " + string(strategy) + " deployment",
			WhyItMatters:   "Service " + r.Name + " in namespace " + r.Namespace + " may be serving degraded traffic",
			PossibleCauses: possibleCausesFor(occType, message),
			SuggestedFix:   "Check metrics for " + r.Name + " and consider manual rollback",
		}
	}

	return occ
}

// BuildAdvisorOccurrence constructs the occurrence for an advisor
// consultation (spec.md §4.13: "additionally for every advisor
// consultation").
func BuildAdvisorOccurrence(id string, now time.Time, r *v1beta1.Rollout, strategy v1beta1.StrategyKind, reasoning string, clusterName string) Occurrence {
	return Occurrence{
		ID:              id,
		ProtocolVersion: "1.0",
		Timestamp:       now,
		Source:          "kulta",
		Type:            strategyPrefix(strategy) + ".advisor.recommendation",
		Severity:        SeverityInfo,
		Outcome:         OutcomeInProgress,
		Context: OccurrenceContext{
			Cluster:         clusterName,
			Namespace:       r.Namespace,
			CorrelationKeys: map[string]string{"deployment": r.Name, "namespace": r.Namespace},
			Entities: []Entity{{
				Kind: "rollout", ID: string(r.UID), Name: r.Name, Namespace: r.Namespace,
				Version: r.ResourceVersion, ObservedAt: now.Format(time.RFC3339),
			}},
		},
		Reasoning: reasoning,
	}
}
