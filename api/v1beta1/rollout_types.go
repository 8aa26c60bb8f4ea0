/*
Copyright 2025 The KULTA Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package v1beta1 is the hub version of the Rollout API: all in-process
// reconciliation (planner, status computer, strategy handlers, orchestrator)
// operates on these types. v1alpha1 is a spoke that converts through this
// type at the webhook boundary (spec.md §4.14).
package v1beta1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// PromoteAnnotation forces progression past a pause or promotes a
// blue-green preview when present with value "true" (spec.md §3).
const PromoteAnnotation = "kulta.dev/promote"

// ConcludeExperimentAnnotation forces an A/B experiment to conclude
// (spec.md §3, §4.12).
const ConcludeExperimentAnnotation = "kulta.dev/conclude-experiment"

// RolloutPhase is the coarse observed state of a Rollout.
type RolloutPhase string

const (
	PhaseInitializing  RolloutPhase = "Initializing"
	PhaseProgressing   RolloutPhase = "Progressing"
	PhasePaused        RolloutPhase = "Paused"
	PhasePreview       RolloutPhase = "Preview"
	PhaseExperimenting RolloutPhase = "Experimenting"
	PhaseConcluded     RolloutPhase = "Concluded"
	PhaseCompleted     RolloutPhase = "Completed"
	PhaseFailed        RolloutPhase = "Failed"
)

// FailurePolicy governs how the Metric Analyzer treats an unreachable
// metrics backend (spec.md §4.7).
type FailurePolicy string

const (
	FailurePolicyPause    FailurePolicy = "Pause"
	FailurePolicyContinue FailurePolicy = "Continue"
	FailurePolicyRollback FailurePolicy = "Rollback"
)

// AdvisorLevel gates whether and how the AnalysisAdvisor is consulted
// (spec.md §4.9).
type AdvisorLevel string

const (
	AdvisorLevelOff     AdvisorLevel = "Off"
	AdvisorLevelContext AdvisorLevel = "Context"
	AdvisorLevelAdvised AdvisorLevel = "Advised"
	AdvisorLevelPlanned AdvisorLevel = "Planned"
	AdvisorLevelDriven  AdvisorLevel = "Driven"
)

// MetricDirection orients an A/B metric: which variant "lower"/"higher"
// favours.
type MetricDirection string

const (
	DirectionLower  MetricDirection = "lower"
	DirectionHigher MetricDirection = "higher"
)

// ConclusionReason explains why an A/B experiment concluded (spec.md §4.8,
// §4.12).
type ConclusionReason string

const (
	ReasonConsensusReached    ConclusionReason = "ConsensusReached"
	ReasonSignificanceReached ConclusionReason = "SignificanceReached"
	ReasonManualConclusion    ConclusionReason = "ManualConclusion"
	ReasonMaxDurationExceeded ConclusionReason = "MaxDurationExceeded"
)

// HeaderMatchType selects exact or regex header matching for A/B routing.
type HeaderMatchType string

const (
	HeaderMatchExact HeaderMatchType = "Exact"
	HeaderMatchRegex HeaderMatchType = "RegularExpression"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Weight",type=integer,JSONPath=".status.currentWeight"

// Rollout is the root declarative object describing a desired deployment
// under a chosen progressive-delivery strategy (spec.md §3).
type Rollout struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RolloutSpec   `json:"spec"`
	Status RolloutStatus `json:"status,omitempty"`
}

// RolloutList is a list of Rollout.
type RolloutList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Rollout `json:"items"`
}

// RolloutSpec is the desired state of a Rollout.
type RolloutSpec struct {
	// Replicas is the desired pod count; must be >= 0.
	Replicas int32 `json:"replicas" validate:"gte=0"`

	// Selector must match the pod template's labels.
	Selector *metav1.LabelSelector `json:"selector"`

	// Template is the opaque pod template; KULTA never interprets its
	// contents beyond hashing it (spec.md §4.4).
	Template corev1.PodTemplateSpec `json:"template"`

	// Strategy selects exactly one progressive-delivery state machine.
	Strategy RolloutStrategy `json:"strategy"`

	// MaxSurge and MaxUnavailable bound the replica-planner budget
	// ("N" or "N%"); nil uses the planner's defaults (25%/0).
	MaxSurge       *intstr.IntOrString `json:"maxSurge,omitempty"`
	MaxUnavailable *intstr.IntOrString `json:"maxUnavailable,omitempty"`

	// ProgressDeadlineSeconds bounds how long a Progressing/Preview phase
	// may run before the orchestrator fails the rollout.
	ProgressDeadlineSeconds *int32 `json:"progressDeadlineSeconds,omitempty" validate:"omitempty,gte=0"`

	// Advisor configures optional AI advisory consultation.
	Advisor *AdvisorConfig `json:"advisor,omitempty"`
}

// RolloutStrategy is a struct of optional pointers, one per strategy kind
// (spec.md §3). Exactly one field is expected to be populated; the type
// does not enforce this, Kind() counts the populated fields at runtime.
type RolloutStrategy struct {
	Simple     *SimpleStrategy     `json:"simple,omitempty"`
	Canary     *CanaryStrategy     `json:"canary,omitempty"`
	BlueGreen  *BlueGreenStrategy  `json:"blueGreen,omitempty"`
	ABTesting  *ABStrategy         `json:"abTesting,omitempty"`
}

// Kind reports which strategy arm is populated, or "" if none/more than one
// is set. The Validator treats both as a rejection (spec.md §4.1).
func (s RolloutStrategy) Kind() StrategyKind {
	set := 0
	var kind StrategyKind
	if s.Simple != nil {
		set++
		kind = StrategySimple
	}
	if s.BlueGreen != nil {
		set++
		kind = StrategyBlueGreen
	}
	if s.ABTesting != nil {
		set++
		kind = StrategyAB
	}
	if s.Canary != nil {
		set++
		kind = StrategyCanary
	}
	if set != 1 {
		return ""
	}
	return kind
}

// StrategyKind names which strategy arm is active. Dispatch precedence
// (spec.md §4.11 step 3) is simple -> blueGreen -> abTesting -> canary.
type StrategyKind string

const (
	StrategySimple    StrategyKind = "Simple"
	StrategyCanary    StrategyKind = "Canary"
	StrategyBlueGreen StrategyKind = "BlueGreen"
	StrategyAB        StrategyKind = "ABTesting"
)

// SimpleStrategy has no fields of its own besides optional analysis; simple
// rollouts never linger in a gated state (spec.md §4.10).
type SimpleStrategy struct {
	Analysis *AnalysisConfig `json:"analysis,omitempty"`
}

// CanaryStep is one entry in a canary's progression list.
type CanaryStep struct {
	SetWeight *int32      `json:"setWeight,omitempty"`
	Pause     *StepPause `json:"pause,omitempty"`
}

// StepPause optionally bounds how long a pause step lasts; an omitted
// Duration means indefinite (progression requires the promote annotation).
type StepPause struct {
	Duration string `json:"duration,omitempty"`
}

// TrafficRouting references a route object by name, patched by the
// controller to shift traffic (spec.md §3, §4.6).
type TrafficRouting struct {
	Name string `json:"name"`
}

// CanaryStrategy is the weight-shifting progressive-delivery strategy.
type CanaryStrategy struct {
	StableService  string          `json:"stableService"`
	CanaryService  string          `json:"canaryService"`
	Port           *int32          `json:"port,omitempty"`
	Steps          []CanaryStep    `json:"steps"`
	TrafficRouting *TrafficRouting `json:"trafficRouting,omitempty"`
	Analysis       *AnalysisConfig `json:"analysis,omitempty"`
}

// BlueGreenStrategy is the instantaneous-cutover strategy.
type BlueGreenStrategy struct {
	ActiveService        string          `json:"activeService"`
	PreviewService       string          `json:"previewService"`
	AutoPromotionEnabled *bool           `json:"autoPromotionEnabled,omitempty"`
	AutoPromotionSeconds *int32          `json:"autoPromotionSeconds,omitempty"`
	TrafficRouting       *TrafficRouting `json:"trafficRouting,omitempty"`
	Analysis             *AnalysisConfig `json:"analysis,omitempty"`
}

// HeaderMatch matches a named request header.
type HeaderMatch struct {
	Name  string          `json:"name"`
	Value string          `json:"value"`
	Type  HeaderMatchType `json:"type"`
}

// CookieMatch matches a named cookie against a regex on the Cookie header.
type CookieMatch struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ABMatch qualifies which requests route to variant B.
type ABMatch struct {
	Header *HeaderMatch `json:"header,omitempty"`
	Cookie *CookieMatch `json:"cookie,omitempty"`
}

// ABMetric is one metric evaluated by the statistical engine for an A/B
// experiment, oriented by Direction.
type ABMetric struct {
	Name      string          `json:"name"`
	Direction MetricDirection `json:"direction"`
}

// ABAnalysisConfig configures the A/B evaluator's gating and statistics.
type ABAnalysisConfig struct {
	MinDuration      string     `json:"minDuration,omitempty"`
	MinSampleSize    *int32     `json:"minSampleSize,omitempty"`
	ConfidenceLevel  *float64   `json:"confidenceLevel,omitempty"`
	Metrics          []ABMetric `json:"metrics,omitempty"`
}

// ABStrategy is the header/cookie-routed experimentation strategy.
type ABStrategy struct {
	VariantAService string            `json:"variantAService"`
	VariantBService string            `json:"variantBService"`
	VariantBMatch   ABMatch           `json:"variantBMatch"`
	MaxDuration     string            `json:"maxDuration,omitempty"`
	Analysis        *ABAnalysisConfig `json:"analysis,omitempty"`
}

// MetricConfig is a single threshold-based health metric.
type MetricConfig struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
}

// AnalysisConfig configures the Metric Analyzer for canary/blue-green
// (spec.md §4.7).
type AnalysisConfig struct {
	WarmupDuration string         `json:"warmupDuration,omitempty"`
	Metrics        []MetricConfig `json:"metrics"`
	FailurePolicy  FailurePolicy  `json:"failurePolicy,omitempty"`
}

// AdvisorConfig configures optional AI advisory consultation (spec.md
// §4.9).
type AdvisorConfig struct {
	Level          AdvisorLevel `json:"level,omitempty"`
	Endpoint       string       `json:"endpoint,omitempty"`
	TimeoutSeconds *int32       `json:"timeoutSeconds,omitempty"`
	Provider       string       `json:"provider,omitempty"`
}

// Decision is an append-only record of a reconcile decision, surfaced in
// status for audit (spec.md §3).
type Decision struct {
	Timestamp metav1.Time  `json:"timestamp"`
	Phase     RolloutPhase `json:"phase"`
	Reason    string       `json:"reason"`
}

// ABMetricResult is one metric's statistical-engine verdict, recorded once
// an A/B experiment concludes.
type ABMetricResult struct {
	Metric      string  `json:"metric"`
	Significant bool    `json:"significant"`
	Confidence  float64 `json:"confidence"`
	Winner      string  `json:"winner,omitempty"`
	EffectSize  float64 `json:"effectSize"`
}

// ABExperimentStatus is the observed state of an in-flight or concluded A/B
// experiment.
type ABExperimentStatus struct {
	StartedAt        *metav1.Time     `json:"startedAt,omitempty"`
	ConclusionReason ConclusionReason `json:"conclusionReason,omitempty"`
	Winner           string           `json:"winner,omitempty"`
	Results          []ABMetricResult `json:"results,omitempty"`
	SampleSizeA      *int32           `json:"sampleSizeA,omitempty"`
	SampleSizeB      *int32           `json:"sampleSizeB,omitempty"`
}

// RolloutStatus is the observed state, written only by the controller.
type RolloutStatus struct {
	Phase             RolloutPhase         `json:"phase,omitempty"`
	CurrentStepIndex  *int32               `json:"currentStepIndex,omitempty"`
	CurrentWeight     *int32               `json:"currentWeight,omitempty"`
	Message           string               `json:"message,omitempty"`
	PauseStartTime    *metav1.Time         `json:"pauseStartTime,omitempty"`
	StepStartTime     *metav1.Time         `json:"stepStartTime,omitempty"`
	ProgressStartedAt *metav1.Time         `json:"progressStartedAt,omitempty"`
	Decisions         []Decision           `json:"decisions,omitempty"`
	ABExperiment      *ABExperimentStatus  `json:"abExperiment,omitempty"`
}
