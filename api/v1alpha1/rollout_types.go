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

// Package v1alpha1 is the legacy wire-superset spoke of the Rollout API. It
// carries every v1beta1 field plus LegacyFields, a free-form passthrough map
// that existed before v1beta1 and has no v1beta1 equivalent. Keeping it here
// is what makes a v1beta1 -> v1alpha1 -> v1beta1 round trip lossless
// (spec.md §8 "Round-trip", original_source/src/crd/v1alpha1.rs).
package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

// GroupVersion is the API group/version for this package.
var GroupVersion = schema.GroupVersion{Group: "delivery.kulta.dev", Version: "v1alpha1"}

// SchemeBuilder registers this package's types.
var SchemeBuilder = &scheme.Builder{GroupVersion: GroupVersion}

// AddToScheme adds the types in this group-version to the given scheme.
var AddToScheme = SchemeBuilder.AddToScheme

func init() {
	SchemeBuilder.Register(&Rollout{}, &RolloutList{})
}

// Rollout is the v1alpha1 representation. Field shapes mirror v1beta1
// exactly except where noted; see conversion.go for the mapping, including
// the v1alpha1 -> v1beta1 defaulting rules from spec.md §4.14.
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

// RolloutSpec mirrors v1beta1.RolloutSpec, plus LegacyFields.
type RolloutSpec struct {
	Replicas                int32                  `json:"replicas"`
	Selector                *metav1.LabelSelector  `json:"selector"`
	Template                corev1.PodTemplateSpec `json:"template"`
	Strategy                RolloutStrategy        `json:"strategy"`
	MaxSurge                *intstr.IntOrString    `json:"maxSurge,omitempty"`
	MaxUnavailable          *intstr.IntOrString    `json:"maxUnavailable,omitempty"`
	ProgressDeadlineSeconds *int32                 `json:"progressDeadlineSeconds,omitempty"`
	Advisor                 *AdvisorConfig         `json:"advisor,omitempty"`

	// LegacyFields is a free-form passthrough that predates v1beta1 and has
	// no typed v1beta1 counterpart. v1beta1 -> v1alpha1 conversion
	// preserves it verbatim; v1alpha1 -> v1beta1 conversion drops it (the
	// hub has no field to hold it), which is why the lossless direction is
	// only v1beta1 -> v1alpha1 -> v1beta1, not the reverse.
	LegacyFields map[string]string `json:"legacyFields,omitempty"`
}

// RolloutStrategy mirrors v1beta1.RolloutStrategy.
type RolloutStrategy struct {
	Simple    *SimpleStrategy    `json:"simple,omitempty"`
	Canary    *CanaryStrategy    `json:"canary,omitempty"`
	BlueGreen *BlueGreenStrategy `json:"blueGreen,omitempty"`
	ABTesting *ABStrategy        `json:"abTesting,omitempty"`
}

type SimpleStrategy struct {
	Analysis *AnalysisConfig `json:"analysis,omitempty"`
}

type CanaryStep struct {
	SetWeight *int32     `json:"setWeight,omitempty"`
	Pause     *StepPause `json:"pause,omitempty"`
}

type StepPause struct {
	Duration string `json:"duration,omitempty"`
}

type TrafficRouting struct {
	Name string `json:"name"`
}

type CanaryStrategy struct {
	StableService  string          `json:"stableService"`
	CanaryService  string          `json:"canaryService"`
	Port           *int32          `json:"port,omitempty"`
	Steps          []CanaryStep    `json:"steps"`
	TrafficRouting *TrafficRouting `json:"trafficRouting,omitempty"`
	Analysis       *AnalysisConfig `json:"analysis,omitempty"`
}

type BlueGreenStrategy struct {
	ActiveService        string          `json:"activeService"`
	PreviewService       string          `json:"previewService"`
	AutoPromotionEnabled *bool           `json:"autoPromotionEnabled,omitempty"`
	AutoPromotionSeconds *int32          `json:"autoPromotionSeconds,omitempty"`
	TrafficRouting       *TrafficRouting `json:"trafficRouting,omitempty"`
	Analysis             *AnalysisConfig `json:"analysis,omitempty"`
}

type HeaderMatch struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type CookieMatch struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ABMatch struct {
	Header *HeaderMatch `json:"header,omitempty"`
	Cookie *CookieMatch `json:"cookie,omitempty"`
}

type ABMetric struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
}

type ABAnalysisConfig struct {
	MinDuration     string     `json:"minDuration,omitempty"`
	MinSampleSize   *int32     `json:"minSampleSize,omitempty"`
	ConfidenceLevel *float64   `json:"confidenceLevel,omitempty"`
	Metrics         []ABMetric `json:"metrics,omitempty"`
}

type ABStrategy struct {
	VariantAService string            `json:"variantAService"`
	VariantBService string            `json:"variantBService"`
	VariantBMatch   ABMatch           `json:"variantBMatch"`
	MaxDuration     string            `json:"maxDuration,omitempty"`
	Analysis        *ABAnalysisConfig `json:"analysis,omitempty"`
}

type MetricConfig struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
}

type AnalysisConfig struct {
	WarmupDuration string         `json:"warmupDuration,omitempty"`
	Metrics        []MetricConfig `json:"metrics"`
	FailurePolicy  string         `json:"failurePolicy,omitempty"`
}

type AdvisorConfig struct {
	Level          string `json:"level,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	TimeoutSeconds *int32 `json:"timeoutSeconds,omitempty"`
	Provider       string `json:"provider,omitempty"`
}

type Decision struct {
	Timestamp metav1.Time `json:"timestamp"`
	Phase     string      `json:"phase"`
	Reason    string      `json:"reason"`
}

type ABMetricResult struct {
	Metric      string  `json:"metric"`
	Significant bool    `json:"significant"`
	Confidence  float64 `json:"confidence"`
	Winner      string  `json:"winner,omitempty"`
	EffectSize  float64 `json:"effectSize"`
}

type ABExperimentStatus struct {
	StartedAt        *metav1.Time     `json:"startedAt,omitempty"`
	ConclusionReason string           `json:"conclusionReason,omitempty"`
	Winner           string           `json:"winner,omitempty"`
	Results          []ABMetricResult `json:"results,omitempty"`
	SampleSizeA      *int32           `json:"sampleSizeA,omitempty"`
	SampleSizeB      *int32           `json:"sampleSizeB,omitempty"`
}

type RolloutStatus struct {
	Phase             string              `json:"phase,omitempty"`
	CurrentStepIndex  *int32              `json:"currentStepIndex,omitempty"`
	CurrentWeight     *int32              `json:"currentWeight,omitempty"`
	Message           string              `json:"message,omitempty"`
	PauseStartTime    *metav1.Time        `json:"pauseStartTime,omitempty"`
	StepStartTime     *metav1.Time        `json:"stepStartTime,omitempty"`
	ProgressStartedAt *metav1.Time        `json:"progressStartedAt,omitempty"`
	Decisions         []Decision          `json:"decisions,omitempty"`
	ABExperiment      *ABExperimentStatus `json:"abExperiment,omitempty"`
}

// DeepCopyObject satisfies runtime.Object. Field-level sharing is
// acceptable here because v1alpha1 objects are short-lived conversion
// targets, never stored or mutated in place by the reconciler.
func (in *Rollout) DeepCopyObject() runtime.Object {
	out := *in
	return &out
}

// DeepCopyObject satisfies runtime.Object.
func (in *RolloutList) DeepCopyObject() runtime.Object {
	out := *in
	items := make([]Rollout, len(in.Items))
	copy(items, in.Items)
	out.Items = items
	return &out
}
