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

package v1alpha1

import (
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/conversion"

	"github.com/false-systems/kulta/api/v1beta1"
)

// Default values applied by v1alpha1 -> v1beta1 conversion when a field is
// unset (spec.md §4.14).
const (
	DefaultMaxSurge                = "25%"
	DefaultMaxUnavailable          = "0"
	DefaultProgressDeadlineSeconds = int32(600)
)

// ConvertTo converts this v1alpha1 Rollout to the v1beta1 hub, applying
// defaults for fields that were never set (spec.md §4.14 "fills defaults
// ... only when unset"). LegacyFields has no v1beta1 counterpart and is
// intentionally dropped here.
func (src *Rollout) ConvertTo(dstRaw conversion.Hub) error {
	dst := dstRaw.(*v1beta1.Rollout)

	dst.ObjectMeta = src.ObjectMeta
	dst.Spec.Replicas = src.Spec.Replicas
	dst.Spec.Selector = src.Spec.Selector
	dst.Spec.Template = src.Spec.Template

	dst.Spec.MaxSurge = orDefaultIntOrString(src.Spec.MaxSurge, DefaultMaxSurge)
	dst.Spec.MaxUnavailable = orDefaultIntOrString(src.Spec.MaxUnavailable, DefaultMaxUnavailable)
	if src.Spec.ProgressDeadlineSeconds != nil {
		dst.Spec.ProgressDeadlineSeconds = src.Spec.ProgressDeadlineSeconds
	} else {
		d := DefaultProgressDeadlineSeconds
		dst.Spec.ProgressDeadlineSeconds = &d
	}

	dst.Spec.Strategy = convertStrategyTo(src.Spec.Strategy)
	dst.Spec.Advisor = convertAdvisorTo(src.Spec.Advisor)

	dst.Status = convertStatusTo(src.Status)
	return nil
}

// ConvertFrom populates this v1alpha1 Rollout from the v1beta1 hub. Every
// v1beta1 field has a v1alpha1 counterpart, so this direction never
// defaults anything; LegacyFields is left as whatever this object already
// carried (v1beta1 has nowhere to store it), which is what makes a
// v1beta1 -> v1alpha1 -> v1beta1 round trip an identity on the v1beta1
// fields (spec.md §8).
func (dst *Rollout) ConvertFrom(srcRaw conversion.Hub) error {
	src := srcRaw.(*v1beta1.Rollout)

	dst.ObjectMeta = src.ObjectMeta
	dst.Spec.Replicas = src.Spec.Replicas
	dst.Spec.Selector = src.Spec.Selector
	dst.Spec.Template = src.Spec.Template
	dst.Spec.MaxSurge = src.Spec.MaxSurge
	dst.Spec.MaxUnavailable = src.Spec.MaxUnavailable
	dst.Spec.ProgressDeadlineSeconds = src.Spec.ProgressDeadlineSeconds
	dst.Spec.Strategy = convertStrategyFrom(src.Spec.Strategy)
	dst.Spec.Advisor = convertAdvisorFrom(src.Spec.Advisor)
	dst.Status = convertStatusFrom(src.Status)
	return nil
}

func orDefaultIntOrString(v *intstr.IntOrString, def string) *intstr.IntOrString {
	if v != nil {
		out := *v
		return &out
	}
	parsed := intstr.Parse(def)
	return &parsed
}

func convertStrategyTo(s RolloutStrategy) v1beta1.RolloutStrategy {
	var out v1beta1.RolloutStrategy
	if s.Simple != nil {
		out.Simple = &v1beta1.SimpleStrategy{Analysis: convertAnalysisTo(s.Simple.Analysis)}
	}
	if s.Canary != nil {
		steps := make([]v1beta1.CanaryStep, len(s.Canary.Steps))
		for i, st := range s.Canary.Steps {
			ns := v1beta1.CanaryStep{SetWeight: st.SetWeight}
			if st.Pause != nil {
				ns.Pause = &v1beta1.StepPause{Duration: st.Pause.Duration}
			}
			steps[i] = ns
		}
		var tr *v1beta1.TrafficRouting
		if s.Canary.TrafficRouting != nil {
			tr = &v1beta1.TrafficRouting{Name: s.Canary.TrafficRouting.Name}
		}
		out.Canary = &v1beta1.CanaryStrategy{
			StableService:  s.Canary.StableService,
			CanaryService:  s.Canary.CanaryService,
			Port:           s.Canary.Port,
			Steps:          steps,
			TrafficRouting: tr,
			Analysis:       convertAnalysisTo(s.Canary.Analysis),
		}
	}
	if s.BlueGreen != nil {
		var tr *v1beta1.TrafficRouting
		if s.BlueGreen.TrafficRouting != nil {
			tr = &v1beta1.TrafficRouting{Name: s.BlueGreen.TrafficRouting.Name}
		}
		out.BlueGreen = &v1beta1.BlueGreenStrategy{
			ActiveService:        s.BlueGreen.ActiveService,
			PreviewService:       s.BlueGreen.PreviewService,
			AutoPromotionEnabled: s.BlueGreen.AutoPromotionEnabled,
			AutoPromotionSeconds: s.BlueGreen.AutoPromotionSeconds,
			TrafficRouting:       tr,
			Analysis:             convertAnalysisTo(s.BlueGreen.Analysis),
		}
	}
	if s.ABTesting != nil {
		out.ABTesting = &v1beta1.ABStrategy{
			VariantAService: s.ABTesting.VariantAService,
			VariantBService: s.ABTesting.VariantBService,
			VariantBMatch:   convertABMatchTo(s.ABTesting.VariantBMatch),
			MaxDuration:     s.ABTesting.MaxDuration,
			Analysis:        convertABAnalysisTo(s.ABTesting.Analysis),
		}
	}
	return out
}

func convertABMatchTo(m ABMatch) v1beta1.ABMatch {
	var out v1beta1.ABMatch
	if m.Header != nil {
		out.Header = &v1beta1.HeaderMatch{
			Name:  m.Header.Name,
			Value: m.Header.Value,
			Type:  v1beta1.HeaderMatchType(m.Header.Type),
		}
	}
	if m.Cookie != nil {
		out.Cookie = &v1beta1.CookieMatch{Name: m.Cookie.Name, Value: m.Cookie.Value}
	}
	return out
}

func convertABAnalysisTo(a *ABAnalysisConfig) *v1beta1.ABAnalysisConfig {
	if a == nil {
		return nil
	}
	metrics := make([]v1beta1.ABMetric, len(a.Metrics))
	for i, m := range a.Metrics {
		metrics[i] = v1beta1.ABMetric{Name: m.Name, Direction: v1beta1.MetricDirection(m.Direction)}
	}
	return &v1beta1.ABAnalysisConfig{
		MinDuration:     a.MinDuration,
		MinSampleSize:   a.MinSampleSize,
		ConfidenceLevel: a.ConfidenceLevel,
		Metrics:         metrics,
	}
}

func convertAnalysisTo(a *AnalysisConfig) *v1beta1.AnalysisConfig {
	if a == nil {
		return nil
	}
	metrics := make([]v1beta1.MetricConfig, len(a.Metrics))
	for i, m := range a.Metrics {
		metrics[i] = v1beta1.MetricConfig{Name: m.Name, Threshold: m.Threshold}
	}
	return &v1beta1.AnalysisConfig{
		WarmupDuration: a.WarmupDuration,
		Metrics:        metrics,
		FailurePolicy:  v1beta1.FailurePolicy(a.FailurePolicy),
	}
}

func convertAdvisorTo(a *AdvisorConfig) *v1beta1.AdvisorConfig {
	if a == nil {
		return nil
	}
	return &v1beta1.AdvisorConfig{
		Level:          v1beta1.AdvisorLevel(a.Level),
		Endpoint:       a.Endpoint,
		TimeoutSeconds: a.TimeoutSeconds,
		Provider:       a.Provider,
	}
}

func convertStatusTo(s RolloutStatus) v1beta1.RolloutStatus {
	var out v1beta1.RolloutStatus
	out.Phase = v1beta1.RolloutPhase(s.Phase)
	out.CurrentStepIndex = s.CurrentStepIndex
	out.CurrentWeight = s.CurrentWeight
	out.Message = s.Message
	out.PauseStartTime = s.PauseStartTime
	out.StepStartTime = s.StepStartTime
	out.ProgressStartedAt = s.ProgressStartedAt
	if s.Decisions != nil {
		d := make([]v1beta1.Decision, len(s.Decisions))
		for i, dec := range s.Decisions {
			d[i] = v1beta1.Decision{Timestamp: dec.Timestamp, Phase: v1beta1.RolloutPhase(dec.Phase), Reason: dec.Reason}
		}
		out.Decisions = d
	}
	if s.ABExperiment != nil {
		out.ABExperiment = convertABExperimentTo(s.ABExperiment)
	}
	return out
}

func convertABExperimentTo(a *ABExperimentStatus) *v1beta1.ABExperimentStatus {
	results := make([]v1beta1.ABMetricResult, len(a.Results))
	for i, r := range a.Results {
		results[i] = v1beta1.ABMetricResult{
			Metric: r.Metric, Significant: r.Significant, Confidence: r.Confidence,
			Winner: r.Winner, EffectSize: r.EffectSize,
		}
	}
	return &v1beta1.ABExperimentStatus{
		StartedAt:        a.StartedAt,
		ConclusionReason: v1beta1.ConclusionReason(a.ConclusionReason),
		Winner:           a.Winner,
		Results:          results,
		SampleSizeA:      a.SampleSizeA,
		SampleSizeB:      a.SampleSizeB,
	}
}

// --- v1beta1 -> v1alpha1 ---

func convertStrategyFrom(s v1beta1.RolloutStrategy) RolloutStrategy {
	var out RolloutStrategy
	if s.Simple != nil {
		out.Simple = &SimpleStrategy{Analysis: convertAnalysisFrom(s.Simple.Analysis)}
	}
	if s.Canary != nil {
		steps := make([]CanaryStep, len(s.Canary.Steps))
		for i, st := range s.Canary.Steps {
			ns := CanaryStep{SetWeight: st.SetWeight}
			if st.Pause != nil {
				ns.Pause = &StepPause{Duration: st.Pause.Duration}
			}
			steps[i] = ns
		}
		var tr *TrafficRouting
		if s.Canary.TrafficRouting != nil {
			tr = &TrafficRouting{Name: s.Canary.TrafficRouting.Name}
		}
		out.Canary = &CanaryStrategy{
			StableService:  s.Canary.StableService,
			CanaryService:  s.Canary.CanaryService,
			Port:           s.Canary.Port,
			Steps:          steps,
			TrafficRouting: tr,
			Analysis:       convertAnalysisFrom(s.Canary.Analysis),
		}
	}
	if s.BlueGreen != nil {
		var tr *TrafficRouting
		if s.BlueGreen.TrafficRouting != nil {
			tr = &TrafficRouting{Name: s.BlueGreen.TrafficRouting.Name}
		}
		out.BlueGreen = &BlueGreenStrategy{
			ActiveService:        s.BlueGreen.ActiveService,
			PreviewService:       s.BlueGreen.PreviewService,
			AutoPromotionEnabled: s.BlueGreen.AutoPromotionEnabled,
			AutoPromotionSeconds: s.BlueGreen.AutoPromotionSeconds,
			TrafficRouting:       tr,
			Analysis:             convertAnalysisFrom(s.BlueGreen.Analysis),
		}
	}
	if s.ABTesting != nil {
		out.ABTesting = &ABStrategy{
			VariantAService: s.ABTesting.VariantAService,
			VariantBService: s.ABTesting.VariantBService,
			VariantBMatch:   convertABMatchFrom(s.ABTesting.VariantBMatch),
			MaxDuration:     s.ABTesting.MaxDuration,
			Analysis:        convertABAnalysisFrom(s.ABTesting.Analysis),
		}
	}
	return out
}

func convertABMatchFrom(m v1beta1.ABMatch) ABMatch {
	var out ABMatch
	if m.Header != nil {
		out.Header = &HeaderMatch{Name: m.Header.Name, Value: m.Header.Value, Type: string(m.Header.Type)}
	}
	if m.Cookie != nil {
		out.Cookie = &CookieMatch{Name: m.Cookie.Name, Value: m.Cookie.Value}
	}
	return out
}

func convertABAnalysisFrom(a *v1beta1.ABAnalysisConfig) *ABAnalysisConfig {
	if a == nil {
		return nil
	}
	metrics := make([]ABMetric, len(a.Metrics))
	for i, m := range a.Metrics {
		metrics[i] = ABMetric{Name: m.Name, Direction: string(m.Direction)}
	}
	return &ABAnalysisConfig{
		MinDuration:     a.MinDuration,
		MinSampleSize:   a.MinSampleSize,
		ConfidenceLevel: a.ConfidenceLevel,
		Metrics:         metrics,
	}
}

func convertAnalysisFrom(a *v1beta1.AnalysisConfig) *AnalysisConfig {
	if a == nil {
		return nil
	}
	metrics := make([]MetricConfig, len(a.Metrics))
	for i, m := range a.Metrics {
		metrics[i] = MetricConfig{Name: m.Name, Threshold: m.Threshold}
	}
	return &AnalysisConfig{
		WarmupDuration: a.WarmupDuration,
		Metrics:        metrics,
		FailurePolicy:  string(a.FailurePolicy),
	}
}

func convertAdvisorFrom(a *v1beta1.AdvisorConfig) *AdvisorConfig {
	if a == nil {
		return nil
	}
	return &AdvisorConfig{
		Level:          string(a.Level),
		Endpoint:       a.Endpoint,
		TimeoutSeconds: a.TimeoutSeconds,
		Provider:       a.Provider,
	}
}

func convertStatusFrom(s v1beta1.RolloutStatus) RolloutStatus {
	var out RolloutStatus
	out.Phase = string(s.Phase)
	out.CurrentStepIndex = s.CurrentStepIndex
	out.CurrentWeight = s.CurrentWeight
	out.Message = s.Message
	out.PauseStartTime = s.PauseStartTime
	out.StepStartTime = s.StepStartTime
	out.ProgressStartedAt = s.ProgressStartedAt
	if s.Decisions != nil {
		d := make([]Decision, len(s.Decisions))
		for i, dec := range s.Decisions {
			d[i] = Decision{Timestamp: dec.Timestamp, Phase: string(dec.Phase), Reason: dec.Reason}
		}
		out.Decisions = d
	}
	if s.ABExperiment != nil {
		results := make([]ABMetricResult, len(s.ABExperiment.Results))
		for i, r := range s.ABExperiment.Results {
			results[i] = ABMetricResult{
				Metric: r.Metric, Significant: r.Significant, Confidence: r.Confidence,
				Winner: r.Winner, EffectSize: r.EffectSize,
			}
		}
		out.ABExperiment = &ABExperimentStatus{
			StartedAt:        s.ABExperiment.StartedAt,
			ConclusionReason: string(s.ABExperiment.ConclusionReason),
			Winner:           s.ABExperiment.Winner,
			Results:          results,
			SampleSizeA:      s.ABExperiment.SampleSizeA,
			SampleSizeB:      s.ABExperiment.SampleSizeB,
		}
	}
	return out
}
