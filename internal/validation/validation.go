// Package validation implements the Validator component (spec.md §4.1):
// a pure function run at admission and on every reconcile. It never calls
// out to the cluster or the wall clock.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/false-systems/kulta/api/v1beta1"
)

// structValidator checks the scalar, struct-tag-declared constraints of
// RolloutSpec (spec.md §4.1's "replicas must be >= 0" and
// "progressDeadlineSeconds must be >= 0" rules); the grammar that
// validator tags can't express (duration strings, budget percentages,
// the tagged-union strategy shape) is checked separately by the
// hand-written functions below.
var structValidator = validator.New(validator.WithRequiredStructEnabled())

// durationPattern is the duration grammar of spec.md §4.1: a positive
// integer followed by s/m/h. "0s" and leading zeroes are rejected by
// construction ([1-9][0-9]*).
var durationPattern = regexp.MustCompile(`^[1-9][0-9]*[smh]$`)

const (
	maxSeconds = 86400
	maxMinutes = 1440
	maxHours   = 168
)

// ValidateDuration enforces the grammar and per-unit caps of spec.md §4.1.
// The caps are an intentional typo check, not an overflow guard: "9999h" is
// rejected outright even though it would fit in an int.
func ValidateDuration(s string) error {
	if !durationPattern.MatchString(s) {
		return fmt.Errorf("duration %q must match ^[1-9][0-9]*[smh]$", s)
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return fmt.Errorf("duration %q has an unparseable magnitude: %w", s, err)
	}
	var cap int
	switch unit {
	case 's':
		cap = maxSeconds
	case 'm':
		cap = maxMinutes
	case 'h':
		cap = maxHours
	}
	if n > cap {
		return fmt.Errorf("duration %q exceeds the maximum of %d%c", s, cap, unit)
	}
	return nil
}

var budgetPattern = regexp.MustCompile(`^\d+%?$`)

func validateBudget(field string, v *intstr.IntOrString) error {
	if v == nil {
		return nil
	}
	s := v.String()
	if !budgetPattern.MatchString(s) {
		return fmt.Errorf("%s %q must match ^\\d+%%?$", field, s)
	}
	if strings.HasSuffix(s, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
		if err != nil {
			return fmt.Errorf("%s %q has an unparseable percentage: %w", field, s, err)
		}
		if pct > 100 {
			return fmt.Errorf("%s %q exceeds 100%%", field, s)
		}
	}
	return nil
}

// Policy is an optional extension point evaluated after the static rules
// pass, letting operators layer cluster-specific constraints (e.g. "canary
// services must live in an allow-listed namespace") without forking the
// static ruleset. See internal/validation/opa.go for the concrete
// Open Policy Agent-backed implementation.
type Policy interface {
	Evaluate(ctx context.Context, r *v1beta1.Rollout) error
}

// Validate runs the static rules of spec.md §4.1 against r, then — if
// policy is non-nil — the extension policy. It returns the first rule
// violated, as a one-line reason suitable for a webhook rejection message
// or a reconcile error.
func Validate(ctx context.Context, r *v1beta1.Rollout, policy Policy) error {
	if err := validateStatic(r); err != nil {
		return err
	}
	if policy != nil {
		if err := policy.Evaluate(ctx, r); err != nil {
			return fmt.Errorf("policy rejected rollout: %w", err)
		}
	}
	return nil
}

func validateStatic(r *v1beta1.Rollout) error {
	spec := r.Spec

	if err := structValidator.Struct(spec); err != nil {
		return fmt.Errorf("spec: %w", err)
	}

	if err := validateBudget("spec.maxSurge", spec.MaxSurge); err != nil {
		return err
	}
	if err := validateBudget("spec.maxUnavailable", spec.MaxUnavailable); err != nil {
		return err
	}

	kind := spec.Strategy.Kind()
	if kind == "" {
		return fmt.Errorf("spec.strategy must set exactly one of simple, canary, blueGreen, abTesting")
	}

	switch kind {
	case v1beta1.StrategyCanary:
		if err := validateCanary(spec.Strategy.Canary); err != nil {
			return err
		}
	case v1beta1.StrategyBlueGreen:
		if err := validateRouteName(spec.Strategy.BlueGreen.TrafficRouting); err != nil {
			return err
		}
	case v1beta1.StrategyAB:
		if err := validateAB(spec.Strategy.ABTesting); err != nil {
			return err
		}
	}

	return nil
}

func validateRouteName(tr *v1beta1.TrafficRouting) error {
	if tr != nil && tr.Name == "" {
		return fmt.Errorf("spec.*.trafficRouting.name must be non-empty when set")
	}
	return nil
}

func validateCanary(c *v1beta1.CanaryStrategy) error {
	if c.StableService == "" {
		return fmt.Errorf("spec.canary.stableService must be non-empty")
	}
	if c.CanaryService == "" {
		return fmt.Errorf("spec.canary.canaryService must be non-empty")
	}
	if len(c.Steps) < 1 {
		return fmt.Errorf("spec.canary.steps must contain at least one step")
	}
	for i, step := range c.Steps {
		if step.SetWeight != nil {
			if *step.SetWeight < 0 || *step.SetWeight > 100 {
				return fmt.Errorf("spec.canary.steps[%d].setWeight must be in [0,100], got %d", i, *step.SetWeight)
			}
		}
		if step.Pause != nil && step.Pause.Duration != "" {
			if err := ValidateDuration(step.Pause.Duration); err != nil {
				return fmt.Errorf("spec.canary.steps[%d].pause.duration: %w", i, err)
			}
		}
	}
	return validateRouteName(c.TrafficRouting)
}

func validateAB(a *v1beta1.ABStrategy) error {
	if a.VariantAService == "" {
		return fmt.Errorf("spec.abTesting.variantAService must be non-empty")
	}
	if a.VariantBService == "" {
		return fmt.Errorf("spec.abTesting.variantBService must be non-empty")
	}
	if a.MaxDuration != "" {
		if err := ValidateDuration(a.MaxDuration); err != nil {
			return fmt.Errorf("spec.abTesting.maxDuration: %w", err)
		}
	}
	if a.Analysis != nil && a.Analysis.MinDuration != "" {
		if err := ValidateDuration(a.Analysis.MinDuration); err != nil {
			return fmt.Errorf("spec.abTesting.analysis.minDuration: %w", err)
		}
	}
	return nil
}
