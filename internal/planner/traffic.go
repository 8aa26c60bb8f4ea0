package planner

import (
	"regexp"

	"github.com/false-systems/kulta/api/v1beta1"
)

// WeightedBackend is one entry in a canary/blue-green traffic plan: route
// weight% of traffic to the named service.
type WeightedBackend struct {
	Service string
	Port    int32
	Weight  int32
}

// MatchRule is one entry in an A/B traffic plan, evaluated in declaration
// order by the route object (first match wins).
type MatchRule struct {
	HeaderName  string
	HeaderValue string
	HeaderType  v1beta1.HeaderMatchType
	CookieRegex string // matches the literal Cookie header value
	Backend     string
	Weight      int32
}

const defaultPort = int32(80)

// CanaryWeights implements spec.md §4.5's canary weight rule: the weight
// comes from the step at status.currentStepIndex when set and in range;
// (100, 0) before any status exists; (0, 100) once the index has run past
// the last step.
func CanaryWeights(r *v1beta1.Rollout) (stableWeight, canaryWeight int32) {
	c := r.Spec.Strategy.Canary
	if c == nil {
		return 100, 0
	}
	idx := r.Status.CurrentStepIndex
	if idx == nil {
		return 100, 0
	}
	if int(*idx) >= len(c.Steps) {
		return 0, 100
	}
	step := c.Steps[*idx]
	if step.SetWeight == nil {
		return 100, 0
	}
	w := *step.SetWeight
	return 100 - w, w
}

// CanaryBackends renders CanaryWeights into the two weighted backend
// references a route object's single patched rule needs.
func CanaryBackends(r *v1beta1.Rollout) []WeightedBackend {
	c := r.Spec.Strategy.Canary
	port := defaultPort
	if c.Port != nil {
		port = *c.Port
	}
	stableWeight, canaryWeight := CanaryWeights(r)
	return []WeightedBackend{
		{Service: c.StableService, Port: port, Weight: stableWeight},
		{Service: c.CanaryService, Port: port, Weight: canaryWeight},
	}
}

// BlueGreenBackends implements spec.md §4.5's blue-green rule: a pure
// function of phase with no intermediate state. Completed routes 100% to
// preview; every other phase routes 100% to active.
func BlueGreenBackends(r *v1beta1.Rollout) []WeightedBackend {
	bg := r.Spec.Strategy.BlueGreen
	port := defaultPort

	if r.Status.Phase == v1beta1.PhaseCompleted {
		return []WeightedBackend{
			{Service: bg.ActiveService, Port: port, Weight: 0},
			{Service: bg.PreviewService, Port: port, Weight: 100},
		}
	}
	return []WeightedBackend{
		{Service: bg.ActiveService, Port: port, Weight: 100},
		{Service: bg.PreviewService, Port: port, Weight: 0},
	}
}

// ABRules implements spec.md §4.5's A/B rule generation: most-specific
// first (header, then cookie), with a catch-all to variant A last.
func ABRules(r *v1beta1.Rollout) []MatchRule {
	ab := r.Spec.Strategy.ABTesting
	var rules []MatchRule

	if ab.VariantBMatch.Header != nil {
		h := ab.VariantBMatch.Header
		rules = append(rules, MatchRule{
			HeaderName:  h.Name,
			HeaderValue: h.Value,
			HeaderType:  h.Type,
			Backend:     ab.VariantBService,
			Weight:      100,
		})
	}
	if ab.VariantBMatch.Cookie != nil {
		c := ab.VariantBMatch.Cookie
		rules = append(rules, MatchRule{
			CookieRegex: c.Name + "=" + regexp.QuoteMeta(c.Value),
			Backend:     ab.VariantBService,
			Weight:      100,
		})
	}
	rules = append(rules, MatchRule{Backend: ab.VariantAService, Weight: 100})
	return rules
}
