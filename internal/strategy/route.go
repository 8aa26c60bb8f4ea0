package strategy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/objectstore"
	"github.com/false-systems/kulta/internal/planner"
)

// RouteGVK is the route object's kind (spec.md §3 "Route object": "an
// opaque L7 routing resource"). Istio's VirtualService is the de facto L7
// routing resource patched for canary/A-B traffic shifting across the
// progressive-delivery ecosystem; KULTA never interprets its schema
// beyond the single `spec.http` rule list it patches, so any resource
// sharing that shape works.
var RouteGVK = schema.GroupVersionKind{Group: "networking.istio.io", Version: "v1beta1", Kind: "VirtualService"}

// patchWeightedRoute implements spec.md §4.6's canary/blue-green rule:
// patch the first HTTP rule's destination list, leaving every other rule
// and field untouched. A missing route object is logged, not returned
// (spec.md §7 taxonomy item 5).
func patchWeightedRoute(ctx context.Context, store objectstore.Store, namespace, name string, backends []planner.WeightedBackend, log *logrus.Entry) error {
	route, base, err := getRoute(ctx, store, namespace, name, log)
	if err != nil || route == nil {
		return err
	}

	httpRules, _, err := unstructured.NestedSlice(route.Object, "spec", "http")
	if err != nil {
		return fmt.Errorf("reading route object %s/%s spec.http: %w", namespace, name, err)
	}
	rule := map[string]any{}
	if len(httpRules) > 0 {
		if existing, ok := httpRules[0].(map[string]any); ok {
			rule = existing
		}
	} else {
		httpRules = []any{nil}
	}
	rule["route"] = weightedDestinations(backends)
	httpRules[0] = rule

	if err := unstructured.SetNestedSlice(route.Object, httpRules, "spec", "http"); err != nil {
		return fmt.Errorf("writing route object %s/%s spec.http: %w", namespace, name, err)
	}
	return store.Patch(ctx, route, client.MergeFrom(base))
}

// patchABRoute implements spec.md §4.6's A/B rule: replace the entire HTTP
// rule list with the planner's match-qualified rules.
func patchABRoute(ctx context.Context, store objectstore.Store, namespace, name string, rules []planner.MatchRule, log *logrus.Entry) error {
	route, base, err := getRoute(ctx, store, namespace, name, log)
	if err != nil || route == nil {
		return err
	}

	httpRules := make([]any, 0, len(rules))
	for _, rule := range rules {
		httpRules = append(httpRules, abRuleObject(rule))
	}
	if err := unstructured.SetNestedSlice(route.Object, httpRules, "spec", "http"); err != nil {
		return fmt.Errorf("writing route object %s/%s spec.http: %w", namespace, name, err)
	}
	return store.Patch(ctx, route, client.MergeFrom(base))
}

// getRoute fetches the route object, returning (nil, nil, nil) when it
// does not exist so callers can treat that as a non-fatal skip.
func getRoute(ctx context.Context, store objectstore.Store, namespace, name string, log *logrus.Entry) (*unstructured.Unstructured, *unstructured.Unstructured, error) {
	route := &unstructured.Unstructured{}
	route.SetGroupVersionKind(RouteGVK)
	if err := store.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, route); err != nil {
		if objectstore.IsNotFound(err) {
			if log != nil {
				log.WithField("route", name).Warn("route object not found, skipping traffic patch")
			}
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("getting route object %s/%s: %w", namespace, name, err)
	}
	return route, route.DeepCopy(), nil
}

func weightedDestinations(backends []planner.WeightedBackend) []any {
	out := make([]any, 0, len(backends))
	for _, b := range backends {
		out = append(out, map[string]any{
			"destination": map[string]any{
				"host": b.Service,
				"port": map[string]any{"number": int64(b.Port)},
			},
			"weight": int64(b.Weight),
		})
	}
	return out
}

func abRuleObject(rule planner.MatchRule) map[string]any {
	obj := map[string]any{
		"route": []any{map[string]any{
			"destination": map[string]any{"host": rule.Backend},
			"weight":      int64(rule.Weight),
		}},
	}
	switch {
	case rule.HeaderName != "":
		matchKey := "exact"
		if rule.HeaderType == v1beta1.HeaderMatchRegex {
			matchKey = "regex"
		}
		obj["match"] = []any{map[string]any{
			"headers": map[string]any{
				rule.HeaderName: map[string]any{matchKey: rule.HeaderValue},
			},
		}}
	case rule.CookieRegex != "":
		obj["match"] = []any{map[string]any{
			"headers": map[string]any{
				"cookie": map[string]any{"regex": rule.CookieRegex},
			},
		}}
	}
	return obj
}
