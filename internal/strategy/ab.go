package strategy

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/objectstore"
	"github.com/false-systems/kulta/internal/planner"
)

const (
	roleVariantA = "variant-a"
	roleVariantB = "variant-b"
)

// ABHandler is the header/cookie-routed experimentation strategy
// (spec.md §4.10 "A/B"). Both variants run at full scale throughout the
// experiment; routing, not replica count, is what splits traffic between
// them.
type ABHandler struct {
	Log *logrus.Entry
}

func (h *ABHandler) ReconcileReplicas(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	if err := reconcileReplicaSet(ctx, store, r, roleVariantA, r.Spec.Replicas); err != nil {
		return err
	}
	return reconcileReplicaSet(ctx, store, r, roleVariantB, r.Spec.Replicas)
}

// ReconcileTraffic patches the route object named after the Rollout
// itself: ABStrategy carries no trafficRouting reference (unlike canary
// and blue-green), so the route name follows the Rollout's own name by
// convention — every A/B experiment is assumed to own exactly one route
// object, making an explicit name redundant.
func (h *ABHandler) ReconcileTraffic(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	return patchABRoute(ctx, store, r.Namespace, r.Name, planner.ABRules(r), h.Log)
}
