package strategy

import (
	"context"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/objectstore"
	"github.com/false-systems/kulta/internal/planner"
)

const (
	roleStable = "stable"
	roleCanary = "canary"
)

// CanaryHandler is the weight-shifting progressive-delivery strategy
// (spec.md §4.10 "Canary").
type CanaryHandler struct {
	Log *logrus.Entry
}

func (h *CanaryHandler) ReconcileReplicas(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	_, canaryWeight := planner.CanaryWeights(r)
	counts, err := planner.ReplicaPlan(
		int(r.Spec.Replicas),
		int(canaryWeight),
		intOrStringValue(r.Spec.MaxSurge),
		intOrStringValue(r.Spec.MaxUnavailable),
	)
	if err != nil {
		return err
	}
	if err := reconcileReplicaSet(ctx, store, r, roleStable, int32(counts.Stable)); err != nil {
		return err
	}
	return reconcileReplicaSet(ctx, store, r, roleCanary, int32(counts.Canary))
}

func (h *CanaryHandler) ReconcileTraffic(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	c := r.Spec.Strategy.Canary
	if c.TrafficRouting == nil {
		return nil
	}
	return patchWeightedRoute(ctx, store, r.Namespace, c.TrafficRouting.Name, planner.CanaryBackends(r), h.Log)
}

// intOrStringValue renders an optional maxSurge/maxUnavailable field to
// the string form planner.ParseBudget expects, leaving the planner's own
// defaults ("25%"/"0") to apply when unset.
func intOrStringValue(v *intstr.IntOrString) string {
	if v == nil {
		return ""
	}
	return v.String()
}
