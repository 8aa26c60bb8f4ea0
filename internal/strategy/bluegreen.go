package strategy

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/objectstore"
	"github.com/false-systems/kulta/internal/planner"
)

const (
	roleActive  = "active"
	rolePreview = "preview"
)

// BlueGreenHandler is the instantaneous-cutover strategy (spec.md §4.10
// "Blue-green"). Both replica sets run at full scale; only traffic weight
// distinguishes active from preview, flipped atomically on promotion.
type BlueGreenHandler struct {
	Log *logrus.Entry
}

func (h *BlueGreenHandler) ReconcileReplicas(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	if err := reconcileReplicaSet(ctx, store, r, roleActive, r.Spec.Replicas); err != nil {
		return err
	}
	return reconcileReplicaSet(ctx, store, r, rolePreview, r.Spec.Replicas)
}

func (h *BlueGreenHandler) ReconcileTraffic(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	bg := r.Spec.Strategy.BlueGreen
	if bg.TrafficRouting == nil {
		return nil
	}
	return patchWeightedRoute(ctx, store, r.Namespace, bg.TrafficRouting.Name, planner.BlueGreenBackends(r), h.Log)
}
