package strategy

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/objectstore"
)

// SimpleHandler is the rolling-update strategy: a single replica set, no
// route object (spec.md §4.10 "Simple").
type SimpleHandler struct {
	Log *logrus.Entry
}

func (h *SimpleHandler) ReconcileReplicas(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	return reconcileReplicaSet(ctx, store, r, "", r.Spec.Replicas)
}

// ReconcileTraffic is a no-op: simple rollouts never split traffic
// (spec.md §4.5 only defines canary/blue-green/A-B planners).
func (h *SimpleHandler) ReconcileTraffic(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error {
	return nil
}
