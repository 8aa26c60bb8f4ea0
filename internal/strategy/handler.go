package strategy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/objectstore"
)

// Handler is implemented once per strategy kind. ReconcileReplicas and
// ReconcileTraffic are spec.md §4.11 steps 4-5: strategy-specific,
// idempotent, pre-read-compare-patch-only-on-drift.
type Handler interface {
	ReconcileReplicas(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error
	ReconcileTraffic(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout) error
}

// ForStrategy dispatches on the Rollout's active strategy arm, returning
// the handler wired with log. Precedence belongs to
// v1beta1.RolloutStrategy.Kind() (simple -> blueGreen -> abTesting ->
// canary, spec.md §4.11 step 3); an empty kind (none or more than one arm
// set) is the Validator's job to reject before this is ever called.
func ForStrategy(kind v1beta1.StrategyKind, log *logrus.Entry) (Handler, error) {
	switch kind {
	case v1beta1.StrategySimple:
		return &SimpleHandler{Log: log}, nil
	case v1beta1.StrategyCanary:
		return &CanaryHandler{Log: log}, nil
	case v1beta1.StrategyBlueGreen:
		return &BlueGreenHandler{Log: log}, nil
	case v1beta1.StrategyAB:
		return &ABHandler{Log: log}, nil
	default:
		return nil, fmt.Errorf("no strategy handler for kind %q", kind)
	}
}
