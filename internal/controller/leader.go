package controller

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	coordinationv1 "k8s.io/api/coordination/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/false-systems/kulta/internal/clock"
	"github.com/false-systems/kulta/internal/objectstore"
)

const (
	leaseTTL           = 15 * time.Second
	leaseRenewInterval = leaseTTL / 3
)

// LeaderElector implements spec.md §4.15: lease-based single-writer
// election over a coordination.k8s.io/v1 Lease, with leadership state kept
// as a single atomic bool the orchestrator's leader gate reads without
// blocking.
type LeaderElector struct {
	Store     objectstore.Store
	Clock     clock.Clock
	Namespace string
	LeaseName string
	Identity  string
	Log       *logrus.Entry

	held atomic.Bool
}

// NewLeaderElector builds an elector. Identity defaults to
// POD_NAME, then HOSTNAME, then a generated "kulta-<uuid>" (spec.md
// §4.15).
func NewLeaderElector(store objectstore.Store, c clock.Clock, namespace, leaseName string, log *logrus.Entry) *LeaderElector {
	if log == nil {
		l := logrus.New()
		log = l.WithField("component", "leader-elector")
	}
	return &LeaderElector{
		Store:     store,
		Clock:     c,
		Namespace: namespace,
		LeaseName: leaseName,
		Identity:  defaultIdentity(),
		Log:       log,
	}
}

func defaultIdentity() string {
	if v := os.Getenv("POD_NAME"); v != "" {
		return v
	}
	if v := os.Getenv("HOSTNAME"); v != "" {
		return v
	}
	return "kulta-" + uuid.NewString()
}

// IsLeader reports the current leadership state. Safe for concurrent use.
func (e *LeaderElector) IsLeader() bool {
	return e.held.Load()
}

// Run attempts to acquire or renew the lease every leaseRenewInterval until
// ctx is cancelled. It never returns an error: every failure is logged and
// leaves held at its previous value's safe default of false until the next
// tick succeeds.
func (e *LeaderElector) Run(ctx context.Context) {
	e.tick(ctx)
	ticker := time.NewTicker(leaseRenewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.held.Store(false)
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *LeaderElector) tick(ctx context.Context) {
	now := e.Clock.Now()
	key := client.ObjectKey{Namespace: e.Namespace, Name: e.LeaseName}

	var lease coordinationv1.Lease
	err := e.Store.Get(ctx, key, &lease)
	switch {
	case apierrors.IsNotFound(err):
		e.acquire(ctx, key, now, nil)
	case err != nil:
		e.Log.WithError(err).Warn("failed to read leader lease; yielding leadership")
		e.held.Store(false)
	case lease.Spec.HolderIdentity != nil && *lease.Spec.HolderIdentity == e.Identity:
		e.renew(ctx, &lease, now)
	case leaseExpired(&lease, now):
		e.acquire(ctx, key, now, &lease)
	default:
		e.held.Store(false)
	}
}

func leaseExpired(lease *coordinationv1.Lease, now time.Time) bool {
	if lease.Spec.RenewTime == nil || lease.Spec.LeaseDurationSeconds == nil {
		return true
	}
	deadline := lease.Spec.RenewTime.Add(time.Duration(*lease.Spec.LeaseDurationSeconds) * time.Second)
	return now.After(deadline)
}

func (e *LeaderElector) acquire(ctx context.Context, key client.ObjectKey, now time.Time, existing *coordinationv1.Lease) {
	identity := e.Identity
	durationSeconds := int32(leaseTTL.Seconds())
	renewTime := metav1.NewMicroTime(now)

	if existing == nil {
		lease := &coordinationv1.Lease{
			ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace},
			Spec: coordinationv1.LeaseSpec{
				HolderIdentity:       &identity,
				LeaseDurationSeconds: &durationSeconds,
				AcquireTime:          &renewTime,
				RenewTime:            &renewTime,
			},
		}
		if err := e.Store.Create(ctx, lease); err != nil && !apierrors.IsAlreadyExists(err) {
			e.Log.WithError(err).Warn("failed to create leader lease")
			e.held.Store(false)
			return
		}
		e.held.Store(true)
		return
	}

	patch := objectstore.MergeFrom(existing)
	transitions := int32(1)
	if existing.Spec.LeaseTransitions != nil {
		transitions = *existing.Spec.LeaseTransitions + 1
	}
	existing.Spec.HolderIdentity = &identity
	existing.Spec.LeaseDurationSeconds = &durationSeconds
	existing.Spec.AcquireTime = &renewTime
	existing.Spec.RenewTime = &renewTime
	existing.Spec.LeaseTransitions = &transitions
	if err := e.Store.Patch(ctx, existing, patch); err != nil {
		e.Log.WithError(err).Warn("failed to take over expired leader lease")
		e.held.Store(false)
		return
	}
	e.held.Store(true)
}

func (e *LeaderElector) renew(ctx context.Context, lease *coordinationv1.Lease, now time.Time) {
	patch := objectstore.MergeFrom(lease)
	renewTime := metav1.NewMicroTime(now)
	lease.Spec.RenewTime = &renewTime
	if err := e.Store.Patch(ctx, lease, patch); err != nil {
		e.Log.WithError(err).Warn("failed to renew leader lease")
		e.held.Store(false)
		return
	}
	e.held.Store(true)
}
