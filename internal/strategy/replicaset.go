// Package strategy implements the four per-strategy handlers that
// reconcile replica sets and traffic for a Rollout (spec.md §3 "Strategy
// Handlers", §4.11 steps 3-5).
package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/hash"
	"github.com/false-systems/kulta/internal/objectstore"
)

// roleLabel carries the replica set's role (spec.md §3 "Replica set").
const roleLabel = "kulta.dev/role"

// hashLabel carries the 10-character pod-template hash (spec.md §4.4).
const hashLabel = "kulta.dev/pod-template-hash"

// managedLabel marks a replica set as controller-owned, preventing
// adoption by the default rolling controller (spec.md §3).
const managedLabel = "kulta.dev/managed"

// replicaSetName implements spec.md §3's naming rule:
// "{rollout}-{role}" where role is empty for simple, which uses
// "{rollout}".
func replicaSetName(rolloutName, role string) string {
	if role == "" {
		return rolloutName
	}
	return rolloutName + "-" + role
}

// reconcileReplicaSet creates the named role's replica set on first
// observation that it is required (desired > 0) and scales an existing
// one on drift; it never recreates (spec.md §3, §4.11 step 4). desired=0
// for a role that doesn't yet exist is a no-op — "no canary replica set
// is scaled up" (spec.md §8, setWeight=0 edge case).
func reconcileReplicaSet(ctx context.Context, store objectstore.Store, r *v1beta1.Rollout, role string, desired int32) error {
	name := replicaSetName(r.Name, role)

	var existing appsv1.ReplicaSet
	err := store.Get(ctx, client.ObjectKey{Namespace: r.Namespace, Name: name}, &existing)
	switch {
	case objectstore.IsNotFound(err):
		if desired == 0 {
			return nil
		}
		rs, buildErr := buildReplicaSet(r, role, desired, name)
		if buildErr != nil {
			return buildErr
		}
		if createErr := store.Create(ctx, rs); createErr != nil && !objectstore.IsAlreadyExists(createErr) {
			return createErr
		}
		return nil
	case err != nil:
		return fmt.Errorf("getting replica set %s/%s: %w", r.Namespace, name, err)
	default:
		if existing.Spec.Replicas != nil && *existing.Spec.Replicas == desired {
			return nil
		}
		patch := objectstore.MergeFrom(&existing)
		updated := existing.DeepCopy()
		updated.Spec.Replicas = &desired
		return store.Patch(ctx, updated, patch)
	}
}

func buildReplicaSet(r *v1beta1.Rollout, role string, desired int32, name string) (*appsv1.ReplicaSet, error) {
	podHash, err := templateHash(r.Spec.Template)
	if err != nil {
		return nil, fmt.Errorf("hashing pod template: %w", err)
	}

	selector := r.Spec.Selector.DeepCopy()
	template := *r.Spec.Template.DeepCopy()
	if template.Labels == nil {
		template.Labels = map[string]string{}
	}
	if role != "" {
		if selector.MatchLabels == nil {
			selector.MatchLabels = map[string]string{}
		}
		selector.MatchLabels[roleLabel] = role
		template.Labels[roleLabel] = role
	}
	template.Labels[hashLabel] = podHash

	rs := &appsv1.ReplicaSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: r.Namespace,
			Labels: map[string]string{
				hashLabel:    podHash,
				managedLabel: "true",
			},
			OwnerReferences: []metav1.OwnerReference{ownerRef(r)},
		},
		Spec: appsv1.ReplicaSetSpec{
			Replicas: &desired,
			Selector: selector,
			Template: template,
		},
	}
	if role != "" {
		rs.Labels[roleLabel] = role
	}
	return rs, nil
}

// templateHash renders spec.md §4.4's pod-template hash from a structured
// PodTemplateSpec by round-tripping it through its canonical JSON
// encoding, reusing internal/hash's map-keyed canonicalizer.
func templateHash(tpl corev1.PodTemplateSpec) (string, error) {
	buf, err := json.Marshal(tpl)
	if err != nil {
		return "", err
	}
	var m map[string]any
	if err := json.Unmarshal(buf, &m); err != nil {
		return "", err
	}
	return hash.TemplateHash(m)
}

// ownerRef makes the replica set's deletion implicit under Kubernetes
// garbage collection once the owning Rollout is deleted (spec.md §3:
// "Deleted implicitly via owner references").
func ownerRef(r *v1beta1.Rollout) metav1.OwnerReference {
	controller := true
	blockDeletion := true
	return metav1.OwnerReference{
		APIVersion:         v1beta1.GroupVersion.String(),
		Kind:               "Rollout",
		Name:               r.Name,
		UID:                r.UID,
		Controller:         &controller,
		BlockOwnerDeletion: &blockDeletion,
	}
}
