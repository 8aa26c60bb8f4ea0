package strategy

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/false-systems/kulta/api/v1beta1"
)

func abRollout(replicas int32) *v1beta1.Rollout {
	r := testRollout(replicas)
	r.Spec.Strategy.ABTesting = &v1beta1.ABStrategy{
		VariantAService: "variant-a-svc",
		VariantBService: "variant-b-svc",
		VariantBMatch: v1beta1.ABMatch{
			Header: &v1beta1.HeaderMatch{Name: "x-variant", Value: "b", Type: v1beta1.HeaderMatchExact},
		},
	}
	return r
}

func TestABHandler_ReconcileReplicas_BothFullyScaled(t *testing.T) {
	store := newFakeStore()
	h := &ABHandler{Log: discardEntry()}
	r := abRollout(4)

	if err := h.ReconcileReplicas(context.Background(), store, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var a, b appsv1.ReplicaSet
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app-variant-a"}, &a); err != nil {
		t.Fatalf("expected variant-a replica set: %v", err)
	}
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app-variant-b"}, &b); err != nil {
		t.Fatalf("expected variant-b replica set: %v", err)
	}
	if *a.Spec.Replicas != 4 || *b.Spec.Replicas != 4 {
		t.Errorf("expected both variants fully scaled to 4, got a=%d b=%d", *a.Spec.Replicas, *b.Spec.Replicas)
	}
}

func TestABHandler_ReconcileTraffic_UsesRolloutNameAsRouteName(t *testing.T) {
	store := newFakeStore()
	route := testRoute("my-app")
	store.put(route)

	h := &ABHandler{Log: discardEntry()}
	r := abRollout(4)

	if err := h.ReconcileTraffic(context.Background(), store, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got unstructured.Unstructured
	got.SetGroupVersionKind(RouteGVK)
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app"}, &got); err != nil {
		t.Fatalf("expected the route named after the rollout to have been patched: %v", err)
	}
}
