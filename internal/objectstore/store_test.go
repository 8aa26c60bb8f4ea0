package objectstore

import (
	"context"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/false-systems/kulta/api/v1beta1"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := v1beta1.AddToScheme(scheme); err != nil {
		t.Fatalf("failed to register scheme: %v", err)
	}
	return scheme
}

func TestClientStore_GetNotFound(t *testing.T) {
	store := NewClientStore(fake.NewClientBuilder().WithScheme(testScheme(t)).Build())

	err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "missing"}, &v1beta1.Rollout{})
	if !IsNotFound(err) {
		t.Fatalf("expected a NotFound error, got %v", err)
	}
}

func TestClientStore_CreateThenGet(t *testing.T) {
	store := NewClientStore(fake.NewClientBuilder().WithScheme(testScheme(t)).Build())
	r := &v1beta1.Rollout{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "my-app"}, Spec: v1beta1.RolloutSpec{Replicas: 3}}

	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	var got v1beta1.Rollout
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app"}, &got); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.Spec.Replicas != 3 {
		t.Errorf("expected replicas=3, got %d", got.Spec.Replicas)
	}
}

func TestClientStore_CreateTwiceIsAlreadyExists(t *testing.T) {
	store := NewClientStore(fake.NewClientBuilder().WithScheme(testScheme(t)).Build())
	r := &v1beta1.Rollout{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "my-app"}}

	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected first create error: %v", err)
	}
	r2 := &v1beta1.Rollout{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "my-app"}}
	err := store.Create(context.Background(), r2)
	if !IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestClientStore_PatchAppliesMergePatch(t *testing.T) {
	r := &v1beta1.Rollout{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "my-app"}, Spec: v1beta1.RolloutSpec{Replicas: 3}}
	store := NewClientStore(fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(r).Build())

	base := r.DeepCopy()
	r.Spec.Replicas = 5
	if err := store.Patch(context.Background(), r, client.MergeFrom(base)); err != nil {
		t.Fatalf("unexpected patch error: %v", err)
	}

	var got v1beta1.Rollout
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app"}, &got); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.Spec.Replicas != 5 {
		t.Errorf("expected replicas=5 after patch, got %d", got.Spec.Replicas)
	}
}

func TestClientStore_PatchStatusOnlyTouchesStatus(t *testing.T) {
	r := &v1beta1.Rollout{
		ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "my-app"},
		Spec:       v1beta1.RolloutSpec{Replicas: 3},
		Status:     v1beta1.RolloutStatus{Phase: v1beta1.PhaseProgressing},
	}
	store := NewClientStore(fake.NewClientBuilder().WithScheme(testScheme(t)).WithStatusSubresource(&v1beta1.Rollout{}).WithObjects(r).Build())

	base := r.DeepCopy()
	r.Status.Phase = v1beta1.PhaseCompleted
	r.Spec.Replicas = 99 // must be ignored by a status-subresource patch
	if err := store.PatchStatus(context.Background(), r, client.MergeFrom(base)); err != nil {
		t.Fatalf("unexpected patch status error: %v", err)
	}

	var got v1beta1.Rollout
	if err := store.Get(context.Background(), client.ObjectKey{Namespace: "default", Name: "my-app"}, &got); err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.Status.Phase != v1beta1.PhaseCompleted {
		t.Errorf("expected status phase Completed, got %v", got.Status.Phase)
	}
	if got.Spec.Replicas != 3 {
		t.Errorf("expected spec.replicas untouched by status patch, got %d", got.Spec.Replicas)
	}
}

func TestMergeFrom_CapturesBaseStateNotLiveObject(t *testing.T) {
	r := &v1beta1.Rollout{ObjectMeta: metav1.ObjectMeta{Name: "x"}, Spec: v1beta1.RolloutSpec{Replicas: 1}}
	patch := MergeFrom(r)
	r.Spec.Replicas = 2

	data, err := patch.Data(r)
	if err != nil {
		t.Fatalf("unexpected patch data error: %v", err)
	}
	if patch.Type() != types.MergePatchType {
		t.Errorf("expected a merge patch type")
	}
	if len(data) == 0 {
		t.Error("expected non-empty patch diff between captured base and mutated object")
	}
}
