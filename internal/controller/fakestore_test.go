package controller

import (
	"context"
	"encoding/json"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// fakeStore is a minimal in-memory objectstore.Store for this package's
// tests, round-tripping objects through JSON so typed Rollouts, Leases, and
// ReplicaSets can share one store without scheme registration.
type fakeStore struct {
	items map[string]client.Object
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]client.Object{}}
}

func storeKey(namespace, name string) string {
	return namespace + "/" + name
}

func (s *fakeStore) Get(_ context.Context, key client.ObjectKey, obj client.Object) error {
	existing, ok := s.items[storeKey(key.Namespace, key.Name)]
	if !ok {
		return apierrors.NewNotFound(schema.GroupResource{}, key.Name)
	}
	data, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, obj)
}

func (s *fakeStore) Create(_ context.Context, obj client.Object) error {
	k := storeKey(obj.GetNamespace(), obj.GetName())
	if _, ok := s.items[k]; ok {
		return apierrors.NewAlreadyExists(schema.GroupResource{}, obj.GetName())
	}
	s.items[k] = obj.DeepCopyObject().(client.Object)
	return nil
}

func (s *fakeStore) Patch(_ context.Context, obj client.Object, _ client.Patch) error {
	s.items[storeKey(obj.GetNamespace(), obj.GetName())] = obj.DeepCopyObject().(client.Object)
	return nil
}

func (s *fakeStore) PatchStatus(ctx context.Context, obj client.Object, patch client.Patch) error {
	return s.Patch(ctx, obj, patch)
}

func (s *fakeStore) put(obj client.Object) {
	s.items[storeKey(obj.GetNamespace(), obj.GetName())] = obj.DeepCopyObject().(client.Object)
}
