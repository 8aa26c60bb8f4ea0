// Package objectstore implements the orchestrator object-store contract
// (spec.md §6): get/create/patch/patchStatus/watch over typed namespaced
// objects. KULTA's only implementation is a thin wrapper around
// controller-runtime's client.Client; watch is satisfied by the
// controller's own informer-backed registration in
// internal/controller, not by a method on this interface.
package objectstore

import (
	"context"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Store is the CRUD surface the Reconcile Orchestrator and strategy
// handlers use to read and mutate cluster objects.
type Store interface {
	// Get reads obj by key, populating it in place. Returns a NotFound
	// error (see IsNotFound) when the object does not exist.
	Get(ctx context.Context, key client.ObjectKey, obj client.Object) error

	// Create persists obj. Returns an AlreadyExists error (see
	// IsAlreadyExists) if an object with the same key already exists.
	Create(ctx context.Context, obj client.Object) error

	// Patch applies patch to obj's main resource.
	Patch(ctx context.Context, obj client.Object, patch client.Patch) error

	// PatchStatus applies patch to obj's status subresource only.
	PatchStatus(ctx context.Context, obj client.Object, patch client.Patch) error
}

// ClientStore is the production Store, backed by a controller-runtime
// client.Client (itself backed by the API server's REST client and the
// manager's shared informer cache for reads).
type ClientStore struct {
	Client client.Client
}

// NewClientStore wraps an existing controller-runtime client.
func NewClientStore(c client.Client) *ClientStore {
	return &ClientStore{Client: c}
}

func (s *ClientStore) Get(ctx context.Context, key client.ObjectKey, obj client.Object) error {
	return s.Client.Get(ctx, key, obj)
}

func (s *ClientStore) Create(ctx context.Context, obj client.Object) error {
	return s.Client.Create(ctx, obj)
}

func (s *ClientStore) Patch(ctx context.Context, obj client.Object, patch client.Patch) error {
	return s.Client.Patch(ctx, obj, patch)
}

func (s *ClientStore) PatchStatus(ctx context.Context, obj client.Object, patch client.Patch) error {
	return s.Client.Status().Patch(ctx, obj, patch)
}

// MergeFrom captures obj's current state as the base of a JSON merge
// patch, the idiom every strategy handler and the orchestrator use to
// "pre-read, compare, patch only on drift" (spec.md §4.11 step 4).
func MergeFrom(obj client.Object) client.Patch {
	return client.MergeFrom(obj.DeepCopyObject().(client.Object))
}

// IsNotFound reports whether err is the object-store's NotFound error.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// IsAlreadyExists reports whether err is the object-store's AlreadyExists
// error.
func IsAlreadyExists(err error) bool {
	return apierrors.IsAlreadyExists(err)
}
