package webhook

import (
	"encoding/json"
	"net/http"

	admissionv1 "k8s.io/api/admission/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/validation"
)

// handleValidate implements the admission.k8s.io/v1 ValidatingWebhook
// contract: decode the AdmissionReview, run spec.md §4.1's Validator
// against the embedded Rollout, and answer allowed/denied.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var review admissionv1.AdmissionReview
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		http.Error(w, "decode admission review: "+err.Error(), http.StatusBadRequest)
		return
	}
	if review.Request == nil {
		http.Error(w, "admission review has no request", http.StatusBadRequest)
		return
	}

	if s.Schema != nil {
		if err := s.Schema.ValidateRollout(review.Request.Object.Raw); err != nil {
			s.respondValidate(w, review.Request.UID, false, "schema: "+err.Error())
			return
		}
	}

	var rollout v1beta1.Rollout
	if err := json.Unmarshal(review.Request.Object.Raw, &rollout); err != nil {
		http.Error(w, "decode rollout: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := validation.Validate(r.Context(), &rollout, s.ValidationPolicy); err != nil {
		s.respondValidate(w, review.Request.UID, false, err.Error())
		return
	}
	s.respondValidate(w, review.Request.UID, true, "")
}

func (s *Server) respondValidate(w http.ResponseWriter, uid types.UID, allowed bool, reason string) {
	resp := admissionv1.AdmissionReview{
		TypeMeta: metav1.TypeMeta{APIVersion: "admission.k8s.io/v1", Kind: "AdmissionReview"},
		Response: &admissionv1.AdmissionResponse{
			UID:     uid,
			Allowed: allowed,
		},
	}
	if !allowed {
		resp.Response.Result = &metav1.Status{Message: reason}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.Log.WithError(err).Error("failed to encode admission response")
	}
}
