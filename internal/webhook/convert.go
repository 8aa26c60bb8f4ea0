package webhook

import (
	"encoding/json"
	"net/http"

	goerrors "github.com/go-faster/errors"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"

	"github.com/false-systems/kulta/api/v1alpha1"
	"github.com/false-systems/kulta/api/v1beta1"
)

// handleConvert implements the apiextensions.k8s.io/v1 CRD conversion
// webhook contract: convert every object in the request between
// v1alpha1 and v1beta1 using the Hub/Convertible pair already defined on
// the Rollout types (spec.md §4.14), in whichever direction the request
// names.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var review apiextensionsv1.ConversionReview
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		http.Error(w, "decode conversion review: "+err.Error(), http.StatusBadRequest)
		return
	}
	if review.Request == nil {
		http.Error(w, "conversion review has no request", http.StatusBadRequest)
		return
	}

	converted := make([]runtime.RawExtension, 0, len(review.Request.Objects))
	for _, obj := range review.Request.Objects {
		out, err := convertOne(obj.Raw, review.Request.DesiredAPIVersion)
		if err != nil {
			s.respondConvert(w, review.Request.UID, nil, metav1.StatusFailure, err.Error())
			return
		}
		converted = append(converted, runtime.RawExtension{Raw: out})
	}
	s.respondConvert(w, review.Request.UID, converted, metav1.StatusSuccess, "")
}

func convertOne(raw []byte, desiredAPIVersion string) ([]byte, error) {
	switch desiredAPIVersion {
	case "delivery.kulta.dev/v1beta1":
		var src v1alpha1.Rollout
		if err := json.Unmarshal(raw, &src); err != nil {
			return nil, goerrors.Wrap(err, "decode v1alpha1 rollout")
		}
		var dst v1beta1.Rollout
		if err := src.ConvertTo(&dst); err != nil {
			return nil, goerrors.Wrap(err, "convert to v1beta1")
		}
		dst.APIVersion = desiredAPIVersion
		dst.Kind = "Rollout"
		return json.Marshal(&dst)
	case "delivery.kulta.dev/v1alpha1":
		var src v1beta1.Rollout
		if err := json.Unmarshal(raw, &src); err != nil {
			return nil, goerrors.Wrap(err, "decode v1beta1 rollout")
		}
		var dst v1alpha1.Rollout
		if err := dst.ConvertFrom(&src); err != nil {
			return nil, goerrors.Wrap(err, "convert from v1beta1")
		}
		dst.APIVersion = desiredAPIVersion
		dst.Kind = "Rollout"
		return json.Marshal(&dst)
	default:
		return nil, goerrors.Newf("unsupported desired API version %q", desiredAPIVersion)
	}
}

func (s *Server) respondConvert(w http.ResponseWriter, uid types.UID, objects []runtime.RawExtension, status string, message string) {
	resp := apiextensionsv1.ConversionReview{
		TypeMeta: metav1.TypeMeta{APIVersion: "apiextensions.k8s.io/v1", Kind: "ConversionReview"},
		Response: &apiextensionsv1.ConversionResponse{
			UID:              uid,
			ConvertedObjects: objects,
			Result:           metav1.Status{Status: status, Message: message},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.Log.WithError(err).Error("failed to encode conversion response")
	}
}
