// Command kulta-gen-crd emits the Rollout CustomResourceDefinition
// manifest to stdout, the same shape as the original implementation's
// gen-crd binary (original_source's src/bin/gen-crd.rs): a thin wrapper
// that serializes the CRD object, not a templating engine.
//
// The conversion webhook's clientConfig is populated from KULTA_SERVICE_NAME
// and KULTA_NAMESPACE (internal/config); its caBundle is left empty here,
// and nothing in this repository fills it in: internal/webhook.EnsureSecret
// stores the generated CA only under ca.crt in the webhook's TLS secret.
package main

import (
	"fmt"
	"os"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/config"
)

const (
	crdName        = "rollouts.delivery.kulta.dev"
	servedGroup    = "delivery.kulta.dev"
	conversionPath = "/convert"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	crd := buildCRD(cfg)

	out, err := yaml.Marshal(crd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal CRD manifest: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func buildCRD(cfg config.Config) *apiextensionsv1.CustomResourceDefinition {
	preserveUnknown := true
	path := conversionPath
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "kulta-webhook"
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "kulta-system"
	}
	servicePort := int32(443)

	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apiextensions.k8s.io/v1",
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: crdName,
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: servedGroup,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   "rollouts",
				Singular: "rollout",
				Kind:     "Rollout",
				ListKind: "RolloutList",
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Conversion: &apiextensionsv1.CustomResourceConversion{
				Strategy: apiextensionsv1.WebhookConverter,
				Webhook: &apiextensionsv1.WebhookConversion{
					ConversionReviewVersions: []string{"v1"},
					ClientConfig: &apiextensionsv1.WebhookClientConfig{
						Service: &apiextensionsv1.ServiceReference{
							Name:      serviceName,
							Namespace: namespace,
							Path:      &path,
							Port:      &servicePort,
						},
					},
				},
			},
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				version("v1alpha1", false, preserveUnknown),
				version("v1beta1", true, preserveUnknown),
			},
		},
	}
}

// version builds one CRD version entry. KULTA's schema is left
// structural-but-open (x-kubernetes-preserve-unknown-fields) rather than
// hand-enumerated field-by-field: v1beta1.RolloutSpec's tagged-variant
// strategy and nested analysis/advisor configs are validated by
// internal/validation and internal/webhook's admission webhook, not by
// the structural schema, so the schema only needs to assert the object
// shape the API server requires (a spec and a status subresource).
func version(name string, served, preserveUnknown bool) apiextensionsv1.CustomResourceDefinitionVersion {
	return apiextensionsv1.CustomResourceDefinitionVersion{
		Name:    name,
		Served:  served,
		Storage: name == string(v1beta1.GroupVersion.Version),
		Subresources: &apiextensionsv1.CustomResourceSubresources{
			Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
		},
		Schema: &apiextensionsv1.CustomResourceValidation{
			OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
				Type: "object",
				Properties: map[string]apiextensionsv1.JSONSchemaProps{
					"spec": {
						Type:                   "object",
						XPreserveUnknownFields: &preserveUnknown,
					},
					"status": {
						Type:                   "object",
						XPreserveUnknownFields: &preserveUnknown,
					},
				},
			},
		},
		AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
			{Name: "Phase", Type: "string", JSONPath: ".status.phase"},
			{Name: "Weight", Type: "integer", JSONPath: ".status.currentWeight"},
		},
	}
}
