package webhook

import (
	"encoding/json"

	goerrors "github.com/go-faster/errors"
	"github.com/getkin/kin-openapi/openapi3"
)

// SchemaValidator checks a raw Rollout JSON body against the CRD's
// OpenAPI v3 schema before it is ever unmarshalled into a Go struct, so a
// field of the wrong type is rejected with a schema-level message rather
// than a generic JSON decode error.
type SchemaValidator struct {
	schema *openapi3.Schema
}

// NewSchemaValidator builds a validator from a CRD's
// `spec.versions[].schema.openAPIV3Schema` document, already decoded into
// an *openapi3.Schema. cmd/kulta-controller builds its webhook server
// without one, so /validate skips the schema check there.
func NewSchemaValidator(schema *openapi3.Schema) *SchemaValidator {
	return &SchemaValidator{schema: schema}
}

// ValidateRollout validates raw's "spec" object against the schema's spec
// property; status and metadata are server-managed and not worth
// validating on admission.
func (v *SchemaValidator) ValidateRollout(raw []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return goerrors.Wrap(err, "decode rollout for schema validation")
	}
	spec, ok := doc["spec"]
	if !ok {
		return goerrors.New("rollout has no spec")
	}
	specSchema, ok := v.schema.Properties["spec"]
	if !ok {
		return goerrors.New("schema has no spec property")
	}
	if err := specSchema.Value.VisitJSON(spec, openapi3.MultiErrors()); err != nil {
		return goerrors.Wrap(err, "spec does not match schema")
	}
	return nil
}
