package validation

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/false-systems/kulta/api/v1beta1"
)

// OPAPolicy is the Policy extension point backed by a Rego query, letting
// operators layer cluster-specific admission rules on top of the static
// rules in validation.go without forking them. A module that defines no
// data.kulta.deny rule allows every rollout.
type OPAPolicy struct {
	query rego.PreparedEvalQuery
}

// NewOPAPolicy prepares a Rego module for evaluation against a small input
// map built from a Rollout (namespace, name, replicas and strategy kind;
// no other spec field is included). The module must define `data.kulta.deny` as a
// set of violation strings; any non-empty set rejects the rollout.
func NewOPAPolicy(ctx context.Context, module string) (*OPAPolicy, error) {
	q, err := rego.New(
		rego.Query("data.kulta.deny"),
		rego.Module("kulta_policy.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy module: %w", err)
	}
	return &OPAPolicy{query: q}, nil
}

// Evaluate runs the prepared query against that input map built from r and
// rejects with the first reported violation, if any.
func (p *OPAPolicy) Evaluate(ctx context.Context, r *v1beta1.Rollout) error {
	input := map[string]any{
		"namespace": r.Namespace,
		"name":      r.Name,
		"replicas":  r.Spec.Replicas,
		"strategy":  string(r.Spec.Strategy.Kind()),
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("evaluate policy: %w", err)
	}
	for _, result := range rs {
		for _, expr := range result.Expressions {
			violations, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			if len(violations) > 0 {
				return fmt.Errorf("%v", violations[0])
			}
		}
	}
	return nil
}
