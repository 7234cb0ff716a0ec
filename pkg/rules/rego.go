package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

// NewRego compiles a Rego module exposing a "deny" set and returns a check
// that evaluates it against the decoded manifest tree. Every deny message
// becomes part of the failure reason.
func NewRego(name, module string) (CheckFunc, error) {
	parsed, err := ast.ParseModule(name, module)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy %s: %w", name, err)
	}

	pkg := strings.TrimPrefix(parsed.Package.Path.String(), "data.")

	query, err := rego.New(
		rego.Module(name, module),
		rego.Query(fmt.Sprintf("data.%s.deny", pkg)),
	).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare policy %s: %w", name, err)
	}

	return Predicate(func(v *extract.ManifestView) Verdict {
		return evalDeny(context.Background(), query, v.Tree())
	}), nil
}

// MustRego is like NewRego but panics on an invalid module. It is meant for
// the built-in policies below.
func MustRego(name, module string) CheckFunc {
	check, err := NewRego(name, module)
	if err != nil {
		panic(err)
	}
	return check
}

func evalDeny(ctx context.Context, query rego.PreparedEvalQuery, input map[string]any) Verdict {
	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return ErrorFrom(artifact.NewToolError("policy evaluation failed", err))
	}

	var messages []string
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		denySet, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, d := range denySet {
			messages = append(messages, fmt.Sprint(d))
		}
	}

	if len(messages) == 0 {
		return Pass()
	}
	sort.Strings(messages)
	return Fail("%s", strings.Join(messages, "; "))
}

const noPrivilegedPolicy = `package conform.compose.privileged

import rego.v1

deny contains msg if {
	some name, svc in input.services
	svc.privileged == true
	msg := sprintf("service %s runs privileged", [name])
}
`

const noHostNetworkPolicy = `package conform.compose.network

import rego.v1

deny contains msg if {
	some name, svc in input.services
	svc.network_mode == "host"
	msg := sprintf("service %s uses host networking", [name])
}
`
