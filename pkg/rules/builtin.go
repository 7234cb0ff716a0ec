package rules

import (
	"fmt"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// binder stamps the artifact binding and ID prefix onto rules.
type binder struct {
	artifact string
	kind     artifact.Kind
	prefix   string
}

func (b binder) rule(id, description string, check CheckFunc) Rule {
	return Rule{
		ID:          b.prefix + "." + id,
		Artifact:    b.artifact,
		Kind:        b.kind,
		Description: description,
		Check:       check,
	}
}

// Builtin returns the fixed conformance catalog. Rules are declared per
// artifact in layout order, which is also the report order.
func Builtin() (*Catalog, error) {
	schema, err := ComposeSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build compose schema: %w", err)
	}

	var all []Rule
	all = append(all, proxyRules()...)
	all = append(all, supervisorRules()...)
	all = append(all, devComposeRules(schema)...)
	all = append(all, prodComposeRules(schema)...)
	all = append(all, recipeRules()...)
	all = append(all, scriptRules()...)

	return NewCatalog(all...)
}
