package rules

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

// composeSchema constrains the shape of compose manifests. It is open so that
// keys the rules do not care about are accepted.
const composeSchema = `
#Port: string | int | {
	target!:    int
	published?: string | int
	...
}

#Service: {
	image?:          string
	build?:          string | {...}
	container_name?: string
	command?:        string | [...string]
	entrypoint?:     string | [...string]
	ports?:          [...#Port]
	expose?:         [...#Port]
	volumes?:        [...(string | {...})]
	environment?:    [...string] | {[string]: string | number | bool | null}
	env_file?:       string | [...string]
	networks?:       [...string] | {...}
	depends_on?:     [...string] | {...}
	restart?:        =~"^(no|always|unless-stopped|on-failure(:[0-9]+)?)$"
	privileged?:     bool
	network_mode?:   string
	...
}

#Compose: {
	version?: string | number
	services!: [string]: #Service
	networks?: {...}
	volumes?:  {...}
	...
}
`

// SchemaValidator validates decoded manifests against a CUE definition.
type SchemaValidator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewSchemaValidator compiles src and selects the definition named by def,
// e.g. "#Compose".
func NewSchemaValidator(src, def string) (*SchemaValidator, error) {
	ctx := cuecontext.New()

	val := ctx.CompileString(src)
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	schema := val.LookupPath(cue.ParsePath(def))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("failed to find definition %s: %w", def, err)
	}

	return &SchemaValidator{ctx: ctx, schema: schema}, nil
}

// Validate returns the schema violations found in tree. A nil slice means
// the tree conforms.
func (s *SchemaValidator) Validate(tree map[string]any) ([]string, error) {
	// cue.Context is not safe for concurrent use.
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.ctx.Encode(tree)
	if err := data.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	err := s.schema.Unify(data).Validate(cue.Concrete(true))
	if err == nil {
		return nil, nil
	}

	var violations []string
	for _, e := range cueerrors.Errors(err) {
		violations = append(violations, e.Error())
	}
	return violations, nil
}

// Check returns a rule check over manifest views.
func (s *SchemaValidator) Check() CheckFunc {
	return Predicate(func(v *extract.ManifestView) Verdict {
		violations, err := s.Validate(v.Tree())
		if err != nil {
			return ErrorFrom(artifact.NewToolError("schema validation failed", err))
		}
		if len(violations) > 0 {
			return Fail("%s", strings.Join(violations, "; "))
		}
		return Pass()
	})
}

// ComposeSchema returns a validator for compose manifests.
func ComposeSchema() (*SchemaValidator, error) {
	return NewSchemaValidator(composeSchema, "#Compose")
}
