package rules

import (
	"context"
	"fmt"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

// CheckFunc evaluates a rule against the structural view of its artifact.
// Implementations must be pure with respect to the view.
type CheckFunc func(ctx context.Context, view extract.View) Verdict

// Rule is a single named predicate bound to one logical artifact.
type Rule struct {
	// ID is unique within a catalog (e.g. "proxy.server-block").
	ID string `json:"id"`

	// Artifact is the logical artifact name the rule is bound to.
	Artifact string `json:"artifact"`

	// Kind is the artifact kind, which determines the view type.
	Kind artifact.Kind `json:"kind"`

	// Description states the expected condition.
	Description string `json:"description"`

	// Check evaluates the rule.
	Check CheckFunc `json:"-"`
}

// Catalog is an ordered, immutable collection of rules.
type Catalog struct {
	rules []Rule
	index map[string]int
}

// NewCatalog builds a catalog in declaration order. It fails on duplicate or
// empty IDs, unknown kinds and missing checks.
func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}

	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule with empty id bound to %s", r.Artifact)
		}
		if _, exists := c.index[r.ID]; exists {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		if !r.Kind.Valid() {
			return nil, fmt.Errorf("rule %s: unknown kind %q", r.ID, r.Kind)
		}
		if r.Artifact == "" {
			return nil, fmt.Errorf("rule %s: no artifact", r.ID)
		}
		if r.Check == nil {
			return nil, fmt.Errorf("rule %s: no check", r.ID)
		}

		c.index[r.ID] = len(c.rules)
		c.rules = append(c.rules, r)
	}

	return c, nil
}

// Len returns the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns the rules in declaration order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Lookup returns the rule with the given ID.
func (c *Catalog) Lookup(id string) (Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Positions returns the catalog positions of the rules bound to the named
// artifact, in declaration order.
func (c *Catalog) Positions(artifactName string) []int {
	var out []int
	for i, r := range c.rules {
		if r.Artifact == artifactName {
			out = append(out, i)
		}
	}
	return out
}

// Artifacts returns the artifact names referenced by the catalog, in order of
// first reference.
func (c *Catalog) Artifacts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.rules {
		if !seen[r.Artifact] {
			seen[r.Artifact] = true
			out = append(out, r.Artifact)
		}
	}
	return out
}
