package rules

import (
	"fmt"

	"github.com/openfroyo/conformance/pkg/extract"
)

// Scope selects the region of a view that a scoped rule searches.
type Scope interface {
	// Bodies returns the texts in scope. found is false when the scope does
	// not exist in the view.
	Bodies(view extract.View) (bodies []string, found bool, err error)

	// String names the scope for failure reasons.
	String() string
}

type sectionScope string

// Section scopes a rule to the first section with the given header name.
// Later duplicates are never consulted.
func Section(name string) Scope { return sectionScope(name) }

func (s sectionScope) Bodies(view extract.View) ([]string, bool, error) {
	v, err := as[*extract.SectionView](view)
	if err != nil {
		return nil, false, err
	}
	sec, ok := v.Lookup(string(s))
	if !ok {
		return nil, false, nil
	}
	return []string{sec.Body}, true, nil
}

func (s sectionScope) String() string { return "section [" + string(s) + "]" }

type blockScope struct {
	keyword string
	arg     string
}

// Block scopes a rule to every block with the given keyword. The rule passes
// when any one of them satisfies it.
func Block(keyword string) Scope { return blockScope{keyword: keyword} }

// BlockWithArg scopes a rule to blocks with the given keyword and header
// argument, e.g. BlockWithArg("location", "/docs/").
func BlockWithArg(keyword, arg string) Scope { return blockScope{keyword: keyword, arg: arg} }

func (b blockScope) Bodies(view extract.View) ([]string, bool, error) {
	v, err := as[*extract.ProxyView](view)
	if err != nil {
		return nil, false, err
	}

	var blocks []extract.Block
	if b.arg != "" {
		blocks = v.FindWithArg(b.keyword, b.arg)
	} else {
		blocks = v.Find(b.keyword)
	}
	if len(blocks) == 0 {
		return nil, false, nil
	}

	bodies := make([]string, len(blocks))
	for i, blk := range blocks {
		bodies[i] = blk.Body
	}
	return bodies, true, nil
}

func (b blockScope) String() string {
	if b.arg != "" {
		return fmt.Sprintf("%s %s block", b.keyword, b.arg)
	}
	return b.keyword + " block"
}
