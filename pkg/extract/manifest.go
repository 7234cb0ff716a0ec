package extract

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// ManifestView is the decoded tree of an orchestration manifest. The tree
// holds only JSON-compatible values: map[string]any, []any, string, bool,
// int, float64 and nil.
type ManifestView struct {
	base
	root map[string]any
}

// ExtractManifest decodes the first YAML document of the artifact. Any decode
// failure is returned as a malformed error; an empty document decodes to an
// empty mapping.
func ExtractManifest(a *artifact.Artifact) (*ManifestView, error) {
	var doc any
	dec := yaml.NewDecoder(strings.NewReader(a.Text()))
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, artifact.NewMalformedError(fmt.Sprintf("failed to decode %s", a.Location()), err).WithArtifact(a.Name())
	}

	if doc == nil {
		return &ManifestView{base: base{artifact: a}, root: map[string]any{}}, nil
	}

	root, ok := normalize(doc).(map[string]any)
	if !ok {
		return nil, artifact.NewMalformedError(
			fmt.Sprintf("failed to decode %s: top level is %s, expected a mapping", a.Location(), typeName(doc)), nil,
		).WithArtifact(a.Name())
	}

	return &ManifestView{base: base{artifact: a}, root: root}, nil
}

// Tree returns the decoded root mapping. Callers must not modify it.
func (v *ManifestView) Tree() map[string]any {
	return v.root
}

// Lookup resolves a dotted path such as "services.nginx.volumes". Sequence
// elements are addressed by index ("services.nginx.ports.0").
func (v *ManifestView) Lookup(path string) (any, bool) {
	if path == "" {
		return v.root, true
	}

	var node any = v.root
	for _, part := range strings.Split(path, ".") {
		switch n := node.(type) {
		case map[string]any:
			child, ok := n[part]
			if !ok {
				return nil, false
			}
			node = child
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil, false
			}
			node = n[idx]
		default:
			return nil, false
		}
	}
	return node, true
}

// Mapping resolves path and requires a mapping.
func (v *ManifestView) Mapping(path string) (map[string]any, bool) {
	node, ok := v.Lookup(path)
	if !ok {
		return nil, false
	}
	m, ok := node.(map[string]any)
	return m, ok
}

// Sequence resolves path and requires a sequence.
func (v *ManifestView) Sequence(path string) ([]any, bool) {
	node, ok := v.Lookup(path)
	if !ok {
		return nil, false
	}
	s, ok := node.([]any)
	return s, ok
}

// normalize converts a yaml.v3 decoded value into JSON-compatible types.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case int64:
		return int(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func typeName(v any) string {
	switch v.(type) {
	case []any:
		return "a sequence"
	case string:
		return "a string"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
