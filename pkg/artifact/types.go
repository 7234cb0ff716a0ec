// Package artifact defines the deployment artifacts under validation, their
// conventional locations, and the sources that read them.
package artifact

import "fmt"

// Kind identifies the format family of an artifact. Every rule is bound to
// exactly one kind and every kind has exactly one extractor.
type Kind string

const (
	// KindProxyConfig is a reverse-proxy configuration (nginx.conf).
	KindProxyConfig Kind = "proxy-config"

	// KindSupervisorConfig is a process-supervisor configuration (supervisord.conf).
	KindSupervisorConfig Kind = "supervisor-config"

	// KindManifest is a container-orchestration manifest (docker-compose.yml).
	KindManifest Kind = "orchestration-manifest"

	// KindRecipe is a container build recipe (Dockerfile).
	KindRecipe Kind = "build-recipe"

	// KindScript is an operator shell script.
	KindScript Kind = "script"
)

// Kinds returns all artifact kinds in declaration order.
func Kinds() []Kind {
	return []Kind{KindProxyConfig, KindSupervisorConfig, KindManifest, KindRecipe, KindScript}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Descriptor names a logical artifact and where it conventionally lives,
// relative to the project root.
type Descriptor struct {
	// Name is the logical artifact name rules are bound to (e.g. "nginx.conf").
	Name string `json:"name"`

	// Kind selects the extractor.
	Kind Kind `json:"kind"`

	// Path is the location relative to the project root.
	Path string `json:"path"`
}

// Artifact is an immutable snapshot of one artifact's text, taken once per run.
type Artifact struct {
	descriptor Descriptor
	location   string
	raw        string
}

// New creates an artifact snapshot. The text is copied and never modified.
func New(d Descriptor, location string, raw []byte) *Artifact {
	return &Artifact{
		descriptor: d,
		location:   location,
		raw:        string(raw),
	}
}

// Name returns the logical artifact name.
func (a *Artifact) Name() string { return a.descriptor.Name }

// Kind returns the artifact kind.
func (a *Artifact) Kind() Kind { return a.descriptor.Kind }

// Descriptor returns the descriptor the artifact was read from.
func (a *Artifact) Descriptor() Descriptor { return a.descriptor }

// Location returns where the snapshot was read from (file path or remote URI).
func (a *Artifact) Location() string { return a.location }

// Text returns the raw text.
func (a *Artifact) Text() string { return a.raw }

// String implements fmt.Stringer.
func (a *Artifact) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", a.descriptor.Name, a.descriptor.Kind, len(a.raw))
}
