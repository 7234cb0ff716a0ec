package artifact

import (
	"fmt"
	"sort"
)

// Logical artifact names. Rules refer to artifacts by these names.
const (
	NginxConf        = "nginx.conf"
	SupervisordConf  = "supervisord.conf"
	ComposeDev       = "docker-compose.yml"
	ComposeProd      = "docker-compose.prod.yml"
	Dockerfile       = "Dockerfile"
	EntrypointScript = "entrypoint.sh"
	DeployScript     = "deploy.sh"
	MultiUserScript  = "multi_user_manager.sh"
	RedeployScript   = "update_and_redeploy.sh"
	PublishAllScript = "publish_all.sh"
)

// Layout is the ordered set of artifact descriptors a run discovers.
type Layout struct {
	descriptors []Descriptor
}

// DefaultLayout returns the conventional project layout: every artifact at
// the project root under its logical name.
func DefaultLayout() *Layout {
	return &Layout{descriptors: []Descriptor{
		{Name: NginxConf, Kind: KindProxyConfig, Path: NginxConf},
		{Name: SupervisordConf, Kind: KindSupervisorConfig, Path: SupervisordConf},
		{Name: ComposeDev, Kind: KindManifest, Path: ComposeDev},
		{Name: ComposeProd, Kind: KindManifest, Path: ComposeProd},
		{Name: Dockerfile, Kind: KindRecipe, Path: Dockerfile},
		{Name: EntrypointScript, Kind: KindScript, Path: EntrypointScript},
		{Name: DeployScript, Kind: KindScript, Path: DeployScript},
		{Name: MultiUserScript, Kind: KindScript, Path: MultiUserScript},
		{Name: RedeployScript, Kind: KindScript, Path: RedeployScript},
		{Name: PublishAllScript, Kind: KindScript, Path: PublishAllScript},
	}}
}

// WithPaths returns a copy of the layout with the paths of the named
// artifacts replaced. Unknown names are rejected so a typo in configuration
// cannot silently leave an artifact at its default location.
func (l *Layout) WithPaths(overrides map[string]string) (*Layout, error) {
	out := &Layout{descriptors: make([]Descriptor, len(l.descriptors))}
	copy(out.descriptors, l.descriptors)

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx := out.index(name)
		if idx < 0 {
			return nil, fmt.Errorf("unknown artifact %q", name)
		}
		if overrides[name] == "" {
			return nil, fmt.Errorf("empty path for artifact %q", name)
		}
		out.descriptors[idx].Path = overrides[name]
	}
	return out, nil
}

// Descriptors returns the descriptors in discovery order.
func (l *Layout) Descriptors() []Descriptor {
	out := make([]Descriptor, len(l.descriptors))
	copy(out, l.descriptors)
	return out
}

// Lookup returns the descriptor for a logical name.
func (l *Layout) Lookup(name string) (Descriptor, bool) {
	idx := l.index(name)
	if idx < 0 {
		return Descriptor{}, false
	}
	return l.descriptors[idx], true
}

func (l *Layout) index(name string) int {
	for i, d := range l.descriptors {
		if d.Name == name {
			return i
		}
	}
	return -1
}
