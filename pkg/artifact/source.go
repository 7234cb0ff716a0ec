package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

// Source resolves a descriptor to an artifact snapshot. Implementations read
// each artifact once; the returned Artifact is never refreshed.
type Source interface {
	// Read loads the artifact. Absent artifacts yield an error classified
	// as ErrorClassMissing; any other failure is ErrorClassUnreadable.
	Read(ctx context.Context, d Descriptor) (*Artifact, error)

	// Describe returns a human-readable description of the source root.
	Describe() string
}

// FSSource reads artifacts from an fs.FS.
type FSSource struct {
	fsys  fs.FS
	label string
}

// NewFSSource creates a source over fsys. The label is used in locations and
// log output only.
func NewFSSource(fsys fs.FS, label string) *FSSource {
	return &FSSource{fsys: fsys, label: label}
}

// NewDirSource creates a source rooted at a local project directory.
func NewDirSource(root string) *FSSource {
	return NewFSSource(os.DirFS(root), root)
}

// Describe implements Source.
func (s *FSSource) Describe() string {
	return s.label
}

// Read implements Source.
func (s *FSSource) Read(ctx context.Context, d Descriptor) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewCancelledError("read aborted", err).WithArtifact(d.Name)
	}

	name := path.Clean(d.Path)
	if !fs.ValidPath(name) {
		return nil, NewUnreadableError(fmt.Sprintf("invalid artifact path %q", d.Path), fs.ErrInvalid).WithArtifact(d.Name)
	}

	location := path.Join(s.label, name)

	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return nil, classifyReadError(d, location, err)
	}
	if info.IsDir() {
		return nil, NewUnreadableError(fmt.Sprintf("%s is a directory", location), nil).WithArtifact(d.Name)
	}

	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, classifyReadError(d, location, err)
	}

	return New(d, location, data), nil
}

// classifyReadError maps a read failure onto the error taxonomy.
func classifyReadError(d Descriptor, location string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return NewMissingError(fmt.Sprintf("%s not found", location), nil).WithArtifact(d.Name)
	}
	return NewUnreadableError(fmt.Sprintf("failed to read %s", location), err).WithArtifact(d.Name)
}
