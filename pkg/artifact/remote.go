package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/openfroyo/conformance/pkg/transports/ssh"
)

// RemoteSource reads artifacts from a project root on a remote host over
// SFTP. The reader must already be connected.
type RemoteSource struct {
	reader ssh.FileReader
	target ssh.Target
}

// NewRemoteSource creates a source that resolves descriptor paths relative to
// target.Path on the remote host.
func NewRemoteSource(reader ssh.FileReader, target ssh.Target) *RemoteSource {
	return &RemoteSource{reader: reader, target: target}
}

// Describe implements Source.
func (s *RemoteSource) Describe() string {
	return s.target.String()
}

// Read implements Source.
func (s *RemoteSource) Read(ctx context.Context, d Descriptor) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewCancelledError("read aborted", err).WithArtifact(d.Name)
	}

	remotePath := path.Join(s.target.Path, path.Clean("/"+d.Path))
	location := fmt.Sprintf("%s@%s:%s", s.target.User, s.target.Host, remotePath)

	data, err := s.reader.ReadFile(ctx, remotePath)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, NewMissingError(fmt.Sprintf("%s not found", location), nil).WithArtifact(d.Name)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, NewCancelledError(fmt.Sprintf("read of %s aborted", location), err).WithArtifact(d.Name)
		default:
			return nil, NewUnreadableError(fmt.Sprintf("failed to read %s", location), err).WithArtifact(d.Name)
		}
	}

	return New(d, location, data), nil
}
