// Package ssh provides a read-only SSH/SFTP transport used to snapshot
// deployment artifacts that live on a remote host.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FileReader reads whole files from a remote host.
type FileReader interface {
	// Connect establishes the SSH connection and opens the SFTP session.
	Connect(ctx context.Context) error

	// ReadFile returns the contents of a remote file. A missing file yields an
	// error that satisfies errors.Is(err, os.ErrNotExist).
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Close releases the SFTP session and the SSH connection.
	Close() error
}

// TransportError represents an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed (e.g., "connect", "read")
	Op string

	// Err is the underlying error
	Err error

	// IsTemporary indicates if the error is temporary and can be retried
	IsTemporary bool

	// IsAuthError indicates if the error is related to authentication
	IsAuthError bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return e.IsTemporary
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.IsAuthError
	}
	return false
}

// Target is a parsed remote project root of the form user@host[:port]:/path.
type Target struct {
	User string
	Host string
	Port int
	Path string
}

// ParseTarget parses "user@host:/path" or "user@host:port:/path". A zero
// Port means the caller's default applies.
func ParseTarget(s string) (Target, error) {
	at := strings.Index(s, "@")
	if at <= 0 {
		return Target{}, fmt.Errorf("remote target %q: missing user", s)
	}

	t := Target{User: s[:at]}
	rest := s[at+1:]

	colon := strings.Index(rest, ":")
	if colon <= 0 {
		return Target{}, fmt.Errorf("remote target %q: missing host", s)
	}
	t.Host = rest[:colon]
	rest = rest[colon+1:]

	if next := strings.Index(rest, ":"); next > 0 && isDigits(rest[:next]) {
		port, err := strconv.Atoi(rest[:next])
		if err != nil || port <= 0 || port > 65535 {
			return Target{}, fmt.Errorf("remote target %q: invalid port %q", s, rest[:next])
		}
		t.Port = port
		rest = rest[next+1:]
	}

	if rest == "" {
		return Target{}, fmt.Errorf("remote target %q: missing path", s)
	}
	t.Path = rest
	return t, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// String formats the target back to user@host[:port]:/path.
func (t Target) String() string {
	if t.Port != 0 {
		return fmt.Sprintf("%s@%s:%d:%s", t.User, t.Host, t.Port, t.Path)
	}
	return fmt.Sprintf("%s@%s:%s", t.User, t.Host, t.Path)
}
