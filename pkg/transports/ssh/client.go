package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Client is a FileReader backed by a single SSH connection and SFTP session.
// It is safe for concurrent use; SFTP multiplexes requests over the session.
type Client struct {
	config *Config
	logger zerolog.Logger

	mu          sync.RWMutex
	client      *ssh.Client
	sftp        *sftp.Client
	connectedAt time.Time
}

// NewClient creates a client for the given configuration. The connection is
// not opened until Connect is called.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ssh config: %w", err)
	}

	return &Client{
		config: config,
		logger: logger.With().Str("component", "ssh").Str("address", config.Address()).Logger(),
	}, nil
}

// Connect implements FileReader.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	clientConfig, err := c.config.BuildSSHClientConfig()
	if err != nil {
		return &TransportError{Op: "connect", Err: err}
	}

	c.logger.Debug().Msg("establishing SSH connection")

	connChan := make(chan *ssh.Client, 1)
	errChan := make(chan error, 1)

	go func() {
		client, err := ssh.Dial("tcp", c.config.Address(), clientConfig)
		if err != nil {
			errChan <- err
			return
		}
		connChan <- client
	}()

	var client *ssh.Client
	select {
	case <-ctx.Done():
		// A dial that completes after cancellation must not leak.
		go func() {
			if late, ok := <-connChan; ok {
				late.Close()
			}
		}()
		return &TransportError{Op: "connect", Err: ctx.Err(), IsTemporary: true}
	case err := <-errChan:
		return &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: !isAuthFailure(err),
			IsAuthError: isAuthFailure(err),
		}
	case client = <-connChan:
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return &TransportError{Op: "sftp", Err: fmt.Errorf("failed to create SFTP client: %w", err)}
	}

	c.client = client
	c.sftp = sftpClient
	c.connectedAt = time.Now()

	c.logger.Info().Msg("SSH connection established")
	return nil
}

// ReadFile implements FileReader.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	c.mu.RLock()
	sftpClient := c.sftp
	c.mu.RUnlock()

	if sftpClient == nil {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("not connected")}
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := c.readFile(sftpClient, path)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &TransportError{Op: "read", Err: ctx.Err(), IsTemporary: true}
	case r := <-done:
		return r.data, r.err
	}
}

func (c *Client) readFile(sftpClient *sftp.Client, path string) ([]byte, error) {
	f, err := sftpClient.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
		}
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("failed to open %s: %w", path, err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("failed to stat %s: %w", path, err)}
	}
	if info.IsDir() {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("%s is a directory", path)}
	}
	if limit := c.config.MaxFileSize; limit > 0 && info.Size() > limit {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("%s exceeds %d bytes", path, limit)}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("failed to read %s: %w", path, err), IsTemporary: true}
	}

	c.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("read remote file")
	return data, nil
}

// Close implements FileReader.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.sftp != nil {
		if err := c.sftp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close SFTP client: %w", err))
		}
		c.sftp = nil
	}
	if c.client != nil {
		if err := c.client.Close(); err != nil && !errors.Is(err, io.EOF) {
			errs = append(errs, fmt.Errorf("failed to close SSH connection: %w", err))
		}
		c.client = nil
		c.logger.Debug().Dur("connected_for", time.Since(c.connectedAt)).Msg("SSH connection closed")
	}
	return errors.Join(errs...)
}

// isAuthFailure reports whether a dial error came from the handshake's
// authentication phase.
func isAuthFailure(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}
