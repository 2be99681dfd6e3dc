// Package ssh provides SSH connectivity for remote file sessions: identity
// loading, authentication and command execution.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/acolita/remote-files-mcp/internal/adapters/realsshdialer"
	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/sftp"
	"golang.org/x/crypto/ssh"
)

const (
	defaultPort    = 22
	defaultTimeout = 30 * time.Second
)

// Connector dials SSH connections. It implements ports.TransportConnector.
type Connector struct {
	dialer ports.SSHDialer
	sftp   sftp.Options
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithDialer sets the dialer used to reach hosts.
func WithDialer(d ports.SSHDialer) ConnectorOption {
	return func(c *Connector) {
		c.dialer = d
	}
}

// WithSFTPOptions tunes the file-transfer sub-channel.
func WithSFTPOptions(opts sftp.Options) ConnectorOption {
	return func(c *Connector) {
		c.sftp = opts
	}
}

// NewConnector creates a Connector.
func NewConnector(opts ...ConnectorOption) *Connector {
	c := &Connector{dialer: realsshdialer.New()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes an authenticated connection.
func (c *Connector) Connect(ctx context.Context, cfg ports.ConnectConfig) (ports.RemoteConnection, error) {
	if cfg.Host == "" {
		return nil, remoteerr.New(remoteerr.ConnectionError, "connect", "", errors.New("host is required"))
	}
	if cfg.User == "" {
		return nil, remoteerr.New(remoteerr.ConnectionError, "connect", "", errors.New("user is required"))
	}
	if len(cfg.Auth) == 0 {
		return nil, remoteerr.New(remoteerr.NoAuthenticationMethod, "connect", "", nil)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HostKeyCallback == nil {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	config := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            cfg.Auth,
		HostKeyCallback: cfg.HostKeyCallback,
		Timeout:         cfg.Timeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := c.dialer.Dial(ctx, "tcp", addr, config)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}

	return &Client{conn: conn, sftp: c.sftp}, nil
}

// classifyDialError separates rejected credentials from other failures.
func classifyDialError(addr string, err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return remoteerr.New(remoteerr.AuthenticationFailed, "connect", addr, err)
	}
	return remoteerr.New(remoteerr.ConnectionError, "connect", addr, fmt.Errorf("ssh dial: %w", err))
}

// Client is an authenticated SSH connection.
type Client struct {
	conn *ssh.Client
	sftp sftp.Options
	mu   sync.Mutex
}

// OpenFiles opens the SFTP subsystem on the connection.
func (c *Client) OpenFiles() (ports.RemoteTransport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, remoteerr.New(remoteerr.NotConnected, "open sftp", "", nil)
	}
	return sftp.New(c.conn, c.sftp)
}

// Run executes command on a new session channel. A non-zero exit status is
// reported in the output, not as an error.
func (c *Client) Run(ctx context.Context, command string) (ports.CommandOutput, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ports.CommandOutput{}, remoteerr.New(remoteerr.NotConnected, "exec", "", nil)
	}

	session, err := conn.NewSession()
	if err != nil {
		return ports.CommandOutput{}, fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return ports.CommandOutput{}, ctx.Err()
	case err = <-done:
	}

	out := ports.CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitStatus()
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("run command: %w", err)
	}
	return out, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}

	return nil
}

var (
	_ ports.TransportConnector = (*Connector)(nil)
	_ ports.RemoteConnection   = (*Client)(nil)
)
