// Package realsshdialer provides a real implementation of the SSHDialer port.
package realsshdialer

import (
	"context"
	"net"
	"time"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"golang.org/x/crypto/ssh"
)

// Dialer implements ports.SSHDialer over a TCP connection.
type Dialer struct{}

// New creates a new Dialer.
func New() *Dialer {
	return &Dialer{}
}

// Dial connects to addr and performs the SSH handshake. The handshake is
// abandoned when ctx ends.
func (d *Dialer) Dial(ctx context.Context, network, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	nd := net.Dialer{Timeout: config.Timeout}
	conn, err := nd.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	type result struct {
		client *ssh.Client
		err    error
	}
	done := make(chan result, 1)
	go func() {
		if config.Timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(config.Timeout))
		}
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		if err != nil {
			done <- result{err: err}
			return
		}
		_ = conn.SetDeadline(time.Time{})
		done <- result{client: ssh.NewClient(c, chans, reqs)}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			conn.Close()
		}
		return r.client, r.err
	}
}

var _ ports.SSHDialer = (*Dialer)(nil)
