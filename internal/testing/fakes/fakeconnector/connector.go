// Package fakeconnector provides a fake ports.TransportConnector for testing.
package fakeconnector

import (
	"context"
	"sync"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/testing/fakes/faketransport"
)

// RunFunc handles commands sent to Connection.Run.
type RunFunc func(ctx context.Context, command string) (ports.CommandOutput, error)

// Connector hands out connections backed by a shared fake transport.
type Connector struct {
	mu sync.Mutex

	// Transport is returned by OpenFiles on every connection.
	Transport *faketransport.Transport
	// Err, if set, is returned by Connect.
	Err error
	// OpenErr, if set, is returned by OpenFiles.
	OpenErr error
	// Run handles remote commands. The default returns empty output.
	Run RunFunc

	calls  []ports.ConnectConfig
	events []string
}

// New creates a connector over transport.
func New(transport *faketransport.Transport) *Connector {
	c := &Connector{Transport: transport}
	transport.OnClose = func() { c.record("close files") }
	return c
}

func (c *Connector) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Connect records cfg and returns a connection unless Err is set.
func (c *Connector) Connect(ctx context.Context, cfg ports.ConnectConfig) (ports.RemoteConnection, error) {
	c.mu.Lock()
	c.calls = append(c.calls, cfg)
	err := c.Err
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	c.record("connect")
	return &Connection{c: c}, nil
}

// Calls returns every ConnectConfig passed to Connect.
func (c *Connector) Calls() []ports.ConnectConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.ConnectConfig(nil), c.calls...)
}

// Events returns the recorded lifecycle events in order.
func (c *Connector) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// Connection is a fake ports.RemoteConnection.
type Connection struct {
	c *Connector
}

// OpenFiles returns the connector's transport.
func (conn *Connection) OpenFiles() (ports.RemoteTransport, error) {
	if conn.c.OpenErr != nil {
		return nil, conn.c.OpenErr
	}
	conn.c.record("open files")
	conn.c.Transport.Reopen()
	return conn.c.Transport, nil
}

// Run delegates to the connector's RunFunc.
func (conn *Connection) Run(ctx context.Context, command string) (ports.CommandOutput, error) {
	conn.c.record("run " + command)
	if conn.c.Run == nil {
		return ports.CommandOutput{}, nil
	}
	return conn.c.Run(ctx, command)
}

// Close records the close.
func (conn *Connection) Close() error {
	conn.c.record("close connection")
	return nil
}

var (
	_ ports.TransportConnector = (*Connector)(nil)
	_ ports.RemoteConnection   = (*Connection)(nil)
)
