// Package sftp adapts github.com/pkg/sftp to the remote transport port.
package sftp

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sync"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// DefaultMaxPacket is the SFTP payload size used when Options.MaxPacket is 0.
const DefaultMaxPacket = 32768

// Options tunes the SFTP client.
type Options struct {
	MaxPacket       int
	ConcurrentReads bool
}

func (o Options) clientOptions() []sftp.ClientOption {
	size := o.MaxPacket
	if size <= 0 {
		size = DefaultMaxPacket
	}
	return []sftp.ClientOption{
		sftp.MaxPacketUnchecked(size),
		sftp.UseConcurrentReads(o.ConcurrentReads),
		sftp.UseConcurrentWrites(o.ConcurrentReads),
	}
}

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("sftp client is closed")

// Client implements ports.RemoteTransport over an SFTP session.
//
// SFTP has no server-side working directory, so Client keeps its own and
// resolves relative paths against it.
type Client struct {
	client *sftp.Client
	cwd    string
	mu     sync.Mutex
	closed bool
}

// New opens the SFTP subsystem on an SSH connection.
func New(conn *ssh.Client, opts Options) (*Client, error) {
	client, err := sftp.NewClient(conn, opts.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create sftp client: %w", err)
	}
	return Wrap(client), nil
}

// Wrap adapts an existing SFTP client.
func Wrap(client *sftp.Client) *Client {
	return &Client{client: client}
}

// acquire returns the underlying client and p resolved against the working
// directory.
func (c *Client) acquire(p string) (*sftp.Client, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, "", ErrClosed
	}
	if p != "" && !path.IsAbs(p) && c.cwd != "" {
		p = path.Join(c.cwd, p)
	}
	return c.client, p, nil
}

// ReadDir reads the contents of a directory.
func (c *Client) ReadDir(p string) ([]fs.FileInfo, error) {
	client, p, err := c.acquire(p)
	if err != nil {
		return nil, err
	}
	return client.ReadDir(p)
}

// Stat returns file information for the given path.
func (c *Client) Stat(p string) (fs.FileInfo, error) {
	client, p, err := c.acquire(p)
	if err != nil {
		return nil, err
	}
	return client.Stat(p)
}

// Open opens a file for reading.
func (c *Client) Open(p string) (io.ReadCloser, error) {
	client, p, err := c.acquire(p)
	if err != nil {
		return nil, err
	}
	f, err := client.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create creates or truncates a file for writing.
func (c *Client) Create(p string) (io.WriteCloser, error) {
	client, p, err := c.acquire(p)
	if err != nil {
		return nil, err
	}
	f, err := client.Create(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove removes a file.
func (c *Client) Remove(p string) error {
	client, p, err := c.acquire(p)
	if err != nil {
		return err
	}
	return client.Remove(p)
}

// Mkdir creates a directory.
func (c *Client) Mkdir(p string) error {
	client, p, err := c.acquire(p)
	if err != nil {
		return err
	}
	return client.Mkdir(p)
}

// RemoveDirectory removes an empty directory.
func (c *Client) RemoveDirectory(p string) error {
	client, p, err := c.acquire(p)
	if err != nil {
		return err
	}
	return client.RemoveDirectory(p)
}

// Rename renames a file or directory.
func (c *Client) Rename(oldPath, newPath string) error {
	client, oldPath, err := c.acquire(oldPath)
	if err != nil {
		return err
	}
	_, newPath, err = c.acquire(newPath)
	if err != nil {
		return err
	}
	return client.Rename(oldPath, newPath)
}

// Chmod changes the permissions of a file.
func (c *Client) Chmod(p string, mode fs.FileMode) error {
	client, p, err := c.acquire(p)
	if err != nil {
		return err
	}
	return client.Chmod(p, mode)
}

// Chown changes the owner and group of a file.
func (c *Client) Chown(p string, uid, gid int) error {
	client, p, err := c.acquire(p)
	if err != nil {
		return err
	}
	return client.Chown(p, uid, gid)
}

// RealPath asks the server to canonicalize p.
func (c *Client) RealPath(p string) (string, error) {
	client, p, err := c.acquire(p)
	if err != nil {
		return "", err
	}
	return client.RealPath(p)
}

// Getwd returns the working directory, which starts as the server's
// initial directory.
func (c *Client) Getwd() (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	cwd := c.cwd
	client := c.client
	c.mu.Unlock()

	if cwd != "" {
		return cwd, nil
	}
	return client.Getwd()
}

// Chdir sets the working directory after checking that p is a directory.
func (c *Client) Chdir(p string) error {
	client, p, err := c.acquire(p)
	if err != nil {
		return err
	}

	if !path.IsAbs(p) {
		if resolved, err := client.RealPath(p); err == nil {
			p = resolved
		}
	}

	info, err := client.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "chdir", Path: p, Err: errors.New("not a directory")}
	}

	c.mu.Lock()
	c.cwd = path.Clean(p)
	c.mu.Unlock()
	return nil
}

// StatVFS returns filesystem statistics for the filesystem holding p.
func (c *Client) StatVFS(p string) (ports.FilesystemStats, error) {
	client, p, err := c.acquire(p)
	if err != nil {
		return ports.FilesystemStats{}, err
	}

	st, err := client.StatVFS(p)
	if err != nil {
		return ports.FilesystemStats{}, err
	}

	blockSize := st.Frsize
	if blockSize == 0 {
		blockSize = st.Bsize
	}
	return ports.FilesystemStats{
		Blocks:     st.Blocks,
		FreeBlocks: st.Bfree,
		BlockSize:  blockSize,
	}, nil
}

// Close closes the SFTP session. Subsequent calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

var _ ports.RemoteTransport = (*Client)(nil)
