package ports

import (
	"context"
	"io"
	"io/fs"
	"time"

	"golang.org/x/crypto/ssh"
)

// FilesystemStats is the subset of statvfs the file store needs.
type FilesystemStats struct {
	Blocks     uint64
	FreeBlocks uint64
	BlockSize  uint64
}

// RemoteTransport is the file-transfer sub-channel of a remote connection.
// Paths are absolute remote paths unless noted otherwise.
type RemoteTransport interface {
	ReadDir(path string) ([]fs.FileInfo, error)
	Stat(path string) (fs.FileInfo, error)

	// Open opens path for reading.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates path for writing.
	Create(path string) (io.WriteCloser, error)

	Remove(path string) error
	Mkdir(path string) error
	RemoveDirectory(path string) error
	Rename(oldPath, newPath string) error
	Chmod(path string, mode fs.FileMode) error
	Chown(path string, uid, gid int) error

	// RealPath asks the remote to canonicalize path. Relative paths resolve
	// against the transport's working directory.
	RealPath(path string) (string, error)

	// Getwd returns the transport's working directory.
	Getwd() (string, error)

	// Chdir sets the transport's working directory. It fails if path does
	// not name a directory.
	Chdir(path string) error

	StatVFS(path string) (FilesystemStats, error)
	Close() error
}

// CommandOutput holds the captured result of a remote command.
type CommandOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RemoteConnection is an authenticated connection to a remote host.
type RemoteConnection interface {
	// OpenFiles opens the file-transfer sub-channel.
	OpenFiles() (RemoteTransport, error)

	// Run executes command on its own channel and waits for it to finish.
	Run(ctx context.Context, command string) (CommandOutput, error)

	// Close closes the connection. Sub-channels must be closed first.
	Close() error
}

// ConnectConfig describes how to reach and authenticate to a host.
type ConnectConfig struct {
	Host            string
	Port            int
	User            string
	Auth            []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	Timeout         time.Duration
}

// TransportConnector establishes remote connections.
type TransportConnector interface {
	Connect(ctx context.Context, cfg ConnectConfig) (RemoteConnection, error)
}
