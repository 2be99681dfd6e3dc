// Package filestore performs file operations on the remote host of a
// session: listing, reading and writing, tree removal, copy, search, disk
// usage, a recycle bin and transfers to and from the local machine.
//
// A Store is attached to one connection of its session. Once that session
// disconnects or reconnects, every call on the Store fails with
// remoteerr.ErrNotConnected and a new Store must be created.
package filestore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/acolita/remote-files-mcp/internal/adapters/realclock"
	"github.com/acolita/remote-files-mcp/internal/adapters/realfs"
	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/session"
)

// DefaultRecycleDir is the recycle directory name under the remote home.
const DefaultRecycleDir = ".guios_recycle"

const (
	fileMode = 0644
	dirMode  = 0755
)

// Store runs file operations through an attached session.
type Store struct {
	sess       *session.Session
	generation uint64

	logger     *slog.Logger
	clock      ports.Clock
	local      ports.FileSystem
	recycleDir string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock sets the clock used to stamp recycled entries.
func WithClock(c ports.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithLocalFileSystem sets the local filesystem used by Upload and Download.
func WithLocalFileSystem(fs ports.FileSystem) Option {
	return func(s *Store) {
		s.local = fs
	}
}

// WithRecycleDir sets the recycle directory name.
func WithRecycleDir(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.recycleDir = name
		}
	}
}

// New attaches a Store to the current connection of sess.
func New(sess *session.Session, opts ...Option) *Store {
	s := &Store{
		sess:       sess,
		generation: sess.Generation(),
		logger:     slog.Default(),
		clock:      realclock.New(),
		local:      realfs.New(),
		recycleDir: DefaultRecycleDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attached reports whether the Store still belongs to a live connection.
func (s *Store) Attached() bool {
	return s.sess.IsConnected() && s.sess.Generation() == s.generation
}

// Session returns the session the Store is attached to.
func (s *Store) Session() *session.Session {
	return s.sess
}

// run executes fn on the attached connection and classifies its error.
func (s *Store) run(ctx context.Context, op, path string, fn func(ports.RemoteTransport) error) error {
	err := s.sess.DoAt(ctx, s.generation, fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return remoteerr.Classify(op, path, err)
}
