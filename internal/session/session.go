// Package session owns the single authenticated connection to a remote host
// and its working-directory cursor.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/acolita/remote-files-mcp/internal/adapters/realclock"
	"github.com/acolita/remote-files-mcp/internal/adapters/realfs"
	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
	"github.com/acolita/remote-files-mcp/internal/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// State represents the connection state.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateConnecting     State = "connecting"
	StateAuthenticating State = "authenticating"
	StateConnected      State = "connected"
)

// Session represents one remote session.
type Session struct {
	// connectMu serializes Connect and Disconnect. mu guards the fields below
	// and is never held across network calls.
	connectMu sync.Mutex
	mu        sync.Mutex

	state       State
	cwd         string
	home        string
	host        string
	port        int
	user        string
	fingerprint string
	connectedAt time.Time
	generation  uint64
	conn        ports.RemoteConnection
	files       ports.RemoteTransport

	connector       ports.TransportConnector
	fs              ports.FileSystem
	clock           ports.Clock
	logger          *slog.Logger
	strategies      []ssh.KeyStrategy
	hostKeyCallback gossh.HostKeyCallback
	connectTimeout  time.Duration
	recent          *RecentStore

	observers observers
}

// Option configures a Session.
type Option func(*Session)

// WithConnector sets the transport connector.
func WithConnector(c ports.TransportConnector) Option {
	return func(s *Session) {
		s.connector = c
	}
}

// WithFileSystem sets the local filesystem used to read identity files.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(s *Session) {
		s.fs = fs
	}
}

// WithClock sets the clock used for event timestamps.
func WithClock(c ports.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithKeyStrategies replaces the private key loading chain.
func WithKeyStrategies(strategies []ssh.KeyStrategy) Option {
	return func(s *Session) {
		s.strategies = strategies
	}
}

// WithHostKeyCallback sets host key verification.
func WithHostKeyCallback(cb gossh.HostKeyCallback) Option {
	return func(s *Session) {
		s.hostKeyCallback = cb
	}
}

// WithConnectTimeout bounds the TCP dial and SSH handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.connectTimeout = d
	}
}

// WithRecentStore records successful connections in store.
func WithRecentStore(store *RecentStore) Option {
	return func(s *Session) {
		s.recent = store
	}
}

// New creates a disconnected session.
func New(opts ...Option) *Session {
	s := &Session{
		state:      StateDisconnected,
		cwd:        remotepath.Root,
		home:       remotepath.Root,
		fs:         realfs.New(),
		clock:      realclock.New(),
		logger:     slog.Default(),
		strategies: ssh.DefaultKeyStrategies(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.connector == nil {
		s.connector = ssh.NewConnector()
	}
	return s
}

// State returns the connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the session is connected.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// CurrentPath returns the canonical working directory. It is "/" while
// disconnected.
func (s *Session) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// HomePath returns the directory the remote reported when the connection
// was opened.
func (s *Session) HomePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.home
}

// Generation identifies the current connection. It changes on every
// successful connect and every disconnect, so holders of an old value can
// tell that the connection they attached to is gone.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Info is a snapshot of the session for status displays.
type Info struct {
	State       State     `json:"state"`
	Host        string    `json:"host,omitempty"`
	Port        int       `json:"port,omitempty"`
	User        string    `json:"user,omitempty"`
	CurrentPath string    `json:"current_path"`
	HomePath    string    `json:"home_path,omitempty"`
	Fingerprint string    `json:"key_fingerprint,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{State: s.state, CurrentPath: s.cwd}
	if s.state == StateConnected {
		info.Host = s.host
		info.Port = s.port
		info.User = s.user
		info.HomePath = s.home
		info.Fingerprint = s.fingerprint
		info.ConnectedAt = s.connectedAt
	}
	return info
}

// Disconnect closes the file channel and then the connection. Calling it on
// a disconnected session does nothing.
func (s *Session) Disconnect() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	return s.release()
}

// release tears down the current connection. The caller holds connectMu.
func (s *Session) release() error {
	s.mu.Lock()
	if s.conn == nil && s.files == nil {
		s.mu.Unlock()
		return nil
	}

	files, conn := s.files, s.conn
	host, lastPath := s.host, s.cwd
	s.files, s.conn = nil, nil
	s.state = StateDisconnected
	s.cwd = remotepath.Root
	s.home = remotepath.Root
	s.fingerprint = ""
	s.generation++
	s.mu.Unlock()

	var errs []error
	if files != nil {
		if err := files.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if s.recent != nil {
		s.recent.UpdatePath(host, lastPath)
	}

	s.logger.Info("disconnected", slog.String("host", host))
	s.observers.notifyState(StateDisconnected)

	return errors.Join(errs...)
}

// transport returns the file channel and the generation it belongs to.
func (s *Session) transport() (ports.RemoteTransport, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected || s.files == nil {
		return nil, s.generation, remoteerr.ErrNotConnected
	}
	return s.files, s.generation, nil
}

// Do runs fn against the file channel of the current connection.
func (s *Session) Do(ctx context.Context, fn func(ports.RemoteTransport) error) error {
	files, _, err := s.transport()
	if err != nil {
		return err
	}
	return do(ctx, func() error { return fn(files) })
}

// DoAt is like Do but fails with NotConnected unless the session is still
// on the given generation.
func (s *Session) DoAt(ctx context.Context, generation uint64, fn func(ports.RemoteTransport) error) error {
	files, gen, err := s.transport()
	if err != nil {
		return err
	}
	if gen != generation {
		return remoteerr.ErrNotConnected
	}
	return do(ctx, func() error { return fn(files) })
}

// do runs fn and returns early with ctx.Err() if ctx ends first. fn keeps
// running in the background; transport calls cannot be interrupted.
func do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// ChangeDirectory sets the working directory. If the remote rejects the
// normalized path, the remote's canonical form of it is tried once. On
// failure the working directory is unchanged.
func (s *Session) ChangeDirectory(ctx context.Context, p string) error {
	target := remotepath.Normalize(p)

	files, gen, err := s.transport()
	if err != nil {
		return err
	}

	err = do(ctx, func() error { return files.Chdir(target) })
	if err != nil && ctx.Err() == nil {
		var resolved string
		rerr := do(ctx, func() error {
			var err error
			resolved, err = files.RealPath(target)
			return err
		})
		if rerr == nil {
			resolved = remotepath.Normalize(resolved)
			if retry := do(ctx, func() error { return files.Chdir(resolved) }); retry == nil {
				target, err = resolved, nil
			}
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Debug("chdir failed", slog.String("path", target), slog.String("error", err.Error()))
		return remoteerr.Classify("chdir", target, err)
	}

	s.mu.Lock()
	if s.generation == gen {
		s.cwd = target
	}
	s.mu.Unlock()
	return nil
}
