// Package mcp exposes the remote file session as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/acolita/remote-files-mcp/internal/adapters/realclock"
	"github.com/acolita/remote-files-mcp/internal/adapters/realfs"
	"github.com/acolita/remote-files-mcp/internal/config"
	"github.com/acolita/remote-files-mcp/internal/filestore"
	"github.com/acolita/remote-files-mcp/internal/navigation"
	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/security"
	"github.com/acolita/remote-files-mcp/internal/session"
	"github.com/acolita/remote-files-mcp/internal/sftp"
	"github.com/acolita/remote-files-mcp/internal/ssh"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients.
const Version = "0.3.0"

// Server wraps the MCP server implementation.
type Server struct {
	mcpServer *server.MCPServer
	session   *session.Session
	recent    *session.RecentStore

	commandFilter   *security.CommandFilter
	authRateLimiter *security.AuthRateLimiter
	credentials     *security.CredentialStore
	dialogProvider  ports.DialogProvider

	fs         ports.FileSystem
	clock      ports.Clock
	logger     *slog.Logger
	configPath string

	mu     sync.Mutex
	config *config.Config
	nav    *navigation.Controller
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithFileSystem sets the local filesystem used for keys, transfers and the
// config file.
func WithFileSystem(fs ports.FileSystem) ServerOption {
	return func(s *Server) {
		s.fs = fs
	}
}

// WithClock sets the clock.
func WithClock(c ports.Clock) ServerOption {
	return func(s *Server) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithSession replaces the session built from the configuration.
func WithSession(sess *session.Session) ServerOption {
	return func(s *Server) {
		s.session = sess
	}
}

// WithRecentStore sets where recent connections are kept.
func WithRecentStore(store *session.RecentStore) ServerOption {
	return func(s *Server) {
		s.recent = store
	}
}

// WithCredentialStore sets the keyring-backed credential store.
func WithCredentialStore(cs *security.CredentialStore) ServerOption {
	return func(s *Server) {
		s.credentials = cs
	}
}

// WithDialogProvider enables terminal forms for profile entry and
// passphrase prompts.
func WithDialogProvider(dp ports.DialogProvider) ServerOption {
	return func(s *Server) {
		s.dialogProvider = dp
	}
}

// WithConfigPath sets the file profile changes are saved to.
func WithConfigPath(path string) ServerOption {
	return func(s *Server) {
		s.configPath = path
	}
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"remote-files-mcp",
			Version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		config: cfg,
		fs:     realfs.New(),
		clock:  realclock.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	commandFilter, err := security.NewCommandFilter(cfg.Security.CommandBlocklist, cfg.Security.CommandAllowlist)
	if err != nil {
		s.logger.Warn("failed to initialize command filter, using default blocklist",
			slog.String("error", err.Error()),
		)
		commandFilter, _ = security.NewCommandFilter(security.DefaultBlocklist(), nil)
	}
	s.commandFilter = commandFilter
	s.authRateLimiter = security.NewAuthRateLimiter(cfg.Security.MaxAuthFailures, cfg.Security.AuthLockoutDuration, s.clock)

	if s.credentials == nil && cfg.Security.UseKeyring {
		s.credentials = security.NewCredentialStore(s.logger)
	}
	if s.recent == nil {
		s.recent = session.NewRecentStore(
			session.WithStoreFileSystem(s.fs),
			session.WithStoreLogger(s.logger),
		)
	}
	if s.session == nil {
		s.session = s.newSession(cfg)
	}

	s.registerTools()
	return s
}

// newSession builds the production session: SSH connector, SFTP tuning and
// known_hosts verification from cfg.
func (s *Server) newSession(cfg *config.Config) *session.Session {
	opts := []session.Option{
		session.WithConnector(ssh.NewConnector(ssh.WithSFTPOptions(sftp.Options{
			MaxPacket:       cfg.Transport.MaxPacket,
			ConcurrentReads: cfg.Transport.ConcurrentReads,
		}))),
		session.WithFileSystem(s.fs),
		session.WithClock(s.clock),
		session.WithLogger(s.logger),
		session.WithConnectTimeout(cfg.Transport.ConnectTimeout),
		session.WithRecentStore(s.recent),
	}

	callback, err := ssh.BuildHostKeyCallback(s.fs, cfg.Transport.KnownHosts)
	if err != nil {
		s.logger.Warn("known_hosts unusable, host keys will not be verified",
			slog.String("error", err.Error()),
		)
		callback = ssh.InsecureHostKeyCallback()
	}
	opts = append(opts, session.WithHostKeyCallback(callback))

	return session.New(opts...)
}

// Run starts the MCP server on stdio transport.
func (s *Server) Run() error {
	s.logger.Info("starting MCP server on stdio transport")
	return server.ServeStdio(s.mcpServer)
}

// Close disconnects the session.
func (s *Server) Close() error {
	return s.session.Disconnect()
}

// Session returns the remote session behind the tools.
func (s *Server) Session() *session.Session {
	return s.session
}

// UpdateConfig applies a reloaded configuration. Profiles, the command
// filter, auth limits and the operation timeout take effect immediately;
// transport settings apply to the next server start.
func (s *Server) UpdateConfig(cfg *config.Config) {
	if err := s.commandFilter.Update(cfg.Security.CommandBlocklist, cfg.Security.CommandAllowlist); err != nil {
		s.logger.Warn("failed to update command filter, keeping previous",
			slog.String("error", err.Error()),
		)
	}

	limiter := security.NewAuthRateLimiter(cfg.Security.MaxAuthFailures, cfg.Security.AuthLockoutDuration, s.clock)

	s.mu.Lock()
	s.config = cfg
	s.authRateLimiter = limiter
	s.mu.Unlock()

	s.logger.Info("configuration reloaded", slog.Int("profiles", len(cfg.Profiles)))
}

func (s *Server) currentConfig() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

func (s *Server) limiter() *security.AuthRateLimiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authRateLimiter
}

// navigator returns the controller for the live connection, attaching a new
// store and controller after every reconnect. The view settings carry over.
func (s *Server) navigator() (*navigation.Controller, error) {
	if !s.session.IsConnected() {
		return nil, remoteerr.ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav != nil && s.nav.Store().Attached() {
		return s.nav, nil
	}

	store := filestore.New(s.session,
		filestore.WithLogger(s.logger),
		filestore.WithClock(s.clock),
		filestore.WithLocalFileSystem(s.fs),
		filestore.WithRecycleDir(s.config.Recycle.DirName),
	)
	nav := navigation.New(s.session, store, navigation.WithLogger(s.logger))
	if s.nav != nil {
		view := s.nav.View()
		nav.SetSort(view.Sort, view.Descending)
		if view.Glob {
			nav.SetGlobFilter(view.Filter)
		} else {
			nav.SetFilter(view.Filter)
		}
	}
	s.nav = nav
	return nav, nil
}

// withTimeout bounds a tool call by transport.operation_timeout.
func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.currentConfig().Transport.OperationTimeout
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// lockoutMessage describes an active auth lockout.
func lockoutMessage(user, host string, remaining time.Duration) string {
	return fmt.Sprintf("too many failed logins for %s@%s, retry in %s", user, host, remaining.Round(time.Second))
}
