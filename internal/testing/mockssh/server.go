// Package mockssh provides an in-process SSH server for tests. It accepts
// password or public key logins, runs exec requests through a local shell and
// serves the sftp subsystem from an in-memory filesystem.
package mockssh

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Server is a mock SSH server for testing.
type Server struct {
	listener net.Listener
	config   *ssh.ServerConfig
	addr     string
	shell    string
	logger   *slog.Logger

	mu         sync.RWMutex
	users      map[string]string        // username -> password
	keys       map[string]ssh.PublicKey // username -> authorized key
	handlers   sftp.Handlers
	commands   []string
	sftpOpened int

	done    chan struct{}
	wg      sync.WaitGroup
	open    map[io.Closer]struct{} // live connections and channels
	closeMu sync.Mutex
}

// Option configures the mock SSH server.
type Option func(*Server)

// WithShell sets the shell used for exec requests.
func WithShell(shell string) Option {
	return func(s *Server) {
		s.shell = shell
	}
}

// WithUser adds a user/password pair for authentication.
func WithUser(username, password string) Option {
	return func(s *Server) {
		s.users[username] = password
	}
}

// WithAuthorizedKey allows username to log in with key.
func WithAuthorizedKey(username string, key ssh.PublicKey) Option {
	return func(s *Server) {
		s.keys[username] = key
	}
}

// WithHandlers serves the sftp subsystem from h instead of a fresh
// in-memory filesystem.
func WithHandlers(h sftp.Handlers) Option {
	return func(s *Server) {
		s.handlers = h
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New starts a server on a random loopback port.
func New(opts ...Option) (*Server, error) {
	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	s := &Server{
		shell:    "/bin/sh",
		logger:   slog.Default(),
		users:    map[string]string{"test": "test"},
		keys:     map[string]ssh.PublicKey{},
		handlers: sftp.InMemHandler(),
		done:     make(chan struct{}),
		open:     map[io.Closer]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			s.mu.RLock()
			expected, ok := s.users[c.User()]
			s.mu.RUnlock()

			if ok && string(password) == expected {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			s.mu.RLock()
			authorized, ok := s.keys[c.User()]
			s.mu.RUnlock()

			if ok && bytes.Equal(authorized.Marshal(), key.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("key rejected for %q", c.User())
		},
	}
	config.AddHostKey(signer)
	s.config = config

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Debug("mock SSH server started", slog.String("addr", s.addr))
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.addr
}

// Host returns the host part of the address.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.addr)
	return host
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.addr)
	n, _ := strconv.Atoi(port)
	return n
}

// Commands returns the exec requests received so far.
func (s *Server) Commands() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.commands...)
}

// SFTPSessions returns how many sftp subsystems were started.
func (s *Server) SFTPSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sftpOpened
}

// Close shuts down the server and drops every open connection.
func (s *Server) Close() error {
	close(s.done)
	err := s.listener.Close()

	s.closeMu.Lock()
	for c := range s.open {
		c.Close()
	}
	s.closeMu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Debug("accept error", slog.String("error", err.Error()))
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(netConn net.Conn) {
	defer s.wg.Done()
	defer s.track(netConn)()

	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, s.config)
	if err != nil {
		s.logger.Debug("SSH handshake failed", slog.String("error", err.Error()))
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			s.logger.Debug("channel accept failed", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go s.handleChannel(channel, requests)
	}
}

// track registers c for Close and returns the func that releases it.
func (s *Server) track(c io.Closer) func() {
	s.closeMu.Lock()
	s.open[c] = struct{}{}
	s.closeMu.Unlock()

	return func() {
		s.closeMu.Lock()
		delete(s.open, c)
		s.closeMu.Unlock()
		c.Close()
	}
}

func (s *Server) handleChannel(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer s.wg.Done()
	defer s.track(channel)()

	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			go ssh.DiscardRequests(requests)
			s.runCommand(channel, payload.Command)
			return

		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			go ssh.DiscardRequests(requests)
			s.serveSFTP(channel)
			return

		case "env":
			req.Reply(true, nil)

		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) runCommand(channel ssh.Channel, command string) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()

	cmd := exec.Command(s.shell, "-c", command)
	cmd.Stdout = channel
	cmd.Stderr = channel.Stderr()

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			fmt.Fprintf(channel.Stderr(), "%v\n", err)
			exitCode = 127
		}
	}
	sendExitStatus(channel, exitCode)
}

func (s *Server) serveSFTP(channel ssh.Channel) {
	s.mu.Lock()
	s.sftpOpened++
	handlers := s.handlers
	s.mu.Unlock()

	server := sftp.NewRequestServer(channel, handlers)
	if err := server.Serve(); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Debug("sftp server stopped", slog.String("error", err.Error()))
	}
	server.Close()
}

func sendExitStatus(channel ssh.Channel, code int) {
	channel.CloseWrite()
	channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(code)}))
}
