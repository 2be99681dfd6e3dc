package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/remotepath"
	"github.com/acolita/remote-files-mcp/internal/ssh"
	gossh "golang.org/x/crypto/ssh"
)

const defaultPort = 22

// ConnectOptions identifies the host and the credentials to use.
// IdentityFile takes precedence over Password.
type ConnectOptions struct {
	Host         string
	Port         int
	Username     string
	Password     string
	IdentityFile string
	Passphrase   string
}

// ConnectResult is Connect with the outcome reported as a Result.
func (s *Session) ConnectResult(ctx context.Context, opts ConnectOptions) remoteerr.Result {
	err := s.Connect(ctx, opts)
	return remoteerr.ResultOf(err, fmt.Sprintf("Connected to %s as %s", opts.Host, opts.Username))
}

// Connect authenticates to the host and opens the file channel. An existing
// connection is released first. An encrypted identity file without a
// passphrase fails with remoteerr.ErrPassphraseRequired; the caller may
// retry with the same options plus Passphrase.
func (s *Session) Connect(ctx context.Context, opts ConnectOptions) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if err := s.release(); err != nil {
		s.logger.Warn("error closing previous connection", slog.String("error", err.Error()))
	}
	if opts.Port == 0 {
		opts.Port = defaultPort
	}

	s.emit(PhaseSearchingHost, opts.Host, "")
	s.setState(StateConnecting)
	s.emit(PhaseConnecting, fmt.Sprintf("%s:%d", opts.Host, opts.Port), "")
	s.setState(StateAuthenticating)
	s.emit(PhaseAuthenticating, "", "")
	s.emit(PhaseUsingUsername, opts.Username, "")

	auth, fingerprint, err := s.authenticate(opts)
	if err != nil {
		return s.fail(opts, err)
	}

	conn, err := s.connector.Connect(ctx, ports.ConnectConfig{
		Host:            opts.Host,
		Port:            opts.Port,
		User:            opts.Username,
		Auth:            auth,
		HostKeyCallback: s.hostKeyCallback,
		Timeout:         s.connectTimeout,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.fail(opts, ctxErr)
		}
		return s.fail(opts, classifyConnectError(err))
	}

	files, err := conn.OpenFiles()
	if err != nil {
		conn.Close()
		return s.fail(opts, remoteerr.New(remoteerr.ConnectionError, "open sftp", "", err))
	}

	cwd := remotepath.Root
	if wd, err := files.Getwd(); err == nil && wd != "" {
		cwd = remotepath.Normalize(wd)
	}

	s.mu.Lock()
	s.conn = conn
	s.files = files
	s.state = StateConnected
	s.cwd = cwd
	s.home = cwd
	s.host = opts.Host
	s.port = opts.Port
	s.user = opts.Username
	s.fingerprint = fingerprint
	s.connectedAt = s.clock.Now()
	s.generation++
	s.mu.Unlock()

	if s.recent != nil {
		s.recent.Record(RecentConnection{
			Host:         opts.Host,
			Port:         opts.Port,
			User:         opts.Username,
			IdentityFile: opts.IdentityFile,
			LastPath:     cwd,
			ConnectedAt:  s.clock.Now(),
		})
	}

	s.logger.Info("connected",
		slog.String("host", opts.Host),
		slog.Int("port", opts.Port),
		slog.String("user", opts.Username),
		slog.String("cwd", cwd),
	)
	s.observers.notifyState(StateConnected)
	s.emit(PhaseSuccess, "", "")
	return nil
}

// authenticate builds auth methods from the identity file or the password.
// It returns the key fingerprint when key auth is used.
func (s *Session) authenticate(opts ConnectOptions) ([]gossh.AuthMethod, string, error) {
	if opts.IdentityFile != "" {
		s.emit(PhaseLoadingKeys, opts.IdentityFile, "")

		id, err := ssh.LoadIdentity(s.fs, opts.IdentityFile, opts.Passphrase, s.strategies)
		switch {
		case err == nil:
			s.emit(PhaseAuthPublicKey, id.Type, id.Fingerprint)
			methods, err := ssh.BuildAuthMethods(ssh.AuthConfig{Signer: id.Signer})
			return methods, id.Fingerprint, err
		case errors.Is(err, fs.ErrNotExist) && opts.Password != "":
			s.logger.Warn("identity file not found, using password",
				slog.String("identity_file", opts.IdentityFile))
		default:
			return nil, "", err
		}
	}

	if opts.Password != "" {
		s.emit(PhaseAuthPassword, "", "")
	}
	methods, err := ssh.BuildAuthMethods(ssh.AuthConfig{Password: opts.Password})
	return methods, "", err
}

// classifyConnectError keeps classified errors and maps the rest to
// ConnectionError.
func classifyConnectError(err error) error {
	var e *remoteerr.Error
	if errors.As(err, &e) {
		return err
	}
	return remoteerr.New(remoteerr.ConnectionError, "connect", "", err)
}

func (s *Session) fail(opts ConnectOptions, err error) error {
	s.setState(StateDisconnected)
	s.logger.Warn("connect failed",
		slog.String("host", opts.Host),
		slog.String("user", opts.Username),
		slog.String("error", err.Error()),
	)
	s.emit(PhaseFailed, err.Error(), "")
	return err
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed {
		s.observers.notifyState(state)
	}
}
