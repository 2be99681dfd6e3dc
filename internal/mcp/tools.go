package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"al.essio.dev/pkg/shellescape"
	"github.com/acolita/remote-files-mcp/internal/config"
	"github.com/acolita/remote-files-mcp/internal/navigation"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"github.com/acolita/remote-files-mcp/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(remoteConnectTool(), s.handleRemoteConnect)
	s.mcpServer.AddTool(remoteDisconnectTool(), s.handleRemoteDisconnect)
	s.mcpServer.AddTool(remoteStatusTool(), s.handleRemoteStatus)
	s.mcpServer.AddTool(remoteExecTool(), s.handleRemoteExec)
	s.mcpServer.AddTool(remoteRecentTool(), s.handleRemoteRecent)

	s.registerNavigationTools()
	s.registerFileTools()
	s.registerRecycleTools()
	s.registerTransferTools()
	s.registerProfileTools()
}

// Tool definitions

func remoteConnectTool() mcp.Tool {
	return mcp.NewTool("remote_connect",
		mcp.WithDescription(`Connect to a remote host over SSH and open its file system.

Pass a saved profile name, or host/user/identity_file directly (explicit
arguments override the profile). Passwords are never passed as arguments:
they come from the environment variable named by password_env (or the
profile) or from the OS keyring.

If the identity file is encrypted and no passphrase is available the result
message is exactly PASSPHRASE_REQUIRED. When the server runs with a terminal
the user is prompted instead.`),
		mcp.WithString("profile",
			mcp.Description("Saved profile name (see remote_profile_list)"),
		),
		mcp.WithString("host",
			mcp.Description("SSH hostname or IP address"),
		),
		mcp.WithNumber("port",
			mcp.Description("SSH port (default: 22)"),
		),
		mcp.WithString("user",
			mcp.Description("SSH username"),
		),
		mcp.WithString("identity_file",
			mcp.Description("Path to a private key; takes precedence over password login"),
		),
		mcp.WithString("password_env",
			mcp.Description("Environment variable containing the SSH password"),
		),
		mcp.WithString("passphrase",
			mcp.Description("Passphrase for the identity file, when retrying after PASSPHRASE_REQUIRED"),
		),
	)
}

func remoteDisconnectTool() mcp.Tool {
	return mcp.NewTool("remote_disconnect",
		mcp.WithDescription("Close the remote connection"),
	)
}

func remoteStatusTool() mcp.Tool {
	return mcp.NewTool("remote_status",
		mcp.WithDescription("Show connection state, current directory, navigation history and listing view"),
	)
}

func remoteExecTool() mcp.Tool {
	return mcp.NewTool("remote_exec",
		mcp.WithDescription(`Run a shell command on the remote host and return its output.

The command runs on its own channel and does not change the current
directory. Commands are checked against the configured blocklist/allowlist.`),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The command to execute"),
		),
		mcp.WithBoolean("in_current_dir",
			mcp.Description("Run the command from the current directory (default: false)"),
		),
	)
}

func remoteRecentTool() mcp.Tool {
	return mcp.NewTool("remote_recent",
		mcp.WithDescription("List recently used connections, newest first"),
	)
}

// Tool handlers

type connectResponse struct {
	remoteerr.Result
	Phases  []string      `json:"phases,omitempty"`
	Session *session.Info `json:"session,omitempty"`
}

func (s *Server) handleRemoteConnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, profile, err := s.connectOptions(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limiter := s.limiter()
	if locked, remaining := limiter.IsLocked(opts.Host, opts.Username); locked {
		return jsonError(remoteerr.Fail(lockoutMessage(opts.Username, opts.Host, remaining)))
	}

	var mu sync.Mutex
	var phases []string
	unsubscribe := s.session.Subscribe(func(ev session.ProgressEvent) {
		mu.Lock()
		phases = append(phases, string(ev.Phase))
		mu.Unlock()
	})
	defer unsubscribe()

	s.logger.Info("connecting",
		slog.String("host", opts.Host),
		slog.Int("port", opts.Port),
		slog.String("user", opts.Username),
	)

	err = s.session.Connect(ctx, opts)
	if errors.Is(err, remoteerr.ErrPassphraseRequired) && opts.Passphrase == "" && s.dialogProvider != nil {
		passphrase, derr := s.dialogProvider.Passphrase(opts.IdentityFile)
		if derr != nil {
			s.logger.Info("passphrase prompt failed", slog.String("error", derr.Error()))
		} else if passphrase != "" {
			opts.Passphrase = passphrase
			if err = s.session.Connect(ctx, opts); err == nil {
				s.rememberPassphrase(opts.IdentityFile, passphrase)
			}
		}
	}

	switch {
	case err == nil:
		limiter.RecordSuccess(opts.Host, opts.Username)
	case errors.Is(err, remoteerr.ErrAuthenticationFailed):
		limiter.RecordFailure(opts.Host, opts.Username)
	}

	mu.Lock()
	resp := connectResponse{Phases: append([]string(nil), phases...)}
	mu.Unlock()

	if err != nil {
		resp.Result = remoteerr.ResultOf(err, "")
		return jsonError(resp)
	}

	if profile.StartPath != "" {
		if nav, nerr := s.navigator(); nerr == nil {
			if cerr := nav.ChangeDirectory(ctx, profile.StartPath); cerr != nil {
				s.logger.Warn("start path unavailable",
					slog.String("path", profile.StartPath),
					slog.String("error", cerr.Error()),
				)
			}
		}
	}

	info := s.session.Info()
	resp.Result = remoteerr.OK(fmt.Sprintf("Connected to %s as %s", opts.Host, opts.Username))
	resp.Session = &info
	return jsonResult(resp)
}

// connectOptions merges the named profile with explicit arguments and looks
// up credentials.
func (s *Server) connectOptions(req mcp.CallToolRequest) (session.ConnectOptions, config.Profile, error) {
	var profile config.Profile
	if name := mcp.ParseString(req, "profile", ""); name != "" {
		p, ok := s.currentConfig().Profile(name)
		if !ok {
			return session.ConnectOptions{}, profile, fmt.Errorf(errProfileNotFound, name)
		}
		profile = p
	}

	opts := session.ConnectOptions{
		Host:         mcp.ParseString(req, "host", profile.Host),
		Port:         mcp.ParseInt(req, "port", profile.Port),
		Username:     mcp.ParseString(req, "user", profile.User),
		IdentityFile: mcp.ParseString(req, "identity_file", profile.IdentityFile),
		Passphrase:   mcp.ParseString(req, "passphrase", ""),
	}
	if opts.Host == "" {
		return opts, profile, errors.New("host is required (or pass a profile)")
	}
	if opts.Username == "" {
		return opts, profile, errors.New("user is required")
	}

	passwordEnv := mcp.ParseString(req, "password_env", profile.PasswordEnv)
	opts.Password = s.lookupPassword(passwordEnv, opts.Host, opts.Username)
	if opts.IdentityFile != "" && opts.Passphrase == "" {
		opts.Passphrase = s.lookupPassphrase(profile.PassphraseEnv, opts.IdentityFile)
	}
	return opts, profile, nil
}

func (s *Server) keyringEnabled() bool {
	return s.credentials != nil && s.credentials.IsEnabled() && s.currentConfig().Security.UseKeyring
}

func (s *Server) lookupPassword(env, host, user string) string {
	if env != "" {
		if v := s.fs.Getenv(env); v != "" {
			return v
		}
	}
	if s.keyringEnabled() {
		v, err := s.credentials.Password(host, user)
		if err != nil {
			s.logger.Debug("keyring password lookup failed", slog.String("error", err.Error()))
		}
		return v
	}
	return ""
}

func (s *Server) lookupPassphrase(env, keyPath string) string {
	if env != "" {
		if v := s.fs.Getenv(env); v != "" {
			return v
		}
	}
	if s.keyringEnabled() {
		v, err := s.credentials.Passphrase(keyPath)
		if err != nil {
			s.logger.Debug("keyring passphrase lookup failed", slog.String("error", err.Error()))
		}
		return v
	}
	return ""
}

func (s *Server) rememberPassphrase(keyPath, passphrase string) {
	if !s.keyringEnabled() {
		return
	}
	if err := s.credentials.StorePassphrase(keyPath, passphrase); err != nil {
		s.logger.Warn("failed to store passphrase", slog.String("error", err.Error()))
	}
}

func (s *Server) handleRemoteDisconnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.session.IsConnected() {
		return mutationResult(nil, "Not connected")
	}
	return mutationResult(s.session.Disconnect(), "Disconnected")
}

type statusResponse struct {
	session.Info
	History []string              `json:"history,omitempty"`
	Cursor  int                   `json:"cursor"`
	View    *navigation.ViewState `json:"view,omitempty"`
}

func (s *Server) handleRemoteStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := statusResponse{Info: s.session.Info()}
	if nav, err := s.navigator(); err == nil {
		view := nav.View()
		status.History = nav.History()
		status.Cursor = nav.Cursor()
		status.View = &view
	}
	return jsonResult(status)
}

func (s *Server) handleRemoteExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := mcp.ParseString(req, "command", "")
	if command == "" {
		return mcp.NewToolResultError("command is required"), nil
	}
	if err := s.commandFilter.Check(command); err != nil {
		s.logger.Warn("command rejected", slog.String("error", err.Error()))
		return mcp.NewToolResultError(err.Error()), nil
	}

	if mcp.ParseBoolean(req, "in_current_dir", false) {
		command = "cd " + shellescape.Quote(s.session.CurrentPath()) + " && " + command
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.logger.Info("executing command", slog.String("command", command))
	result, err := s.session.ExecuteCommand(ctx, command)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRemoteRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recent := s.recent.List()
	if recent == nil {
		recent = []session.RecentConnection{}
	}
	return jsonResult(recent)
}

// jsonResult converts a value to a JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// jsonError is jsonResult flagged as a tool error.
func jsonError(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError(string(data)), nil
}

// mutationResult reports the outcome of a mutating call as a Result.
func mutationResult(err error, okMessage string) (*mcp.CallToolResult, error) {
	r := remoteerr.ResultOf(err, okMessage)
	if !r.Success {
		return jsonError(r)
	}
	return jsonResult(r)
}
