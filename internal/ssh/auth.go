package ssh

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// AuthConfig holds authentication material for one connection attempt.
type AuthConfig struct {
	Signer   ssh.Signer // loaded identity; takes precedence over Password
	Password string
}

// BuildAuthMethods constructs SSH auth methods from config.
func BuildAuthMethods(cfg AuthConfig) ([]ssh.AuthMethod, error) {
	if cfg.Signer != nil {
		return []ssh.AuthMethod{ssh.PublicKeys(cfg.Signer)}, nil
	}

	if cfg.Password != "" {
		return []ssh.AuthMethod{
			PasswordAuth(cfg.Password),
			KeyboardInteractiveAuth(cfg.Password),
		}, nil
	}

	return nil, &remoteerr.Error{
		Kind:       remoteerr.NoAuthenticationMethod,
		Op:         "connect",
		Suggestion: "provide a password or an identity file",
	}
}

// BuildHostKeyCallback creates a host key callback from known_hosts.
// A missing known_hosts file accepts any host key.
func BuildHostKeyCallback(fsys ports.FileSystem, knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		knownHostsPath = "~/.ssh/known_hosts"
	}

	expanded := expandPath(fsys, knownHostsPath)

	if _, err := fsys.Stat(expanded); err != nil {
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			return nil
		}, nil
	}

	callback, err := knownhosts.New(expanded)
	if err != nil {
		return nil, fmt.Errorf("parse known_hosts: %w", err)
	}

	return callback, nil
}

// InsecureHostKeyCallback returns a callback that accepts any host key.
// Use only for testing or when host key verification is explicitly disabled.
func InsecureHostKeyCallback() ssh.HostKeyCallback {
	return ssh.InsecureIgnoreHostKey()
}

// expandPath expands ~ to home directory.
func expandPath(fsys ports.FileSystem, path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := fsys.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// PasswordAuth returns a password auth method.
func PasswordAuth(password string) ssh.AuthMethod {
	return ssh.Password(password)
}

// KeyboardInteractiveAuth returns a keyboard-interactive auth method that
// answers every question with password.
func KeyboardInteractiveAuth(password string) ssh.AuthMethod {
	return ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}
		return answers, nil
	})
}
