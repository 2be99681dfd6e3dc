// Package security provides credential storage, command filtering and
// authentication rate limiting for remote-files-mcp.
package security

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used for keyring entries.
const KeyringService = "remote-files-mcp"

// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
var ErrKeyringUnavailable = errors.New("keyring not available")

// CredentialStore keeps SSH passwords and key passphrases in the OS keyring
// (macOS Keychain, Linux Secret Service, Windows Credential Manager).
type CredentialStore struct {
	mu      sync.RWMutex
	enabled bool
	logger  *slog.Logger
}

// NewCredentialStore probes the keyring and returns a store that is
// disabled when the keyring cannot be written.
func NewCredentialStore(logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	cs := &CredentialStore{enabled: true, logger: logger}

	probe := "__remote_files_mcp_probe__"
	if err := keyring.Set(KeyringService, probe, "probe"); err != nil {
		logger.Debug("keyring not available", slog.String("error", err.Error()))
		cs.enabled = false
		return cs
	}
	_ = keyring.Delete(KeyringService, probe)

	logger.Debug("keyring storage enabled")
	return cs
}

// IsEnabled reports whether the keyring is in use.
func (cs *CredentialStore) IsEnabled() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.enabled
}

// SetEnabled turns keyring use on or off.
func (cs *CredentialStore) SetEnabled(enabled bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.enabled = enabled
}

func passwordKey(host, user string) string {
	return fmt.Sprintf("password:%s@%s", user, host)
}

func passphraseKey(keyPath string) string {
	return "passphrase:" + keyPath
}

// StorePassword saves the SSH password for user@host.
func (cs *CredentialStore) StorePassword(host, user, password string) error {
	if err := cs.set(passwordKey(host, user), password); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	cs.logger.Debug("stored password in keyring", slog.String("user", user), slog.String("host", host))
	return nil
}

// Password returns the stored password for user@host. A missing entry
// yields "" and no error.
func (cs *CredentialStore) Password(host, user string) (string, error) {
	v, err := cs.get(passwordKey(host, user))
	if err != nil {
		return "", fmt.Errorf("get password: %w", err)
	}
	return v, nil
}

// DeletePassword removes the stored password for user@host.
func (cs *CredentialStore) DeletePassword(host, user string) error {
	return cs.delete(passwordKey(host, user))
}

// StorePassphrase saves the passphrase of an identity file.
func (cs *CredentialStore) StorePassphrase(keyPath, passphrase string) error {
	if err := cs.set(passphraseKey(keyPath), passphrase); err != nil {
		return fmt.Errorf("store passphrase: %w", err)
	}
	cs.logger.Debug("stored passphrase in keyring", slog.String("key_path", keyPath))
	return nil
}

// Passphrase returns the stored passphrase of an identity file.
func (cs *CredentialStore) Passphrase(keyPath string) (string, error) {
	v, err := cs.get(passphraseKey(keyPath))
	if err != nil {
		return "", fmt.Errorf("get passphrase: %w", err)
	}
	return v, nil
}

// DeletePassphrase removes the stored passphrase of an identity file.
func (cs *CredentialStore) DeletePassphrase(keyPath string) error {
	return cs.delete(passphraseKey(keyPath))
}

func (cs *CredentialStore) set(key, value string) error {
	if !cs.IsEnabled() {
		return ErrKeyringUnavailable
	}
	return keyring.Set(KeyringService, key, value)
}

func (cs *CredentialStore) get(key string) (string, error) {
	if !cs.IsEnabled() {
		return "", ErrKeyringUnavailable
	}
	v, err := keyring.Get(KeyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (cs *CredentialStore) delete(key string) error {
	if !cs.IsEnabled() {
		return ErrKeyringUnavailable
	}
	err := keyring.Delete(KeyringService, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
