package ssh

import (
	"crypto/dsa" //nolint:staticcheck // legacy DSA keys are still accepted
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/acolita/remote-files-mcp/internal/ports"
	"github.com/acolita/remote-files-mcp/internal/remoteerr"
	"golang.org/x/crypto/ssh"
)

// Outcome is the tagged result of a single key-loading attempt.
type Outcome int

const (
	// Skip means the strategy did not recognize the key. The chain continues.
	Skip Outcome = iota
	// Success means Signer holds a usable key.
	Success
	// NeedsPassphrase means the key is encrypted and no passphrase was given.
	NeedsPassphrase
)

// KeyResult is returned by a KeyStrategy.
type KeyResult struct {
	Outcome Outcome
	Signer  ssh.Signer
	Err     error
}

// KeyStrategy tries to load a private key of one algorithm.
type KeyStrategy struct {
	Name string
	Load func(data []byte, passphrase string) KeyResult
}

// DefaultKeyStrategies returns the standard chain: RSA, Ed25519, ECDSA, DSA.
func DefaultKeyStrategies() []KeyStrategy {
	return []KeyStrategy{
		{Name: "RSA", Load: rawKeyLoader(func(k any) bool {
			_, ok := k.(*rsa.PrivateKey)
			return ok
		})},
		{Name: "Ed25519", Load: rawKeyLoader(func(k any) bool {
			switch k.(type) {
			case ed25519.PrivateKey, *ed25519.PrivateKey:
				return true
			}
			return false
		})},
		{Name: "ECDSA", Load: rawKeyLoader(func(k any) bool {
			_, ok := k.(*ecdsa.PrivateKey)
			return ok
		})},
		{Name: "DSA", Load: rawKeyLoader(func(k any) bool {
			_, ok := k.(*dsa.PrivateKey)
			return ok
		})},
	}
}

// rawKeyLoader parses PEM, PKCS#8 and OpenSSH private keys and accepts the
// result only when accept recognizes its type.
func rawKeyLoader(accept func(any) bool) func([]byte, string) KeyResult {
	return func(data []byte, passphrase string) KeyResult {
		key, err := ssh.ParseRawPrivateKey(data)

		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			if passphrase == "" {
				return KeyResult{Outcome: NeedsPassphrase, Err: err}
			}
			key, err = ssh.ParseRawPrivateKeyWithPassphrase(data, []byte(passphrase))
		}
		if err != nil {
			return KeyResult{Outcome: Skip, Err: err}
		}
		if !accept(key) {
			return KeyResult{Outcome: Skip, Err: fmt.Errorf("key type %T not handled", key)}
		}

		signer, err := ssh.NewSignerFromKey(key)
		if err != nil {
			return KeyResult{Outcome: Skip, Err: err}
		}
		return KeyResult{Outcome: Success, Signer: signer}
	}
}

// Identity is a loaded private key.
type Identity struct {
	// Path is the file the key was actually read from.
	Path        string
	Type        string
	Fingerprint string
	Signer      ssh.Signer
}

func newIdentity(path string, signer ssh.Signer) *Identity {
	pub := signer.PublicKey()
	return &Identity{
		Path:        path,
		Type:        pub.Type(),
		Fingerprint: ssh.FingerprintSHA256(pub),
		Signer:      signer,
	}
}

// LoadIdentity loads the private key at path.
//
// Public key files are rejected without being read. PuTTY files are converted
// when possible; otherwise the sibling file without the .ppk extension is
// loaded instead. An encrypted key with no passphrase yields
// remoteerr.ErrPassphraseRequired.
func LoadIdentity(fsys ports.FileSystem, path, passphrase string, strategies []KeyStrategy) (*Identity, error) {
	path = expandPath(fsys, path)
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".pub" {
		return nil, &remoteerr.Error{
			Kind:       remoteerr.KeyFormatUnsupported,
			Op:         "load key",
			Path:       path,
			Err:        errors.New("public key files cannot be used for authentication"),
			Suggestion: keySuggestion(fsys, path),
		}
	}

	if ext == ".ppk" {
		data, err := fsys.ReadFile(path)
		if err == nil {
			if signer, convErr := signerFromPPK(data); convErr == nil {
				return newIdentity(path, signer), nil
			}
		}
		sibling := strings.TrimSuffix(path, filepath.Ext(path))
		if _, err := fsys.Stat(sibling); err != nil {
			return nil, &remoteerr.Error{
				Kind:       remoteerr.KeyLoadFailure,
				Op:         "load key",
				Path:       path,
				Err:        errors.New("PuTTY key could not be converted"),
				Suggestion: keySuggestion(fsys, path),
			}
		}
		path = sibling
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &remoteerr.Error{Kind: remoteerr.KeyLoadFailure, Op: "load key", Path: path, Err: err}
	}
	return loadChain(path, data, passphrase, strategies, fsys)
}

func loadChain(path string, data []byte, passphrase string, strategies []KeyStrategy, fsys ports.FileSystem) (*Identity, error) {
	var lastErr error
	for _, s := range strategies {
		r := s.Load(data, passphrase)
		switch r.Outcome {
		case Success:
			return newIdentity(path, r.Signer), nil
		case NeedsPassphrase:
			if passphrase == "" {
				return nil, &remoteerr.Error{Kind: remoteerr.PassphraseRequired, Op: "load key", Path: path, Err: r.Err}
			}
		}
		if r.Err != nil {
			lastErr = fmt.Errorf("%s: %w", s.Name, r.Err)
		}
	}

	return nil, &remoteerr.Error{
		Kind:       remoteerr.KeyLoadFailure,
		Op:         "load key",
		Path:       path,
		Err:        lastErr,
		Suggestion: keySuggestion(fsys, path),
	}
}

// keySuggestion returns a hint based on the identity file's extension.
func keySuggestion(fsys ports.FileSystem, path string) string {
	stripped := strings.TrimSuffix(path, filepath.Ext(path))
	_, statErr := fsys.Stat(stripped)
	exists := statErr == nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppk":
		if exists {
			return "try the OpenSSH key " + stripped
		}
		return "convert the PuTTY key with: puttygen key.ppk -O private-openssh -o key"
	case ".pub":
		if exists {
			return "use the private key " + stripped
		}
		return "use the private key instead of the .pub file"
	default:
		return "supported formats: RSA, Ed25519, ECDSA and DSA keys in PEM, PKCS#8 or OpenSSH format"
	}
}
