package ssh

import (
	"bufio"
	"bytes"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ppkFile is the parsed text of a PuTTY private key file.
type ppkFile struct {
	Algorithm  string
	Encryption string
	Public     []byte
	Private    []byte
}

// parsePPK reads the header fields and base64 bodies of a PuTTY key file.
func parsePPK(data []byte) (*ppkFile, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	f := &ppkFile{}

	readLines := func(n int) ([]byte, error) {
		var b strings.Builder
		for i := 0; i < n; i++ {
			if !sc.Scan() {
				return nil, errors.New("truncated key body")
			}
			b.WriteString(strings.TrimSpace(sc.Text()))
		}
		return base64.StdEncoding.DecodeString(b.String())
	}

	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch {
		case strings.HasPrefix(key, "PuTTY-User-Key-File-"):
			f.Algorithm = value
		case key == "Encryption":
			f.Encryption = value
		case key == "Public-Lines", key == "Private-Lines":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			body, err := readLines(n)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			if key == "Public-Lines" {
				f.Public = body
			} else {
				f.Private = body
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if f.Algorithm == "" {
		return nil, errors.New("not a PuTTY key file")
	}
	return f, nil
}

// signerFromPPK converts an unencrypted PuTTY RSA key into a signer.
func signerFromPPK(data []byte) (ssh.Signer, error) {
	f, err := parsePPK(data)
	if err != nil {
		return nil, err
	}
	if f.Algorithm != ssh.KeyAlgoRSA {
		return nil, fmt.Errorf("unsupported PuTTY key algorithm %q", f.Algorithm)
	}
	if f.Encryption != "none" {
		return nil, fmt.Errorf("encrypted PuTTY keys (%s) are not supported", f.Encryption)
	}

	var pub struct {
		Type string
		E    *big.Int
		N    *big.Int
	}
	if err := ssh.Unmarshal(f.Public, &pub); err != nil {
		return nil, fmt.Errorf("public blob: %w", err)
	}

	var priv struct {
		D    *big.Int
		P    *big.Int
		Q    *big.Int
		Iqmp *big.Int
		Rest []byte `ssh:"rest"`
	}
	if err := ssh.Unmarshal(f.Private, &priv); err != nil {
		return nil, fmt.Errorf("private blob: %w", err)
	}

	if !pub.E.IsInt64() {
		return nil, errors.New("public exponent out of range")
	}
	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: pub.N, E: int(pub.E.Int64())},
		D:         priv.D,
		Primes:    []*big.Int{priv.P, priv.Q},
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid RSA key: %w", err)
	}
	key.Precompute()

	return ssh.NewSignerFromKey(key)
}
