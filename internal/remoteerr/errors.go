// Package remoteerr defines the error taxonomy shared by the session, the
// file store and the tool surface.
package remoteerr

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pkg/sftp"
)

// Kind classifies a failure.
type Kind int

const (
	ProtocolError Kind = iota
	NotConnected
	AuthenticationFailed
	PassphraseRequired
	KeyFormatUnsupported
	KeyLoadFailure
	PathNotFound
	PermissionDenied
	NoAuthenticationMethod
	ConnectionError
)

var kindNames = map[Kind]string{
	ProtocolError:          "protocol error",
	NotConnected:           "not connected",
	AuthenticationFailed:   "authentication failed",
	PassphraseRequired:     "passphrase required",
	KeyFormatUnsupported:   "unsupported key format",
	KeyLoadFailure:         "key load failure",
	PathNotFound:           "path not found",
	PermissionDenied:       "permission denied",
	NoAuthenticationMethod: "no authentication method",
	ConnectionError:        "connection error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// PassphraseRequiredMessage is the exact message callers match on to re-prompt.
const PassphraseRequiredMessage = "PASSPHRASE_REQUIRED"

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrNotConnected           = &Error{Kind: NotConnected}
	ErrAuthenticationFailed   = &Error{Kind: AuthenticationFailed}
	ErrPassphraseRequired     = &Error{Kind: PassphraseRequired}
	ErrKeyFormatUnsupported   = &Error{Kind: KeyFormatUnsupported}
	ErrKeyLoadFailure         = &Error{Kind: KeyLoadFailure}
	ErrPathNotFound           = &Error{Kind: PathNotFound}
	ErrProtocol               = &Error{Kind: ProtocolError}
	ErrPermissionDenied       = &Error{Kind: PermissionDenied}
	ErrNoAuthenticationMethod = &Error{Kind: NoAuthenticationMethod}
	ErrConnection             = &Error{Kind: ConnectionError}
)

// Error is a classified failure from a remote operation.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error

	// Suggestion is an optional hint shown to the user.
	Suggestion string
}

// New returns an *Error of the given kind.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	if e.Kind == PassphraseRequired {
		return PassphraseRequiredMessage
	}

	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Path != "" {
			b.WriteString(" ")
			b.WriteString(e.Path)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Suggestion != "" {
		b.WriteString(" (")
		b.WriteString(e.Suggestion)
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or ProtocolError if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ProtocolError
}

// Classify wraps a transport error with the Kind that best describes it.
// An err that is already an *Error is returned unchanged.
func Classify(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	kind := ProtocolError
	var status *sftp.StatusError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = PathNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = PermissionDenied
	case errors.As(err, &status):
		switch status.FxCode() {
		case sftp.ErrSSHFxNoSuchFile:
			kind = PathNotFound
		case sftp.ErrSSHFxPermissionDenied:
			kind = PermissionDenied
		}
	}
	return New(kind, op, path, err)
}
