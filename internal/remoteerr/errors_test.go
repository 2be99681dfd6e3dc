package remoteerr

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/pkg/sftp"
)

func TestErrorIs(t *testing.T) {
	err := New(PathNotFound, "stat", "/missing", fs.ErrNotExist)
	wrapped := fmt.Errorf("list: %w", err)

	if !errors.Is(wrapped, ErrPathNotFound) {
		t.Error("errors.Is(wrapped, ErrPathNotFound) = false, want true")
	}
	if errors.Is(wrapped, ErrPermissionDenied) {
		t.Error("errors.Is(wrapped, ErrPermissionDenied) = true, want false")
	}
	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Error("errors.Is(wrapped, fs.ErrNotExist) = false, want true")
	}
}

func TestPassphraseRequiredMessage(t *testing.T) {
	err := &Error{Kind: PassphraseRequired, Op: "load key", Path: "/home/u/.ssh/id_rsa"}
	if got := err.Error(); got != "PASSPHRASE_REQUIRED" {
		t.Errorf("got %q, want %q", got, "PASSPHRASE_REQUIRED")
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Kind:       KeyLoadFailure,
		Op:         "load key",
		Path:       "/k.ppk",
		Err:        errors.New("bad format"),
		Suggestion: "try /k",
	}
	want := "load key /k.ppk: key load failure: bad format (try /k)"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not exist", err: fs.ErrNotExist, want: PathNotFound},
		{name: "wrapped permission", err: fmt.Errorf("open: %w", fs.ErrPermission), want: PermissionDenied},
		{name: "sftp no such file", err: &sftp.StatusError{Code: 2}, want: PathNotFound},
		{name: "sftp permission", err: &sftp.StatusError{Code: 3}, want: PermissionDenied},
		{name: "sftp failure", err: &sftp.StatusError{Code: 4}, want: ProtocolError},
		{name: "other", err: errors.New("connection lost"), want: ProtocolError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("op", "/p", tt.err)
			if k := KindOf(got); k != tt.want {
				t.Errorf("KindOf(Classify(%v)) = %v, want %v", tt.err, k, tt.want)
			}
		})
	}
}

func TestClassify_KeepsExistingKind(t *testing.T) {
	orig := New(NotConnected, "list", "/", nil)
	if got := Classify("other", "/x", orig); got != orig {
		t.Errorf("Classify replaced an existing *Error: %v", got)
	}
	if Classify("op", "/", nil) != nil {
		t.Error("Classify(nil) != nil")
	}
}

func TestResultOf(t *testing.T) {
	if r := ResultOf(nil, "done"); !r.Success || r.Message != "done" {
		t.Errorf("ResultOf(nil) = %+v", r)
	}

	r := ResultOf(fmt.Errorf("connect: %w", ErrPassphraseRequired), "done")
	if r.Success || r.Message != PassphraseRequiredMessage {
		t.Errorf("got %+v, want failure with %q", r, PassphraseRequiredMessage)
	}

	r = ResultOf(New(AuthenticationFailed, "connect", "", errors.New("denied")), "done")
	if r.Success || !strings.Contains(r.Message, "authentication failed") {
		t.Errorf("got %+v", r)
	}
}
