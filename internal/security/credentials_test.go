package security

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func newMockStore(t *testing.T) *CredentialStore {
	t.Helper()
	keyring.MockInit()
	cs := NewCredentialStore(nil)
	if !cs.IsEnabled() {
		t.Fatal("mock keyring should be enabled")
	}
	return cs
}

func TestCredentialStorePassword(t *testing.T) {
	cs := newMockStore(t)

	if err := cs.StorePassword("pi.local", "pi", "raspberry"); err != nil {
		t.Fatalf("StorePassword() error: %v", err)
	}
	got, err := cs.Password("pi.local", "pi")
	if err != nil {
		t.Fatalf("Password() error: %v", err)
	}
	if got != "raspberry" {
		t.Errorf("got %q, want %q", got, "raspberry")
	}

	other, err := cs.Password("pi.local", "root")
	if err != nil || other != "" {
		t.Errorf("Password(other user) = %q, %v; want empty", other, err)
	}

	if err := cs.DeletePassword("pi.local", "pi"); err != nil {
		t.Fatalf("DeletePassword() error: %v", err)
	}
	if got, _ := cs.Password("pi.local", "pi"); got != "" {
		t.Errorf("password still present: %q", got)
	}
	if err := cs.DeletePassword("pi.local", "pi"); err != nil {
		t.Errorf("second DeletePassword() error: %v", err)
	}
}

func TestCredentialStorePassphrase(t *testing.T) {
	cs := newMockStore(t)

	if err := cs.StorePassphrase("/home/test/.ssh/id_ed25519", "open sesame"); err != nil {
		t.Fatalf("StorePassphrase() error: %v", err)
	}
	got, err := cs.Passphrase("/home/test/.ssh/id_ed25519")
	if err != nil {
		t.Fatalf("Passphrase() error: %v", err)
	}
	if got != "open sesame" {
		t.Errorf("got %q, want %q", got, "open sesame")
	}

	if err := cs.DeletePassphrase("/home/test/.ssh/id_ed25519"); err != nil {
		t.Fatalf("DeletePassphrase() error: %v", err)
	}
	if got, _ := cs.Passphrase("/home/test/.ssh/id_ed25519"); got != "" {
		t.Errorf("passphrase still present: %q", got)
	}
}

func TestCredentialStoreDisabled(t *testing.T) {
	cs := newMockStore(t)
	cs.SetEnabled(false)

	if err := cs.StorePassword("h", "u", "p"); !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("StorePassword() = %v, want ErrKeyringUnavailable", err)
	}
	if _, err := cs.Passphrase("/k"); !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("Passphrase() = %v, want ErrKeyringUnavailable", err)
	}
	if err := cs.DeletePassphrase("/k"); !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("DeletePassphrase() = %v, want ErrKeyringUnavailable", err)
	}
}

func TestCredentialStoreKeyringError(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus unavailable"))
	defer keyring.MockInit()

	cs := NewCredentialStore(nil)
	if cs.IsEnabled() {
		t.Error("store should be disabled when the keyring fails")
	}
}
